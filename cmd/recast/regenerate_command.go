package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate ASSET_ID",
		Short: "Regenerate one content asset from its stored transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				asset, err := client.Regenerate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Regenerated %s (%s)\n\n", asset.ID, asset.Kind)
				fmt.Fprintln(out, asset.Content)
				return nil
			})
		},
	}
}
