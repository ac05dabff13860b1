package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recast/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running:  %s\n", yesNo(status.Running))
				fmt.Fprintf(out, "Database: %s\n", status.DBPath)
				for _, s := range []store.VideoStatus{store.VideoPending, store.VideoProcessing, store.VideoCompleted, store.VideoFailed} {
					fmt.Fprintf(out, "%-10s %d\n", string(s)+":", status.Videos[s])
				}
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
