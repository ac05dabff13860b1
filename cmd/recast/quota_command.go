package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quota USER_ID",
		Short: "Show a user's monthly processing allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				decision, err := client.Quota(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Plan:  %s\n", decision.Plan)
				fmt.Fprintf(out, "Month: %s\n", decision.Month)
				if decision.Unlimited {
					fmt.Fprintf(out, "Used:  %d (unlimited plan)\n", decision.Processed)
					return nil
				}
				fmt.Fprintf(out, "Used:  %d of %d\n", decision.Processed, decision.Limit)
				fmt.Fprintf(out, "Left:  %d\n", decision.Remaining)
				if !decision.Allowed {
					fmt.Fprintln(out, "Monthly quota exhausted; new submissions will be rejected")
				}
				return nil
			})
		},
	}
}
