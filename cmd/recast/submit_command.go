package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var workspaceID string
	var userID string

	cmd := &cobra.Command{
		Use:   "submit SOURCE",
		Short: "Submit a video URL or local file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				result, err := client.Submit(cmd.Context(), args[0], workspaceID, userID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Submitted video %s\n", result.VideoID)
				fmt.Fprintf(out, "Track progress with `recast show %s`\n", result.JobID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace the video belongs to")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Submitting user id")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
