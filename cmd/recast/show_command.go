package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show a processing job, its transcript, and generated assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				view, err := client.ShowJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "Job:    %s\n", view.Job.ID)
				fmt.Fprintf(out, "Status: %s\n", view.Job.Status)
				if view.Job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:  %s\n", view.Job.ErrorMessage)
				}

				if view.Transcript != nil {
					fmt.Fprintf(out, "\nTranscript (%s, %s):\n", view.Transcript.Language, view.Transcript.Method)
					if full {
						fmt.Fprintln(out, view.Transcript.FullText)
					} else {
						fmt.Fprintln(out, truncateCell(view.Transcript.FullText, 200))
					}
					if view.Transcript.Summary != "" {
						fmt.Fprintf(out, "\nSummary:\n%s\n", view.Transcript.Summary)
					}
				}

				if len(view.Assets) > 0 {
					fmt.Fprintln(out, "\nAssets:")
					for _, asset := range view.Assets {
						fmt.Fprintf(out, "  %s  %s  (%s)\n", asset.ID, asset.Kind, asset.Status)
						if full {
							fmt.Fprintln(out, indent(asset.Content, "    "))
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print full transcript and asset contents")
	return cmd
}

func indent(value, prefix string) string {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
