package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recast/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List submitted videos and their processing state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				videos, err := client.ListVideos(cmd.Context(), strings.TrimSpace(statusFilter))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(videos) == 0 {
					fmt.Fprintln(out, "No videos found")
					return nil
				}
				fmt.Fprintln(out, renderVideoTable(videos))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by status (PENDING, PROCESSING, COMPLETED, FAILED)")
	cmd.AddCommand(newJobsRetryCommand(ctx))
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [VIDEO_ID...]",
		Short: "Reset failed videos back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonClient) error {
				retried, err := client.RetryFailed(cmd.Context(), args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if retried == 0 {
					fmt.Fprintln(out, "No failed videos to retry")
					return nil
				}
				fmt.Fprintf(out, "Reset %d video(s) for retry\n", retried)
				return nil
			})
		},
	}
}

func renderVideoTable(videos []*store.VideoSource) string {
	headers := []string{"ID", "Status", "Title", "Source", "Updated"}
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		source := video.SourceURL
		if source == "" {
			source = video.SourcePath
		}
		rows = append(rows, []string{
			video.ID,
			string(video.Status),
			truncateCell(video.Title, 40),
			truncateCell(source, 48),
			video.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
}

func truncateCell(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
