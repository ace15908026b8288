package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := ctx.client().Tasks(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				rows = append(rows, []string{
					task.ID,
					task.Status,
					task.Query,
					truncate(task.Progress, 40),
					formatDuration(task.DurationSeconds),
					task.CreatedAt,
				})
			}
			out := renderTable(
				[]string{"ID", "Status", "Query", "Progress", "Duration", "Created"},
				rows, "Duration",
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var showLogs bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := ctx.client().Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTask(cmd, task, showLogs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showLogs, "logs", true, "Include the task's progress log")
	return cmd
}

func printTask(cmd *cobra.Command, task api.TaskView, showLogs bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", task.ID)
	fmt.Fprintf(out, "Status:   %s\n", task.Status)
	fmt.Fprintf(out, "Query:    %s\n", task.Query)
	if task.Progress != "" {
		fmt.Fprintf(out, "Progress: %s\n", task.Progress)
	}
	if task.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", task.ErrorMessage)
	}
	if task.OutputPath != "" {
		fmt.Fprintf(out, "Output:   %s\n", task.OutputPath)
	}
	if task.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(task.DurationSeconds))
	}
	fmt.Fprintf(out, "Created:  %s\n", task.CreatedAt)
	if task.CompletedAt != "" {
		fmt.Fprintf(out, "Finished: %s\n", task.CompletedAt)
	}
	if showLogs && len(task.Logs) > 0 {
		fmt.Fprintln(out, "Log:")
		for _, line := range task.Logs {
			fmt.Fprintf(out, "  %s  %s\n", line.LoggedAt, line.Message)
		}
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <task-id>",
		Short: "Download a completed task's video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := strings.TrimSpace(outputPath)
			if dest == "" {
				dest = filepath.Join(".", args[0]+".mp4")
			}
			if err := ctx.client().Download(cmd.Context(), args[0], dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file path")
	return cmd
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1fs", seconds)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
