package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:     %s (pid %d)\n", runningLabel(status.Running), status.PID)
			fmt.Fprintf(out, "In flight:  %d\n", status.InFlight)

			rows := [][]string{
				{"pending", strconv.Itoa(status.Pending)},
				{"processing", strconv.Itoa(status.Processing)},
				{"completed", strconv.Itoa(status.Completed)},
				{"failed", strconv.Itoa(status.Failed)},
			}
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, "Count"))

			if len(status.Dependencies) > 0 {
				depRows := make([][]string, 0, len(status.Dependencies))
				for _, dep := range status.Dependencies {
					depRows = append(depRows, []string{dep.Name, dep.Command, availableLabel(dep.Available), dep.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Available", "Detail"}, depRows))
			}
			return nil
		},
	}
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func availableLabel(available bool) string {
	if available {
		return "yes"
	}
	return "no"
}
