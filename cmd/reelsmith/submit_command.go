package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var scriptFile string
	var voiceID string
	var callbackURL string

	cmd := &cobra.Command{
		Use:   "submit <query> [script]",
		Short: "Queue a new short video task",
		Long: "Queue a new short video task. The script is read from the second " +
			"argument, from --script-file, or from stdin when neither is given.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := resolveScript(args, scriptFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			task, err := ctx.client().Submit(cmd.Context(), api.SubmitRequest{
				Script:      script,
				Query:       args[0],
				VoiceID:     voiceID,
				CallbackURL: callbackURL,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued task %s (status %s)\n", task.ID, task.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptFile, "script-file", "f", "", "Read the narration script from a file")
	cmd.Flags().StringVar(&voiceID, "voice", "", "Override the narration voice")
	cmd.Flags().StringVar(&callbackURL, "callback", "", "URL to receive the finished video")
	return cmd
}

func resolveScript(args []string, scriptFile string, stdin io.Reader) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	if strings.TrimSpace(scriptFile) != "" {
		data, err := os.ReadFile(scriptFile)
		if err != nil {
			return "", fmt.Errorf("read script file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read script from stdin: %w", err)
	}
	script := strings.TrimSpace(string(data))
	if script == "" {
		return "", fmt.Errorf("no script provided; pass it as an argument, via --script-file, or on stdin")
	}
	return script, nil
}
