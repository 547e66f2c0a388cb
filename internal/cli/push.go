package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPushCmd() *cobra.Command {
	var (
		executorType string
		payloadJSON  string
		signature    string
	)

	cmd := &cobra.Command{
		Use:   "push <source_id>",
		Short: "Append a job to a source's stream",
		Long: `Append a job to a source's stream.

The payload is a JSON object interpreted by the chosen executor, e.g.
  goflux push 1 --type local --payload '{"command": ["echo", "hi"]}'
  goflux push 1 --type script --payload '{"source": "1+1"}' --signature batch

Jobs given a --signature never overlap with other jobs sharing that
signature on the same source and start in push order. Jobs without one
run independently.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload map[string]any
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("parse --payload: %w", err)
				}
			}

			body := map[string]any{
				"executor_type": executorType,
				"payload":       payload,
			}
			if signature != "" {
				body["ordered"] = true
				body["signature"] = signature
			}

			if _, err := client.Post("/api/v1/sources/"+args[0]+"/jobs", body); err != nil {
				return fmt.Errorf("push job: %w", err)
			}
			fmt.Printf("Job pushed to source %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&executorType, "type", "local", "Executor type (local, script, sleep)")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Job payload as a JSON object")
	cmd.Flags().StringVar(&signature, "signature", "", "Ordering signature; jobs sharing it run sequentially")
	return cmd
}
