package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newExecutionsCmd() *cobra.Command {
	var (
		state    string
		sourceID string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "executions [execution_id]",
		Short: "Show execution history, or one execution in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showExecution(args[0])
			}
			return listExecutions(state, sourceID, limit, offset)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (RUNNING, SUCCESS, FAILED)")
	cmd.Flags().StringVar(&sourceID, "source", "", "Filter by source id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func listExecutions(state, sourceID string, limit, offset int) error {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if state != "" {
		q.Set("state", state)
	}
	if sourceID != "" {
		q.Set("source_id", sourceID)
	}

	resp, err := client.Get("/api/v1/executions?" + q.Encode())
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}

	var data []map[string]any
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if len(data) == 0 {
		fmt.Println("No executions found.")
		return nil
	}

	fmt.Printf("%-42s  %-8s  %-6s  %-8s  %s\n", "ID", "SOURCE", "SEQ", "STATE", "STARTED")
	fmt.Printf("%-42s  %-8s  %-6s  %-8s  %s\n", "--", "------", "---", "-----", "-------")
	for _, exec := range data {
		id, _ := exec["id"].(string)
		src, _ := exec["source_id"].(float64)
		seq, _ := exec["seq"].(float64)
		state, _ := exec["state"].(string)
		startedAt, _ := exec["started_at"].(string)
		fmt.Printf("%-42s  %-8d  %-6d  %-8s  %s\n", id, uint64(src), uint64(seq), state, startedAt)
	}

	if resp.Pagination != nil && resp.Pagination.HasMore {
		fmt.Printf("\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
	}
	return nil
}

func showExecution(id string) error {
	resp, err := client.Get("/api/v1/executions/" + id)
	if err != nil {
		return fmt.Errorf("get execution: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	src, _ := data["source_id"].(float64)
	seq, _ := data["seq"].(float64)
	state, _ := data["state"].(string)

	fmt.Printf("Execution: %s\n", id)
	fmt.Printf("  Source:   %d\n", uint64(src))
	fmt.Printf("  Seq:      %d\n", uint64(seq))
	fmt.Printf("  State:    %s\n", state)
	if et, ok := data["executor_type"].(string); ok && et != "" {
		fmt.Printf("  Executor: %s\n", et)
	}
	if wl, ok := data["workload"].(map[string]any); ok {
		if ordered, _ := wl["ordered"].(bool); ordered {
			sig, _ := wl["signature"].(string)
			fmt.Printf("  Ordering: sequential(%s)\n", sig)
		} else {
			fmt.Printf("  Ordering: independent\n")
		}
	}
	if startedAt, ok := data["started_at"].(string); ok {
		fmt.Printf("  Started:  %s\n", startedAt)
	}
	if completedAt, ok := data["completed_at"].(string); ok && completedAt != "" {
		fmt.Printf("  Completed: %s\n", completedAt)
	}
	if details, ok := data["details"].(map[string]any); ok {
		if out, _ := details["output"].(string); out != "" {
			fmt.Printf("  Output:   %s\n", out)
		}
		if stderr, _ := details["stderr"].(string); stderr != "" {
			fmt.Printf("  Stderr:   %s\n", stderr)
		}
		if errMsg, _ := details["error"].(string); errMsg != "" {
			fmt.Printf("  Error:    %s\n", errMsg)
		}
		if ec, ok := details["exit_code"].(float64); ok && ec != 0 {
			fmt.Printf("  ExitCode: %d\n", int(ec))
		}
	}
	return nil
}
