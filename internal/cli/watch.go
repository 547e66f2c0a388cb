package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var cursor int64

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream execution records live via SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/sse/executions"
			if cursor > 0 {
				path = fmt.Sprintf("%s?cursor=%d", path, cursor)
			}

			body, err := client.Stream(path)
			if err != nil {
				return fmt.Errorf("open stream: %w", err)
			}
			defer body.Close()

			fmt.Println("Watching executions (Ctrl-C to stop)...")

			scanner := bufio.NewScanner(body)
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data: ") {
					continue
				}

				var exec map[string]any
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &exec); err != nil {
					logger.Warn("bad SSE payload", "error", err)
					continue
				}

				id, _ := exec["id"].(string)
				src, _ := exec["source_id"].(float64)
				state, _ := exec["state"].(string)
				line = fmt.Sprintf("%-42s  source=%d  %s", id, uint64(src), state)
				if details, ok := exec["details"].(map[string]any); ok {
					if errMsg, _ := details["error"].(string); errMsg != "" {
						line += "  error=" + errMsg
					}
				}
				fmt.Println(line)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().Int64Var(&cursor, "cursor", 0, "Replay records past this history cursor first")
	return cmd
}
