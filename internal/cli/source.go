package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage job sources",
	}
	cmd.AddCommand(
		newSourceCreateCmd(),
		newSourceCloseCmd(),
		newSourceListCmd(),
	)
	return cmd
}

func newSourceCreateCmd() *cobra.Command {
	var buffer int

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new job source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"name": args[0]}
			if buffer > 0 {
				body["buffer"] = buffer
			}

			resp, err := client.Post("/api/v1/sources", body)
			if err != nil {
				return fmt.Errorf("create source: %w", err)
			}

			var data map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			id, _ := data["id"].(float64)
			fmt.Printf("Source created: %d (%s)\n", uint64(id), args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&buffer, "buffer", 0, "Item channel capacity (default server-side)")
	return cmd
}

func newSourceCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <source_id>",
		Short: "Close a source's stream; queued jobs still run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete("/api/v1/sources/" + args[0]); err != nil {
				return fmt.Errorf("close source: %w", err)
			}
			fmt.Printf("Source %s closed\n", args[0])
			return nil
		},
	}
}

func newSourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live sources with their scheduling state",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/sources")
			if err != nil {
				return fmt.Errorf("list sources: %w", err)
			}

			var data []map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No live sources.")
				return nil
			}

			fmt.Printf("%-8s  %-24s  %-8s  %-8s  %s\n", "ID", "NAME", "STATE", "PENDING", "IN-FLIGHT")
			fmt.Printf("%-8s  %-24s  %-8s  %-8s  %s\n", "--", "----", "-----", "-------", "---------")
			for _, src := range data {
				id, _ := src["id"].(float64)
				name, _ := src["name"].(string)
				state, _ := src["state"].(string)
				pending, _ := src["pending"].(float64)
				inFlight, _ := src["in_flight"].(float64)
				fmt.Printf("%-8d  %-24s  %-8s  %-8d  %d\n", uint64(id), name, state, int(pending), int(inFlight))
			}
			return nil
		},
	}
}
