// Package cli implements the goflux command line client.
package cli

import (
	"log/slog"
	"os"

	"github.com/me/goflux/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking GOFLUX_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("GOFLUX_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the goflux CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goflux",
		Short: "GoFlux — multi-source job scheduling engine",
		Long:  "GoFlux registers job sources, pushes jobs onto their streams, and inspects execution history.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "GoFlux server URL (or GOFLUX_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSourceCmd(),
		newPushCmd(),
		newExecutionsCmd(),
		newWatchCmd(),
		newHealthCmd(),
	)

	return root
}
