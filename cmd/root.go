// Package cmd wires the control room pipeline into a cobra CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/control-room/internal/config"
)

var (
	configPath string
	verbose    bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control-room",
		Short: "Runtime truth pipeline and dashboard payload builder",
		Long: "control-room collects runtime events from the cron runner, subagent\n" +
			"registry, and session store, materializes them into a deterministic\n" +
			"snapshot, and builds the dashboard status payload.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.openclaw/control-room.json5)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(collectRuntimeEventsCmd())
	cmd.AddCommand(materializeRuntimeStateCmd())
	cmd.AddCommand(buildStatusJSONCmd())
	cmd.AddCommand(extractReleaseNotesCmd())
	cmd.AddCommand(issueSnapshotCmd())
	cmd.AddCommand(mcpServerCmd())
	cmd.AddCommand(mcpFlowCmd())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
