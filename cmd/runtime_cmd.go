package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/control-room/internal/runtime"
)

func collectRuntimeEventsCmd() *cobra.Command {
	var (
		jobsFile     string
		sessionsFile string
		runsDir      string
		subagentFile string
		eventsFile   string
	)
	cmd := &cobra.Command{
		Use:   "collect-runtime-events",
		Short: "Collect producer events into the append-only runtime journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if jobsFile == "" {
				jobsFile = cfg.Paths.JobsFile
			}
			if sessionsFile == "" {
				sessionsFile = cfg.Paths.SessionsFile
			}
			if runsDir == "" {
				runsDir = cfg.Paths.RunsDir
			}
			if subagentFile == "" {
				subagentFile = cfg.Paths.SubagentFile
			}
			if eventsFile == "" {
				eventsFile = cfg.Paths.EventsFile
			}

			events := runtime.Collect(runtime.CollectorInputs{
				JobsFile:     jobsFile,
				SessionsFile: sessionsFile,
				RunsDir:      runsDir,
				SubagentFile: subagentFile,
			})
			appended, err := runtime.AppendEvents(eventsFile, events)
			if err != nil {
				return err
			}

			slog.Info("runtime events collected", "collected", len(events), "appended", appended, "journal", eventsFile)
			fmt.Printf("runtime events: collected=%d appended=%d\n", len(events), appended)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobsFile, "jobs-file", "", "jobs file override")
	cmd.Flags().StringVar(&sessionsFile, "sessions-file", "", "sessions store override")
	cmd.Flags().StringVar(&runsDir, "runs-dir", "", "cron runs directory override")
	cmd.Flags().StringVar(&subagentFile, "subagent-file", "", "sub-agent registry override")
	cmd.Flags().StringVar(&eventsFile, "events-file", "", "journal path override")
	return cmd
}

func materializeRuntimeStateCmd() *cobra.Command {
	var (
		eventsFile string
		outFile    string
		staleMS    int64
		nowMS      int64
	)
	cmd := &cobra.Command{
		Use:   "materialize-runtime-state",
		Short: "Replay the journal into a materialized runtime snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if eventsFile == "" {
				eventsFile = cfg.Paths.EventsFile
			}
			if outFile == "" {
				outFile = cfg.Paths.RuntimeStateFile
			}
			if !cmd.Flags().Changed("stale-ms") && cfg.StaleMS > 0 {
				staleMS = cfg.StaleMS
			}

			started := time.Now()
			snapshot, err := runtime.Materialize(eventsFile, outFile, staleMS, nowMS)
			if err != nil {
				return err
			}

			slog.Info("runtime state materialized",
				"revision", snapshot.Revision,
				"active", snapshot.ActiveCount,
				"terminals", snapshot.TerminalCount,
				"droppedStale", snapshot.DroppedStaleCount,
				"took", time.Since(started))
			fmt.Printf("runtime materialized: revision=%s active=%d terminals=%d\n",
				snapshot.Revision, snapshot.ActiveCount, snapshot.TerminalCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventsFile, "events-file", "", "journal path override")
	cmd.Flags().StringVar(&outFile, "out", "", "snapshot output path override")
	cmd.Flags().Int64Var(&staleMS, "stale-ms", runtime.DefaultStaleMS, "stale window in milliseconds")
	cmd.Flags().Int64Var(&nowMS, "now-ms", 0, "clock override for deterministic replay")
	return cmd
}
