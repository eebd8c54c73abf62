package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/control-room/internal/config"
	"github.com/openclaw/control-room/internal/status"
)

func statusInputsFromConfig(cfg *config.Config, workspace, jobsFile string) status.Inputs {
	inputs := status.Inputs{
		WorkspaceRoot:       cfg.Workspace,
		JobsFile:            cfg.Paths.JobsFile,
		SessionsFile:        cfg.Paths.SessionsFile,
		RunsDir:             cfg.Paths.RunsDir,
		SubagentFile:        cfg.Paths.SubagentFile,
		RuntimeStateFile:    cfg.Paths.RuntimeStateFile,
		WorkstreamStateFile: cfg.Paths.WorkstreamStateFile,
		ReliabilityLogFile:  cfg.Paths.ReliabilityLogFile,
		WatchdogScript:      cfg.WatchdogScript,
		ControlRoomRoot:     cfg.ControlRoomRoot,
	}
	if workspace != "" {
		inputs.WorkspaceRoot = workspace
	}
	if jobsFile != "" {
		inputs.JobsFile = jobsFile
	}
	return inputs
}

func buildStatusJSONCmd() *cobra.Command {
	var (
		workspace string
		jobsFile  string
		outFile   string
		watch     bool
		sanitize  bool
	)
	cmd := &cobra.Command{
		Use:   "build-status-json",
		Short: "Build the dashboard status payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var mu sync.Mutex
			inputs := statusInputsFromConfig(cfg, workspace, jobsFile)
			if outFile == "" {
				outFile = cfg.Paths.StatusOutFile
			}

			build := func(ctx context.Context) {
				mu.Lock()
				current := inputs
				mu.Unlock()

				payload := status.BuildPayload(ctx, current, time.Now())
				if sanitize {
					payload = status.SanitizeForStaticSnapshot(payload)
				}
				if err := status.WritePayload(outFile, payload); err != nil {
					slog.Error("status build failed", "error", err)
					return
				}
				slog.Info("status payload written",
					"out", outFile,
					"runtime", payload.Runtime.Status,
					"active", payload.Runtime.ActiveCount,
					"source", payload.Runtime.Source)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			build(ctx)
			if !watch {
				fmt.Printf("status payload: %s\n", outFile)
				return nil
			}

			// Config edits also trigger a rebuild with the new layout.
			reloadPath := configPath
			if reloadPath == "" {
				reloadPath = config.DefaultConfigPath()
			}
			if reloader, err := config.NewWatcher(reloadPath); err == nil {
				reloader.OnChange(func(next *config.Config) {
					mu.Lock()
					inputs = statusInputsFromConfig(next, workspace, jobsFile)
					mu.Unlock()
					build(ctx)
				})
				if err := reloader.Start(); err == nil {
					defer reloader.Stop()
				} else {
					slog.Debug("config reload disabled", "path", reloadPath, "error", err)
				}
			}

			watcher, err := status.NewWatcher(inputs, build)
			if err != nil {
				return err
			}
			defer watcher.Stop()
			return watcher.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace root override")
	cmd.Flags().StringVar(&jobsFile, "jobs-file", "", "jobs file override")
	cmd.Flags().StringVar(&outFile, "out", "", "output path override")
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild on input changes")
	cmd.Flags().BoolVar(&sanitize, "sanitize", false, "strip live runtime rows for a static fallback snapshot")
	return cmd
}
