package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openclaw/control-room/internal/mcpserver"
)

func mcpServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the control room tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mcpserver.New(os.Stdin, os.Stdout, mcpserver.Catalog(cfg))
			slog.Info("mcp server listening on stdio", "protocol", mcpserver.ProtocolVersion)
			if err := server.Serve(ctx); err != nil {
				// A broken frame means the transport is unrecoverable.
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}

func mcpFlowCmd() *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "mcp-flow",
		Short: "Run a self-check flow against a spawned mcp-server child",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			serverCmd := []string{exe, "mcp-server"}
			if configPath != "" {
				serverCmd = append(serverCmd, "--config", configPath)
			}

			calls := map[string]map[string]any{
				mcpserver.ToolStatusBuild: {"liveRuntime": true},
				mcpserver.ToolMaterialize: {},
			}
			if version != "" {
				calls[mcpserver.ToolExtractNotes] = map[string]any{"version": version}
			}

			steps, err := mcpserver.RunFlow(cmd.Context(), serverCmd, calls)
			failed := 0
			for _, step := range steps {
				state := "ok"
				if !step.OK {
					state = "fail"
					failed++
				}
				if step.Tool != "" {
					fmt.Printf("%-12s %-40s %s %s\n", step.Method, step.Tool, state, step.Detail)
				} else {
					fmt.Printf("%-12s %-40s %s %s\n", step.Method, "-", state, step.Detail)
				}
			}
			if err != nil {
				return fmt.Errorf("flow aborted: %w", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d flow step(s) failed", failed)
			}
			fmt.Printf("mcp flow: %d steps ok\n", len(steps))
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "release-version", "", "also exercise release note extraction for this version")
	return cmd
}
