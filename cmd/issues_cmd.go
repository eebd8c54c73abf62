package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/control-room/internal/issues"
)

func issueSnapshotCmd() *cobra.Command {
	var (
		repo    string
		limit   int
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "issue-snapshot",
		Short: "Capture a markdown snapshot of open GitHub issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if repo == "" {
				repo = cfg.Repo
			}
			if repo == "" {
				return fmt.Errorf("no repo configured; pass --repo or set repo in the config file")
			}

			list, err := issues.Fetch(cmd.Context(), repo, limit)
			if err != nil {
				return err
			}
			markdown := issues.RenderMarkdown(repo, list, time.Now())

			if outFile == "" {
				fmt.Print(markdown)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(outFile, []byte(markdown), 0644); err != nil {
				return err
			}
			slog.Info("issue snapshot written", "repo", repo, "issues", len(list), "out", outFile)
			fmt.Printf("issue snapshot: %s (%d open)\n", outFile, len(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository in owner/name form")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum issues to fetch")
	cmd.Flags().StringVar(&outFile, "out", "", "write the report to a file instead of stdout")
	return cmd
}
