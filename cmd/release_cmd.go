package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/control-room/internal/release"
)

func extractReleaseNotesCmd() *cobra.Command {
	var (
		version   string
		changelog string
	)
	cmd := &cobra.Command{
		Use:   "extract-release-notes",
		Short: "Print the changelog section for one release version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if version == "" {
				return fmt.Errorf("--version is required")
			}
			if changelog == "" {
				changelog = cfg.Paths.ChangelogFile
			}
			if changelog == "" {
				return fmt.Errorf("no changelog configured; pass --changelog or set controlRoomRoot")
			}

			notes, err := release.ExtractNotesFile(changelog, version)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println(notes)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "release version to extract (X.Y.Z)")
	cmd.Flags().StringVar(&changelog, "changelog", "", "changelog path override")
	return cmd
}
