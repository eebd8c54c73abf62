// Package release extracts per-version notes from a keep-a-changelog
// style CHANGELOG.md.
package release

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ErrVersionNotFound reports that the changelog has no section for the
// requested version.
var ErrVersionNotFound = errors.New("version not found in changelog")

var versionHeadingRE = regexp.MustCompile(`^##\s+v?(\d+\.\d+\.\d+)\b`)

// ExtractNotes returns the changelog section for version: everything
// between its "## <version>" heading and the next version heading. The
// leading "v" on either side is optional.
func ExtractNotes(changelog, version string) (string, error) {
	want := strings.TrimPrefix(strings.TrimSpace(version), "v")

	var collected []string
	capturing := false
	for _, line := range strings.Split(changelog, "\n") {
		match := versionHeadingRE.FindStringSubmatch(line)
		if match != nil {
			if capturing {
				break
			}
			if match[1] == want {
				capturing = true
			}
			continue
		}
		if capturing {
			collected = append(collected, line)
		}
	}
	if !capturing {
		return "", fmt.Errorf("version %s: %w", version, ErrVersionNotFound)
	}
	return strings.TrimSpace(strings.Join(collected, "\n")), nil
}

// ExtractNotesFile reads a changelog file and extracts the section for
// version.
func ExtractNotesFile(path, version string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read changelog: %w", err)
	}
	return ExtractNotes(string(data), version)
}
