package release

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const changelogFixture = `# Changelog

## v1.2.0 - 2026-08-20

### Added
- Runtime journal materializer
- Workstream lane transitions

## 1.1.0 - 2026-08-10

### Fixed
- Stale active-work detection off-by-one

## v1.0.0 - 2026-08-01

Initial release.
`

func TestExtractNotes(t *testing.T) {
	notes, err := ExtractNotes(changelogFixture, "1.2.0")
	if err != nil {
		t.Fatalf("ExtractNotes: %v", err)
	}
	if !strings.Contains(notes, "Runtime journal materializer") {
		t.Fatalf("notes missing content: %q", notes)
	}
	if strings.Contains(notes, "Stale active-work") {
		t.Fatalf("notes leaked next section: %q", notes)
	}
	if strings.HasPrefix(notes, "\n") || strings.HasSuffix(notes, "\n") {
		t.Fatalf("notes not trimmed: %q", notes)
	}
}

func TestExtractNotesVersionPrefixOptional(t *testing.T) {
	// Heading has no "v" but the request does, and vice versa.
	if _, err := ExtractNotes(changelogFixture, "v1.1.0"); err != nil {
		t.Fatalf("v-prefixed request: %v", err)
	}
	notes, err := ExtractNotes(changelogFixture, "1.0.0")
	if err != nil {
		t.Fatalf("bare request: %v", err)
	}
	if notes != "Initial release." {
		t.Fatalf("final section: %q", notes)
	}
}

func TestExtractNotesMissingVersion(t *testing.T) {
	_, err := ExtractNotes(changelogFixture, "9.9.9")
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("error not wrapped: %v", err)
	}
	if !strings.Contains(err.Error(), "version 9.9.9: version not found in changelog") {
		t.Fatalf("error message: %v", err)
	}
}

func TestExtractNotesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	if err := os.WriteFile(path, []byte(changelogFixture), 0644); err != nil {
		t.Fatalf("write changelog: %v", err)
	}
	if _, err := ExtractNotesFile(path, "1.2.0"); err != nil {
		t.Fatalf("ExtractNotesFile: %v", err)
	}
	if _, err := ExtractNotesFile(filepath.Join(t.TempDir(), "missing.md"), "1.2.0"); err == nil {
		t.Fatal("expected read error")
	}
}
