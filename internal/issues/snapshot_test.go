package issues

import (
	"strings"
	"testing"
	"time"
)

func TestRenderMarkdown(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	issues := []Issue{
		{
			Number:    42,
			Title:     "Runtime rows linger after cron run ends",
			URL:       "https://github.com/openclaw/control-room/issues/42",
			Labels:    []Label{{Name: "bug"}, {Name: "runtime"}},
			UpdatedAt: "2026-08-25T14:00:00Z",
			Author:    Author{Login: "operator"},
		},
		{Number: 43, Title: "Add lane history export", URL: "https://example.test/43"},
	}

	out := RenderMarkdown("openclaw/control-room", issues, now)

	if !strings.HasPrefix(out, "# Control Room Issue Snapshot\n") {
		t.Fatalf("missing title: %q", out[:40])
	}
	if !strings.Contains(out, "- Open issues: 2") {
		t.Fatalf("missing count:\n%s", out)
	}
	if !strings.Contains(out, "## #42 Runtime rows linger after cron run ends") {
		t.Fatalf("missing issue heading:\n%s", out)
	}
	if !strings.Contains(out, "- Labels: bug, runtime") {
		t.Fatalf("missing labels:\n%s", out)
	}
	if !strings.Contains(out, "- Author: operator") {
		t.Fatalf("missing author:\n%s", out)
	}
	// Issues without author or labels omit those lines entirely.
	if strings.Contains(out, "- Author: \n") || strings.Contains(out, "- Labels: \n") {
		t.Fatalf("empty metadata rendered:\n%s", out)
	}
	if !strings.Contains(out, "- Captured: 2026-08-26T10:00:00Z") {
		t.Fatalf("missing capture time:\n%s", out)
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	out := RenderMarkdown("openclaw/control-room", nil, time.Now())
	if !strings.Contains(out, "No open issues.") {
		t.Fatalf("missing empty marker:\n%s", out)
	}
}
