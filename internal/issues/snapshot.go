// Package issues captures an open-issue snapshot from GitHub via the gh
// CLI and renders it as a markdown report.
package issues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const ghTimeout = 30 * time.Second

// Issue is one open issue as reported by gh.
type Issue struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Labels    []Label `json:"labels"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	Author    Author  `json:"author"`
}

// Label is a gh issue label.
type Label struct {
	Name string `json:"name"`
}

// Author is the issue author as gh reports it.
type Author struct {
	Login string `json:"login"`
}

// Fetch lists open issues for repo through the gh CLI. The caller needs
// an authenticated gh on PATH.
func Fetch(ctx context.Context, repo string, limit int) ([]Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, ghTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gh", "issue", "list",
		"--repo", repo,
		"--state", "open",
		"--limit", fmt.Sprintf("%d", limit),
		"--json", "number,title,url,labels,createdAt,updatedAt,author",
	)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("gh issue list: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("gh issue list: %w", err)
	}

	var issues []Issue
	if err := json.Unmarshal(output, &issues); err != nil {
		return nil, fmt.Errorf("parse gh output: %w", err)
	}
	return issues, nil
}

// RenderMarkdown formats the snapshot as a report for the workspace.
func RenderMarkdown(repo string, issues []Issue, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Control Room Issue Snapshot\n\n")
	fmt.Fprintf(&b, "- Repo: %s\n", repo)
	fmt.Fprintf(&b, "- Captured: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Open issues: %d\n\n", len(issues))

	if len(issues) == 0 {
		b.WriteString("No open issues.\n")
		return b.String()
	}

	for _, issue := range issues {
		fmt.Fprintf(&b, "## #%d %s\n\n", issue.Number, issue.Title)
		fmt.Fprintf(&b, "- URL: %s\n", issue.URL)
		if issue.Author.Login != "" {
			fmt.Fprintf(&b, "- Author: %s\n", issue.Author.Login)
		}
		if len(issue.Labels) > 0 {
			names := make([]string, 0, len(issue.Labels))
			for _, label := range issue.Labels {
				names = append(names, label.Name)
			}
			fmt.Fprintf(&b, "- Labels: %s\n", strings.Join(names, ", "))
		}
		if issue.UpdatedAt != "" {
			fmt.Fprintf(&b, "- Updated: %s\n", issue.UpdatedAt)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
