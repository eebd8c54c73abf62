package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasSuffix(cfg.Workspace, "workspace") {
		t.Fatalf("workspace = %q", cfg.Workspace)
	}
	if !strings.HasSuffix(cfg.Paths.JobsFile, filepath.Join("cron", "jobs.json")) {
		t.Fatalf("jobsFile = %q", cfg.Paths.JobsFile)
	}
	if !strings.HasSuffix(cfg.Paths.SessionsFile, filepath.Join("agents", "main", "sessions", "sessions.json")) {
		t.Fatalf("sessionsFile = %q", cfg.Paths.SessionsFile)
	}
	if !strings.HasSuffix(cfg.Paths.EventsFile, filepath.Join("status", "runtime-events.jsonl")) {
		t.Fatalf("eventsFile = %q", cfg.Paths.EventsFile)
	}
	if strings.HasPrefix(cfg.StateDir, "~") {
		t.Fatalf("stateDir not expanded: %q", cfg.StateDir)
	}
}

func TestLoadJSON5Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "control-room.json5")
	body := `{
  // comments are allowed in config files
  stateDir: "` + dir + `/state",
  repo: "openclaw/control-room",
  staleMs: 120000,
  paths: {
    jobsFile: "` + dir + `/custom-jobs.json",
  },
}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repo != "openclaw/control-room" {
		t.Fatalf("repo = %q", cfg.Repo)
	}
	if cfg.StaleMS != 120000 {
		t.Fatalf("staleMs = %d", cfg.StaleMS)
	}
	if cfg.Paths.JobsFile != dir+"/custom-jobs.json" {
		t.Fatalf("jobsFile override lost: %q", cfg.Paths.JobsFile)
	}
	// Unset paths still resolve against the overridden state dir.
	if !strings.HasPrefix(cfg.Paths.SubagentFile, dir+"/state") {
		t.Fatalf("subagentFile = %q", cfg.Paths.SubagentFile)
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json5")
	if err := os.WriteFile(path, []byte("{{{{"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandHome("~/x"); got != filepath.Join(home, "x") {
		t.Fatalf("ExpandHome(~/x) = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
