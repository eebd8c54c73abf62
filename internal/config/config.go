// Package config resolves the control room's file layout and settings.
// Everything lives under one state root (default ~/.openclaw) and every
// path can be overridden from a JSON5 config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
)

// DefaultStateDir is the root for all producer and consumer files.
const DefaultStateDir = "~/.openclaw"

// Config is the loaded configuration with all defaults applied.
type Config struct {
	// StateDir is the root directory for runner state.
	StateDir string `json:"stateDir,omitempty"`
	// Workspace holds the operator's markdown surfaces
	// (DAILY_PLAN.md, TODAY_STATUS.md, memory/).
	Workspace string `json:"workspace,omitempty"`
	// ControlRoomRoot is the dashboard app checkout (package.json,
	// CHANGELOG.md).
	ControlRoomRoot string `json:"controlRoomRoot,omitempty"`
	// Repo is the GitHub repo for issue snapshots, owner/name form.
	Repo string `json:"repo,omitempty"`
	// WatchdogScript is the reliability report script; empty disables
	// the probe.
	WatchdogScript string `json:"watchdogScript,omitempty"`
	// StaleMS overrides the runtime stale window.
	StaleMS int64 `json:"staleMs,omitempty"`

	Paths Paths `json:"paths,omitempty"`
}

// Paths names every file the pipeline reads or writes.
type Paths struct {
	JobsFile            string `json:"jobsFile,omitempty"`
	SessionsFile        string `json:"sessionsFile,omitempty"`
	RunsDir             string `json:"runsDir,omitempty"`
	SubagentFile        string `json:"subagentFile,omitempty"`
	EventsFile          string `json:"eventsFile,omitempty"`
	RuntimeStateFile    string `json:"runtimeStateFile,omitempty"`
	WorkstreamStateFile string `json:"workstreamStateFile,omitempty"`
	ReliabilityLogFile  string `json:"reliabilityLogFile,omitempty"`
	StatusOutFile       string `json:"statusOutFile,omitempty"`
	ChangelogFile       string `json:"changelogFile,omitempty"`
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// DefaultConfigPath is where Load looks when no explicit path is given.
func DefaultConfigPath() string {
	return ExpandHome(filepath.Join(DefaultStateDir, "control-room.json5"))
}

// Load reads a JSON5 config file and applies defaults. A missing file is
// not an error: the default layout is used as-is.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	c.StateDir = ExpandHome(c.StateDir)

	if c.Workspace == "" {
		c.Workspace = filepath.Join(c.StateDir, "workspace")
	}
	c.Workspace = ExpandHome(c.Workspace)
	c.ControlRoomRoot = ExpandHome(c.ControlRoomRoot)
	c.WatchdogScript = ExpandHome(c.WatchdogScript)

	statusDir := filepath.Join(c.Workspace, "status")
	defaults := Paths{
		JobsFile:            filepath.Join(c.StateDir, "cron", "jobs.json"),
		SessionsFile:        filepath.Join(c.StateDir, "agents", "main", "sessions", "sessions.json"),
		RunsDir:             filepath.Join(c.StateDir, "cron", "runs"),
		SubagentFile:        filepath.Join(c.StateDir, "subagents", "runs.json"),
		EventsFile:          filepath.Join(statusDir, "runtime-events.jsonl"),
		RuntimeStateFile:    filepath.Join(statusDir, "runtime-state.json"),
		WorkstreamStateFile: filepath.Join(statusDir, "control-room-workstream-state.json"),
		ReliabilityLogFile:  filepath.Join(c.StateDir, "logs", "reliability-watchdog.jsonl"),
		StatusOutFile:       filepath.Join(statusDir, "status.json"),
	}
	if c.ControlRoomRoot != "" {
		defaults.ChangelogFile = filepath.Join(c.ControlRoomRoot, "CHANGELOG.md")
	}

	fill := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		} else {
			*dst = ExpandHome(*dst)
		}
	}
	fill(&c.Paths.JobsFile, defaults.JobsFile)
	fill(&c.Paths.SessionsFile, defaults.SessionsFile)
	fill(&c.Paths.RunsDir, defaults.RunsDir)
	fill(&c.Paths.SubagentFile, defaults.SubagentFile)
	fill(&c.Paths.EventsFile, defaults.EventsFile)
	fill(&c.Paths.RuntimeStateFile, defaults.RuntimeStateFile)
	fill(&c.Paths.WorkstreamStateFile, defaults.WorkstreamStateFile)
	fill(&c.Paths.ReliabilityLogFile, defaults.ReliabilityLogFile)
	fill(&c.Paths.StatusOutFile, defaults.StatusOutFile)
	fill(&c.Paths.ChangelogFile, defaults.ChangelogFile)
}
