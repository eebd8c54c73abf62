package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openclaw/control-room/internal/config"
	"github.com/openclaw/control-room/internal/status"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Workspace: dir,
		Paths: config.Paths{
			JobsFile:            filepath.Join(dir, "jobs.json"),
			SessionsFile:        filepath.Join(dir, "sessions.json"),
			RunsDir:             filepath.Join(dir, "runs"),
			SubagentFile:        filepath.Join(dir, "subagents.json"),
			EventsFile:          filepath.Join(dir, "events.jsonl"),
			RuntimeStateFile:    filepath.Join(dir, "runtime-state.json"),
			WorkstreamStateFile: filepath.Join(dir, "workstream-state.json"),
			ReliabilityLogFile:  filepath.Join(dir, "reliability.jsonl"),
		},
	}
}

func catalogTool(t *testing.T, defs []ToolDef, name string) ToolDef {
	t.Helper()
	for _, def := range defs {
		if def.Tool.Name == name {
			return def
		}
	}
	t.Fatalf("tool %s not in catalog", name)
	return ToolDef{}
}

func TestStatusBuildSanitizesWhenLiveRuntimeFalse(t *testing.T) {
	cfg := testConfig(t)
	def := catalogTool(t, Catalog(cfg), ToolStatusBuild)

	out, err := def.Handler(context.Background(), map[string]any{"liveRuntime": false})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	payload, ok := out.(status.Payload)
	if !ok {
		t.Fatalf("result type %T, want status.Payload", out)
	}

	if payload.Runtime.SnapshotMode != "fallback-sanitized" {
		t.Errorf("snapshotMode = %q, want fallback-sanitized", payload.Runtime.SnapshotMode)
	}
	if payload.Runtime.Source != "fallback-static" {
		t.Errorf("source = %q, want fallback-static", payload.Runtime.Source)
	}
	if payload.Runtime.Status != "idle" || !payload.Runtime.IsIdle {
		t.Errorf("runtime not idled: status=%q isIdle=%v", payload.Runtime.Status, payload.Runtime.IsIdle)
	}
	if payload.Runtime.ActiveRuns == nil || len(payload.Runtime.ActiveRuns) != 0 {
		t.Errorf("activeRuns = %v, want empty non-nil", payload.Runtime.ActiveRuns)
	}
}

func TestStatusBuildDefaultsToLiveRuntime(t *testing.T) {
	cfg := testConfig(t)
	def := catalogTool(t, Catalog(cfg), ToolStatusBuild)

	out, err := def.Handler(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	payload := out.(status.Payload)

	if payload.Runtime.Source == "fallback-static" {
		t.Errorf("default call must not sanitize, got source %q", payload.Runtime.Source)
	}
	if payload.Runtime.SnapshotMode == "fallback-sanitized" {
		t.Errorf("default call must not sanitize, got snapshotMode %q", payload.Runtime.SnapshotMode)
	}
}
