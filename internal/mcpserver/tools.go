// Package mcpserver exposes the control room pipeline as MCP tools over
// a Content-Length framed stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/openclaw/control-room/internal/config"
	"github.com/openclaw/control-room/internal/issues"
	"github.com/openclaw/control-room/internal/release"
	"github.com/openclaw/control-room/internal/runtime"
	"github.com/openclaw/control-room/internal/status"
)

// Tool names exposed over MCP.
const (
	ToolIssueSnapshot = "control-room.issue.snapshot"
	ToolStatusBuild   = "control-room.status.build"
	ToolExtractNotes  = "control-room.release.extract-notes"
	ToolMaterialize   = "control-room.runtime.materialize"
)

// ToolDef pairs an MCP tool declaration with its handler. Handlers
// return the structured result or an error; the server wraps either into
// the MCP call-result envelope.
type ToolDef struct {
	Tool    mcpgo.Tool
	Handler func(ctx context.Context, args map[string]any) (any, error)
}

// Catalog builds the tool set bound to the given configuration.
func Catalog(cfg *config.Config) []ToolDef {
	return []ToolDef{
		{
			Tool: mcpgo.NewTool(ToolIssueSnapshot,
				mcpgo.WithDescription("Capture a markdown snapshot of open GitHub issues for the configured repo."),
				mcpgo.WithString("repo", mcpgo.Description("Repository in owner/name form; defaults to the configured repo.")),
				mcpgo.WithNumber("limit", mcpgo.Description("Maximum issues to fetch (default 50).")),
			),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				repo := stringArg(args, "repo", cfg.Repo)
				if repo == "" {
					return nil, fmt.Errorf("no repo configured")
				}
				limit := intArg(args, "limit", 50)
				list, err := issues.Fetch(ctx, repo, limit)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"repo":     repo,
					"count":    len(list),
					"markdown": issues.RenderMarkdown(repo, list, time.Now()),
				}, nil
			},
		},
		{
			Tool: mcpgo.NewTool(ToolStatusBuild,
				mcpgo.WithDescription("Build the dashboard status payload from current workspace state."),
				mcpgo.WithBoolean("liveRuntime", mcpgo.Description("When false, scrub live runtime rows for a static fallback snapshot (default true).")),
			),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				payload := status.BuildPayload(ctx, statusInputs(cfg), time.Now())
				if !boolArg(args, "liveRuntime", true) {
					payload = status.SanitizeForStaticSnapshot(payload)
				}
				return payload, nil
			},
		},
		{
			Tool: mcpgo.NewTool(ToolExtractNotes,
				mcpgo.WithDescription("Extract the release notes for one version from the changelog."),
				mcpgo.WithString("version", mcpgo.Required(), mcpgo.Description("Semver version, with or without the v prefix.")),
			),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				version := stringArg(args, "version", "")
				if version == "" {
					return nil, fmt.Errorf("version is required")
				}
				notes, err := release.ExtractNotesFile(cfg.Paths.ChangelogFile, version)
				if err != nil {
					return nil, err
				}
				return map[string]any{"version": version, "notes": notes}, nil
			},
		},
		{
			Tool: mcpgo.NewTool(ToolMaterialize,
				mcpgo.WithDescription("Replay the runtime event journal into a materialized snapshot."),
				mcpgo.WithString("eventsFile", mcpgo.Description("Journal path; defaults to the configured one.")),
				mcpgo.WithString("out", mcpgo.Description("Snapshot output path; defaults to the configured one.")),
				mcpgo.WithNumber("staleMs", mcpgo.Description("Stale window override in milliseconds.")),
				mcpgo.WithNumber("nowMs", mcpgo.Description("Clock override for deterministic replay.")),
			),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				eventsFile := stringArg(args, "eventsFile", cfg.Paths.EventsFile)
				out := stringArg(args, "out", cfg.Paths.RuntimeStateFile)
				staleMS := int64(intArg(args, "staleMs", int(cfg.StaleMS)))
				nowMS := int64(intArg(args, "nowMs", 0))

				snapshot, err := runtime.Materialize(eventsFile, out, staleMS, nowMS)
				if err != nil {
					return nil, err
				}
				return snapshot, nil
			},
		},
	}
}

func statusInputs(cfg *config.Config) status.Inputs {
	return status.Inputs{
		WorkspaceRoot:       cfg.Workspace,
		JobsFile:            cfg.Paths.JobsFile,
		SessionsFile:        cfg.Paths.SessionsFile,
		RunsDir:             cfg.Paths.RunsDir,
		SubagentFile:        cfg.Paths.SubagentFile,
		RuntimeStateFile:    cfg.Paths.RuntimeStateFile,
		WorkstreamStateFile: cfg.Paths.WorkstreamStateFile,
		ReliabilityLogFile:  cfg.Paths.ReliabilityLogFile,
		WatchdogScript:      cfg.WatchdogScript,
		ControlRoomRoot:     cfg.ControlRoomRoot,
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if value, ok := args[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	if value, ok := args[key].(float64); ok {
		return int(value)
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if value, ok := args[key].(bool); ok {
		return value
	}
	return fallback
}

// callResult wraps a handler outcome into the MCP result envelope: a
// text content block plus machine-readable structuredContent.
func callResult(toolName string, result any, callErr error) map[string]any {
	structured := map[string]any{"ok": callErr == nil, "tool": toolName}
	var text string
	if callErr != nil {
		structured["error"] = callErr.Error()
		text = callErr.Error()
	} else {
		structured["result"] = result
		if data, err := json.Marshal(result); err == nil {
			text = string(data)
		} else {
			text = fmt.Sprintf("%v", result)
		}
	}

	return map[string]any{
		"content":           []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: text}},
		"structuredContent": structured,
		"isError":           callErr != nil,
	}
}
