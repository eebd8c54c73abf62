package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/openclaw/control-room/internal/markdown"
)

// Inputs names every file the payload builder reads. All paths are
// optional at runtime; missing producers degrade individual sections
// instead of failing the build.
type Inputs struct {
	WorkspaceRoot       string
	JobsFile            string
	SessionsFile        string
	RunsDir             string
	SubagentFile        string
	RuntimeStateFile    string
	WorkstreamStateFile string
	ReliabilityLogFile  string
	WatchdogScript      string
	ControlRoomRoot     string
}

// Charts groups the dashboard trend series.
type Charts struct {
	JobSuccessTrend  []TrendPoint `json:"jobSuccessTrend"`
	ReliabilityTrend []TrendPoint `json:"reliabilityTrend"`
}

// Payload is the complete dashboard document.
type Payload struct {
	GeneratedAt        string                   `json:"generatedAt"`
	GeneratedAtLocal   string                   `json:"generatedAtLocal"`
	ControlRoomVersion string                   `json:"controlRoomVersion"`
	CurrentFocus       string                   `json:"currentFocus"`
	ActiveWork         string                   `json:"activeWork"`
	Reliability        ReliabilityStatus        `json:"reliability"`
	Timeline           []markdown.TimelineBlock `json:"timeline"`
	NextJobs           []NextJob                `json:"nextJobs"`
	Findings           []string                 `json:"findings"`
	Workstream         WorkstreamLanes          `json:"workstream"`
	Charts             Charts                   `json:"charts"`
	Activity           []markdown.ActivityEntry `json:"activity"`
	Skills             SkillsPayload            `json:"skills"`
	Runtime            RuntimeBlock             `json:"runtime"`
}

func readFileOrEmpty(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// controlRoomVersion reads the dashboard app version from package.json.
func controlRoomVersion(controlRoomRoot string) string {
	data, err := os.ReadFile(filepath.Join(controlRoomRoot, "package.json"))
	if err != nil {
		return "0.0.0"
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Version == "" {
		return "0.0.0"
	}
	return pkg.Version
}

// BuildPayload assembles the dashboard document from current workspace
// state at nowLocal.
func BuildPayload(ctx context.Context, inputs Inputs, nowLocal time.Time) Payload {
	todayFile := filepath.Join(inputs.WorkspaceRoot, "memory", nowLocal.Format("2006-01-02")+".md")

	planText := readFileOrEmpty(filepath.Join(inputs.WorkspaceRoot, "DAILY_PLAN.md"))
	statusText := readFileOrEmpty(filepath.Join(inputs.WorkspaceRoot, "TODAY_STATUS.md"))
	memoryText := readFileOrEmpty(todayFile)

	statusParts := markdown.ParseTodayStatus(statusText)
	timeline := markdown.ParseDailyPlanBlocks(planText)

	activeWork := ResolveActiveWork(statusParts.ActiveWork, timeline, nowLocal)
	currentFocus := ResolveCurrentFocus(statusParts.CurrentFocus, activeWork, timeline, nowLocal)

	runtimeBlock := RuntimeActivity(RuntimeInputs{
		JobsFile:         inputs.JobsFile,
		SessionsFile:     inputs.SessionsFile,
		RunsDir:          inputs.RunsDir,
		SubagentFile:     inputs.SubagentFile,
		RuntimeStateFile: inputs.RuntimeStateFile,
	}, nowLocal)

	workstream := BuildWorkstreamLanes(timeline, inputs.JobsFile, runtimeBlock, nowLocal, inputs.WorkstreamStateFile)

	if timeline == nil {
		timeline = []markdown.TimelineBlock{}
	}
	return Payload{
		GeneratedAt:        nowLocal.UTC().Format(time.RFC3339),
		GeneratedAtLocal:   nowLocal.Format("2006-01-02 15:04 MST"),
		ControlRoomVersion: controlRoomVersion(inputs.ControlRoomRoot),
		CurrentFocus:       currentFocus,
		ActiveWork:         activeWork,
		Reliability:        QueryReliability(ctx, inputs.WatchdogScript, 8.0),
		Timeline:           timeline,
		NextJobs:           emptyIfNil(NextJobs(inputs.JobsFile, 8, nowLocal)),
		Findings:           emptyIfNil(markdown.RecentFindings(memoryText, 6)),
		Workstream:         workstream,
		Charts: Charts{
			JobSuccessTrend:  emptyIfNil(JobSuccessTrend(inputs.JobsFile, trendPointLimit)),
			ReliabilityTrend: emptyIfNil(ReliabilityTrend(inputs.ReliabilityLogFile, trendPointLimit)),
		},
		Activity: emptyIfNil(markdown.RecentActivity(memoryText, 24)),
		Skills:   BuildSkillsPayload(inputs.WorkspaceRoot, nowLocal),
		Runtime:  runtimeBlock,
	}
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// SanitizeForStaticSnapshot strips live runtime rows from a payload bound
// for a committed fallback file. Cached static snapshots must never show
// RUNNING rows that cannot expire.
func SanitizeForStaticSnapshot(payload Payload) Payload {
	out := payload
	out.Runtime.Status = "idle"
	out.Runtime.IsIdle = true
	out.Runtime.ActiveCount = 0
	out.Runtime.ActiveRuns = nil
	out.Runtime.Source = "fallback-static"
	out.Runtime.SnapshotMode = "fallback-sanitized"
	out.Runtime.DegradedReason = "Static snapshot cannot carry live runtime rows"
	out.Runtime.ActiveRuns = emptyIfNil(out.Runtime.ActiveRuns)
	if out.Runtime.Revision == "" {
		out.Runtime.Revision = "rtv1-00000000"
	}
	return out
}

// WritePayload marshals the payload and writes it atomically.
func WritePayload(path string, payload Payload) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write payload temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace payload: %w", err)
	}
	return nil
}
