package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/control-room/internal/runtime"
	"github.com/openclaw/control-room/internal/sessions"
)

// Runtime truth freshness bounds.
const (
	runtimeStaleMS              = 10 * 60 * 1000
	runtimeMaterializedMaxAgeMS = 90 * 1000
)

// ExcludedRuntimeJobNames filters self-referential publishing jobs out of
// every runtime surface; a dashboard build must not report itself as work.
var ExcludedRuntimeJobNames = []string{"control room status publish"}

// RuntimeBlock is the runtime section of the dashboard payload.
type RuntimeBlock struct {
	Status               string              `json:"status"`
	IsIdle               bool                `json:"isIdle"`
	ActiveCount          int                 `json:"activeCount"`
	ActiveRuns           []runtime.ActiveRow `json:"activeRuns"`
	CheckedAtMS          int64               `json:"checkedAtMs"`
	Source               string              `json:"source"`
	Revision             string              `json:"revision"`
	SnapshotMode         string              `json:"snapshotMode"`
	DegradedReason       string              `json:"degradedReason"`
	DroppedTerminalCount int                 `json:"droppedTerminalCount,omitempty"`
	DroppedStaleCount    int                 `json:"droppedStaleCount,omitempty"`
}

// RuntimeInputs names everything the runtime source may need to read.
type RuntimeInputs struct {
	JobsFile         string
	SessionsFile     string
	RunsDir          string
	SubagentFile     string
	RuntimeStateFile string
}

// loadMaterializedRuntime validates and adapts a materialized snapshot.
// The reason names why the snapshot cannot be used; empty means success.
func loadMaterializedRuntime(path string, nowMS, maxAgeMS int64) (RuntimeBlock, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeBlock{}, "materialized-state-missing"
	}

	var shape any
	if err := json.Unmarshal(data, &shape); err != nil {
		return RuntimeBlock{}, "materialized-state-invalid"
	}
	doc, ok := shape.(map[string]any)
	if !ok {
		return RuntimeBlock{}, "materialized-state-unexpected-shape"
	}

	materializedAt, ok := intField(doc, "materializedAtMs")
	if !ok {
		materializedAt, ok = intField(doc, "checkedAtMs")
	}
	if !ok {
		return RuntimeBlock{}, "materialized-state-missing-timestamp"
	}
	if nowMS-materializedAt > maxAgeMS {
		return RuntimeBlock{}, "materialized-state-stale"
	}
	if _, ok := doc["activeRuns"].([]any); !ok {
		return RuntimeBlock{}, "materialized-state-missing-active-runs"
	}

	var snapshot runtime.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return RuntimeBlock{}, "materialized-state-unexpected-shape"
	}

	rows := make([]runtime.ActiveRow, 0, len(snapshot.ActiveRuns))
	for _, row := range snapshot.ActiveRuns {
		if row.StartedAtMS == 0 {
			continue
		}
		row.RunningForMS = nowMS - row.StartedAtMS
		if row.RunningForMS < 0 {
			row.RunningForMS = 0
		}
		row.StartedAtLocal = time.UnixMilli(row.StartedAtMS).Format("2006-01-02 15:04:05")
		if strings.TrimSpace(row.Summary) == "" {
			row.Summary = row.JobName
		}
		if strings.TrimSpace(row.Summary) == "" {
			row.Summary = "Running activity"
		}
		row.Model = runtime.NormalizeModel(row.Model)
		row.Thinking = runtime.NormalizeThinking(row.Thinking)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StartedAtMS != rows[j].StartedAtMS {
			return rows[i].StartedAtMS < rows[j].StartedAtMS
		}
		return rows[i].RunKey < rows[j].RunKey
	})

	revision := snapshot.Revision
	if revision == "" {
		revision = "rtv1-00000000"
	}
	mode := snapshot.SnapshotMode
	if mode == "" {
		mode = "live"
	}
	return RuntimeBlock{
		Status:         runtimeStatus(len(rows)),
		IsIdle:         len(rows) == 0,
		ActiveCount:    len(rows),
		ActiveRuns:     rows,
		CheckedAtMS:    nowMS,
		Source:         runtime.SourceMaterializedLedger,
		Revision:       revision,
		SnapshotMode:   mode,
		DegradedReason: snapshot.DegradedReason,
	}, ""
}

func intField(doc map[string]any, key string) (int64, bool) {
	value, ok := doc[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(value), true
}

func runtimeStatus(activeCount int) string {
	if activeCount > 0 {
		return "running"
	}
	return "idle"
}

// RuntimeActivity resolves runtime truth: the materialized ledger when
// fresh, otherwise a live reconciliation pass over the producers. The
// interactive main-session probe contributes a row on either path.
func RuntimeActivity(inputs RuntimeInputs, nowLocal time.Time) RuntimeBlock {
	nowMS := nowLocal.UnixMilli()

	block, materializedReason := loadMaterializedRuntime(inputs.RuntimeStateFile, nowMS, runtimeMaterializedMaxAgeMS)
	if materializedReason == "" {
		block.ActiveRuns = filterExcludedRows(block.ActiveRuns)
		appendMainSessionRow(&block, inputs, nowMS)
		refreshCounts(&block)
		return block
	}

	candidates, signals, sessionsReason := runtime.LiveCandidates(runtime.CollectorInputs{
		JobsFile:     inputs.JobsFile,
		SessionsFile: inputs.SessionsFile,
		RunsDir:      inputs.RunsDir,
		SubagentFile: inputs.SubagentFile,
	}, ExcludedRuntimeJobNames)

	reconciled := runtime.Reconcile(nowMS, candidates, signals, runtimeStaleMS)

	var degradedBits []string
	for _, bit := range []string{materializedReason, sessionsReason} {
		if bit != "" {
			degradedBits = append(degradedBits, bit)
		}
	}

	block = RuntimeBlock{
		Status:               runtimeStatus(len(reconciled.ActiveRuns)),
		IsIdle:               len(reconciled.ActiveRuns) == 0,
		ActiveCount:          len(reconciled.ActiveRuns),
		ActiveRuns:           reconciled.ActiveRuns,
		CheckedAtMS:          nowMS,
		Source:               "live-reconciler",
		Revision:             fmt.Sprintf("rtv1-%08d", nowMS),
		SnapshotMode:         "live",
		DegradedReason:       strings.Join(degradedBits, ", "),
		DroppedTerminalCount: reconciled.DroppedTerminalCount,
		DroppedStaleCount:    reconciled.DroppedStaleCount,
	}
	appendMainSessionRow(&block, inputs, nowMS)
	refreshCounts(&block)
	return block
}

func filterExcludedRows(rows []runtime.ActiveRow) []runtime.ActiveRow {
	kept := rows[:0]
	for _, row := range rows {
		if runtime.JobNameExcluded(row.JobName, ExcludedRuntimeJobNames) {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// appendMainSessionRow adds the interactive main-session run when recent
// tool activity shows the operator session is executing work.
func appendMainSessionRow(block *RuntimeBlock, inputs RuntimeInputs, nowMS int64) {
	store, err := sessions.LoadStore(inputs.SessionsFile)
	if err != nil {
		return
	}
	meta, ok := store[sessions.MainSessionKey]
	if !ok {
		return
	}

	run, active := sessions.ActiveMainSessionRun(meta, sessionsStoreDir(inputs.SessionsFile), nowMS)
	if !active {
		return
	}
	for _, row := range block.ActiveRuns {
		if row.SessionKey == run.SessionKey {
			return
		}
	}

	block.ActiveRuns = append(block.ActiveRuns, runtime.ActiveRow{
		RunKey:         "interactive:" + run.SessionKey,
		JobID:          run.JobID,
		JobName:        run.JobName,
		SessionID:      run.SessionID,
		SessionKey:     run.SessionKey,
		Summary:        run.Summary,
		StartedAtMS:    run.StartedAtMS,
		StartedAtLocal: run.StartedAtLocal,
		RunningForMS:   run.RunningForMS,
		LastSeenAtMS:   nowMS,
		ActivityType:   run.ActivityType,
	})
	sort.Slice(block.ActiveRuns, func(i, j int) bool {
		if block.ActiveRuns[i].StartedAtMS != block.ActiveRuns[j].StartedAtMS {
			return block.ActiveRuns[i].StartedAtMS < block.ActiveRuns[j].StartedAtMS
		}
		return block.ActiveRuns[i].RunKey < block.ActiveRuns[j].RunKey
	})
}

func sessionsStoreDir(sessionsFile string) string {
	return filepath.Dir(sessionsFile)
}

func refreshCounts(block *RuntimeBlock) {
	if block.ActiveRuns == nil {
		block.ActiveRuns = []runtime.ActiveRow{}
	}
	block.ActiveCount = len(block.ActiveRuns)
	block.IsIdle = block.ActiveCount == 0
	block.Status = runtimeStatus(block.ActiveCount)
}
