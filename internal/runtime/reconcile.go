package runtime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/control-room/internal/cron"
	"github.com/openclaw/control-room/internal/sessions"
)

// Candidate is one possibly-running row observed directly from a producer,
// used when no fresh materialized snapshot is available.
type Candidate struct {
	RunKey       string
	JobID        string
	JobName      string
	SessionID    string
	SessionKey   string
	Summary      string
	StartedAtMS  int64
	LastSeenAtMS int64
	ActivityType string
	Model        string
	Thinking     string
}

// TerminalSignal marks a run as finished at a point in time.
type TerminalSignal struct {
	RunKey    string
	EventType string
	EventAtMS int64
}

// ReconcileResult is the outcome of one live reconciliation pass.
type ReconcileResult struct {
	ActiveRuns           []ActiveRow
	ActiveCount          int
	DroppedTerminalCount int
	DroppedStaleCount    int
	TerminalCount        int
}

// CollectCandidates de-duplicates candidates by run key. Starts take the
// minimum, last-seen the maximum, and the first non-empty value wins for
// every descriptive field. Output is sorted by (startedAtMs, runKey).
func CollectCandidates(rows []Candidate) []Candidate {
	byRunKey := make(map[string]Candidate)
	for _, raw := range rows {
		if raw.RunKey == "" || raw.StartedAtMS == 0 {
			continue
		}
		candidate := raw
		if candidate.LastSeenAtMS < candidate.StartedAtMS {
			candidate.LastSeenAtMS = candidate.StartedAtMS
		}

		current, ok := byRunKey[candidate.RunKey]
		if !ok {
			byRunKey[candidate.RunKey] = candidate
			continue
		}

		if candidate.StartedAtMS < current.StartedAtMS {
			current.StartedAtMS = candidate.StartedAtMS
		}
		if candidate.LastSeenAtMS > current.LastSeenAtMS {
			current.LastSeenAtMS = candidate.LastSeenAtMS
		}
		fillEmpty(&current.JobName, candidate.JobName)
		fillEmpty(&current.Summary, candidate.Summary)
		fillEmpty(&current.SessionID, candidate.SessionID)
		fillEmpty(&current.SessionKey, candidate.SessionKey)
		fillEmpty(&current.JobID, candidate.JobID)
		fillEmpty(&current.ActivityType, candidate.ActivityType)
		fillEmpty(&current.Model, candidate.Model)
		fillEmpty(&current.Thinking, candidate.Thinking)
		byRunKey[candidate.RunKey] = current
	}

	out := make([]Candidate, 0, len(byRunKey))
	for _, candidate := range byRunKey {
		out = append(out, candidate)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAtMS != out[j].StartedAtMS {
			return out[i].StartedAtMS < out[j].StartedAtMS
		}
		return out[i].RunKey < out[j].RunKey
	})
	return out
}

func fillEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

// CollectTerminals keeps the latest terminal signal per run key.
func CollectTerminals(signals []TerminalSignal) map[string]TerminalSignal {
	terminals := make(map[string]TerminalSignal)
	for _, signal := range signals {
		if signal.RunKey == "" || !IsTerminal(signal.EventType) {
			continue
		}
		current, ok := terminals[signal.RunKey]
		if !ok || signal.EventAtMS >= current.EventAtMS {
			terminals[signal.RunKey] = signal
		}
	}
	return terminals
}

// Reconcile resolves active runs from raw producer observations. A terminal
// signal dominates a candidate when it is at or after the candidate's start;
// a terminal older than the start belongs to a previous run under the same
// key. Survivors are then dropped if their last heartbeat is stale.
func Reconcile(nowMS int64, candidates []Candidate, signals []TerminalSignal, staleMS int64) ReconcileResult {
	normalized := CollectCandidates(candidates)
	terminals := CollectTerminals(signals)

	result := ReconcileResult{
		ActiveRuns:    make([]ActiveRow, 0, len(normalized)),
		TerminalCount: len(terminals),
	}
	for _, candidate := range normalized {
		if terminal, ok := terminals[candidate.RunKey]; ok && terminal.EventAtMS >= candidate.StartedAtMS {
			result.DroppedTerminalCount++
			continue
		}
		if nowMS-candidate.LastSeenAtMS > staleMS {
			result.DroppedStaleCount++
			continue
		}

		runningFor := nowMS - candidate.StartedAtMS
		if runningFor < 0 {
			runningFor = 0
		}
		result.ActiveRuns = append(result.ActiveRuns, ActiveRow{
			RunKey:         candidate.RunKey,
			JobID:          candidate.JobID,
			JobName:        candidate.JobName,
			SessionID:      candidate.SessionID,
			SessionKey:     candidate.SessionKey,
			Summary:        candidate.Summary,
			StartedAtMS:    candidate.StartedAtMS,
			StartedAtLocal: time.UnixMilli(candidate.StartedAtMS).Format("2006-01-02 15:04:05"),
			RunningForMS:   runningFor,
			LastSeenAtMS:   candidate.LastSeenAtMS,
			ActivityType:   candidate.ActivityType,
			Model:          candidate.Model,
			Thinking:       candidate.Thinking,
		})
	}
	result.ActiveCount = len(result.ActiveRuns)
	return result
}

// LiveCandidates gathers reconciler inputs straight from the producers:
// cron-run sessions plus the sub-agent registry for candidates, run-history
// files plus registry end markers for terminals. The degraded reason names
// the first sessions-store problem encountered, empty when healthy.
func LiveCandidates(inputs CollectorInputs, excludedJobNames []string) (candidates []Candidate, signals []TerminalSignal, degradedReason string) {
	jobs := loadJobMeta(inputs.JobsFile)

	store, degradedReason := loadSessionsForReconcile(inputs.SessionsFile)

	keys := make([]string, 0, len(store))
	for key := range store {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	scannedRuns := make(map[string]bool)
	for _, sessionKey := range keys {
		meta := store[sessionKey]
		jobID, sessionID, ok := sessions.ParseCronRunKey(sessionKey)
		if !ok {
			continue
		}
		runKey, ok := CronRunKey(jobID, sessionID)
		if !ok {
			continue
		}
		startedAtMS, ok := ParseTimestampMS(meta.UpdatedAt)
		if !ok {
			continue
		}

		jobMeta, known := jobs[jobID]
		jobName := jobMeta.Name
		if !known || jobName == "" {
			jobName = cron.SynthesizedJobName(jobID)
		}
		if JobNameExcluded(jobName, excludedJobNames) {
			continue
		}

		model := NormalizeModel(meta.Model)
		if model == "" {
			model = jobMeta.Model
		}
		thinking := NormalizeThinking(meta.Thinking)
		if thinking == "" {
			thinking = jobMeta.Thinking
		}

		candidates = append(candidates, Candidate{
			RunKey:       runKey,
			JobID:        jobID,
			JobName:      jobName,
			SessionID:    sessionID,
			SessionKey:   sessionKey,
			Summary:      jobName,
			StartedAtMS:  startedAtMS,
			LastSeenAtMS: startedAtMS,
			ActivityType: "cron",
			Model:        model,
			Thinking:     thinking,
		})

		if !scannedRuns[jobID] {
			scannedRuns[jobID] = true
			runFile := filepath.Join(inputs.RunsDir, jobID+".jsonl")
			for _, event := range collectCronRunFile(runFile, jobID+".jsonl", jobID) {
				signals = append(signals, TerminalSignal{RunKey: event.RunKey, EventType: event.EventType, EventAtMS: event.EventAtMS})
			}
		}
	}

	subCandidates, subSignals := subagentRuntimeSignals(inputs.SubagentFile)
	candidates = append(candidates, subCandidates...)
	signals = append(signals, subSignals...)
	return candidates, signals, degradedReason
}

// subagentRuntimeSignals splits registry entries into running candidates
// and terminal signals. An entry with an end timestamp contributes only a
// terminal.
func subagentRuntimeSignals(subagentFile string) ([]Candidate, []TerminalSignal) {
	registry := LoadRegistry(subagentFile)

	var candidates []Candidate
	var signals []TerminalSignal
	for _, runID := range registry.SortedRunIDs() {
		entry := registry.Runs[runID]
		runKey, ok := SubagentRunKey(runID)
		if !ok {
			continue
		}

		startedAtMS, ok := ParseTimestampMS(entry.StartedAt)
		if !ok {
			startedAtMS, ok = ParseTimestampMS(entry.CreatedAt)
		}
		if !ok {
			continue
		}

		if endedAtMS, ended := ParseTimestampMS(entry.EndedAt); ended {
			terminalType := entry.Status
			if terminalType == "" {
				terminalType = entry.EndStatus
			}
			if terminalType == "" {
				terminalType = EventFinished
			}
			signals = append(signals, TerminalSignal{
				RunKey:    runKey,
				EventType: NormalizeTerminalType(terminalType),
				EventAtMS: endedAtMS,
			})
			continue
		}

		lastSeenAtMS, ok := ParseTimestampMS(entry.UpdatedAt)
		if !ok {
			lastSeenAtMS = startedAtMS
		}

		label := entry.ResolveLabel(runID)
		summary := entry.SummarizeTask()
		if summary == "" {
			summary = label
		}
		sessionKey := entry.SessionKey(runID)
		model := entry.Model
		if model == "" {
			model = entry.AgentModel
		}

		candidates = append(candidates, Candidate{
			RunKey:       runKey,
			JobID:        "subagent:" + runID,
			JobName:      label,
			SessionID:    sessionKey,
			SessionKey:   sessionKey,
			Summary:      summary,
			StartedAtMS:  startedAtMS,
			LastSeenAtMS: lastSeenAtMS,
			ActivityType: "subagent",
			Model:        NormalizeModel(model),
			Thinking:     NormalizeThinking(entry.Thinking),
		})
	}
	return candidates, signals
}

// loadSessionsForReconcile reads the sessions store, reporting the degraded
// reason instead of failing so live reconciliation still runs on partial
// producer state.
func loadSessionsForReconcile(path string) (map[string]sessions.Meta, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "sessions-store-missing"
		}
		return nil, "sessions-store-invalid"
	}

	var shape any
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, "sessions-store-invalid"
	}
	if _, ok := shape.(map[string]any); !ok {
		return nil, "sessions-store-unexpected-shape"
	}

	var store map[string]sessions.Meta
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, "sessions-store-unexpected-shape"
	}
	return store, ""
}

// JobNameExcluded reports whether a job name matches any excluded
// substring, case-insensitively. Used to keep self-referential publishing
// jobs out of runtime surfaces.
func JobNameExcluded(jobName string, excluded []string) bool {
	lowered := strings.ToLower(jobName)
	for _, token := range excluded {
		if token != "" && strings.Contains(lowered, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
