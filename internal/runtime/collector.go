package runtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openclaw/control-room/internal/cron"
	"github.com/openclaw/control-room/internal/sessions"
)

// CollectorInputs names the producer artifacts one collection pass reads.
type CollectorInputs struct {
	JobsFile     string
	SessionsFile string
	RunsDir      string
	SubagentFile string
}

// Collect scans every producer and returns canonical events in replay
// order. Missing files contribute zero events; malformed records are
// skipped. Appending to the journal is the caller's job so collection
// stays pure.
func Collect(inputs CollectorInputs) []Event {
	jobs := loadJobMeta(inputs.JobsFile)

	var events []Event
	events = append(events, collectSessionEvents(inputs.SessionsFile, jobs)...)
	events = append(events, collectCronTerminalEvents(inputs.RunsDir)...)
	events = append(events, collectSubagentEvents(inputs.SubagentFile)...)
	return SortEvents(events)
}

func loadJobMeta(jobsFile string) map[string]cron.JobMeta {
	store, err := cron.LoadStore(jobsFile)
	if err != nil {
		return map[string]cron.JobMeta{}
	}

	meta := make(map[string]cron.JobMeta, len(store.Jobs))
	for _, job := range store.Jobs {
		if job.ID == "" {
			continue
		}
		name := job.Name
		if name == "" {
			name = cron.SynthesizedJobName(job.ID)
		}
		meta[job.ID] = cron.JobMeta{
			Name:     name,
			Model:    NormalizeModel(job.Payload.Model),
			Thinking: NormalizeThinking(job.Payload.Thinking),
		}
	}
	return meta
}

// collectSessionEvents turns cron-run session store entries into heartbeat
// events stamped at the store's updatedAt.
func collectSessionEvents(sessionsFile string, jobs map[string]cron.JobMeta) []Event {
	store, err := sessions.LoadStore(sessionsFile)
	if err != nil {
		return nil
	}

	keys := make([]string, 0, len(store))
	for key := range store {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var events []Event
	for _, sessionKey := range keys {
		jobID, sessionID, ok := sessions.ParseCronRunKey(sessionKey)
		if !ok {
			continue
		}
		runKey, ok := CronRunKey(jobID, sessionID)
		if !ok {
			continue
		}

		meta := store[sessionKey]
		eventAtMS, ok := ParseTimestampMS(meta.UpdatedAt)
		if !ok {
			continue
		}

		jobMeta, known := jobs[jobID]
		jobName := jobMeta.Name
		if !known || jobName == "" {
			jobName = cron.SynthesizedJobName(jobID)
		}

		model := NormalizeModel(meta.Model)
		if model == "" {
			model = jobMeta.Model
		}
		thinking := NormalizeThinking(meta.Thinking)
		if thinking == "" {
			thinking = jobMeta.Thinking
		}

		at := eventAtMS
		events = append(events, BuildEvent(runKey, EventHeartbeat, eventAtMS, SourceSessionsStore, "sessions:"+sessionKey, EventPayload{
			JobID:        jobID,
			JobName:      jobName,
			SessionID:    sessionID,
			SessionKey:   sessionKey,
			Summary:      jobName,
			StartedAtMS:  &at,
			LastSeenAtMS: &at,
			ActivityType: "cron",
			Model:        model,
			Thinking:     thinking,
		}))
	}
	return events
}

// cronRunLine is one record in a per-job run-history file. Multiple
// timestamp fields may carry the finish time; the first parseable one wins.
type cronRunLine struct {
	Action     string `json:"action,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	Status     string `json:"status,omitempty"`
	Result     string `json:"result,omitempty"`
	FinishedAt any    `json:"finishedAtMs,omitempty"`
	Finished   any    `json:"finishedAt,omitempty"`
	EndedAt    any    `json:"endedAt,omitempty"`
	Timestamp  any    `json:"timestamp,omitempty"`
	TS         any    `json:"ts,omitempty"`
}

func (l cronRunLine) finishedAtMS() (int64, bool) {
	for _, candidate := range []any{l.FinishedAt, l.Finished, l.EndedAt, l.Timestamp, l.TS} {
		if ms, ok := ParseTimestampMS(candidate); ok {
			return ms, true
		}
	}
	return 0, false
}

// collectCronTerminalEvents scans the runs directory: one append-only file
// per job id, each line a JSON record. Only action == "finished" lines
// produce events.
func collectCronTerminalEvents(runsDir string) []Event {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var events []Event
	for _, name := range names {
		jobID := strings.TrimSuffix(name, ".jsonl")
		events = append(events, collectCronRunFile(filepath.Join(runsDir, name), name, jobID)...)
	}
	return events
}

func collectCronRunFile(path, fileName, jobID string) []Event {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var events []Event
	lineNumber := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), journalScanBuffer)
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row cronRunLine
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		if row.Action != "finished" || row.SessionID == "" {
			continue
		}

		eventAtMS, ok := row.finishedAtMS()
		if !ok {
			continue
		}
		runKey, ok := CronRunKey(jobID, row.SessionID)
		if !ok {
			continue
		}

		terminalType := row.Status
		if terminalType == "" {
			terminalType = row.Result
		}
		if terminalType == "" {
			terminalType = EventFinished
		}
		terminalType = NormalizeTerminalType(terminalType)

		offset := fmt.Sprintf("%s:%d", fileName, lineNumber)
		events = append(events, BuildEvent(runKey, terminalType, eventAtMS, SourceCronRuns, offset, EventPayload{
			JobID:     jobID,
			SessionID: row.SessionID,
			Status:    terminalType,
		}))
	}
	return events
}

// collectSubagentEvents derives started/heartbeat/terminal events from the
// sub-agent registry.
func collectSubagentEvents(subagentFile string) []Event {
	registry := LoadRegistry(subagentFile)

	var events []Event
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

		label := strings.TrimSpace(entry.Label)
		if label == "" {
			label = "Background task"
		}
		sessionKey := entry.SessionKey(runID)

		lastSeenAtMS, ok := ParseTimestampMS(entry.UpdatedAt)
		if !ok {
			lastSeenAtMS = startedAtMS
		}

		model := entry.Model
		if model == "" {
			model = entry.AgentModel
		}

		start, seen := startedAtMS, lastSeenAtMS
		payload := EventPayload{
			JobID:        "subagent:" + runID,
			JobName:      label,
			Summary:      label,
			SessionID:    sessionKey,
			SessionKey:   sessionKey,
			StartedAtMS:  &start,
			LastSeenAtMS: &seen,
			ActivityType: "subagent",
			Model:        NormalizeModel(model),
			Thinking:     NormalizeThinking(entry.Thinking),
		}

		events = append(events, BuildEvent(runKey, EventStarted, startedAtMS, SourceSubagentRegistry, "subagent:"+runID+":started", payload))
		events = append(events, BuildEvent(runKey, EventHeartbeat, lastSeenAtMS, SourceSubagentRegistry, "subagent:"+runID+":heartbeat", payload))

		endedAtMS, ended := ParseTimestampMS(entry.EndedAt)
		if !ended {
			continue
		}
		terminalType := entry.Status
		if terminalType == "" {
			terminalType = entry.EndStatus
		}
		if terminalType == "" {
			terminalType = EventFinished
		}
		terminalType = NormalizeTerminalType(terminalType)
		events = append(events, BuildEvent(runKey, terminalType, endedAtMS, SourceSubagentRegistry, "subagent:"+runID+":ended", EventPayload{
			JobID:     "subagent:" + runID,
			SessionID: sessionKey,
			Status:    terminalType,
		}))
	}
	return events
}
