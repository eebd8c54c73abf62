package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultStaleMS is how long a run may go without a heartbeat before the
// reducer expires it.
const DefaultStaleMS = 600_000

// SourceMaterializedLedger tags snapshots produced by journal replay.
const SourceMaterializedLedger = "materialized-ledger"

var revisionRE = regexp.MustCompile(`^rtv1-(\d+)$`)

// RunState is the reducer's per-run accumulator. Terminal states are
// absorbing: once a run terminates, later running events cannot revive it.
type RunState struct {
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

	Terminal     bool
	TerminalType string
	TerminalAtMS int64
}

// Reduce folds events into per-run states. Events must already be in
// canonical order; replaying the same journal always yields the same map.
func Reduce(events []Event) map[string]*RunState {
	states := make(map[string]*RunState)
	for _, event := range events {
		if event.RunKey == "" {
			continue
		}
		state, ok := states[event.RunKey]
		if !ok {
			state = &RunState{RunKey: event.RunKey}
			states[event.RunKey] = state
		}
		if state.Terminal {
			continue
		}

		if IsTerminal(event.EventType) {
			state.Terminal = true
			state.TerminalType = event.EventType
			state.TerminalAtMS = event.EventAtMS
			continue
		}
		if !IsRunning(event.EventType) {
			continue
		}

		startedAt := event.EventAtMS
		if event.Payload.StartedAtMS != nil {
			startedAt = *event.Payload.StartedAtMS
		}
		if state.StartedAtMS == 0 || startedAt < state.StartedAtMS {
			state.StartedAtMS = startedAt
		}

		lastSeen := event.EventAtMS
		if event.Payload.LastSeenAtMS != nil {
			lastSeen = *event.Payload.LastSeenAtMS
		}
		if lastSeen > state.LastSeenAtMS {
			state.LastSeenAtMS = lastSeen
		}

		coalesce(&state.JobID, event.Payload.JobID)
		coalesce(&state.JobName, event.Payload.JobName)
		coalesce(&state.SessionID, event.Payload.SessionID)
		coalesce(&state.SessionKey, event.Payload.SessionKey)
		coalesce(&state.Summary, event.Payload.Summary)
		coalesce(&state.ActivityType, event.Payload.ActivityType)
		coalesce(&state.Model, event.Payload.Model)
		coalesce(&state.Thinking, event.Payload.Thinking)
	}
	return states
}

// coalesce prefers the freshest non-empty payload value over prior state.
func coalesce(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// ExpireStale terminates running runs whose last heartbeat is older than
// staleMS, as if a stale_expired event arrived at now. Returns how many
// runs were expired.
func ExpireStale(states map[string]*RunState, nowMS, staleMS int64) int {
	expired := 0
	for _, state := range states {
		if state.Terminal {
			continue
		}
		if nowMS-state.LastSeenAtMS > staleMS {
			state.Terminal = true
			state.TerminalType = EventStaleExpired
			state.TerminalAtMS = nowMS
			expired++
		}
	}
	return expired
}

// ActiveRow is one running entry in a materialized snapshot, shaped for
// direct consumption by the dashboard payload.
type ActiveRow struct {
	RunKey         string `json:"runKey"`
	JobID          string `json:"jobId"`
	JobName        string `json:"jobName"`
	SessionID      string `json:"sessionId"`
	SessionKey     string `json:"sessionKey"`
	Summary        string `json:"summary"`
	StartedAtMS    int64  `json:"startedAtMs"`
	StartedAtLocal string `json:"startedAtLocal"`
	RunningForMS   int64  `json:"runningForMs"`
	LastSeenAtMS   int64  `json:"lastSeenAtMs"`
	ActivityType   string `json:"activityType"`
	Model          string `json:"model,omitempty"`
	Thinking       string `json:"thinking,omitempty"`
}

// Snapshot is the materialized runtime state document.
type Snapshot struct {
	Status            string      `json:"status"`
	IsIdle            bool        `json:"isIdle"`
	ActiveCount       int         `json:"activeCount"`
	ActiveRuns        []ActiveRow `json:"activeRuns"`
	CheckedAtMS       int64       `json:"checkedAtMs"`
	Source            string      `json:"source"`
	Revision          string      `json:"revision"`
	SnapshotMode      string      `json:"snapshotMode"`
	DegradedReason    string      `json:"degradedReason"`
	MaterializedAtMS  int64       `json:"materializedAtMs"`
	TerminalCount     int         `json:"terminalCount"`
	DroppedStaleCount int         `json:"droppedStaleCount"`
}

// activeRowFromState applies the display fallbacks: every row the dashboard
// sees has an id, a name, and a human-readable start time.
func activeRowFromState(state *RunState, nowMS int64) ActiveRow {
	jobID := state.JobID
	if jobID == "" {
		jobID = state.RunKey
	}
	jobName := state.JobName
	if jobName == "" {
		jobName = state.Summary
	}
	if jobName == "" {
		jobName = "Running activity"
	}
	sessionID := state.SessionID
	if sessionID == "" {
		sessionID = state.SessionKey
	}
	if sessionID == "" {
		sessionID = state.RunKey
	}
	sessionKey := state.SessionKey
	if sessionKey == "" {
		sessionKey = state.SessionID
	}
	if sessionKey == "" {
		sessionKey = state.RunKey
	}
	summary := state.Summary
	if summary == "" {
		summary = jobName
	}
	activityType := state.ActivityType
	if activityType == "" {
		activityType = "cron"
	}

	runningFor := nowMS - state.StartedAtMS
	if runningFor < 0 {
		runningFor = 0
	}

	return ActiveRow{
		RunKey:         state.RunKey,
		JobID:          jobID,
		JobName:        jobName,
		SessionID:      sessionID,
		SessionKey:     sessionKey,
		Summary:        summary,
		StartedAtMS:    state.StartedAtMS,
		StartedAtLocal: time.UnixMilli(state.StartedAtMS).Format("2006-01-02 15:04:05"),
		RunningForMS:   runningFor,
		LastSeenAtMS:   state.LastSeenAtMS,
		ActivityType:   activityType,
		Model:          state.Model,
		Thinking:       state.Thinking,
	}
}

// BuildSnapshot assembles the snapshot document from reduced states.
// Active rows are sorted by (startedAtMs, runKey) so output is stable.
func BuildSnapshot(states map[string]*RunState, nowMS int64, revision string, droppedStale int) Snapshot {
	active := make([]ActiveRow, 0)
	terminalCount := 0
	for _, state := range states {
		if state.Terminal {
			terminalCount++
			continue
		}
		active = append(active, activeRowFromState(state, nowMS))
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].StartedAtMS != active[j].StartedAtMS {
			return active[i].StartedAtMS < active[j].StartedAtMS
		}
		return active[i].RunKey < active[j].RunKey
	})

	status := "idle"
	if len(active) > 0 {
		status = "running"
	}
	return Snapshot{
		Status:            status,
		IsIdle:            len(active) == 0,
		ActiveCount:       len(active),
		ActiveRuns:        active,
		CheckedAtMS:       nowMS,
		Source:            SourceMaterializedLedger,
		Revision:          revision,
		SnapshotMode:      "live",
		DegradedReason:    "",
		MaterializedAtMS:  nowMS,
		TerminalCount:     terminalCount,
		DroppedStaleCount: droppedStale,
	}
}

// NextRevision increments an rtv1 revision. Anything unparseable restarts
// the chain at rtv1-00000001.
func NextRevision(prev string) string {
	match := revisionRE.FindStringSubmatch(prev)
	if match == nil {
		return "rtv1-00000001"
	}
	var counter int64
	if _, err := fmt.Sscanf(match[1], "%d", &counter); err != nil {
		return "rtv1-00000001"
	}
	return fmt.Sprintf("rtv1-%08d", counter+1)
}

// LoadSnapshot reads a previously materialized snapshot.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snapshot, nil
}

// WriteSnapshot persists a snapshot atomically: write a uniquely named
// temp file in the target directory, then rename over the destination so
// readers never observe a partial document.
func WriteSnapshot(path string, snapshot Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Materialize replays the journal and writes a fresh snapshot. The new
// revision continues from whatever snapshot is already on disk.
func Materialize(eventsFile, outPath string, staleMS, nowMS int64) (Snapshot, error) {
	if staleMS <= 0 {
		staleMS = DefaultStaleMS
	}
	if nowMS <= 0 {
		nowMS = time.Now().UnixMilli()
	}

	events, err := ReadJournal(eventsFile)
	if err != nil {
		return Snapshot{}, err
	}

	states := Reduce(events)
	dropped := ExpireStale(states, nowMS, staleMS)

	revision := "rtv1-00000001"
	if prev, err := LoadSnapshot(outPath); err == nil {
		revision = NextRevision(prev.Revision)
	}

	snapshot := BuildSnapshot(states, nowMS, revision, dropped)
	if err := WriteSnapshot(outPath, snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}
