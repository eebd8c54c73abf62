// Package runtime implements the runtime-truth pipeline: canonical
// lifecycle events collected from heterogeneous producers, an append-only
// JSONL journal, and a deterministic reducer that materializes the set of
// active runs.
//
// Producers disagree about timestamps, field names, and terminal
// vocabulary. Everything inbound is normalized into one closed event
// model so replaying the journal yields the same snapshot regardless of
// delivery order.
package runtime

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Producer source tags. Priority drives sort-order tie-breaking.
const (
	SourceCronRuns         = "cron-runs"
	SourceSubagentRegistry = "subagent-registry"
	SourceSessionsStore    = "sessions-store"
)

// Canonical event types.
const (
	EventStarted      = "started"
	EventHeartbeat    = "heartbeat"
	EventFinished     = "finished"
	EventFailed       = "failed"
	EventCancelled    = "cancelled"
	EventTimedOut     = "timed_out"
	EventStaleExpired = "stale_expired"
)

var terminalEventTypes = map[string]bool{
	EventFinished:     true,
	EventFailed:       true,
	EventCancelled:    true,
	EventTimedOut:     true,
	EventStaleExpired: true,
}

var runningEventTypes = map[string]bool{
	EventStarted:   true,
	EventHeartbeat: true,
}

// EventPayload carries the run metadata a producer observation contributes.
// All fields are optional; the reducer nil-coalesces payload over prior state.
type EventPayload struct {
	JobID        string `json:"jobId,omitempty"`
	JobName      string `json:"jobName,omitempty"`
	SessionID    string `json:"sessionId,omitempty"`
	SessionKey   string `json:"sessionKey,omitempty"`
	Summary      string `json:"summary,omitempty"`
	StartedAtMS  *int64 `json:"startedAtMs,omitempty"`
	LastSeenAtMS *int64 `json:"lastSeenAtMs,omitempty"`
	ActivityType string `json:"activityType,omitempty"`
	Model        string `json:"model,omitempty"`
	Thinking     string `json:"thinking,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Event is one immutable journal record.
type Event struct {
	EventID      string       `json:"eventId"`
	RunKey       string       `json:"runKey"`
	EventType    string       `json:"eventType"`
	EventAtMS    int64        `json:"eventAtMs"`
	Source       string       `json:"source"`
	SourceOffset string       `json:"sourceOffset"`
	Payload      EventPayload `json:"payload"`
}

// NormalizeTerminalType maps heterogeneous terminal labels to canonical
// values. Unknown terminal-like labels collapse to "finished". Running
// types are never remapped here; callers guard with runningEventTypes.
func NormalizeTerminalType(raw string) string {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	if terminalEventTypes[normalized] {
		return normalized
	}

	switch normalized {
	case "ok", "success", "succeeded", "complete", "completed", "done":
		return EventFinished
	case "timeout", "timedout":
		return EventTimedOut
	case "error", "errored", "failure":
		return EventFailed
	case "canceled":
		return EventCancelled
	}
	return EventFinished
}

// DeterministicEventID derives the content-addressed id for an event.
// Identical inputs always produce identical ids; a collision on append
// means the same observation was already journaled.
func DeterministicEventID(runKey, eventType string, eventAtMS int64, source, sourceOffset string) string {
	material := fmt.Sprintf("%s|%s|%d|%s|%s", runKey, eventType, eventAtMS, source, sourceOffset)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// BuildEvent composes a canonical event. Terminal normalization is applied
// only when the caller's type is not already a running type.
func BuildEvent(runKey, eventType string, eventAtMS int64, source, sourceOffset string, payload EventPayload) Event {
	normalized := eventType
	if !runningEventTypes[eventType] {
		normalized = NormalizeTerminalType(eventType)
	}
	return Event{
		EventID:      DeterministicEventID(runKey, normalized, eventAtMS, source, sourceOffset),
		RunKey:       runKey,
		EventType:    normalized,
		EventAtMS:    eventAtMS,
		Source:       source,
		SourceOffset: sourceOffset,
		Payload:      payload,
	}
}

// IsTerminal reports whether eventType belongs to the absorbing terminal set.
func IsTerminal(eventType string) bool {
	return terminalEventTypes[eventType]
}

// IsRunning reports whether eventType is a running-lifecycle type.
func IsRunning(eventType string) bool {
	return runningEventTypes[eventType]
}

// SourcePriority ranks producers for deterministic tie-breaking.
func SourcePriority(source string) int {
	switch source {
	case SourceCronRuns:
		return 0
	case SourceSubagentRegistry:
		return 1
	case SourceSessionsStore:
		return 2
	case "":
		return 99
	default:
		return 50
	}
}

// SortEvents orders events by the canonical replay key:
// (eventAtMs, sourcePriority, sourceOffset, eventId), all ascending.
func SortEvents(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.EventAtMS != b.EventAtMS {
			return a.EventAtMS < b.EventAtMS
		}
		if pa, pb := SourcePriority(a.Source), SourcePriority(b.Source); pa != pb {
			return pa < pb
		}
		if a.SourceOffset != b.SourceOffset {
			return a.SourceOffset < b.SourceOffset
		}
		return a.EventID < b.EventID
	})
	return sorted
}

// CronRunKey builds the canonical identity for one cron execution.
// Both parts are required; unresolvable identities are dropped upstream.
func CronRunKey(jobID, sessionID string) (string, bool) {
	if jobID == "" || sessionID == "" {
		return "", false
	}
	return fmt.Sprintf("cron:%s:%s", jobID, sessionID), true
}

// SubagentRunKey builds the canonical identity for one sub-agent run.
func SubagentRunKey(runID string) (string, bool) {
	if runID == "" {
		return "", false
	}
	return "subagent:" + runID, true
}
