package sessions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/openclaw/control-room/internal/timeparse"
)

// Main-session probe windows. Tool activity with unanswered calls stays
// visible for the pending window; plain completed activity ages out fast.
const (
	MainSessionMaxAgeMS            = 2 * 60 * 1000
	MainSessionPendingCallMaxAgeMS = 10 * 60 * 1000
	MainSessionLockStaleMS         = 30 * 60 * 1000

	tailMaxLines   = 600
	taskSummaryMax = 140
)

// MainSessionRun is one interactive active-run row derived from recent
// main-session tool activity.
type MainSessionRun struct {
	JobID          string `json:"jobId"`
	JobName        string `json:"jobName"`
	SessionID      string `json:"sessionId"`
	SessionKey     string `json:"sessionKey"`
	Summary        string `json:"summary"`
	StartedAtMS    int64  `json:"startedAtMs"`
	StartedAtLocal string `json:"startedAtLocal"`
	RunningForMS   int64  `json:"runningForMs"`
	ActivityType   string `json:"activityType"`
}

type sessionLine struct {
	Timestamp any `json:"timestamp,omitempty"`
	Message   *struct {
		Role       string `json:"role,omitempty"`
		Timestamp  any    `json:"timestamp,omitempty"`
		ToolName   string `json:"toolName,omitempty"`
		ToolCallID any    `json:"toolCallId,omitempty"`
		Content    any    `json:"content,omitempty"`
	} `json:"message,omitempty"`
}

// readJSONLTail parses the last maxLines records of a jsonl file.
func readJSONLTail(path string, maxLines int) []sessionLine {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	tail := make([]string, 0, maxLines)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(tail) == maxLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}

	parsed := make([]sessionLine, 0, len(tail))
	for _, line := range tail {
		var doc sessionLine
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			continue
		}
		parsed = append(parsed, doc)
	}
	return parsed
}

// extractUserText flattens a message content value into one line of text.
func extractUserText(content any) string {
	switch v := content.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var parts []string
		for _, item := range v {
			block, ok := item.(map[string]any)
			if !ok || block["type"] != "text" {
				continue
			}
			if text, ok := block["text"].(string); ok && strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	return ""
}

// SummarizeMainTask collapses user text to one line capped at 140 chars.
func SummarizeMainTask(text string) string {
	compact := strings.Join(strings.Fields(text), " ")
	if compact == "" {
		return "Main session task"
	}
	if len(compact) > taskSummaryMax {
		return compact[:taskSummaryMax] + "…"
	}
	return compact
}

// normalizeToolCallID strips suffix metadata like "call_x|fc_x" so calls
// and results pair up.
func normalizeToolCallID(value any) (string, bool) {
	raw, ok := value.(string)
	if !ok {
		return "", false
	}
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", false
	}
	return strings.SplitN(cleaned, "|", 2)[0], true
}

func isLivePID(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// lockActive reports whether the session's sibling lock file indicates a
// live holder: fresh enough and, when a pid is recorded, still running.
func lockActive(sessionFile string, nowMS int64) bool {
	lockFile := sessionFile + ".lock"
	data, err := os.ReadFile(lockFile)
	if err != nil {
		return false
	}

	var lock struct {
		CreatedAt any `json:"createdAt,omitempty"`
		PID       any `json:"pid,omitempty"`
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return false
	}

	createdAtMS, hasCreated := timeparse.MS(lock.CreatedAt)
	if hasCreated && nowMS-createdAtMS > MainSessionLockStaleMS {
		return false
	}

	if pid, ok := lock.PID.(float64); ok {
		return isLivePID(int(pid))
	}
	return hasCreated && nowMS-createdAtMS <= MainSessionLockStaleMS
}

type toolEvent struct {
	atMS int64
	name string
}

// collectToolEvents gathers tool calls and results at or after sinceMS and
// counts calls that never received a result.
func collectToolEvents(lines []sessionLine, sinceMS int64) ([]toolEvent, int) {
	var events []toolEvent
	pending := make(map[string]bool)

	for _, line := range lines {
		eventMS, ok := timeparse.MS(line.Timestamp)
		if !ok || eventMS < sinceMS {
			continue
		}
		message := line.Message
		if message == nil {
			continue
		}

		if message.Role == "toolResult" {
			name := strings.TrimSpace(message.ToolName)
			if name == "" {
				name = "tool"
			}
			events = append(events, toolEvent{atMS: eventMS, name: name})
			if id, ok := normalizeToolCallID(message.ToolCallID); ok {
				delete(pending, id)
			}
			continue
		}
		if message.Role != "assistant" {
			continue
		}

		content, ok := message.Content.([]any)
		if !ok {
			continue
		}
		for _, item := range content {
			block, ok := item.(map[string]any)
			if !ok || block["type"] != "toolCall" {
				continue
			}
			name, _ := block["name"].(string)
			if strings.TrimSpace(name) == "" {
				name, _ = block["toolName"].(string)
			}
			if strings.TrimSpace(name) == "" {
				name = "tool"
			}
			events = append(events, toolEvent{atMS: eventMS, name: strings.TrimSpace(name)})

			callID := block["id"]
			if callID == nil {
				callID = block["toolCallId"]
			}
			if id, ok := normalizeToolCallID(callID); ok {
				pending[id] = true
			}
		}
	}
	return events, len(pending)
}

// ActiveMainSessionRun detects active main-session execution from recent
// tool activity in the session transcript. Plain chat with no tool use is
// intentionally not an active run.
func ActiveMainSessionRun(meta Meta, storeDir string, nowMS int64) (MainSessionRun, bool) {
	sessionFile := strings.TrimSpace(meta.SessionFile)
	if sessionFile == "" {
		sessionID := strings.TrimSpace(meta.SessionID)
		if sessionID == "" {
			return MainSessionRun{}, false
		}
		sessionFile = filepath.Join(storeDir, sessionID+".jsonl")
	}

	lines := readJSONLTail(sessionFile, tailMaxLines)
	if len(lines) == 0 {
		return MainSessionRun{}, false
	}

	var latestUserMS int64
	var latestUserText string
	found := false
	for i := len(lines) - 1; i >= 0; i-- {
		message := lines[i].Message
		if message == nil || message.Role != "user" {
			continue
		}
		latestUserMS, found = timeparse.MS(message.Timestamp)
		if !found {
			latestUserMS, found = timeparse.MS(lines[i].Timestamp)
		}
		latestUserText = extractUserText(message.Content)
		break
	}
	if !found {
		return MainSessionRun{}, false
	}

	toolEvents, pendingCalls := collectToolEvents(lines, latestUserMS)
	if len(toolEvents) == 0 {
		return MainSessionRun{}, false
	}

	lastToolMS := toolEvents[0].atMS
	startedAtMS := toolEvents[0].atMS
	for _, event := range toolEvents {
		if event.atMS > lastToolMS {
			lastToolMS = event.atMS
		}
		if event.atMS < startedAtMS {
			startedAtMS = event.atMS
		}
	}

	if pendingCalls > 0 {
		if nowMS-lastToolMS > MainSessionPendingCallMaxAgeMS {
			return MainSessionRun{}, false
		}
		// Without a live lock, very recent activity is still required.
		if !lockActive(sessionFile, nowMS) && nowMS-lastToolMS > MainSessionMaxAgeMS {
			return MainSessionRun{}, false
		}
	} else if nowMS-lastToolMS > MainSessionMaxAgeMS {
		return MainSessionRun{}, false
	}

	unique := make(map[string]bool)
	for _, event := range toolEvents {
		unique[event.name] = true
	}
	names := make([]string, 0, len(unique))
	for name := range unique {
		names = append(names, name)
	}
	sort.Strings(names)

	toolSummary := strings.Join(names[:min(3, len(names))], ", ")
	if len(names) > 3 {
		toolSummary = fmt.Sprintf("%s, +%d more", toolSummary, len(names)-3)
	}

	taskSummary := SummarizeMainTask(latestUserText)
	summary := taskSummary
	if toolSummary != "" {
		summary = fmt.Sprintf("%s (tools: %s)", taskSummary, toolSummary)
	}

	runningFor := nowMS - startedAtMS
	if runningFor < 0 {
		runningFor = 0
	}
	return MainSessionRun{
		JobID:          "interactive:main-session",
		JobName:        taskSummary,
		SessionID:      MainSessionKey,
		SessionKey:     MainSessionKey,
		Summary:        summary,
		StartedAtMS:    startedAtMS,
		StartedAtLocal: time.UnixMilli(startedAtMS).Format("2006-01-02 15:04:05"),
		RunningForMS:   runningFor,
		ActivityType:   "interactive",
	}, true
}
