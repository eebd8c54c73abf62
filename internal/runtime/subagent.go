package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// RegistryEntry is one sub-agent run as persisted by the registry. Field
// names vary across producer versions; timestamps stay loosely typed until
// normalized.
type RegistryEntry struct {
	StartedAt       any    `json:"startedAt,omitempty"`
	CreatedAt       any    `json:"createdAt,omitempty"`
	UpdatedAt       any    `json:"updatedAt,omitempty"`
	EndedAt         any    `json:"endedAt,omitempty"`
	Task            string `json:"task,omitempty"`
	Label           string `json:"label,omitempty"`
	ChildSessionKey string `json:"childSessionKey,omitempty"`
	InvokeCommand   string `json:"invokeCommand,omitempty"`
	Command         []any  `json:"command,omitempty"`
	Model           string `json:"model,omitempty"`
	AgentModel      string `json:"agentModel,omitempty"`
	Thinking        string `json:"thinking,omitempty"`
	Status          string `json:"status,omitempty"`
	EndStatus       string `json:"endStatus,omitempty"`
}

// Registry is the sub-agent registry document.
type Registry struct {
	Runs map[string]RegistryEntry `json:"runs"`
}

// LoadRegistry reads the sub-agent registry. Missing or malformed files
// yield an empty registry; the producer may rewrite it at any moment.
func LoadRegistry(path string) Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		return Registry{}
	}
	var registry Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return Registry{}
	}
	return registry
}

// SortedRunIDs returns the registry run ids in lexical order so derived
// event streams are stable across runs.
func (r Registry) SortedRunIDs() []string {
	ids := make([]string, 0, len(r.Runs))
	for id := range r.Runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SummarizeTask collapses a multi-line task description into one line
// capped at 180 characters.
func (e RegistryEntry) SummarizeTask() string {
	var parts []string
	for _, line := range strings.Split(e.Task, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	cleaned := strings.Join(parts, " ")
	if cleaned == "" {
		return ""
	}
	if len(cleaned) > 180 {
		return cleaned[:180] + "…"
	}
	return cleaned
}

// ResolveLabel returns the most descriptive label available for a run,
// walking from explicit label down to a run-id placeholder.
func (e RegistryEntry) ResolveLabel(runID string) string {
	label := strings.TrimSpace(e.Label)
	if label != "" && !strings.EqualFold(label, "background task") {
		return label
	}

	if summary := e.SummarizeTask(); summary != "" {
		return summary
	}

	if invoke := strings.TrimSpace(e.InvokeCommand); invoke != "" {
		return invoke
	}

	var words []string
	for _, part := range e.Command {
		if text := strings.TrimSpace(fmt.Sprint(part)); text != "" {
			words = append(words, text)
		}
		if len(words) == 6 {
			break
		}
	}
	if len(words) > 0 {
		return strings.Join(words, " ")
	}

	if child := strings.TrimSpace(e.ChildSessionKey); child != "" {
		segments := strings.Split(child, ":")
		tail := segments[len(segments)-1]
		if len(tail) > 10 {
			tail = tail[:10]
		}
		return fmt.Sprintf("Subagent task (%s)", tail)
	}

	short := runID
	if len(short) > 10 {
		short = short[:10]
	}
	return fmt.Sprintf("Subagent task (%s)", short)
}

// SessionKey returns the child session key when present, otherwise the
// synthetic subagent:<runId> key.
func (e RegistryEntry) SessionKey(runID string) string {
	if key := strings.TrimSpace(e.ChildSessionKey); key != "" {
		return key
	}
	return "subagent:" + runID
}
