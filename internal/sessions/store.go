// Package sessions reads the long-lived interactive session store and
// probes the main session for live tool activity.
package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// MainSessionKey identifies the interactive main session in the store.
const MainSessionKey = "agent:main:main"

var cronRunSessionKeyRE = regexp.MustCompile(`^agent:main:cron:([^:]+):run:([^:]+)$`)

// Meta is the per-session metadata the store persists. Timestamps arrive
// as unix integers or ISO-8601 strings depending on producer version, so
// UpdatedAt stays loosely typed until normalized.
type Meta struct {
	SessionID   string `json:"sessionId,omitempty"`
	SessionFile string `json:"sessionFile,omitempty"`
	UpdatedAt   any    `json:"updatedAt,omitempty"`
	Model       string `json:"model,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
}

// LoadStore reads the sessions store: a JSON map from session key to Meta.
// A missing file yields an empty map.
func LoadStore(path string) (map[string]Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Meta{}, nil
		}
		return nil, fmt.Errorf("read sessions store: %w", err)
	}

	var store map[string]Meta
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parse sessions store: %w", err)
	}
	if store == nil {
		store = map[string]Meta{}
	}
	return store, nil
}

// ParseCronRunKey extracts the job and session ids from a cron-run session
// key of the form agent:main:cron:<jobId>:run:<sessionId>.
func ParseCronRunKey(sessionKey string) (jobID, sessionID string, ok bool) {
	match := cronRunSessionKeyRE.FindStringSubmatch(sessionKey)
	if match == nil {
		return "", "", false
	}
	return match[1], match[2], true
}
