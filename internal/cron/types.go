// Package cron models the scheduler jobs file written by the cron runner.
// The control room only reads this file; jobs are created and executed by
// the runner itself. Shapes mirror the persisted JSON exactly.
//
// Three schedule kinds appear in the wild:
//   - "at":    one-time execution at a specific timestamp
//   - "every": recurring interval (in milliseconds)
//   - "cron":  standard cron expression (5-field, parsed by gronx)
package cron

// Schedule defines when a job runs.
type Schedule struct {
	Kind    string `json:"kind"`              // "at", "every", or "cron"
	AtMS    *int64 `json:"atMs,omitempty"`    // absolute timestamp (for "at")
	EveryMS *int64 `json:"everyMs,omitempty"` // interval in milliseconds (for "every")
	Expr    string `json:"expr,omitempty"`    // cron expression (for "cron")
	TZ      string `json:"tz,omitempty"`      // timezone (reserved)
}

// Payload describes what a job does when triggered. The control room only
// cares about the model/thinking hints it carries.
type Payload struct {
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Model    string `json:"model,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// JobState tracks runtime state for a job as persisted by the runner.
type JobState struct {
	NextRunAtMS *int64 `json:"nextRunAtMs,omitempty"` // next scheduled execution
	LastRunAtMS *int64 `json:"lastRunAtMs,omitempty"` // last execution timestamp
	LastStatus  string `json:"lastStatus,omitempty"`  // "ok" or "error"
	LastError   string `json:"lastError,omitempty"`   // error message if failed
}

// Job is one scheduled cron job.
type Job struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Enabled  bool     `json:"enabled"`
	Schedule Schedule `json:"schedule"`
	Payload  Payload  `json:"payload"`
	State    JobState `json:"state"`
}

// Store is the persisted jobs document.
type Store struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}
