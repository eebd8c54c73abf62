package cron

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/adhocore/gronx"
)

// JobMeta is the per-job lookup the runtime collector needs: display name
// plus normalized model/thinking hints inherited by cron sessions.
type JobMeta struct {
	Name     string
	Model    string
	Thinking string
}

// LoadStore reads the jobs file. A missing file yields an empty store;
// malformed JSON is an error the caller downgrades to a degraded source.
func LoadStore(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return Store{}, fmt.Errorf("read jobs file: %w", err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return Store{}, fmt.Errorf("parse jobs file: %w", err)
	}
	return store, nil
}

// SynthesizedJobName is the display name for jobs the jobs file no longer
// knows about: the first 8 characters of the id.
func SynthesizedJobName(jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Unknown job (%s)", short)
}

// NextRunAtMS resolves a job's next scheduled execution. Persisted state
// wins; for cron-expression jobs whose state was never computed, the next
// tick is derived from the expression so upcoming work still surfaces.
func NextRunAtMS(job Job, now time.Time) (int64, bool) {
	if job.State.NextRunAtMS != nil {
		return *job.State.NextRunAtMS, true
	}

	switch job.Schedule.Kind {
	case "at":
		if job.Schedule.AtMS != nil && *job.Schedule.AtMS > now.UnixMilli() {
			return *job.Schedule.AtMS, true
		}
	case "every":
		if job.Schedule.EveryMS != nil && *job.Schedule.EveryMS > 0 {
			return now.UnixMilli() + *job.Schedule.EveryMS, true
		}
	case "cron":
		if job.Schedule.Expr == "" {
			return 0, false
		}
		next, err := gronx.NextTickAfter(job.Schedule.Expr, now, false)
		if err != nil {
			return 0, false
		}
		return next.UnixMilli(), true
	}
	return 0, false
}
