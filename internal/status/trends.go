package status

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/control-room/internal/cron"
)

const trendPointLimit = 14

// TrendPoint is one chart sample. Score maps status to a 0..1 quality
// value so mixed vocabularies chart consistently.
type TrendPoint struct {
	Label  string  `json:"label"`
	Status string  `json:"status"`
	Score  float64 `json:"score"`
	Job    string  `json:"job,omitempty"`
}

// NextJob is one row in the upcoming-jobs table.
type NextJob struct {
	Name       string `json:"name"`
	NextRun    string `json:"nextRun"`
	LastStatus string `json:"lastStatus"`
}

// StatusScore maps a health/status label onto a chartable quality score.
func StatusScore(status string) float64 {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ok", "green", "success":
		return 1.0
	case "yellow", "warn", "warning":
		return 0.55
	case "error", "red", "failed":
		return 0.0
	}
	return 0.35
}

// NextJobs returns enabled jobs ordered by next run time.
func NextJobs(jobsFile string, limit int, now time.Time) []NextJob {
	store, err := cron.LoadStore(jobsFile)
	if err != nil {
		return nil
	}

	var jobs []cron.Job
	for _, job := range store.Jobs {
		if job.Enabled {
			jobs = append(jobs, job)
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return nextRunOrInfinity(jobs[i], now) < nextRunOrInfinity(jobs[j], now)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	out := make([]NextJob, 0, len(jobs))
	for _, job := range jobs {
		nextRun := "n/a"
		if nextRunMS, ok := cron.NextRunAtMS(job, now); ok {
			nextRun = time.UnixMilli(nextRunMS).Format("15:04")
		}
		out = append(out, NextJob{
			Name:       job.Name,
			NextRun:    nextRun,
			LastStatus: job.State.LastStatus,
		})
	}
	return out
}

func nextRunOrInfinity(job cron.Job, now time.Time) int64 {
	if nextRunMS, ok := cron.NextRunAtMS(job, now); ok {
		return nextRunMS
	}
	return int64(1) << 62
}

// JobSuccessTrend charts recent run quality from job last-run statuses.
func JobSuccessTrend(jobsFile string, limit int) []TrendPoint {
	store, err := cron.LoadStore(jobsFile)
	if err != nil {
		return nil
	}

	type timedPoint struct {
		point TrendPoint
		ts    int64
	}
	var points []timedPoint
	for _, job := range store.Jobs {
		if !job.Enabled || job.State.LastRunAtMS == nil {
			continue
		}
		status := strings.ToLower(job.State.LastStatus)
		if status == "" {
			status = "unknown"
		}
		points = append(points, timedPoint{
			ts: *job.State.LastRunAtMS,
			point: TrendPoint{
				Label:  time.UnixMilli(*job.State.LastRunAtMS).Format("15:04"),
				Status: status,
				Score:  StatusScore(status),
				Job:    job.Name,
			},
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].ts < points[j].ts })
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, p.point)
	}
	return out
}

// ReliabilityTrend charts watchdog outcomes from the reliability JSONL log.
// Post-remediation health wins over pre-check health; a triggered guardrail
// with no recorded health reads as yellow.
func ReliabilityTrend(logFile string, limit int) []TrendPoint {
	f, err := os.Open(logFile)
	if err != nil {
		return nil
	}
	defer f.Close()

	type watchdogLine struct {
		TS                 any `json:"ts,omitempty"`
		GuardrailTriggered bool `json:"guardrailTriggered,omitempty"`
		Health             struct {
			Status string `json:"status,omitempty"`
		} `json:"health,omitempty"`
		PostHealth struct {
			Status string `json:"status,omitempty"`
		} `json:"postHealth,omitempty"`
	}

	type timedPoint struct {
		point TrendPoint
		ts    int64
	}
	var points []timedPoint

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row watchdogLine
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		ts, ok := row.TS.(float64)
		if !ok {
			continue
		}

		status := row.PostHealth.Status
		if status == "" {
			status = row.Health.Status
		}
		if status == "" {
			if row.GuardrailTriggered {
				status = "yellow"
			} else {
				status = "green"
			}
		}
		status = strings.ToLower(status)

		points = append(points, timedPoint{
			ts: int64(ts),
			point: TrendPoint{
				Label:  time.UnixMilli(int64(ts)).Format("15:04"),
				Status: status,
				Score:  StatusScore(status),
			},
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].ts < points[j].ts })
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, p.point)
	}
	return out
}
