package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openclaw/control-room/internal/cron"
)

func TestStatusScore(t *testing.T) {
	cases := []struct {
		status string
		want   float64
	}{
		{"ok", 1.0},
		{"GREEN", 1.0},
		{"success", 1.0},
		{"yellow", 0.55},
		{"warn", 0.55},
		{"warning", 0.55},
		{"error", 0.0},
		{"red", 0.0},
		{"failed", 0.0},
		{"unknown", 0.35},
		{"", 0.35},
		{"  ok  ", 1.0},
	}
	for _, tc := range cases {
		if got := StatusScore(tc.status); got != tc.want {
			t.Fatalf("StatusScore(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestNextJobs(t *testing.T) {
	now := localClock(10, 0)
	soonMS := now.Add(30 * time.Minute).UnixMilli()
	laterMS := now.Add(2 * time.Hour).UnixMilli()

	jobsFile := writeJobsFile(t, t.TempDir(), cron.Store{
		Version: 1,
		Jobs: []cron.Job{
			{ID: "j-later", Name: "Evening sweep", Enabled: true, State: cron.JobState{NextRunAtMS: &laterMS, LastStatus: "ok"}},
			{ID: "j-soon", Name: "Digest", Enabled: true, State: cron.JobState{NextRunAtMS: &soonMS, LastStatus: "error"}},
			{ID: "j-off", Name: "Disabled", Enabled: false, State: cron.JobState{NextRunAtMS: &soonMS}},
			{ID: "j-none", Name: "No schedule", Enabled: true},
		},
	})

	jobs := NextJobs(jobsFile, 8, now)
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d: %+v", len(jobs), jobs)
	}
	if jobs[0].Name != "Digest" || jobs[1].Name != "Evening sweep" {
		t.Fatalf("unexpected order: %+v", jobs)
	}
	if jobs[0].LastStatus != "error" {
		t.Fatalf("lastStatus = %q", jobs[0].LastStatus)
	}
	wantNextRun := time.UnixMilli(soonMS).Format("15:04")
	if jobs[0].NextRun != wantNextRun {
		t.Fatalf("nextRun = %q, want %q", jobs[0].NextRun, wantNextRun)
	}
	// A job with no resolvable schedule sorts last and shows n/a.
	if jobs[2].Name != "No schedule" || jobs[2].NextRun != "n/a" {
		t.Fatalf("unscheduled job: %+v", jobs[2])
	}
}

func TestNextJobsLimit(t *testing.T) {
	now := localClock(10, 0)
	var jobs []cron.Job
	for i := 0; i < 12; i++ {
		ms := now.Add(time.Duration(i+1) * time.Minute).UnixMilli()
		jobs = append(jobs, cron.Job{
			ID:      string(rune('a' + i)),
			Name:    "job",
			Enabled: true,
			State:   cron.JobState{NextRunAtMS: &ms},
		})
	}
	jobsFile := writeJobsFile(t, t.TempDir(), cron.Store{Version: 1, Jobs: jobs})

	if got := NextJobs(jobsFile, 8, now); len(got) != 8 {
		t.Fatalf("expected limit of 8, got %d", len(got))
	}
}

func TestJobSuccessTrend(t *testing.T) {
	now := localClock(10, 0)
	earlyMS := now.Add(-2 * time.Hour).UnixMilli()
	lateMS := now.Add(-time.Hour).UnixMilli()

	jobsFile := writeJobsFile(t, t.TempDir(), cron.Store{
		Version: 1,
		Jobs: []cron.Job{
			{ID: "j1", Name: "Digest", Enabled: true, State: cron.JobState{LastRunAtMS: &lateMS, LastStatus: "OK"}},
			{ID: "j2", Name: "Backup", Enabled: true, State: cron.JobState{LastRunAtMS: &earlyMS, LastStatus: "error"}},
			{ID: "j3", Name: "Never ran", Enabled: true},
			{ID: "j4", Name: "Disabled", Enabled: false, State: cron.JobState{LastRunAtMS: &lateMS, LastStatus: "ok"}},
		},
	})

	points := JobSuccessTrend(jobsFile, trendPointLimit)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d: %+v", len(points), points)
	}
	// Ascending by run time, status lowercased, score derived.
	if points[0].Job != "Backup" || points[0].Status != "error" || points[0].Score != 0.0 {
		t.Fatalf("first point: %+v", points[0])
	}
	if points[1].Job != "Digest" || points[1].Status != "ok" || points[1].Score != 1.0 {
		t.Fatalf("second point: %+v", points[1])
	}
}

func TestReliabilityTrend(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "reliability-watchdog.jsonl")
	lines := `{"ts": 1000, "health": {"status": "green"}}
{"ts": 2000, "health": {"status": "green"}, "postHealth": {"status": "yellow"}}
{"ts": 3000, "guardrailTriggered": true}
{"no": "timestamp"}
not json
{"ts": 4000}
`
	if err := os.WriteFile(logFile, []byte(lines), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	points := ReliabilityTrend(logFile, trendPointLimit)
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d: %+v", len(points), points)
	}
	if points[0].Status != "green" {
		t.Fatalf("first status = %q", points[0].Status)
	}
	// Post-remediation health wins over the pre-check reading.
	if points[1].Status != "yellow" || points[1].Score != 0.55 {
		t.Fatalf("postHealth point: %+v", points[1])
	}
	// Triggered guardrail with no health reads yellow; quiet line reads green.
	if points[2].Status != "yellow" {
		t.Fatalf("guardrail point: %+v", points[2])
	}
	if points[3].Status != "green" {
		t.Fatalf("quiet point: %+v", points[3])
	}
}

func TestReliabilityTrendMissingFile(t *testing.T) {
	if points := ReliabilityTrend(filepath.Join(t.TempDir(), "nope.jsonl"), trendPointLimit); points != nil {
		t.Fatalf("expected nil for missing log, got %+v", points)
	}
}
