package runtime

import (
	"testing"
)

func TestCollectCandidatesMergesByRunKey(t *testing.T) {
	rows := []Candidate{
		{RunKey: "cron:j1:s1", StartedAtMS: 2000, LastSeenAtMS: 2500, JobName: "Job One"},
		{RunKey: "cron:j1:s1", StartedAtMS: 1000, LastSeenAtMS: 1000, Summary: "summary"},
		{RunKey: "", StartedAtMS: 1000},
		{RunKey: "cron:j2:s2", StartedAtMS: 0},
	}

	merged := CollectCandidates(rows)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged candidate, got %d", len(merged))
	}
	got := merged[0]
	if got.StartedAtMS != 1000 || got.LastSeenAtMS != 2500 {
		t.Fatalf("merge must take min start and max seen: %+v", got)
	}
	if got.JobName != "Job One" || got.Summary != "summary" {
		t.Fatalf("first non-empty field must win: %+v", got)
	}
}

func TestCollectCandidatesClampsLastSeen(t *testing.T) {
	merged := CollectCandidates([]Candidate{
		{RunKey: "cron:j1:s1", StartedAtMS: 5000, LastSeenAtMS: 1000},
	})
	if merged[0].LastSeenAtMS != 5000 {
		t.Fatalf("lastSeenAtMs must never precede startedAtMs, got %d", merged[0].LastSeenAtMS)
	}
}

func TestCollectTerminalsKeepsLatest(t *testing.T) {
	terminals := CollectTerminals([]TerminalSignal{
		{RunKey: "cron:j1:s1", EventType: EventFailed, EventAtMS: 1000},
		{RunKey: "cron:j1:s1", EventType: EventFinished, EventAtMS: 2000},
		{RunKey: "cron:j1:s1", EventType: EventHeartbeat, EventAtMS: 3000},
	})
	got := terminals["cron:j1:s1"]
	if got.EventType != EventFinished || got.EventAtMS != 2000 {
		t.Fatalf("expected latest terminal to win, got %+v", got)
	}
}

func TestReconcileTerminalDominance(t *testing.T) {
	candidates := []Candidate{
		{RunKey: "cron:j1:s1", JobID: "j1", StartedAtMS: 1000, LastSeenAtMS: 1500},
		{RunKey: "cron:j2:s2", JobID: "j2", StartedAtMS: 3000, LastSeenAtMS: 3500},
	}
	signals := []TerminalSignal{
		// At or after start: run one is finished.
		{RunKey: "cron:j1:s1", EventType: EventFinished, EventAtMS: 1500},
		// Before start: a previous run under the same key, ignored.
		{RunKey: "cron:j2:s2", EventType: EventFinished, EventAtMS: 2000},
	}

	result := Reconcile(4000, candidates, signals, 600_000)
	if result.ActiveCount != 1 {
		t.Fatalf("expected 1 active run, got %d", result.ActiveCount)
	}
	if result.ActiveRuns[0].RunKey != "cron:j2:s2" {
		t.Fatalf("wrong survivor: %+v", result.ActiveRuns[0])
	}
	if result.DroppedTerminalCount != 1 {
		t.Fatalf("expected 1 terminal drop, got %d", result.DroppedTerminalCount)
	}
	if result.TerminalCount != 2 {
		t.Fatalf("expected 2 terminal keys, got %d", result.TerminalCount)
	}
}

func TestReconcileStaleDrop(t *testing.T) {
	candidates := []Candidate{
		{RunKey: "cron:j1:s1", StartedAtMS: 1000, LastSeenAtMS: 1000},
	}
	result := Reconcile(700_000, candidates, nil, 600_000)
	if result.ActiveCount != 0 || result.DroppedStaleCount != 1 {
		t.Fatalf("stale candidate must be dropped: %+v", result)
	}
}

func TestReconcileRowShape(t *testing.T) {
	candidates := []Candidate{
		{
			RunKey: "subagent:r1", JobID: "subagent:r1", JobName: "Build docs",
			SessionID: "subagent:r1", SessionKey: "subagent:r1", Summary: "Build docs",
			StartedAtMS: 1000, LastSeenAtMS: 2000, ActivityType: "subagent",
		},
	}
	result := Reconcile(5000, candidates, nil, 600_000)
	row := result.ActiveRuns[0]
	if row.RunningForMS != 4000 {
		t.Fatalf("unexpected runningForMs %d", row.RunningForMS)
	}
	if row.StartedAtLocal == "" {
		t.Fatal("startedAtLocal must be populated")
	}
	if row.ActivityType != "subagent" {
		t.Fatalf("unexpected activity type %q", row.ActivityType)
	}
}

func TestJobNameExcluded(t *testing.T) {
	excluded := []string{"control room status publish"}
	if !JobNameExcluded("Control Room Status Publish (hourly)", excluded) {
		t.Fatal("case-insensitive substring match expected")
	}
	if JobNameExcluded("Nightly sweep", excluded) {
		t.Fatal("unrelated job must not be excluded")
	}
}
