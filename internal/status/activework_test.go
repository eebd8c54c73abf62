package status

import (
	"testing"
	"time"

	"github.com/openclaw/control-room/internal/markdown"
)

func localClock(hour, minute int) time.Time {
	return time.Date(2026, 8, 26, hour, minute, 0, 0, time.Local)
}

func TestIsStaleActiveWork(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		now   time.Time
		stale bool
	}{
		{"empty", "", localClock(12, 0), false},
		{"range within grace", "09:00-10:00 — Ship fix", localClock(10, 5), false},
		{"range past grace", "09:00-10:00 — Ship fix", localClock(10, 11), true},
		{"range still running", "09:00-11:00 — Ship fix", localClock(10, 30), false},
		{"completed range short grace", "09:00-09:30 — Migration completed", localClock(9, 50), true},
		{"completed range inside short grace", "09:00-09:30 — Migration completed", localClock(9, 40), false},
		{"single time fresh", "09:00 — Deep focus block", localClock(10, 0), false},
		{"single time aged out", "09:00 — Deep focus block", localClock(10, 35), true},
		{"single future time", "14:00 — Prep review", localClock(10, 0), false},
		{"completed no time context", "Shipped the release, all done", localClock(10, 0), true},
		{"plain text", "Investigating flaky pipeline", localClock(10, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsStaleActiveWork(tc.text, tc.now); got != tc.stale {
				t.Fatalf("IsStaleActiveWork(%q) = %v, want %v", tc.text, got, tc.stale)
			}
		})
	}
}

func TestResolveActiveWork(t *testing.T) {
	timeline := []markdown.TimelineBlock{
		{Time: "09:00-10:00", Task: "Morning review"},
		{Time: "10:00-11:30", Task: "Runtime pipeline work"},
		{Time: "14:00-15:00", Task: "Release prep"},
	}

	// Fresh operator note wins.
	got := ResolveActiveWork("10:15-11:00 — Debugging journal replay", timeline, localClock(10, 30))
	if got != "10:15-11:00 — Debugging journal replay" {
		t.Fatalf("fresh note replaced: %q", got)
	}

	// Stale note falls back to the current plan block.
	got = ResolveActiveWork("08:00-08:30 — Standup done", timeline, localClock(10, 30))
	if got != "10:00-11:30 — Runtime pipeline work" {
		t.Fatalf("current block fallback: %q", got)
	}

	// No current block promotes the next one.
	got = ResolveActiveWork("", timeline, localClock(12, 0))
	if got != "Next up: 14:00-15:00 — Release prep" {
		t.Fatalf("next block fallback: %q", got)
	}

	// Nothing to fall back to keeps the raw text.
	got = ResolveActiveWork("working", nil, localClock(12, 0))
	if got != "working" {
		t.Fatalf("raw passthrough: %q", got)
	}
}

func TestResolveCurrentFocus(t *testing.T) {
	timeline := []markdown.TimelineBlock{
		{Time: "10:00-11:30", Task: "Runtime pipeline work"},
		{Time: "14:00-15:00", Task: "Release prep"},
	}

	if got := ResolveCurrentFocus("Ship runtime truth", "", timeline, localClock(10, 30)); got != "Ship runtime truth" {
		t.Fatalf("explicit focus: %q", got)
	}

	// Placeholder focus falls through to the current plan block.
	if got := ResolveCurrentFocus("n/a", "", timeline, localClock(10, 30)); got != "Runtime pipeline work" {
		t.Fatalf("placeholder fallback: %q", got)
	}

	// Outside any block, active work is used with its time range stripped.
	got := ResolveCurrentFocus("", "12:00-12:30 — Lunch and triage", nil, localClock(12, 10))
	if got != "Lunch and triage" {
		t.Fatalf("active work fallback: %q", got)
	}

	// Next planned task covers the gap when nothing else exists.
	if got := ResolveCurrentFocus("", "", timeline, localClock(12, 0)); got != "Release prep" {
		t.Fatalf("next task fallback: %q", got)
	}

	if got := ResolveCurrentFocus("", "", nil, localClock(12, 0)); got != "Reliability monitoring + scheduled execution" {
		t.Fatalf("default focus: %q", got)
	}
}
