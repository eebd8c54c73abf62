package runtime

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeTerminalType(t *testing.T) {
	cases := map[string]string{
		"ok":        "finished",
		"success":   "finished",
		"succeeded": "finished",
		"complete":  "finished",
		"completed": "finished",
		"done":      "finished",
		"OK":        "finished",
		"timeout":   "timed_out",
		"timedout":  "timed_out",
		"timed-out": "timed_out",
		"error":     "failed",
		"errored":   "failed",
		"failure":   "failed",
		"canceled":  "cancelled",
		"cancelled": "cancelled",
		"failed":    "failed",
		"timed_out": "timed_out",
		"weird":     "finished",
		"":          "finished",
	}
	for raw, want := range cases {
		if got := NormalizeTerminalType(raw); got != want {
			t.Errorf("NormalizeTerminalType(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDeterministicEventIDStable(t *testing.T) {
	a := DeterministicEventID("cron:j1:s1", "heartbeat", 1000, SourceSessionsStore, "sessions:k")
	b := DeterministicEventID("cron:j1:s1", "heartbeat", 1000, SourceSessionsStore, "sessions:k")
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}

	c := DeterministicEventID("cron:j1:s1", "heartbeat", 1001, SourceSessionsStore, "sessions:k")
	if a == c {
		t.Fatal("different timestamps must produce different ids")
	}
}

func TestBuildEventNormalizesTerminals(t *testing.T) {
	event := BuildEvent("cron:j:s", "OK", 5000, SourceCronRuns, "j.jsonl:1", EventPayload{})
	if event.EventType != EventFinished {
		t.Fatalf("expected finished, got %q", event.EventType)
	}

	running := BuildEvent("cron:j:s", EventHeartbeat, 5000, SourceSessionsStore, "sessions:k", EventPayload{})
	if running.EventType != EventHeartbeat {
		t.Fatalf("heartbeat must pass through, got %q", running.EventType)
	}
}

func TestSortEventsCanonicalOrder(t *testing.T) {
	events := []Event{
		{EventID: "b", EventAtMS: 2000, Source: SourceSessionsStore, SourceOffset: "x"},
		{EventID: "a", EventAtMS: 1000, Source: SourceSessionsStore, SourceOffset: "x"},
		{EventID: "c", EventAtMS: 1000, Source: SourceCronRuns, SourceOffset: "x"},
		{EventID: "d", EventAtMS: 1000, Source: SourceCronRuns, SourceOffset: "a"},
	}
	sorted := SortEvents(events)

	wantIDs := []string{"d", "c", "a", "b"}
	for i, want := range wantIDs {
		if sorted[i].EventID != want {
			t.Fatalf("position %d: got %s, want %s", i, sorted[i].EventID, want)
		}
	}
}

func TestRunKeys(t *testing.T) {
	if key, ok := CronRunKey("j1", "s1"); !ok || key != "cron:j1:s1" {
		t.Fatalf("unexpected cron run key %q ok=%v", key, ok)
	}
	if _, ok := CronRunKey("", "s1"); ok {
		t.Fatal("empty job id must not produce a run key")
	}
	if key, ok := SubagentRunKey("r1"); !ok || key != "subagent:r1" {
		t.Fatalf("unexpected subagent run key %q ok=%v", key, ok)
	}
	if _, ok := SubagentRunKey(""); ok {
		t.Fatal("empty run id must not produce a run key")
	}
}

// Replay determinism: reducing any permutation of the same event set yields
// the same snapshot because SortEvents restores canonical order first.
func TestReducePermutationInvariant(t *testing.T) {
	started := int64(1000)
	base := []Event{
		BuildEvent("cron:j1:s1", EventStarted, 1000, SourceSessionsStore, "sessions:a", EventPayload{JobID: "j1", JobName: "Job One", StartedAtMS: &started}),
		BuildEvent("cron:j1:s1", EventHeartbeat, 2000, SourceSessionsStore, "sessions:a", EventPayload{JobID: "j1"}),
		BuildEvent("cron:j1:s1", "finished", 3000, SourceCronRuns, "j1.jsonl:1", EventPayload{}),
		BuildEvent("subagent:r1", EventStarted, 1500, SourceSubagentRegistry, "subagent:r1:started", EventPayload{JobName: "Task"}),
		BuildEvent("subagent:r1", EventHeartbeat, 2500, SourceSubagentRegistry, "subagent:r1:heartbeat", EventPayload{}),
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("reduce is permutation invariant", prop.ForAll(
		func(order []int) bool {
			shuffled := make([]Event, 0, len(base))
			for _, idx := range order {
				shuffled = append(shuffled, base[idx%len(base)])
			}
			for _, event := range base {
				shuffled = append(shuffled, event)
			}

			want := BuildSnapshot(Reduce(SortEvents(base)), 4000, "rtv1-00000001", 0)
			got := BuildSnapshot(Reduce(SortEvents(shuffled)), 4000, "rtv1-00000001", 0)
			if len(want.ActiveRuns) != len(got.ActiveRuns) {
				return false
			}
			for i := range want.ActiveRuns {
				if want.ActiveRuns[i] != got.ActiveRuns[i] {
					return false
				}
			}
			return want.TerminalCount == got.TerminalCount
		},
		gen.SliceOf(gen.IntRange(0, len(base)-1)),
	))

	properties.TestingRun(t)
}
