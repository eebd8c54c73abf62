// Package status assembles the dashboard payload: focus and active work
// from operator notes, workstream lanes from the unified event model,
// trends, skills, and the runtime truth block.
package status

import (
	"regexp"
	"strings"
	"time"

	"github.com/openclaw/control-room/internal/markdown"
)

var timeRangePattern = regexp.MustCompile(`(\d{1,2}:\d{2})-(\d{1,2}:\d{2})`)

// Active-work staleness windows, in minutes. Items carrying a completion
// token age out faster than open-ended ones.
const (
	activeWorkGraceMinutes      = 10
	activeWorkSingleTimeMinutes = 90
	activeWorkCompletedMinutes  = 15
)

var activeWorkCompletionTokens = []string{"complete", "completed", "done", "finished"}

var focusPlaceholders = map[string]bool{
	"n/a": true, "na": true, "none": true, "unknown": true,
}

type timelineSlot struct {
	Time  string
	Task  string
	Start int
	End   int
}

type timelineContext struct {
	Current   *timelineSlot
	Next      []timelineSlot
	Completed []timelineSlot
}

func formatSlot(slot timelineSlot) string {
	return strings.TrimSpace(slot.Time + " — " + strings.TrimSpace(slot.Task))
}

// buildTimelineContext slices the plan into current/next/completed blocks
// relative to the local wall clock.
func buildTimelineContext(timeline []markdown.TimelineBlock, nowLocal time.Time) timelineContext {
	nowMinutes := nowLocal.Hour()*60 + nowLocal.Minute()

	var normalized []timelineSlot
	for _, block := range timeline {
		rng, ok := markdown.ParseTimeRange(block.Time)
		if !ok {
			continue
		}
		normalized = append(normalized, timelineSlot{
			Time:  block.Time,
			Task:  block.Task,
			Start: rng.Start,
			End:   rng.End,
		})
	}

	var context timelineContext
	for i := range normalized {
		slot := normalized[i]
		switch {
		case slot.Start <= nowMinutes && nowMinutes < slot.End:
			context.Current = &normalized[i]
		case nowMinutes < slot.Start:
			context.Next = append(context.Next, slot)
		case slot.End <= nowMinutes:
			context.Completed = append(context.Completed, slot)
		}
	}

	if context.Current == nil && len(context.Next) == 0 && len(normalized) > 0 {
		// Past the final planned block for the day.
		context.Completed = normalized
	}
	return context
}

func hasCompletionToken(text string) bool {
	lowered := strings.ToLower(text)
	for _, token := range activeWorkCompletionTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// IsStaleActiveWork reports whether the "Running now" note is too old to
// display as-is. Time-ranged items expire past their end, single-time items
// after a fixed age, and completed items without time context immediately.
func IsStaleActiveWork(activeWork string, nowLocal time.Time) bool {
	text := strings.TrimSpace(activeWork)
	if text == "" {
		return false
	}

	nowMinutes := nowLocal.Hour()*60 + nowLocal.Minute()
	completed := hasCompletionToken(text)

	if rng, ok := markdown.ParseTimeRange(text); ok {
		cutoff := activeWorkGraceMinutes
		if completed {
			cutoff = activeWorkCompletedMinutes
		}
		return nowMinutes > rng.End+cutoff
	}

	if singleTime, ok := markdown.ParseLeadingTimeMinutes(text); ok {
		if singleTime > nowMinutes {
			// A leading future time likely represents upcoming work.
			return false
		}
		cutoff := activeWorkSingleTimeMinutes
		if completed {
			cutoff = activeWorkCompletedMinutes
		}
		return nowMinutes-singleTime > cutoff
	}

	// "Running now" should not be a completed item with no time context.
	return completed
}

// ResolveActiveWork applies the stale guard and falls back to the plan.
func ResolveActiveWork(rawActiveWork string, timeline []markdown.TimelineBlock, nowLocal time.Time) string {
	context := buildTimelineContext(timeline, nowLocal)

	if rawActiveWork != "" && !IsStaleActiveWork(rawActiveWork, nowLocal) {
		return rawActiveWork
	}
	if context.Current != nil {
		return formatSlot(*context.Current)
	}
	if len(context.Next) > 0 {
		return "Next up: " + formatSlot(context.Next[0])
	}
	return rawActiveWork
}

// ResolveCurrentFocus picks the focus line with fallbacks for stale or
// placeholder status notes.
func ResolveCurrentFocus(rawFocus, activeWork string, timeline []markdown.TimelineBlock, nowLocal time.Time) string {
	normalized := strings.TrimSpace(rawFocus)
	if normalized != "" && !focusPlaceholders[strings.ToLower(normalized)] {
		return normalized
	}

	context := buildTimelineContext(timeline, nowLocal)
	if context.Current != nil && context.Current.Task != "" {
		return context.Current.Task
	}

	if activeWork != "" {
		// Strip a leading time range for cleaner focus text.
		stripped := strings.TrimLeft(stripFirstTimeRange(activeWork), " —-:")
		if stripped != "" {
			return stripped
		}
		return activeWork
	}

	if len(context.Next) > 0 {
		return context.Next[0].Task
	}
	return "Reliability monitoring + scheduled execution"
}

func stripFirstTimeRange(text string) string {
	if loc := timeRangePattern.FindStringIndex(text); loc != nil {
		return text[:loc[0]] + text[loc[1]:]
	}
	return text
}
