package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/control-room/internal/cron"
	"github.com/openclaw/control-room/internal/markdown"
)

// Lane limits for the workstream widget.
const (
	laneNowLimit  = 1
	laneNextLimit = 5
	laneDoneLimit = 5
)

var (
	doneLaneTimeRangeRE = regexp.MustCompile(`^\s*(\d{1,2}:\d{2})-(\d{1,2}:\d{2})\s*[—\-:]\s*(.+)$`)
	doneLaneTimeRE      = regexp.MustCompile(`^\s*(\d{1,2}:\d{2})\s*[—\-:]\s*(.+)$`)
)

// laneEvent is one entry in the unified event model feeding the lanes.
// Ids are stable across rebuilds so transitions can be tracked.
type laneEvent struct {
	ID      string
	Kind    string
	StartMS int64
	EndMS   int64
	Label   string
}

// timelineLaneEvents returns plan blocks that have not finished yet.
func timelineLaneEvents(timeline []markdown.TimelineBlock, nowLocal time.Time) []laneEvent {
	dayStart := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, nowLocal.Location())
	nowMS := nowLocal.UnixMilli()

	var events []laneEvent
	for _, block := range timeline {
		rng, ok := markdown.ParseTimeRange(block.Time)
		if !ok {
			continue
		}
		startAt := dayStart.Add(time.Duration(rng.Start) * time.Minute)
		endAt := dayStart.Add(time.Duration(rng.End) * time.Minute)
		if endAt.UnixMilli() <= nowMS {
			continue
		}
		task := strings.TrimSpace(block.Task)
		events = append(events, laneEvent{
			ID:      fmt.Sprintf("timeline:%s:%s:%s", startAt.Format("2006-01-02"), block.Time, strings.ToLower(task)),
			Kind:    "timeline",
			StartMS: startAt.UnixMilli(),
			EndMS:   endAt.UnixMilli(),
			Label:   formatSlot(timelineSlot{Time: block.Time, Task: block.Task}),
		})
	}
	sortLaneEvents(events)
	return events
}

// scheduledJobLaneEvents returns future enabled cron runs.
func scheduledJobLaneEvents(jobsFile string, nowLocal time.Time) []laneEvent {
	store, err := cron.LoadStore(jobsFile)
	if err != nil {
		return nil
	}

	nowMS := nowLocal.UnixMilli()
	var events []laneEvent
	for _, job := range store.Jobs {
		if !job.Enabled {
			continue
		}
		nextRunMS, ok := cron.NextRunAtMS(job, nowLocal)
		if !ok || nextRunMS < nowMS {
			continue
		}
		name := strings.TrimSpace(job.Name)
		if name == "" {
			name = "Unnamed job"
		}
		localLabel := time.UnixMilli(nextRunMS).In(nowLocal.Location()).Format("15:04")
		events = append(events, laneEvent{
			ID:      fmt.Sprintf("job:%s:%d", job.ID, nextRunMS),
			Kind:    "job",
			StartMS: nextRunMS,
			Label:   fmt.Sprintf("%s — Scheduled job: %s", localLabel, name),
		})
	}
	sortLaneEvents(events)
	return events
}

// runtimeLaneEvents maps active runtime rows into running events.
func runtimeLaneEvents(runtime RuntimeBlock) []laneEvent {
	var events []laneEvent
	for _, row := range runtime.ActiveRuns {
		if row.StartedAtMS == 0 {
			continue
		}
		sessionID := row.SessionID
		if sessionID == "" {
			sessionID = row.JobID
		}
		if sessionID == "" {
			sessionID = "runtime"
		}
		summary := strings.TrimSpace(row.Summary)
		if summary == "" {
			summary = strings.TrimSpace(row.JobName)
		}
		if summary == "" {
			summary = "Running activity"
		}
		events = append(events, laneEvent{
			ID:      "runtime:" + sessionID,
			Kind:    "runtime",
			StartMS: row.StartedAtMS,
			Label:   summary,
		})
	}
	sortLaneEvents(events)
	return events
}

func sortLaneEvents(events []laneEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartMS != events[j].StartMS {
			return events[i].StartMS < events[j].StartMS
		}
		return events[i].ID < events[j].ID
	})
}

// workstreamState tracks lane membership across rebuilds, resetting daily.
type workstreamState struct {
	Day     string            `json:"day"`
	SeenNow []string          `json:"seenNow"`
	Done    []string          `json:"done"`
	Labels  map[string]string `json:"labels"`
}

func loadWorkstreamState(path string, nowLocal time.Time) workstreamState {
	today := nowLocal.Format("2006-01-02")
	fallback := workstreamState{Day: today, SeenNow: []string{}, Done: []string{}, Labels: map[string]string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	var state workstreamState
	if err := json.Unmarshal(data, &state); err != nil {
		return fallback
	}
	if state.Day != today {
		return fallback
	}
	if state.Labels == nil {
		state.Labels = map[string]string{}
	}
	if state.SeenNow == nil {
		state.SeenNow = []string{}
	}
	if state.Done == nil {
		state.Done = []string{}
	}
	return state
}

func saveWorkstreamState(path string, state workstreamState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode workstream state: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func normalizeLaneItems(items []string, limit int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, limit)
	for _, item := range items {
		text := strings.TrimSpace(item)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// FormatDoneLaneItem rewrites a done entry to lead with its completion
// time: a range uses its end time, a single leading time stays.
func FormatDoneLaneItem(item string) string {
	text := strings.TrimSpace(item)
	if text == "" {
		return text
	}

	if match := doneLaneTimeRangeRE.FindStringSubmatch(text); match != nil {
		endMinutes, ok := markdown.ParseHHMMToMinutes(match[2])
		if !ok {
			return text
		}
		return markdown.FormatMinutesHHMM(endMinutes) + " — " + strings.TrimSpace(match[3])
	}
	if match := doneLaneTimeRE.FindStringSubmatch(text); match != nil {
		minutes, ok := markdown.ParseHHMMToMinutes(match[1])
		if !ok {
			return text
		}
		return markdown.FormatMinutesHHMM(minutes) + " — " + strings.TrimSpace(match[2])
	}
	return text
}

// WorkstreamLanes is the now/next/done widget payload.
type WorkstreamLanes struct {
	Now  []string `json:"now"`
	Next []string `json:"next"`
	Done []string `json:"done"`
}

// BuildWorkstreamLanes derives the lanes from the unified event model.
// Runtime rows own the now lane; otherwise the nearest future event is
// promoted. Events previously seen in now that left both lanes move to
// done. Lane membership persists across rebuilds via the state file.
func BuildWorkstreamLanes(
	timeline []markdown.TimelineBlock,
	jobsFile string,
	runtime RuntimeBlock,
	nowLocal time.Time,
	statePath string,
) WorkstreamLanes {
	futureEvents := append(timelineLaneEvents(timeline, nowLocal), scheduledJobLaneEvents(jobsFile, nowLocal)...)
	sortLaneEvents(futureEvents)
	activeEvents := runtimeLaneEvents(runtime)

	state := loadWorkstreamState(statePath, nowLocal)
	labels := make(map[string]string, len(state.Labels))
	for id, label := range state.Labels {
		labels[id] = label
	}
	seenNow := make(map[string]bool, len(state.SeenNow))
	for _, id := range state.SeenNow {
		seenNow[id] = true
	}
	doneIDs := append([]string(nil), state.Done...)

	var nowEvents []laneEvent
	nextEvents := append([]laneEvent(nil), futureEvents...)
	if len(activeEvents) > 0 {
		nowEvents = activeEvents[:min(laneNowLimit, len(activeEvents))]
	} else if len(futureEvents) > 0 {
		nowEvents = futureEvents[:1]
		nextEvents = futureEvents[1:]
	}

	nowIDs := make(map[string]bool, len(nowEvents))
	for _, event := range nowEvents {
		nowIDs[event.ID] = true
	}
	futureIDs := make(map[string]bool, len(futureEvents))
	for _, event := range futureEvents {
		futureIDs[event.ID] = true
	}

	for _, event := range nowEvents {
		labels[event.ID] = event.Label
	}
	for _, event := range nextEvents {
		labels[event.ID] = event.Label
	}
	for _, event := range activeEvents {
		labels[event.ID] = event.Label
	}
	for id := range nowIDs {
		seenNow[id] = true
	}

	inDone := make(map[string]bool, len(doneIDs))
	for _, id := range doneIDs {
		inDone[id] = true
	}
	for _, id := range state.SeenNow {
		if !nowIDs[id] && !futureIDs[id] && !inDone[id] {
			doneIDs = append(doneIDs, id)
			inDone[id] = true
		}
	}

	var doneLane []string
	for i := len(doneIDs) - 1; i >= 0; i-- {
		if label, ok := labels[doneIDs[i]]; ok {
			doneLane = append(doneLane, label)
		}
	}
	nowLane := make([]string, 0, len(nowEvents))
	for _, event := range nowEvents {
		nowLane = append(nowLane, event.Label)
	}
	nextLane := make([]string, 0, len(nextEvents))
	for _, event := range nextEvents {
		nextLane = append(nextLane, event.Label)
	}

	output := WorkstreamLanes{
		Now:  normalizeLaneItems(nowLane, laneNowLimit),
		Next: normalizeLaneItems(nextLane, laneNextLimit),
		Done: normalizeLaneItems(doneLane, laneDoneLimit),
	}

	// Items shown in now must not repeat downstream.
	activeLabels := make(map[string]bool, len(output.Now))
	for _, label := range output.Now {
		activeLabels[label] = true
	}
	nextUnique := output.Next[:0]
	nextSet := make(map[string]bool)
	for _, label := range output.Next {
		if !activeLabels[label] {
			nextUnique = append(nextUnique, label)
			nextSet[label] = true
		}
	}
	output.Next = nextUnique
	doneUnique := output.Done[:0]
	for _, label := range output.Done {
		if !activeLabels[label] && !nextSet[label] {
			doneUnique = append(doneUnique, label)
		}
	}
	output.Done = doneUnique

	persistedDone := make([]string, 0, len(doneIDs))
	shownDone := make(map[string]bool, len(output.Done))
	for _, label := range output.Done {
		shownDone[label] = true
	}
	for _, id := range doneIDs {
		if shownDone[labels[id]] {
			persistedDone = append(persistedDone, id)
		}
	}

	formattedDone := make([]string, 0, len(output.Done))
	for _, label := range output.Done {
		formattedDone = append(formattedDone, FormatDoneLaneItem(label))
	}
	output.Done = formattedDone

	persistedSeen := make([]string, 0, len(seenNow))
	for id := range seenNow {
		persistedSeen = append(persistedSeen, id)
	}
	sort.Strings(persistedSeen)

	// State write failures only cost transition tracking on the next build.
	_ = saveWorkstreamState(statePath, workstreamState{
		Day:     nowLocal.Format("2006-01-02"),
		SeenNow: persistedSeen,
		Done:    persistedDone,
		Labels:  labels,
	})
	return output
}
