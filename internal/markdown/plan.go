package markdown

import (
	"regexp"
	"strings"
)

var (
	blockRE   = regexp.MustCompile(`^###\s+(\d{1,2}:\d{2})-(\d{1,2}:\d{2})\s+—\s+(.+)$`)
	headingRE = regexp.MustCompile(`^##\s+(.+)$`)
)

// TimelineBlock is one planned block from the daily plan.
type TimelineBlock struct {
	Time string `json:"time"`
	Task string `json:"task"`
}

// ParseDailyPlanBlocks extracts "### HH:MM-HH:MM — task" blocks.
func ParseDailyPlanBlocks(planMarkdown string) []TimelineBlock {
	var timeline []TimelineBlock
	for _, raw := range strings.Split(planMarkdown, "\n") {
		match := blockRE.FindStringSubmatch(strings.TrimSpace(raw))
		if match == nil {
			continue
		}
		timeline = append(timeline, TimelineBlock{
			Time: match[1] + "-" + match[2],
			Task: match[3],
		})
	}
	return timeline
}

// TodayStatus is the machine-relevant subset of the status note.
type TodayStatus struct {
	CurrentFocus string
	ActiveWork   string
}

// ParseTodayStatus pulls "- Primary focus:" and "- Running now:" lines.
func ParseTodayStatus(statusMarkdown string) TodayStatus {
	var status TodayStatus
	for _, raw := range strings.Split(statusMarkdown, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "- Primary focus:") {
			status.CurrentFocus = strings.TrimSpace(strings.TrimPrefix(line, "- Primary focus:"))
		} else if strings.HasPrefix(line, "- Running now:") {
			status.ActiveWork = strings.TrimSpace(strings.TrimPrefix(line, "- Running now:"))
		}
	}
	return status
}

// ParseSectionBullets returns the top-level bullets under "## <name>",
// matched case-insensitively, stopping at the next heading.
func ParseSectionBullets(body, sectionName string) []string {
	inSection := false
	var bullets []string

	want := strings.ToLower(strings.TrimSpace(sectionName))
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)

		if match := headingRE.FindStringSubmatch(line); match != nil {
			inSection = strings.ToLower(strings.TrimSpace(match[1])) == want
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			break
		}
		if strings.HasPrefix(line, "- ") {
			if text := strings.TrimSpace(line[2:]); text != "" {
				bullets = append(bullets, text)
			}
		}
	}
	return bullets
}
