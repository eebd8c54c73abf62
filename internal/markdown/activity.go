package markdown

import "strings"

// ActivityEntry is one line in the dashboard activity feed.
type ActivityEntry struct {
	Time     string `json:"time"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// RecentFindings takes the last bullet lines of a memory log as concise
// findings.
func RecentFindings(memoryMarkdown string, limit int) []string {
	var bullets []string
	for _, raw := range strings.Split(memoryMarkdown, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "-") {
			bullets = append(bullets, strings.TrimLeft(line, "- "))
		}
	}
	if len(bullets) > limit {
		bullets = bullets[len(bullets)-limit:]
	}
	return bullets
}

// InferActivityCategory buckets an activity line by keyword.
func InferActivityCategory(text string) string {
	lowered := strings.ToLower(text)
	for _, word := range []string{"react", "typescript", "dashboard", "ui", "vite"} {
		if strings.Contains(lowered, word) {
			return "ui"
		}
	}
	for _, word := range []string{"watchdog", "reliability", "self-heal", "failover", "cron"} {
		if strings.Contains(lowered, word) {
			return "reliability"
		}
	}
	for _, word := range []string{"release", "tag", "version", "changelog"} {
		if strings.Contains(lowered, word) {
			return "release"
		}
	}
	for _, word := range []string{"doc", "architecture", "readme", "agents.md"} {
		if strings.Contains(lowered, word) {
			return "docs"
		}
	}
	return "ops"
}

// RecentActivity builds the activity feed from a memory log: bullets under
// "## <heading>" sections, stamped with the heading's leading time.
func RecentActivity(memoryMarkdown string, limit int) []ActivityEntry {
	var activities []ActivityEntry
	currentHeading := ""
	currentTime := ""

	for _, raw := range strings.Split(memoryMarkdown, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "## ") {
			currentHeading = strings.TrimSpace(line[3:])
			if match := leadingTimeRE.FindStringSubmatch(currentHeading); match != nil {
				currentTime = match[1]
			} else {
				currentTime = ""
			}
			continue
		}
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		text := strings.TrimSpace(line[2:])
		if text == "" {
			continue
		}

		entryTime := currentTime
		if entryTime == "" {
			entryTime = "n/a"
		}
		activities = append(activities, ActivityEntry{
			Time:     entryTime,
			Category: InferActivityCategory(currentHeading + " " + text),
			Text:     text,
		})
	}

	if len(activities) > limit {
		activities = activities[len(activities)-limit:]
	}
	return activities
}
