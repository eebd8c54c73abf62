// Package markdown extracts structured data from the operator-maintained
// workspace files: the daily plan, the status note, and memory logs.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	timeRangeRE   = regexp.MustCompile(`(\d{1,2}:\d{2})-(\d{1,2}:\d{2})`)
	leadingTimeRE = regexp.MustCompile(`^(\d{1,2}:\d{2})`)
)

// TimeRange is a same-day interval in minutes since midnight.
type TimeRange struct {
	Start int
	End   int
}

// ParseHHMMToMinutes parses "HH:MM" into minutes since midnight. Rejects
// out-of-range components.
func ParseHHMMToMinutes(value string) (int, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// ParseTimeRange finds the first "HH:MM-HH:MM" range anywhere in the text.
func ParseTimeRange(value string) (TimeRange, bool) {
	match := timeRangeRE.FindStringSubmatch(value)
	if match == nil {
		return TimeRange{}, false
	}
	start, ok := ParseHHMMToMinutes(match[1])
	if !ok {
		return TimeRange{}, false
	}
	end, ok := ParseHHMMToMinutes(match[2])
	if !ok {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}

// ParseLeadingTimeMinutes parses a single "HH:MM" prefix.
func ParseLeadingTimeMinutes(value string) (int, bool) {
	match := leadingTimeRE.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0, false
	}
	return ParseHHMMToMinutes(match[1])
}

// FormatMinutesHHMM renders minutes since midnight as "HH:MM", wrapping
// past-midnight values.
func FormatMinutesHHMM(minutes int) string {
	normalized := ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", normalized/60, normalized%60)
}
