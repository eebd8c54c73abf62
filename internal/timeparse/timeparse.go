// Package timeparse resolves the timestamp shapes producer files actually
// contain: unix seconds, unix milliseconds, and ISO-8601 strings.
package timeparse

import (
	"strings"
	"time"
)

// unixSecondsCutoff separates unix-second from unix-millisecond integers.
// Anything below ten billion is treated as seconds.
const unixSecondsCutoff = 10_000_000_000

// MS resolves a loosely typed timestamp to unix milliseconds. Naive strings
// are interpreted as UTC. Returns false when the value cannot be resolved;
// callers drop the record.
func MS(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return normalizeUnix(v)
	case int:
		return normalizeUnix(int64(v))
	case float64:
		// JSON numbers decode as float64.
		return normalizeUnix(int64(v))
	case string:
		return parseString(v)
	}
	return 0, false
}

func normalizeUnix(v int64) (int64, bool) {
	if v > unixSecondsCutoff {
		return v, true
	}
	if v > 0 {
		return v * 1000, true
	}
	return 0, false
}

func parseString(raw string) (int64, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, false
	}
	if strings.HasSuffix(cleaned, "Z") {
		cleaned = cleaned[:len(cleaned)-1] + "+00:00"
	}

	layouts := []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04-07:00",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05-07:00",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed.UnixMilli(), true
		}
	}

	naive := []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range naive {
		if parsed, err := time.ParseInLocation(layout, cleaned, time.UTC); err == nil {
			return parsed.UnixMilli(), true
		}
	}
	return 0, false
}
