package runtime

import (
	"strings"

	"github.com/openclaw/control-room/internal/timeparse"
)

// ParseTimestampMS accepts the timestamp shapes producers actually emit:
// integer unix-ms, integer unix-s, and ISO-8601 strings (trailing Z or
// explicit offset; naive strings are taken as UTC). Returns false when the
// value cannot be resolved; callers drop the record.
func ParseTimestampMS(value any) (int64, bool) {
	return timeparse.MS(value)
}

// NormalizeModel canonicalizes model identifiers. Bare gpt-* names are
// attributed to the openai-codex provider; everything else passes through.
func NormalizeModel(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	if !strings.Contains(cleaned, "/") && strings.HasPrefix(cleaned, "gpt-") {
		return "openai-codex/" + cleaned
	}
	return cleaned
}

// NormalizeThinking canonicalizes thinking-effort labels.
func NormalizeThinking(raw string) string {
	cleaned := strings.TrimSpace(strings.ToLower(raw))
	cleaned = strings.ReplaceAll(cleaned, "-", "_")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	if cleaned == "" {
		return ""
	}

	switch cleaned {
	case "min":
		return "minimal"
	case "very_high", "maximum", "max":
		return "extra_high"
	}
	return cleaned
}
