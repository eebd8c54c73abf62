package runtime

import "testing"

func TestParseTimestampMS(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(1735689600000), 1735689600000, true},
		{int64(1735689600), 1735689600000, true},
		{float64(1735689600), 1735689600000, true},
		{"2025-01-01T00:00:00Z", 1735689600000, true},
		{"2025-01-01T00:00:00+00:00", 1735689600000, true},
		{"2025-01-01T01:00:00+01:00", 1735689600000, true},
		{"2025-01-01 00:00:00", 1735689600000, true},
		{"2025-01-01T00:00:00.500Z", 1735689600500, true},
		{"", 0, false},
		{"not a time", 0, false},
		{int64(0), 0, false},
		{int64(-5), 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseTimestampMS(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseTimestampMS(%v) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"gpt-5.3-codex":          "openai-codex/gpt-5.3-codex",
		"openai-codex/gpt-5":     "openai-codex/gpt-5",
		"anthropic/claude-opus":  "anthropic/claude-opus",
		"  gpt-4o  ":             "openai-codex/gpt-4o",
		"":                       "",
		"local-model":            "local-model",
		"provider/gpt-annotated": "provider/gpt-annotated",
	}
	for raw, want := range cases {
		if got := NormalizeModel(raw); got != want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeThinking(t *testing.T) {
	cases := map[string]string{
		"min":       "minimal",
		"Very High": "extra_high",
		"maximum":   "extra_high",
		"max":       "extra_high",
		"very-high": "extra_high",
		"high":      "high",
		"LOW":       "low",
		"":          "",
	}
	for raw, want := range cases {
		if got := NormalizeThinking(raw); got != want {
			t.Errorf("NormalizeThinking(%q) = %q, want %q", raw, got, want)
		}
	}
}
