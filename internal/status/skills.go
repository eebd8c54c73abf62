package status

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	skillMaxTier       = 5
	skillProgressScale = 8.0
	memoryFileName     = "ClawPrime_Memory.md"
)

type skillSpec struct {
	ID           string
	Name         string
	Description  string
	Effect       string
	Dependencies []string
}

// skillCatalog orders the capability graph; index is the graph tier.
var skillCatalog = []skillSpec{
	{
		ID:          "runtime-orchestration",
		Name:        "Runtime Orchestration",
		Description: "Coordinate cron and subagent execution lanes into one deterministic runtime view.",
		Effect:      "Keeps now/next/done and runtime surfaces synchronized.",
	},
	{
		ID:           "reliability-guardrails",
		Name:         "Reliability Guardrails",
		Description:  "Detect and surface degraded states with explicit fallback semantics.",
		Effect:       "Improves trust by preventing silent failure modes.",
		Dependencies: []string{"runtime-orchestration"},
	},
	{
		ID:           "ui-systems",
		Name:         "UI Systems",
		Description:  "Ship mobile-first, accessible dashboard interactions and visual hierarchy.",
		Effect:       "Raises scanability and interaction quality across devices.",
		Dependencies: []string{"runtime-orchestration"},
	},
	{
		ID:           "observability",
		Name:         "Observability",
		Description:  "Turn activity, trend, and source signals into operator-ready insight.",
		Effect:       "Accelerates diagnosis and informed execution decisions.",
		Dependencies: []string{"runtime-orchestration"},
	},
	{
		ID:           "release-operations",
		Name:         "Release Operations",
		Description:  "Run semver, quality gate, proof, and publish workflow consistently.",
		Effect:       "Keeps delivery predictable with auditable release evidence.",
		Dependencies: []string{"reliability-guardrails", "observability"},
	},
	{
		ID:           "memory-evolution",
		Name:         "Memory Evolution",
		Description:  "Extract durable patterns from memory artifacts and reinforce high-ROI behaviors.",
		Effect:       "Compounds operational quality through deterministic learning loops.",
		Dependencies: []string{"reliability-guardrails", "ui-systems"},
	},
}

var skillKeywords = map[string][]string{
	"runtime-orchestration":  {"runtime", "orchestration", "scheduler", "cron", "subagent", "queue"},
	"reliability-guardrails": {"reliability", "watchdog", "self-heal", "guardrail", "failover", "degraded"},
	"ui-systems":             {"ui", "ux", "dashboard", "react", "mobile", "accessibility"},
	"release-operations":     {"release", "tag", "version", "changelog", "publish", "quality gate"},
	"memory-evolution":       {"memory", "evolution", "artifact", "learning", "pattern", "distilled"},
	"observability":          {"trend", "signal", "telemetry", "monitor", "status", "source"},
}

type tierSpec struct {
	Tier       int
	Title      string
	Definition string
	Difference string
}

var skillTierFramework = []tierSpec{
	{1, "Foundation", "Establish baseline terminology and starter workflows for {domain}.", "Unlocks dependable baseline execution in this domain."},
	{2, "Guided Delivery", "Deliver scoped improvements for {domain} with QA-guided feedback loops.", "Moves from familiarity to repeatable hands-on delivery."},
	{3, "Independent Reliability", "Run {domain} workflows end-to-end with consistent reliability.", "Shifts from guided execution into autonomous ownership."},
	{4, "Strategic Optimization", "Instrument and optimize {domain} systems proactively.", "Elevates delivery into durable system-level optimization."},
	{5, "System Stewardship", "Set standards and evolve long-term capability across {domain}.", "Represents expert-level stewardship and long-range leverage."},
}

// SkillTier is one rung of a skill's ladder, phrased for its domain.
type SkillTier struct {
	Tier       int    `json:"tier"`
	Title      string `json:"title"`
	Definition string `json:"definition"`
	Difference string `json:"difference"`
}

// SkillNode is one capability in the skills graph.
type SkillNode struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Effect       string      `json:"effect"`
	State        string      `json:"state"`
	Tier         int         `json:"tier"`
	CurrentTier  int         `json:"currentTier"`
	MaxTier      int         `json:"maxTier"`
	NextTier     *int        `json:"nextTier"`
	NextUnlock   *string     `json:"nextUnlock"`
	TierLadder   []SkillTier `json:"tierLadder"`
	Dependencies []string    `json:"dependencies"`
	LearnedAt    *string     `json:"learnedAt"`
	Level        int         `json:"level"`
	Progress     float64     `json:"progress"`
}

// SkillsEvolution records how the skills view was derived.
type SkillsEvolution struct {
	SourceArtifacts   []string `json:"sourceArtifacts"`
	DeterministicSeed string   `json:"deterministicSeed"`
	LastProcessedAt   string   `json:"lastProcessedAt"`
	Mode              string   `json:"mode"`
}

// SkillsPayload is the skills section of the dashboard payload.
type SkillsPayload struct {
	ActiveCount  int             `json:"activeCount"`
	PlannedCount int             `json:"plannedCount"`
	LockedCount  int             `json:"lockedCount"`
	Nodes        []SkillNode     `json:"nodes"`
	Evolution    SkillsEvolution `json:"evolution"`
}

func buildTierLadder(spec skillSpec) []SkillTier {
	domain := spec.Name
	if domain == "" {
		domain = "this domain"
	}
	ladder := make([]SkillTier, 0, len(skillTierFramework))
	for _, entry := range skillTierFramework {
		ladder = append(ladder, SkillTier{
			Tier:       entry.Tier,
			Title:      entry.Title,
			Definition: strings.ReplaceAll(entry.Definition, "{domain}", domain),
			Difference: entry.Difference,
		})
	}
	return ladder
}

// gatherSkillArtifacts collects the last week of memory logs plus the
// long-term memory file, lowercased for keyword scanning.
func gatherSkillArtifacts(workspaceRoot string, nowLocal time.Time) (paths []string, texts []string) {
	memoryRoot := filepath.Join(workspaceRoot, "memory")
	for offset := 0; offset < 7; offset++ {
		target := nowLocal.AddDate(0, 0, -offset)
		path := filepath.Join(memoryRoot, target.Format("2006-01-02")+".md")
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			continue
		}
		paths = append(paths, path)
		texts = append(texts, strings.ToLower(string(data)))
	}

	longTerm := filepath.Join(workspaceRoot, memoryFileName)
	if data, err := os.ReadFile(longTerm); err == nil && len(data) > 0 {
		paths = append(paths, longTerm)
		texts = append(texts, strings.ToLower(string(data)))
	}
	return paths, texts
}

// BuildSkillsPayload scores each catalog skill by keyword hits across
// recent memory artifacts. Dependencies gate activation: a skill with an
// inactive dependency stays locked regardless of its own evidence.
func BuildSkillsPayload(workspaceRoot string, nowLocal time.Time) SkillsPayload {
	artifactPaths, artifactTexts := gatherSkillArtifacts(workspaceRoot, nowLocal)
	weightedText := strings.Join(artifactTexts, "\n")

	nodes := make([]SkillNode, 0, len(skillCatalog))
	activeCount, plannedCount, lockedCount := 0, 0, 0

	activeIDs := make(map[string]bool)
	for graphTier, spec := range skillCatalog {
		hits := 0
		for _, keyword := range skillKeywords[spec.ID] {
			hits += strings.Count(weightedText, keyword)
		}

		progress := math.Min(1.0, float64(hits)/skillProgressScale)
		inferredTier := int(progress * skillMaxTier)
		if progress > 0 && inferredTier == 0 {
			inferredTier = 1
		}

		depsMet := true
		for _, dep := range spec.Dependencies {
			if !activeIDs[dep] {
				depsMet = false
				break
			}
		}

		currentTier := 0
		if depsMet {
			currentTier = inferredTier
		}

		var nextTier *int
		var nextUnlock *string
		ladder := buildTierLadder(spec)
		if currentTier < skillMaxTier {
			value := currentTier + 1
			nextTier = &value
			if value <= len(ladder) {
				unlock := ladder[value-1].Difference
				nextUnlock = &unlock
			}
		}

		var state string
		var learnedAt *string
		switch {
		case currentTier >= 3 && depsMet:
			state = "active"
			activeCount++
			today := nowLocal.Format("2006-01-02")
			learnedAt = &today
			activeIDs[spec.ID] = true
		case currentTier > 0 && depsMet:
			state = "planned"
			plannedCount++
		default:
			state = "locked"
			lockedCount++
		}

		deps := spec.Dependencies
		if deps == nil {
			deps = []string{}
		}
		nodes = append(nodes, SkillNode{
			ID:           spec.ID,
			Name:         spec.Name,
			Description:  spec.Description,
			Effect:       spec.Effect,
			State:        state,
			Tier:         graphTier + 1,
			CurrentTier:  currentTier,
			MaxTier:      skillMaxTier,
			NextTier:     nextTier,
			NextUnlock:   nextUnlock,
			TierLadder:   ladder,
			Dependencies: deps,
			LearnedAt:    learnedAt,
			Level:        currentTier,
			Progress:     math.Round(progress*100) / 100,
		})
	}

	seedInput := strings.Join(append(append([]string{}, artifactPaths...), nowLocal.Format("2006-01-02")), "|")
	seedSum := sha256.Sum256([]byte(seedInput))

	if artifactPaths == nil {
		artifactPaths = []string{}
	}
	return SkillsPayload{
		ActiveCount:  activeCount,
		PlannedCount: plannedCount,
		LockedCount:  lockedCount,
		Nodes:        nodes,
		Evolution: SkillsEvolution{
			SourceArtifacts:   artifactPaths,
			DeterministicSeed: hex.EncodeToString(seedSum[:])[:12],
			LastProcessedAt:   nowLocal.Format(time.RFC3339),
			Mode:              "keyword-scan-v1",
		},
	}
}
