package status

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildSkillsPayloadKeywordScan(t *testing.T) {
	workspace := t.TempDir()
	now := localClock(10, 0)

	memoryDir := filepath.Join(workspace, "memory")
	if err := os.MkdirAll(memoryDir, 0755); err != nil {
		t.Fatalf("mkdir memory: %v", err)
	}
	text := "runtime runtime runtime scheduler cron subagent queue\n" +
		"watchdog guardrail\n" +
		"release version changelog publish tag quality gate\n"
	today := filepath.Join(memoryDir, now.Format("2006-01-02")+".md")
	if err := os.WriteFile(today, []byte(text), 0644); err != nil {
		t.Fatalf("write memory: %v", err)
	}

	payload := BuildSkillsPayload(workspace, now)

	if payload.ActiveCount != 1 || payload.PlannedCount != 1 || payload.LockedCount != 4 {
		t.Fatalf("counts = %d/%d/%d", payload.ActiveCount, payload.PlannedCount, payload.LockedCount)
	}
	if len(payload.Nodes) != 6 {
		t.Fatalf("expected 6 nodes, got %d", len(payload.Nodes))
	}

	orchestration := payload.Nodes[0]
	if orchestration.ID != "runtime-orchestration" || orchestration.State != "active" {
		t.Fatalf("orchestration node: %+v", orchestration)
	}
	if orchestration.Tier != 1 || orchestration.CurrentTier != 4 || orchestration.Progress != 0.88 {
		t.Fatalf("orchestration tiers: %+v", orchestration)
	}
	if orchestration.LearnedAt == nil || *orchestration.LearnedAt != now.Format("2006-01-02") {
		t.Fatalf("learnedAt: %+v", orchestration.LearnedAt)
	}

	guardrails := payload.Nodes[1]
	if guardrails.ID != "reliability-guardrails" || guardrails.State != "planned" || guardrails.CurrentTier != 1 {
		t.Fatalf("guardrails node: %+v", guardrails)
	}

	// Strong keyword evidence cannot activate a skill whose dependencies
	// are not active yet.
	release := payload.Nodes[4]
	if release.ID != "release-operations" || release.State != "locked" || release.CurrentTier != 0 {
		t.Fatalf("release node: %+v", release)
	}

	if len(payload.Evolution.SourceArtifacts) != 1 {
		t.Fatalf("sourceArtifacts: %+v", payload.Evolution.SourceArtifacts)
	}
	if len(payload.Evolution.DeterministicSeed) != 12 {
		t.Fatalf("seed = %q", payload.Evolution.DeterministicSeed)
	}
	if payload.Evolution.Mode != "keyword-scan-v1" {
		t.Fatalf("mode = %q", payload.Evolution.Mode)
	}
}

func TestBuildSkillsPayloadEmptyWorkspace(t *testing.T) {
	payload := BuildSkillsPayload(t.TempDir(), localClock(10, 0))

	if payload.ActiveCount != 0 || payload.LockedCount != 6 {
		t.Fatalf("counts = %d active / %d locked", payload.ActiveCount, payload.LockedCount)
	}
	for _, node := range payload.Nodes {
		if node.State != "locked" || node.Progress != 0 {
			t.Fatalf("node %s should be locked with zero progress: %+v", node.ID, node)
		}
		if node.MaxTier != 5 || len(node.TierLadder) != 5 {
			t.Fatalf("node %s ladder: %+v", node.ID, node)
		}
	}
	if len(payload.Evolution.SourceArtifacts) != 0 {
		t.Fatalf("sourceArtifacts: %+v", payload.Evolution.SourceArtifacts)
	}
}

func TestBuildSkillsPayloadSeedStability(t *testing.T) {
	workspace := t.TempDir()
	now := localClock(10, 0)

	first := BuildSkillsPayload(workspace, now)
	second := BuildSkillsPayload(workspace, now)
	if first.Evolution.DeterministicSeed != second.Evolution.DeterministicSeed {
		t.Fatalf("seed not deterministic: %q vs %q", first.Evolution.DeterministicSeed, second.Evolution.DeterministicSeed)
	}
}
