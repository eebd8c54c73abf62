package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const watchdogTimeout = 30 * time.Second

// ReliabilityStatus is the compact health shape the dashboard consumes.
type ReliabilityStatus struct {
	Status string `json:"status"`
}

// QueryReliability runs the watchdog report script and extracts overall
// health. Any failure, including a missing script, a bad exit, malformed
// output, or a timeout, degrades to "unknown" rather than blocking the
// build.
func QueryReliability(ctx context.Context, scriptPath string, windowHours float64) ReliabilityStatus {
	unknown := ReliabilityStatus{Status: "unknown"}
	if scriptPath == "" {
		return unknown
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return unknown
	}

	ctx, cancel := context.WithTimeout(ctx, watchdogTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, scriptPath, "--window-hours", fmt.Sprintf("%g", windowHours), "--json")
	output, err := cmd.Output()
	if err != nil {
		return unknown
	}

	var report struct {
		Health struct {
			Status string `json:"status"`
		} `json:"health"`
	}
	if err := json.Unmarshal(output, &report); err != nil {
		return unknown
	}
	if report.Health.Status == "" {
		return unknown
	}
	return ReliabilityStatus{Status: report.Health.Status}
}
