package runtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// journalScanBuffer bounds a single journal line. Payloads are small; 1 MiB
// leaves generous headroom.
const journalScanBuffer = 1 << 20

// ReadJournal loads every parseable event from the journal, sorted by the
// canonical replay key. A missing file yields an empty slice; malformed
// lines are skipped at record granularity.
func ReadJournal(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), journalScanBuffer)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return SortEvents(events), nil
}

// LoadEventIDs returns the set of event ids already journaled. Used to make
// collection idempotent: a collector re-run against unchanged producers
// appends nothing.
func LoadEventIDs(path string) (map[string]bool, error) {
	ids := make(map[string]bool)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), journalScanBuffer)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row struct {
			EventID string `json:"eventId"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		if row.EventID != "" {
			ids[row.EventID] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return ids, nil
}

// AppendEvents appends events whose ids are not yet journaled and returns
// how many were written. Each record is one self-contained line, written
// in append mode so concurrent readers never observe a torn record set.
func AppendEvents(path string, events []Event) (int, error) {
	existing, err := LoadEventIDs(path)
	if err != nil {
		return 0, err
	}

	var fresh []Event
	for _, event := range events {
		if event.EventID == "" || existing[event.EventID] {
			continue
		}
		existing[event.EventID] = true
		fresh = append(fresh, event)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open journal for append: %w", err)
	}
	defer f.Close()

	for _, event := range fresh {
		data, err := json.Marshal(event)
		if err != nil {
			return 0, fmt.Errorf("encode event %s: %w", event.EventID, err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return 0, fmt.Errorf("append event: %w", err)
		}
	}
	return len(fresh), nil
}
