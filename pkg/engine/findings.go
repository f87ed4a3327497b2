package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// FindingSet holds the normalized findings from a run and manages
// deduplication across scanners.
type FindingSet struct {
	Findings []Finding
	mu       sync.RWMutex
}

// NewFindingSet creates an empty set
func NewFindingSet() *FindingSet {
	return &FindingSet{
		Findings: make([]Finding, 0),
	}
}

// AddFindings ingests new findings, clamps severities and deduplicates.
// When two scanners report the same vulnerability ID against the same asset
// (Grype and Trivy frequently overlap on CVEs) the findings are merged: both
// tool names are recorded, the higher severity wins, and confidence is
// raised since two independent scanners agree.
func (s *FindingSet) AddFindings(newFindings []Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range newFindings {
		if f.Severity < 1 {
			f.Severity = 1
		}
		if f.Severity > 10 {
			f.Severity = 10
		}

		key := f.Key()
		merged := false
		for i, existing := range s.Findings {
			if existing.Key() != key {
				continue
			}
			s.Findings[i] = mergeFindings(existing, f)
			merged = true
			break
		}
		if !merged {
			s.Findings = append(s.Findings, f)
		}
	}
}

func mergeFindings(a, b Finding) Finding {
	out := a
	if b.Severity > out.Severity {
		out.Severity = b.Severity
		out.Evidence = b.Evidence
	}
	for _, tool := range b.SourceTools {
		if !containsString(out.SourceTools, tool) {
			out.SourceTools = append(out.SourceTools, tool)
		}
	}
	for _, c := range b.ComplianceList {
		if !containsString(out.ComplianceList, c) {
			out.ComplianceList = append(out.ComplianceList, c)
		}
	}
	if out.RemediationHint == "" {
		out.RemediationHint = b.RemediationHint
	}
	// Two scanners agreeing on the same issue is stronger evidence than one.
	if len(out.SourceTools) > 1 {
		out.Confidence = "High"
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// All returns a copy of the findings sorted by severity, highest first.
func (s *FindingSet) All() []Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Finding, len(s.Findings))
	copy(out, s.Findings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}

// Len returns the number of distinct findings.
func (s *FindingSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Findings)
}

// SaveSnapshot writes the findings to a JSON file for later comparison.
func (s *FindingSet) SaveSnapshot(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.Findings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSnapshot reads findings from a JSON file written by SaveSnapshot.
func (s *FindingSet) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Unmarshal(data, &s.Findings)
}

// SnapshotDiff classifies findings relative to a baseline.
type SnapshotDiff struct {
	New       []Finding
	Fixed     []Finding
	Unchanged []Finding
}

// CompareSnapshot diffs the current findings against a baseline set.
// Identity follows Finding.Key, so a CVE reported by Trivy in the baseline
// and by Grype in the current scan counts as unchanged, not new+fixed.
func (s *FindingSet) CompareSnapshot(baseline *FindingSet) SnapshotDiff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	baseline.mu.RLock()
	defer baseline.mu.RUnlock()

	baseKeys := make(map[string]Finding, len(baseline.Findings))
	for _, f := range baseline.Findings {
		baseKeys[f.Key()] = f
	}
	currKeys := make(map[string]bool, len(s.Findings))

	var diff SnapshotDiff
	for _, f := range s.Findings {
		key := f.Key()
		currKeys[key] = true
		if _, ok := baseKeys[key]; ok {
			diff.Unchanged = append(diff.Unchanged, f)
		} else {
			diff.New = append(diff.New, f)
		}
	}
	for key, f := range baseKeys {
		if !currKeys[key] {
			diff.Fixed = append(diff.Fixed, f)
		}
	}
	sort.SliceStable(diff.Fixed, func(i, j int) bool {
		return diff.Fixed[i].Key() < diff.Fixed[j].Key()
	})
	return diff
}

// Render returns a text report of the diff, labelling baseline and current
// scan for the reader.
func (d SnapshotDiff) Render(baselineLabel, currentLabel string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scan comparison (%s vs baseline %s):\n", currentLabel, baselineLabel))
	sb.WriteString("--------------------------------------------------\n")

	sb.WriteString(fmt.Sprintf("NEW RISKS: %d\n", len(d.New)))
	for _, f := range d.New {
		sb.WriteString(fmt.Sprintf("  [+] [%d/10] %s (%s) - %s\n", f.Severity, f.Category, strings.Join(f.SourceTools, "+"), f.Evidence))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("FIXED RISKS: %d\n", len(d.Fixed)))
	for _, f := range d.Fixed {
		sb.WriteString(fmt.Sprintf("  [-] [%d/10] %s (%s) - %s\n", f.Severity, f.Category, strings.Join(f.SourceTools, "+"), f.Evidence))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("UNCHANGED RISKS: %d\n", len(d.Unchanged)))
	limit := len(d.Unchanged)
	if limit > 10 {
		limit = 10
	}
	for _, f := range d.Unchanged[:limit] {
		sb.WriteString(fmt.Sprintf("  [=] [%d/10] %s (%s) - %s\n", f.Severity, f.Category, strings.Join(f.SourceTools, "+"), f.Evidence))
	}
	if len(d.Unchanged) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more.\n", len(d.Unchanged)-limit))
	}
	return sb.String()
}

// GetReport returns a text summary of the finding set
func (s *FindingSet) GetReport() string {
	findings := s.All()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Unified Findings (%d distinct):\n", len(findings)))
	sb.WriteString("--------------------------------------------------\n")

	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("[%d/10] %s (%s)\n", f.Severity, f.Category, strings.Join(f.SourceTools, "+")))
		sb.WriteString(fmt.Sprintf("  Asset: %s\n", f.Asset))
		if f.VulnID != "" {
			sb.WriteString(fmt.Sprintf("  ID: %s\n", f.VulnID))
		}
		sb.WriteString(fmt.Sprintf("  Evidence: %s\n", f.Evidence))
		if f.RemediationHint != "" {
			sb.WriteString(fmt.Sprintf("  Fix: %s\n", f.RemediationHint))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
