package scanners

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/secsweep/pkg/engine"
)

// TruffleHogScanner wraps the trufflesecurity/trufflehog container in
// filesystem mode. The tool streams JSONL: one object per detected secret,
// interleaved with log lines that are not findings.
type TruffleHogScanner struct {
	docker *DockerRunner
	image  string
}

func (t *TruffleHogScanner) Name() string {
	return "trufflehog"
}

func (t *TruffleHogScanner) Description() string {
	return "Scans the target directory for hardcoded secrets using TruffleHog."
}

func (t *TruffleHogScanner) Scan(ctx context.Context, target string) (*Result, error) {
	raw, err := t.docker.Run(ctx, RunOptions{
		Image:  t.image,
		Target: target,
		Args:   []string{"filesystem", "/target", "--json", "--no-update"},
		// --fail mode exits 183 when results were found
		OKCodes: []int{183},
	})
	if err != nil {
		return nil, err
	}

	findings, metrics, err := parseTruffleHogJSONL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse trufflehog output: %w", err)
	}

	summary := engine.NewToolSummary(t.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.Metrics = metrics

	// A verified secret is a live credential; anything unverified still
	// warrants review.
	switch {
	case metrics["verified"] > 0:
		summary.Status = engine.StatusCritical
	case metrics["unverified"] > 0:
		summary.Status = engine.StatusWarning
	default:
		summary.Status = engine.StatusGood
	}

	return &Result{Tool: t.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

type truffleHogEntry struct {
	DetectorName   string `json:"DetectorName"`
	Verified       bool   `json:"Verified"`
	Raw            string `json:"Raw"`
	SourceMetadata *struct {
		Data struct {
			Filesystem struct {
				File string `json:"file"`
				Line int    `json:"line"`
			} `json:"Filesystem"`
		} `json:"Data"`
	} `json:"SourceMetadata"`
}

func parseTruffleHogJSONL(data []byte) ([]engine.Finding, map[string]int, error) {
	metrics := map[string]int{"verified": 0, "unverified": 0, "detectors": 0}
	detectors := map[string]bool{}

	var findings []engine.Finding
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var entry truffleHogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			// log lines and progress records are not findings
			continue
		}
		// Only entries with a detector, raw match and source metadata are
		// actual secret findings.
		if entry.DetectorName == "" || entry.Raw == "" || entry.SourceMetadata == nil {
			continue
		}

		file := entry.SourceMetadata.Data.Filesystem.File
		lineNo := entry.SourceMetadata.Data.Filesystem.Line
		severity := engine.SeverityHigh
		confidence := "Medium"
		if entry.Verified {
			metrics["verified"]++
			severity = engine.SeverityCritical
			confidence = "High"
		} else {
			metrics["unverified"]++
		}
		detectors[entry.DetectorName] = true

		// Evidence deliberately omits the matched secret itself.
		findings = append(findings, engine.Finding{
			ID:              fmt.Sprintf("trufflehog-%s-%s-%d", entry.DetectorName, file, lineNo),
			SourceTools:     []string{"trufflehog"},
			Category:        "secret",
			Severity:        severity,
			Confidence:      confidence,
			Asset:           file,
			Evidence:        fmt.Sprintf("%s secret at %s:%d (verified=%t)", entry.DetectorName, file, lineNo, entry.Verified),
			RemediationHint: "Revoke the secret immediately and remove it from history.",
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, metrics, err
	}
	metrics["detectors"] = len(detectors)
	return findings, metrics, nil
}
