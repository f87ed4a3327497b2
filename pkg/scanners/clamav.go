package scanners

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/secsweep/pkg/engine"
)

// ClamAVScanner wraps the clamav/clamav container. clamscan has no JSON
// output mode, so the text summary block is parsed instead.
type ClamAVScanner struct {
	docker *DockerRunner
	image  string
}

func (c *ClamAVScanner) Name() string {
	return "clamav"
}

func (c *ClamAVScanner) Description() string {
	return "Scans the target directory for malware using ClamAV."
}

func (c *ClamAVScanner) Scan(ctx context.Context, target string) (*Result, error) {
	raw, err := c.docker.Run(ctx, RunOptions{
		Image:  c.image,
		Target: target,
		Args:   []string{"clamscan", "-r", "--infected", "/target"},
		// clamscan exits 1 when a virus is found
		OKCodes: []int{1},
	})
	if err != nil {
		return nil, err
	}

	findings, metrics := parseClamScanOutput(raw)

	summary := engine.NewToolSummary(c.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.Metrics = metrics
	if metrics["threats"] > 0 {
		summary.Status = engine.StatusCritical
	}

	return &Result{Tool: c.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

// parseClamScanOutput reads per-file "path: Signature FOUND" lines and the
// trailing summary block ("Infected files: N", "Scanned files: N").
func parseClamScanOutput(data []byte) ([]engine.Finding, map[string]int) {
	metrics := map[string]int{"threats": 0, "files_scanned": 0}

	var findings []engine.Finding
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasSuffix(line, " FOUND") {
			body := strings.TrimSuffix(line, " FOUND")
			path, signature := body, "unknown"
			if i := strings.LastIndex(body, ": "); i >= 0 {
				path = body[:i]
				signature = strings.TrimSpace(body[i+2:])
			}
			findings = append(findings, engine.Finding{
				ID:              fmt.Sprintf("clamav-%s-%s", signature, path),
				SourceTools:     []string{"clamav"},
				Category:        "malware",
				Severity:        engine.SeverityCritical,
				Confidence:      "High",
				Asset:           path,
				VulnID:          signature,
				Evidence:        fmt.Sprintf("%s detected in %s", signature, path),
				RemediationHint: "Quarantine the file and trace how it entered the tree.",
			})
			continue
		}

		if v, ok := summaryValue(line, "Infected files:"); ok {
			metrics["threats"] = v
		}
		if v, ok := summaryValue(line, "Scanned files:"); ok {
			metrics["files_scanned"] = v
		}
	}
	if metrics["threats"] == 0 {
		metrics["threats"] = len(findings)
	}
	return findings, metrics
}

func summaryValue(line, prefix string) (int, bool) {
	if !strings.HasPrefix(line, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, prefix)))
	if err != nil {
		return 0, false
	}
	return n, true
}
