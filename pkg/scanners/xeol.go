package scanners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/secsweep/pkg/engine"
)

// XeolScanner wraps the noqcks/xeol container for end-of-life detection.
type XeolScanner struct {
	docker *DockerRunner
	image  string
}

func (x *XeolScanner) Name() string {
	return "xeol"
}

func (x *XeolScanner) Description() string {
	return "Scans the target directory for end-of-life packages using Xeol."
}

func (x *XeolScanner) Scan(ctx context.Context, target string) (*Result, error) {
	raw, err := x.docker.Run(ctx, RunOptions{
		Image:   x.image,
		Target:  target,
		Args:    []string{"dir:/target", "-o", "json"},
		OKCodes: []int{1},
	})
	if err != nil {
		return nil, err
	}

	findings, err := parseXeolJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parse xeol report: %w", err)
	}

	summary := engine.NewToolSummary(x.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.Metrics["eol_packages"] = len(findings)
	// EOL software is a risk signal, not an active vulnerability.
	if len(findings) > 0 {
		summary.Status = engine.StatusWarning
	}

	return &Result{Tool: x.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

type xeolReport struct {
	Matches []struct {
		Cycle struct {
			ProductName string `json:"ProductName"`
			ReleaseDate string `json:"ReleaseDate"`
			Eol         string `json:"Eol"`
		} `json:"Cycle"`
		Artifact struct {
			Name    string `json:"Name"`
			Version string `json:"Version"`
		} `json:"Artifact"`
	} `json:"matches"`
}

func parseXeolJSON(data []byte) ([]engine.Finding, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var report xeolReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	var findings []engine.Finding
	for _, m := range report.Matches {
		asset := fmt.Sprintf("%s@%s", m.Artifact.Name, m.Artifact.Version)
		evidence := fmt.Sprintf("%s is end-of-life", m.Cycle.ProductName)
		if m.Cycle.Eol != "" {
			evidence = fmt.Sprintf("%s reached end-of-life on %s", m.Cycle.ProductName, m.Cycle.Eol)
		}
		findings = append(findings, engine.Finding{
			ID:              fmt.Sprintf("xeol-%s", asset),
			SourceTools:     []string{"xeol"},
			Category:        "eol",
			Severity:        engine.SeverityMedium,
			Confidence:      "High",
			Asset:           asset,
			Evidence:        evidence,
			RemediationHint: fmt.Sprintf("Migrate off %s to a supported release.", m.Cycle.ProductName),
		})
	}
	return findings, nil
}
