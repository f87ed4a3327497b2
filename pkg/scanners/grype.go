package scanners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/secsweep/pkg/engine"
)

// GrypeScanner wraps the anchore/grype container in directory mode.
type GrypeScanner struct {
	docker *DockerRunner
	image  string
}

func (g *GrypeScanner) Name() string {
	return "grype"
}

func (g *GrypeScanner) Description() string {
	return "Scans the target directory for known vulnerabilities using Grype."
}

func (g *GrypeScanner) Scan(ctx context.Context, target string) (*Result, error) {
	raw, err := g.docker.Run(ctx, RunOptions{
		Image:  g.image,
		Target: target,
		Args:   []string{"dir:/target", "-o", "json", "--quiet"},
		// grype --fail-on makes it exit 1 when findings match; tolerate it
		// in case the image config enables that.
		OKCodes: []int{1},
	})
	if err != nil {
		return nil, err
	}

	findings, err := parseGrypeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parse grype report: %w", err)
	}

	summary := engine.NewToolSummary(g.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.StatusFromSeverities()

	return &Result{Tool: g.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

type grypeReport struct {
	Matches []struct {
		Vulnerability struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
			Fix      struct {
				Versions []string `json:"versions"`
				State    string   `json:"state"`
			} `json:"fix"`
		} `json:"vulnerability"`
		Artifact struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Type    string `json:"type"`
		} `json:"artifact"`
	} `json:"matches"`
}

func parseGrypeJSON(data []byte) ([]engine.Finding, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var report grypeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	var findings []engine.Finding
	for _, m := range report.Matches {
		asset := fmt.Sprintf("%s@%s", m.Artifact.Name, m.Artifact.Version)
		hint := "Update the affected package."
		if m.Vulnerability.Fix.State == "fixed" && len(m.Vulnerability.Fix.Versions) > 0 {
			hint = fmt.Sprintf("Upgrade %s to %s.", m.Artifact.Name, m.Vulnerability.Fix.Versions[0])
		}
		findings = append(findings, engine.Finding{
			ID:              fmt.Sprintf("grype-%s-%s", m.Vulnerability.ID, asset),
			SourceTools:     []string{"grype"},
			Category:        "vuln",
			Severity:        engine.SeverityFromLabel(m.Vulnerability.Severity),
			Confidence:      "Medium",
			Asset:           asset,
			VulnID:          m.Vulnerability.ID,
			Evidence:        fmt.Sprintf("%s in %s (%s)", m.Vulnerability.ID, asset, m.Artifact.Type),
			RemediationHint: hint,
		})
	}
	return findings, nil
}
