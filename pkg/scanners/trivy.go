package scanners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/secsweep/pkg/engine"
)

// TrivyScanner wraps the aquasec/trivy container in filesystem mode.
type TrivyScanner struct {
	docker *DockerRunner
	image  string
}

func (t *TrivyScanner) Name() string {
	return "trivy"
}

func (t *TrivyScanner) Description() string {
	return "Scans the target filesystem for known vulnerabilities using Trivy."
}

func (t *TrivyScanner) Scan(ctx context.Context, target string) (*Result, error) {
	raw, err := t.docker.Run(ctx, RunOptions{
		Image:  t.image,
		Target: target,
		Args:   []string{"fs", "--format", "json", "--quiet", "/target"},
	})
	if err != nil {
		return nil, err
	}

	findings, err := parseTrivyJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parse trivy report: %w", err)
	}

	summary := engine.NewToolSummary(t.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.StatusFromSeverities()

	return &Result{Tool: t.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

// trivyReport mirrors the fields we read from trivy's JSON output.
type trivyReport struct {
	Results []struct {
		Target          string `json:"Target"`
		Vulnerabilities []struct {
			VulnerabilityID  string `json:"VulnerabilityID"`
			PkgName          string `json:"PkgName"`
			InstalledVersion string `json:"InstalledVersion"`
			FixedVersion     string `json:"FixedVersion"`
			Severity         string `json:"Severity"`
			Title            string `json:"Title"`
		} `json:"Vulnerabilities"`
	} `json:"Results"`
}

func parseTrivyJSON(data []byte) ([]engine.Finding, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var report trivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	var findings []engine.Finding
	for _, result := range report.Results {
		for _, v := range result.Vulnerabilities {
			asset := fmt.Sprintf("%s@%s", v.PkgName, v.InstalledVersion)
			hint := "Update the affected package."
			if v.FixedVersion != "" {
				hint = fmt.Sprintf("Upgrade %s to %s.", v.PkgName, v.FixedVersion)
			}
			findings = append(findings, engine.Finding{
				ID:              fmt.Sprintf("trivy-%s-%s", v.VulnerabilityID, asset),
				SourceTools:     []string{"trivy"},
				Category:        "vuln",
				Severity:        engine.SeverityFromLabel(v.Severity),
				Confidence:      "Medium",
				Asset:           asset,
				VulnID:          v.VulnerabilityID,
				Evidence:        fmt.Sprintf("%s in %s (target %s)", v.VulnerabilityID, asset, result.Target),
				RemediationHint: hint,
			})
		}
	}
	return findings, nil
}
