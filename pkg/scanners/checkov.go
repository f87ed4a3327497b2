package scanners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/secsweep/pkg/engine"
)

// Checkov pass-rate thresholds for the dashboard status.
const (
	checkovCriticalPassRate = 70.0
	checkovWarningPassRate  = 90.0
)

// CheckovScanner wraps the bridgecrew/checkov container for IaC scanning.
type CheckovScanner struct {
	docker *DockerRunner
	image  string
}

func (c *CheckovScanner) Name() string {
	return "checkov"
}

func (c *CheckovScanner) Description() string {
	return "Scans infrastructure-as-code in the target directory using Checkov."
}

func (c *CheckovScanner) Scan(ctx context.Context, target string) (*Result, error) {
	raw, err := c.docker.Run(ctx, RunOptions{
		Image:  c.image,
		Target: target,
		Args:   []string{"-d", "/target", "-o", "json", "--quiet", "--compact"},
		// checkov exits 1 when any check fails
		OKCodes: []int{1},
	})
	if err != nil {
		return nil, err
	}

	findings, metrics, err := parseCheckovJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parse checkov report: %w", err)
	}

	summary := engine.NewToolSummary(c.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.Metrics = metrics

	// Status follows the pass rate, not raw severities: IaC checks are not
	// severity-graded, the signal is how much of the policy set passes.
	total := metrics["passed"] + metrics["failed"] + metrics["skipped"]
	passRate := 100.0
	if total > 0 {
		passRate = float64(metrics["passed"]) / float64(total) * 100
	}
	metrics["pass_rate"] = int(passRate)
	switch {
	case passRate < checkovCriticalPassRate:
		summary.Status = engine.StatusCritical
	case passRate < checkovWarningPassRate:
		summary.Status = engine.StatusWarning
	default:
		summary.Status = engine.StatusGood
	}

	return &Result{Tool: c.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

type checkovCheck struct {
	CheckID   string `json:"check_id"`
	CheckName string `json:"check_name"`
	FilePath  string `json:"file_path"`
	Resource  string `json:"resource"`
	Guideline string `json:"guideline"`
	Severity  string `json:"severity"`
}

type checkovReport struct {
	Results struct {
		PassedChecks  []checkovCheck `json:"passed_checks"`
		FailedChecks  []checkovCheck `json:"failed_checks"`
		SkippedChecks []checkovCheck `json:"skipped_checks"`
	} `json:"results"`
}

func parseCheckovJSON(data []byte) ([]engine.Finding, map[string]int, error) {
	metrics := map[string]int{"passed": 0, "failed": 0, "skipped": 0}
	if len(data) == 0 {
		return nil, metrics, nil
	}

	// Checkov emits a single object for one framework and an array when it
	// ran several (terraform + dockerfile + ...).
	var reports []checkovReport
	if err := json.Unmarshal(data, &reports); err != nil {
		var single checkovReport
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, metrics, err
		}
		reports = []checkovReport{single}
	}

	var findings []engine.Finding
	for _, report := range reports {
		metrics["passed"] += len(report.Results.PassedChecks)
		metrics["failed"] += len(report.Results.FailedChecks)
		metrics["skipped"] += len(report.Results.SkippedChecks)

		for _, check := range report.Results.FailedChecks {
			severity := engine.SeverityMedium
			if check.Severity != "" {
				severity = engine.SeverityFromLabel(check.Severity)
			}
			hint := "Review the failed policy and adjust the configuration."
			if check.Guideline != "" {
				hint = "See " + check.Guideline
			}
			findings = append(findings, engine.Finding{
				ID:              fmt.Sprintf("checkov-%s-%s", check.CheckID, check.Resource),
				SourceTools:     []string{"checkov"},
				Category:        "iac",
				Severity:        severity,
				Confidence:      "High",
				Asset:           fmt.Sprintf("%s:%s", check.FilePath, check.Resource),
				VulnID:          check.CheckID,
				Evidence:        fmt.Sprintf("%s failed on %s (%s)", check.CheckID, check.Resource, check.CheckName),
				RemediationHint: hint,
			})
		}
	}
	return findings, metrics, nil
}
