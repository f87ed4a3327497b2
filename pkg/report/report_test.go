package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secsweep/pkg/engine"
)

func reportSummary() engine.Summary {
	return engine.Summary{
		Target:        "/src/app",
		Fingerprint:   "abcdef0123456789",
		TotalFindings: 3,
		BySeverity:    map[string]int{"critical": 1, "high": 1, "medium": 1, "low": 0},
		Overall:       engine.StatusCritical,
		Tools: []engine.ToolSummary{
			{
				Tool: "trivy", Status: engine.StatusCritical, Findings: 2,
				BySeverity: map[string]int{"critical": 1, "high": 1},
				DurationMS: 4200,
			},
			{
				Tool: "trufflehog", Status: engine.StatusCritical, Findings: 1,
				BySeverity: map[string]int{"critical": 1},
				Metrics:    map[string]int{"verified": 1, "unverified": 0},
			},
			{
				Tool: "grype", Status: engine.StatusGood,
				BySeverity: map[string]int{},
				Error:      "image pull failed",
			},
		},
	}
}

func reportFindings() []engine.Finding {
	return []engine.Finding{
		{
			SourceTools: []string{"trivy", "grype"}, Category: "vuln", Severity: 10,
			Asset: "lodash@4.17.20", VulnID: "CVE-2021-23337",
			Evidence: "CVE-2021-23337 in lodash@4.17.20",
		},
		{
			SourceTools: []string{"trufflehog"}, Category: "secret", Severity: 10,
			Asset: ".env", Evidence: "AWS secret at .env:3 (verified=true)",
		},
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	generated := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteMarkdown(&buf, reportSummary(), reportFindings(), generated))
	out := buf.String()

	assert.Contains(t, out, "# Security Scan Summary")
	assert.Contains(t, out, "`/src/app`")
	assert.Contains(t, out, "`abcdef012345`", "fingerprint is shortened")
	assert.Contains(t, out, "2026-08-30T12:00:00Z")
	assert.Contains(t, out, "| 1 | 1 | 1 | 0 | 3 |")
	assert.Contains(t, out, "CVE-2021-23337")
	assert.Contains(t, out, "trivy+grype")
	assert.Contains(t, out, "did not complete: image pull failed")
	assert.Contains(t, out, "1 verified secrets")
}

func TestWriteMarkdownTruncatesFindings(t *testing.T) {
	var findings []engine.Finding
	for i := 0; i < topFindingsLimit+5; i++ {
		findings = append(findings, engine.Finding{
			SourceTools: []string{"trivy"}, Category: "vuln", Severity: 5,
			Asset: "pkg", Evidence: "e",
		})
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, reportSummary(), findings, time.Now()))
	assert.Contains(t, buf.String(), "... and 5 more.")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, reportSummary(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "status-critical")
	assert.Contains(t, out, "Immediate action required")
	assert.Contains(t, out, "Trivy")
	assert.Contains(t, out, "Trufflehog")
	assert.Contains(t, out, "image pull failed")
}

func TestWriteHTMLGoodStatus(t *testing.T) {
	summary := engine.Summary{
		Target:     "/src",
		BySeverity: map[string]int{},
		Overall:    engine.StatusGood,
		Tools: []engine.ToolSummary{
			{Tool: "clamav", Status: engine.StatusGood, BySeverity: map[string]int{}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, summary, time.Now()))
	assert.Contains(t, buf.String(), "Continue monitoring")
	assert.Contains(t, buf.String(), "status-good")
}
