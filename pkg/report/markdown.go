package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/user/secsweep/pkg/engine"
)

// How many findings the summary lists before truncating.
const topFindingsLimit = 15

// WriteMarkdown renders the consolidated scan summary as Markdown.
func WriteMarkdown(w io.Writer, summary engine.Summary, findings []engine.Finding, generatedAt time.Time) error {
	var sb strings.Builder

	sb.WriteString("# Security Scan Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Target:** `%s`\n", summary.Target))
	sb.WriteString(fmt.Sprintf("- **Fingerprint:** `%s`\n", shortID(summary.Fingerprint)))
	sb.WriteString(fmt.Sprintf("- **Generated:** %s\n", generatedAt.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- **Overall status:** %s\n\n", statusBadge(summary.Overall)))

	sb.WriteString("## Findings by severity\n\n")
	sb.WriteString("| Critical | High | Medium | Low | Total |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d |\n\n",
		summary.BySeverity["critical"], summary.BySeverity["high"],
		summary.BySeverity["medium"], summary.BySeverity["low"], summary.TotalFindings))

	sb.WriteString("## Scanners\n\n")
	sb.WriteString("| Tool | Status | Findings | Critical | High | Duration | Notes |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, ts := range summary.Tools {
		notes := toolNotes(ts)
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s | %s |\n",
			ts.Tool, statusBadge(ts.Status), ts.Findings,
			ts.BySeverity["critical"], ts.BySeverity["high"],
			(time.Duration(ts.DurationMS) * time.Millisecond).Round(time.Millisecond),
			notes))
	}
	sb.WriteString("\n")

	if len(findings) > 0 {
		sb.WriteString("## Top findings\n\n")
		limit := len(findings)
		if limit > topFindingsLimit {
			limit = topFindingsLimit
		}
		for _, f := range findings[:limit] {
			id := f.VulnID
			if id == "" {
				id = f.Category
			}
			sb.WriteString(fmt.Sprintf("- **[%d/10] %s** — `%s` (%s): %s\n",
				f.Severity, id, f.Asset, strings.Join(f.SourceTools, "+"), f.Evidence))
		}
		if len(findings) > limit {
			sb.WriteString(fmt.Sprintf("- ... and %d more.\n", len(findings)-limit))
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func toolNotes(ts engine.ToolSummary) string {
	if ts.Error != "" {
		return "did not complete: " + ts.Error
	}
	var parts []string
	if v, ok := ts.Metrics["pass_rate"]; ok {
		parts = append(parts, fmt.Sprintf("pass rate %d%%", v))
	}
	if v, ok := ts.Metrics["verified"]; ok && v > 0 {
		parts = append(parts, fmt.Sprintf("%d verified secrets", v))
	}
	if v, ok := ts.Metrics["files_scanned"]; ok && v > 0 {
		parts = append(parts, fmt.Sprintf("%d files scanned", v))
	}
	if v, ok := ts.Metrics["eol_packages"]; ok && v > 0 {
		parts = append(parts, fmt.Sprintf("%d EOL packages", v))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func statusBadge(status string) string {
	switch status {
	case engine.StatusCritical:
		return "🔴 CRITICAL"
	case engine.StatusWarning:
		return "🟡 WARNING"
	default:
		return "🟢 GOOD"
	}
}

func shortID(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
