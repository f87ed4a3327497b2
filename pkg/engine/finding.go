package engine

import "fmt"

// Finding represents a normalized security finding from any scanner
type Finding struct {
	ID              string   `json:"id"`
	SourceTools     []string `json:"source_tools"` // every scanner that reported it
	Category        string   `json:"category"`     // vuln / secret / iac / malware / eol / quality
	Severity        int      `json:"severity"`     // normalized 1-10
	Confidence      string   `json:"confidence"`
	Asset           string   `json:"asset"`   // file path or package@version
	VulnID          string   `json:"vuln_id"` // CVE / rule id when the tool provides one
	Evidence        string   `json:"evidence"`
	RemediationHint string   `json:"remediation_hint"`
	ComplianceList  []string `json:"compliance_mapping"` // CIS, NIST, PCI-DSS, etc
}

// Severity bands used when mapping tool-native severities onto the 1-10 scale.
const (
	SeverityLow      = 3
	SeverityMedium   = 5
	SeverityHigh     = 8
	SeverityCritical = 10
)

// SeverityFromLabel maps the CRITICAL/HIGH/MEDIUM/LOW labels most tools emit.
// Unknown labels land on medium rather than dropping the finding.
func SeverityFromLabel(label string) int {
	switch label {
	case "CRITICAL", "critical", "Critical", "BLOCKER":
		return SeverityCritical
	case "HIGH", "high", "High", "MAJOR":
		return SeverityHigh
	case "MEDIUM", "medium", "Medium", "MINOR":
		return SeverityMedium
	case "LOW", "low", "Low", "INFO", "NEGLIGIBLE", "Negligible":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// SeverityBand buckets a 1-10 severity into the label used by reports.
func SeverityBand(severity int) string {
	switch {
	case severity >= SeverityCritical:
		return "critical"
	case severity >= SeverityHigh:
		return "high"
	case severity >= SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Key returns the identity used for deduplication. Findings that carry a
// vulnerability ID (CVE, rule id) are considered the same issue whenever the
// ID and asset match, regardless of which scanner reported them. Everything
// else falls back to an exact field match.
func (f Finding) Key() string {
	if f.VulnID != "" {
		return fmt.Sprintf("%s|%s", f.VulnID, f.Asset)
	}
	tool := ""
	if len(f.SourceTools) > 0 {
		tool = f.SourceTools[0]
	}
	return fmt.Sprintf("%s|%s|%s|%s", tool, f.Category, f.Asset, f.Evidence)
}
