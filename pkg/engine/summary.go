package engine

// Tool status values as used by the dashboard.
const (
	StatusGood     = "good"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// ToolSummary captures one scanner's contribution to a run.
type ToolSummary struct {
	Tool       string         `json:"tool"`
	Findings   int            `json:"findings"`
	BySeverity map[string]int `json:"by_severity"`
	Status     string         `json:"status"`
	Metrics    map[string]int `json:"metrics,omitempty"` // tool-specific counters (pass rate, verified secrets, ...)
	Error      string         `json:"error,omitempty"`   // fail-soft: recorded, never fatal
	DurationMS int64          `json:"duration_ms"`
}

// Summary is the aggregated result of a scan across all tools.
type Summary struct {
	Target        string         `json:"target"`
	Fingerprint   string         `json:"fingerprint"`
	Tools         []ToolSummary  `json:"tools"`
	TotalFindings int            `json:"total_findings"`
	BySeverity    map[string]int `json:"by_severity"`
	Overall       string         `json:"overall"`
}

// NewToolSummary seeds a summary with zeroed severity buckets.
func NewToolSummary(tool string) ToolSummary {
	return ToolSummary{
		Tool:       tool,
		BySeverity: map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0},
		Status:     StatusGood,
		Metrics:    map[string]int{},
	}
}

// Count registers a finding severity on the tool summary.
func (ts *ToolSummary) Count(severity int) {
	ts.Findings++
	ts.BySeverity[SeverityBand(severity)]++
}

// StatusFromSeverities applies the common rule: critical findings make the
// tool critical, highs make it a warning, everything else is good.
func (ts *ToolSummary) StatusFromSeverities() {
	switch {
	case ts.BySeverity["critical"] > 0:
		ts.Status = StatusCritical
	case ts.BySeverity["high"] > 0:
		ts.Status = StatusWarning
	default:
		ts.Status = StatusGood
	}
}

// BuildSummary aggregates tool summaries and the deduplicated finding set.
// The overall status is the worst per-tool status; a tool that failed to run
// counts as a warning so a broken scanner never silently passes a scan.
func BuildSummary(target, fingerprint string, tools []ToolSummary, set *FindingSet) Summary {
	summary := Summary{
		Target:      target,
		Fingerprint: fingerprint,
		Tools:       tools,
		BySeverity:  map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0},
		Overall:     StatusGood,
	}

	for _, f := range set.All() {
		summary.TotalFindings++
		summary.BySeverity[SeverityBand(f.Severity)]++
	}

	for _, ts := range tools {
		status := ts.Status
		if ts.Error != "" && status == StatusGood {
			status = StatusWarning
		}
		if status == StatusCritical {
			summary.Overall = StatusCritical
		} else if status == StatusWarning && summary.Overall != StatusCritical {
			summary.Overall = StatusWarning
		}
	}
	return summary
}
