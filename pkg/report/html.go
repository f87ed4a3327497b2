package report

import (
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/user/secsweep/pkg/engine"
)

// dashboardPage is the model the HTML template renders.
type dashboardPage struct {
	Target         string
	Fingerprint    string
	Generated      string
	Overall        string
	OverallClass   string
	OverallMessage string
	TotalFindings  int
	BySeverity     map[string]int
	Tools          []dashboardCard
}

type dashboardCard struct {
	Tool        string
	StatusClass string
	StatusLabel string
	Findings    int
	Critical    int
	High        int
	Notes       string
	Error       string
}

// WriteHTML renders the single-file security dashboard.
func WriteHTML(w io.Writer, summary engine.Summary, generatedAt time.Time) error {
	page := dashboardPage{
		Target:        summary.Target,
		Fingerprint:   shortID(summary.Fingerprint),
		Generated:     generatedAt.UTC().Format(time.RFC1123),
		TotalFindings: summary.TotalFindings,
		BySeverity:    summary.BySeverity,
	}

	switch summary.Overall {
	case engine.StatusCritical:
		page.Overall = "CRITICAL"
		page.OverallClass = "status-critical"
		page.OverallMessage = "Critical security issues detected. Immediate action required."
	case engine.StatusWarning:
		page.Overall = "WARNING"
		page.OverallClass = "status-warning"
		page.OverallMessage = "Security issues detected. Review and remediation recommended."
	default:
		page.Overall = "GOOD"
		page.OverallClass = "status-good"
		page.OverallMessage = "No critical security issues detected. Continue monitoring."
	}

	for _, ts := range summary.Tools {
		card := dashboardCard{
			Tool:        strings.ToUpper(ts.Tool[:1]) + ts.Tool[1:],
			StatusClass: "status-" + ts.Status,
			StatusLabel: strings.ToUpper(ts.Status),
			Findings:    ts.Findings,
			Critical:    ts.BySeverity["critical"],
			High:        ts.BySeverity["high"],
			Notes:       toolNotes(ts),
			Error:       ts.Error,
		}
		page.Tools = append(page.Tools, card)
	}

	return dashboardTmpl.Execute(w, page)
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Security Dashboard</title>
<style>
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; background-color: #f8f9fa; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
.container { max-width: 1400px; margin: 0 auto; padding: 20px; }
.overall-status { text-align: center; padding: 25px; border-radius: 12px; margin: 20px 0; font-size: 18px; }
.status-good { background: #28a745; color: white; }
.status-warning { background: #ffc107; color: #212529; }
.status-critical { background: #dc3545; color: white; }
.tools-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 20px; margin: 20px 0; }
.tool-card { background: white; padding: 25px; border-radius: 12px; box-shadow: 0 4px 12px rgba(0,0,0,0.1); }
.tool-header { display: flex; align-items: center; gap: 15px; margin-bottom: 20px; }
.tool-icon { width: 50px; height: 50px; border-radius: 10px; display: flex; align-items: center; justify-content: center; color: white; font-weight: bold; font-size: 18px; }
.metrics { display: grid; grid-template-columns: repeat(auto-fit, minmax(80px, 1fr)); gap: 15px; margin: 15px 0; }
.metric { text-align: center; padding: 10px; background: #f8f9fa; border-radius: 8px; }
.metric-number { font-size: 28px; font-weight: bold; }
.metric-label { font-size: 13px; color: #666; margin-top: 5px; }
.notes { font-size: 13px; color: #666; }
.error { font-size: 13px; color: #dc3545; }
.last-updated { text-align: center; margin: 20px 0; color: #666; font-size: 14px; }
</style>
</head>
<body>
<div class="header">
  <h1>Security Dashboard</h1>
  <p>{{.Target}} &middot; fingerprint {{.Fingerprint}}</p>
</div>
<div class="container">
  <div class="overall-status {{.OverallClass}}">
    <strong>{{.Overall}}</strong> &mdash; {{.OverallMessage}}
  </div>
  <div class="metrics">
    <div class="metric"><div class="metric-number">{{.TotalFindings}}</div><div class="metric-label">Total findings</div></div>
    <div class="metric"><div class="metric-number">{{index .BySeverity "critical"}}</div><div class="metric-label">Critical</div></div>
    <div class="metric"><div class="metric-number">{{index .BySeverity "high"}}</div><div class="metric-label">High</div></div>
    <div class="metric"><div class="metric-number">{{index .BySeverity "medium"}}</div><div class="metric-label">Medium</div></div>
    <div class="metric"><div class="metric-number">{{index .BySeverity "low"}}</div><div class="metric-label">Low</div></div>
  </div>
  <div class="tools-grid">
    {{- range .Tools }}
    <div class="tool-card">
      <div class="tool-header">
        <div class="tool-icon {{.StatusClass}}">{{.StatusLabel}}</div>
        <h3>{{.Tool}}</h3>
      </div>
      <div class="metrics">
        <div class="metric"><div class="metric-number">{{.Findings}}</div><div class="metric-label">Findings</div></div>
        <div class="metric"><div class="metric-number">{{.Critical}}</div><div class="metric-label">Critical</div></div>
        <div class="metric"><div class="metric-number">{{.High}}</div><div class="metric-label">High</div></div>
      </div>
      {{- if .Error }}
      <p class="error">Did not complete: {{.Error}}</p>
      {{- else }}
      <p class="notes">{{.Notes}}</p>
      {{- end }}
    </div>
    {{- end }}
  </div>
  <div class="last-updated">Generated {{.Generated}}</div>
</div>
</body>
</html>
`))
