package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secsweep/pkg/engine"
)

func cleanSummary() engine.Summary {
	return engine.Summary{
		Target:      "/src",
		Fingerprint: "fp",
		BySeverity:  map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0},
		Overall:     engine.StatusGood,
		Tools: []engine.ToolSummary{
			{Tool: "trivy", Status: engine.StatusGood, Metrics: map[string]int{}},
		},
	}
}

func TestGatePassesCleanScan(t *testing.T) {
	verdict, err := NewGate().Eval(context.Background(), cleanSummary())
	require.NoError(t, err)
	assert.True(t, verdict.Pass)
	assert.Empty(t, verdict.Failures)
	assert.Empty(t, verdict.Warnings)
}

func TestGateDeniesCriticals(t *testing.T) {
	summary := cleanSummary()
	summary.BySeverity["critical"] = 2

	verdict, err := NewGate().Eval(context.Background(), summary)
	require.NoError(t, err)
	assert.False(t, verdict.Pass)
	assert.Contains(t, verdict.Failures, "2 critical finding(s)")
}

func TestGateDeniesVerifiedSecrets(t *testing.T) {
	summary := cleanSummary()
	summary.Tools = append(summary.Tools, engine.ToolSummary{
		Tool:    "trufflehog",
		Status:  engine.StatusCritical,
		Metrics: map[string]int{"verified": 1, "unverified": 3},
	})

	verdict, err := NewGate().Eval(context.Background(), summary)
	require.NoError(t, err)
	assert.False(t, verdict.Pass)
	assert.Contains(t, verdict.Failures, "1 verified secret(s) detected")
}

func TestGateDeniesMalware(t *testing.T) {
	summary := cleanSummary()
	summary.Tools = append(summary.Tools, engine.ToolSummary{
		Tool:    "clamav",
		Status:  engine.StatusCritical,
		Metrics: map[string]int{"threats": 1},
	})

	verdict, err := NewGate().Eval(context.Background(), summary)
	require.NoError(t, err)
	assert.False(t, verdict.Pass)
	assert.Contains(t, verdict.Failures, "1 malware hit(s) detected")
}

func TestGateWarnsWithoutDenying(t *testing.T) {
	summary := cleanSummary()
	summary.BySeverity["high"] = 3
	summary.Tools = append(summary.Tools,
		engine.ToolSummary{Tool: "xeol", Status: engine.StatusWarning, Metrics: map[string]int{"eol_packages": 2}},
		engine.ToolSummary{Tool: "grype", Status: engine.StatusGood, Metrics: map[string]int{}, Error: "image pull failed"},
	)

	verdict, err := NewGate().Eval(context.Background(), summary)
	require.NoError(t, err)
	assert.True(t, verdict.Pass, "warnings must not gate")
	assert.Contains(t, verdict.Warnings, "3 high severity finding(s)")
	assert.Contains(t, verdict.Warnings, "2 end-of-life package(s)")
	assert.Contains(t, verdict.Warnings, "scanner grype did not complete: image pull failed")
}

func TestLoadGateCustomPolicy(t *testing.T) {
	custom := `package secsweep.gate

import rego.v1

deny contains msg if {
	input.total_findings > 10
	msg := "too many findings"
}

warn contains msg if {
	input.by_severity.medium > 0
	msg := "medium findings present"
}
`
	path := filepath.Join(t.TempDir(), "custom.rego")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	gate, err := LoadGate(path)
	require.NoError(t, err)

	summary := cleanSummary()
	summary.TotalFindings = 11
	summary.BySeverity["critical"] = 5 // custom policy does not care

	verdict, err := gate.Eval(context.Background(), summary)
	require.NoError(t, err)
	assert.False(t, verdict.Pass)
	assert.Equal(t, []string{"too many findings"}, verdict.Failures)
}

func TestLoadGateMissingFile(t *testing.T) {
	_, err := LoadGate("/does/not/exist.rego")
	assert.Error(t, err)
}

func TestThresholdVerdict(t *testing.T) {
	summary := cleanSummary()
	summary.BySeverity["high"] = 1
	summary.BySeverity["medium"] = 4

	verdict, err := ThresholdVerdict(summary, "high")
	require.NoError(t, err)
	assert.False(t, verdict.Pass)

	verdict, err = ThresholdVerdict(summary, "critical")
	require.NoError(t, err)
	assert.True(t, verdict.Pass)

	_, err = ThresholdVerdict(summary, "catastrophic")
	assert.Error(t, err)
}

func TestVerdictRender(t *testing.T) {
	v := Verdict{Pass: false, Failures: []string{"2 critical finding(s)"}, Warnings: []string{"1 high severity finding(s)"}}
	out := v.Render()
	assert.Contains(t, out, "GATE: FAIL")
	assert.Contains(t, out, "[deny] 2 critical finding(s)")
	assert.Contains(t, out, "[warn] 1 high severity finding(s)")

	assert.Contains(t, Verdict{Pass: true}.Render(), "GATE: PASS")
}
