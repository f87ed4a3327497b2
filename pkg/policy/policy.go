package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/user/secsweep/pkg/engine"
)

//go:embed gate.rego
var defaultPolicy string

const defaultPolicyPackage = "data.secsweep.gate"

// Verdict is the outcome of evaluating the gate against a scan summary.
type Verdict struct {
	Pass     bool     `json:"pass"`
	Failures []string `json:"failures,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Gate evaluates Rego policies with the scan summary as input. The default
// embedded policy denies on criticals, verified secrets and malware, and
// warns on highs, EOL packages and scanners that failed to run.
type Gate struct {
	source string
	name   string
}

// NewGate returns the gate backed by the embedded default policy.
func NewGate() *Gate {
	return &Gate{source: defaultPolicy, name: "gate.rego"}
}

// LoadGate reads a custom policy file. The policy must live in package
// secsweep.gate and expose deny/warn rules producing message strings.
func LoadGate(path string) (*Gate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return &Gate{source: string(data), name: path}, nil
}

// Eval runs the deny and warn queries against the summary.
func (g *Gate) Eval(ctx context.Context, summary engine.Summary) (Verdict, error) {
	input, err := toInput(summary)
	if err != nil {
		return Verdict{}, err
	}

	failures, err := g.query(ctx, defaultPolicyPackage+".deny", input)
	if err != nil {
		return Verdict{}, fmt.Errorf("evaluate deny rules: %w", err)
	}
	warnings, err := g.query(ctx, defaultPolicyPackage+".warn", input)
	if err != nil {
		return Verdict{}, fmt.Errorf("evaluate warn rules: %w", err)
	}

	return Verdict{
		Pass:     len(failures) == 0,
		Failures: failures,
		Warnings: warnings,
	}, nil
}

func (g *Gate) query(ctx context.Context, query string, input interface{}) ([]string, error) {
	results, err := rego.New(
		rego.Query(query),
		rego.Module(g.name, g.source),
		rego.Input(input),
	).Eval(ctx)
	if err != nil {
		return nil, err
	}

	var msgs []string
	for _, result := range results {
		for _, expr := range result.Expressions {
			set, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, v := range set {
				if msg, ok := v.(string); ok {
					msgs = append(msgs, msg)
				}
			}
		}
	}
	sort.Strings(msgs)
	return msgs, nil
}

// toInput round-trips the summary through JSON so rego sees the same
// document that summary.json stores.
func toInput(summary engine.Summary) (interface{}, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return input, nil
}

// Render returns the verdict as terminal text.
func (v Verdict) Render() string {
	var sb strings.Builder
	if v.Pass {
		sb.WriteString("GATE: PASS\n")
	} else {
		sb.WriteString("GATE: FAIL\n")
	}
	for _, f := range v.Failures {
		sb.WriteString(fmt.Sprintf("  [deny] %s\n", f))
	}
	for _, w := range v.Warnings {
		sb.WriteString(fmt.Sprintf("  [warn] %s\n", w))
	}
	return sb.String()
}

// ThresholdVerdict implements the --fail-on override: the scan fails when
// any finding sits at or above the given severity band.
func ThresholdVerdict(summary engine.Summary, failOn string) (Verdict, error) {
	bands := []string{"low", "medium", "high", "critical"}
	idx := -1
	for i, b := range bands {
		if b == failOn {
			idx = i
		}
	}
	if idx < 0 {
		return Verdict{}, fmt.Errorf("invalid severity %q (expected one of %v)", failOn, bands)
	}

	verdict := Verdict{Pass: true}
	for i := idx; i < len(bands); i++ {
		if n := summary.BySeverity[bands[i]]; n > 0 {
			verdict.Pass = false
			verdict.Failures = append(verdict.Failures, fmt.Sprintf("%d %s severity finding(s)", n, bands[i]))
		}
	}
	return verdict, nil
}
