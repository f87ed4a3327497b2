package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/policy"
	"github.com/user/secsweep/pkg/store"
)

// ShowFindingsTool lets the model read the findings of a stored scan.
type ShowFindingsTool struct {
	Store *store.Store
}

func (t *ShowFindingsTool) Name() string {
	return "ShowFindings"
}

func (t *ShowFindingsTool) Description() string {
	return "Shows the deduplicated findings of a stored scan. Pass a scan id (or prefix); defaults to the latest scan."
}

func (t *ShowFindingsTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"scan": map[string]interface{}{
				"type":        "string",
				"description": "Scan id or prefix. Defaults to the latest scan.",
			},
		},
	}
}

func (t *ShowFindingsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	entry, err := t.resolve(args)
	if err != nil {
		return err.Error(), nil
	}
	set, err := t.Store.Findings(entry.ID)
	if err != nil {
		return fmt.Sprintf("Error loading findings: %v", err), nil
	}
	return fmt.Sprintf("Scan %s (%s):\n%s", entry.ID[:8], entry.Target, set.GetReport()), nil
}

func (t *ShowFindingsTool) resolve(args map[string]interface{}) (store.Entry, error) {
	id, _ := args["scan"].(string)
	if id == "" {
		if v, ok := args["args"].(string); ok {
			id = strings.TrimSpace(v)
		}
	}
	if id == "" {
		return t.Store.Latest()
	}
	return t.Store.Resolve(id)
}

// CompareScansTool diffs two stored scans.
type CompareScansTool struct {
	Store *store.Store
}

func (t *CompareScansTool) Name() string {
	return "CompareScans"
}

func (t *CompareScansTool) Description() string {
	return "Compares a scan against a baseline scan, reporting NEW, FIXED and UNCHANGED findings. Requires 'baseline' and 'current' scan ids."
}

func (t *CompareScansTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"baseline": map[string]interface{}{
				"type":        "string",
				"description": "Baseline scan id or prefix.",
			},
			"current": map[string]interface{}{
				"type":        "string",
				"description": "Scan id or prefix to compare. Defaults to the latest scan.",
			},
		},
		"required": []string{"baseline"},
	}
}

func (t *CompareScansTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	baselineID, _ := args["baseline"].(string)
	currentID, _ := args["current"].(string)

	// Simplified 'args' string: "baseline current"
	if baselineID == "" {
		if v, ok := args["args"].(string); ok {
			parts := strings.Fields(v)
			if len(parts) > 0 {
				baselineID = parts[0]
			}
			if len(parts) > 1 {
				currentID = parts[1]
			}
		}
	}
	if baselineID == "" {
		return "Error: baseline scan id is required.", nil
	}

	baseline, err := t.Store.Resolve(baselineID)
	if err != nil {
		return err.Error(), nil
	}
	var current store.Entry
	if currentID == "" {
		current, err = t.Store.Latest()
	} else {
		current, err = t.Store.Resolve(currentID)
	}
	if err != nil {
		return err.Error(), nil
	}

	diff, err := t.Store.Diff(baseline.ID, current.ID)
	if err != nil {
		return fmt.Sprintf("Error comparing scans: %v", err), nil
	}
	return diff.Render(baseline.ID[:8], current.ID[:8]), nil
}

// PolicyVerdictTool evaluates the gate against a stored scan.
type PolicyVerdictTool struct {
	Store *store.Store
	Gate  *policy.Gate
}

func (t *PolicyVerdictTool) Name() string {
	return "CheckPolicyGate"
}

func (t *PolicyVerdictTool) Description() string {
	return "Evaluates the policy gate against a stored scan and reports pass/fail with reasons. Defaults to the latest scan."
}

func (t *PolicyVerdictTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"scan": map[string]interface{}{
				"type":        "string",
				"description": "Scan id or prefix. Defaults to the latest scan.",
			},
		},
	}
}

func (t *PolicyVerdictTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	id, _ := args["scan"].(string)
	if id == "" {
		if v, ok := args["args"].(string); ok {
			id = strings.TrimSpace(v)
		}
	}
	var entry store.Entry
	var err error
	if id == "" {
		entry, err = t.Store.Latest()
	} else {
		entry, err = t.Store.Resolve(id)
	}
	if err != nil {
		return err.Error(), nil
	}

	summary, err := t.Store.Summary(entry.ID)
	if err != nil {
		return fmt.Sprintf("Error loading summary: %v", err), nil
	}
	verdict, err := t.Gate.Eval(ctx, summary)
	if err != nil {
		return fmt.Sprintf("Error evaluating policy: %v", err), nil
	}
	return verdict.Render(), nil
}

// ListRemediationsTool exposes the loaded remediation templates.
type ListRemediationsTool struct {
	Engine *engine.RemediationEngine
}

func (t *ListRemediationsTool) Name() string {
	return "ListRemediationTemplates"
}

func (t *ListRemediationsTool) Description() string {
	return "Lists available remediation plan templates, optionally filtered by finding category."
}

func (t *ListRemediationsTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category": map[string]interface{}{
				"type":        "string",
				"description": "Finding category to filter by (vuln, secret, iac, malware, eol, quality).",
			},
		},
	}
}

func (t *ListRemediationsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.Engine == nil {
		return "Error: remediation engine not initialized.", nil
	}
	category, _ := args["category"].(string)
	if category == "" {
		if v, ok := args["args"].(string); ok {
			category = strings.TrimSpace(v)
		}
	}
	if category != "" {
		templates := t.Engine.TemplatesForCategory(category)
		if len(templates) == 0 {
			return fmt.Sprintf("No templates for category %q.", category), nil
		}
		var lines []string
		for _, tmpl := range templates {
			lines = append(lines, fmt.Sprintf("%s: %s", tmpl.ID, tmpl.Name))
		}
		return strings.Join(lines, "\n"), nil
	}
	list := t.Engine.ListTemplates()
	if len(list) == 0 {
		return "No remediation templates loaded.", nil
	}
	return strings.Join(list, "\n"), nil
}
