package scanners

import (
	"strings"
	"testing"

	"github.com/user/secsweep/pkg/engine"
)

func TestParseTrivyJSON(t *testing.T) {
	raw := []byte(`{
		"Results": [
			{
				"Target": "package-lock.json",
				"Vulnerabilities": [
					{
						"VulnerabilityID": "CVE-2021-23337",
						"PkgName": "lodash",
						"InstalledVersion": "4.17.20",
						"FixedVersion": "4.17.21",
						"Severity": "HIGH",
						"Title": "lodash command injection"
					},
					{
						"VulnerabilityID": "CVE-2020-8203",
						"PkgName": "lodash",
						"InstalledVersion": "4.17.20",
						"Severity": "CRITICAL"
					}
				]
			}
		]
	}`)

	findings, err := parseTrivyJSON(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(findings))
	}

	f := findings[0]
	if f.VulnID != "CVE-2021-23337" {
		t.Errorf("Unexpected vuln id: %s", f.VulnID)
	}
	if f.Asset != "lodash@4.17.20" {
		t.Errorf("Expected pkg@version asset, got %s", f.Asset)
	}
	if f.Severity != engine.SeverityHigh {
		t.Errorf("Expected severity %d, got %d", engine.SeverityHigh, f.Severity)
	}
	if f.RemediationHint != "Upgrade lodash to 4.17.21." {
		t.Errorf("Unexpected hint: %s", f.RemediationHint)
	}
	if findings[1].Severity != engine.SeverityCritical {
		t.Errorf("Expected critical severity, got %d", findings[1].Severity)
	}
}

func TestParseGrypeJSON(t *testing.T) {
	raw := []byte(`{
		"matches": [
			{
				"vulnerability": {
					"id": "CVE-2021-23337",
					"severity": "High",
					"fix": {"versions": ["4.17.21"], "state": "fixed"}
				},
				"artifact": {"name": "lodash", "version": "4.17.20", "type": "npm"}
			}
		]
	}`)

	findings, err := parseGrypeJSON(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(findings))
	}
	if findings[0].Asset != "lodash@4.17.20" {
		t.Errorf("Unexpected asset: %s", findings[0].Asset)
	}
	if findings[0].VulnID != "CVE-2021-23337" {
		t.Errorf("Unexpected vuln id: %s", findings[0].VulnID)
	}
	if findings[0].RemediationHint != "Upgrade lodash to 4.17.21." {
		t.Errorf("Unexpected hint: %s", findings[0].RemediationHint)
	}
}

func TestTrivyGrypeOverlapDeduplicates(t *testing.T) {
	// The canonical overlap case: both scanners report the same CVE on the
	// same package, the engine must merge them into one finding.
	trivyRaw := []byte(`{"Results":[{"Target":"go.sum","Vulnerabilities":[
		{"VulnerabilityID":"CVE-2021-23337","PkgName":"lodash","InstalledVersion":"4.17.20","Severity":"HIGH"}]}]}`)
	grypeRaw := []byte(`{"matches":[{"vulnerability":{"id":"CVE-2021-23337","severity":"Critical","fix":{}},
		"artifact":{"name":"lodash","version":"4.17.20","type":"npm"}}]}`)

	trivyFindings, err := parseTrivyJSON(trivyRaw)
	if err != nil {
		t.Fatalf("trivy parse: %v", err)
	}
	grypeFindings, err := parseGrypeJSON(grypeRaw)
	if err != nil {
		t.Fatalf("grype parse: %v", err)
	}

	set := engine.NewFindingSet()
	set.AddFindings(trivyFindings)
	set.AddFindings(grypeFindings)

	if set.Len() != 1 {
		t.Fatalf("Expected overlap to deduplicate into 1 finding, got %d", set.Len())
	}
	merged := set.All()[0]
	if len(merged.SourceTools) != 2 {
		t.Errorf("Expected both tools recorded, got %v", merged.SourceTools)
	}
	if merged.Severity != engine.SeverityCritical {
		t.Errorf("Expected the higher (grype) severity, got %d", merged.Severity)
	}
}

func TestParseCheckovJSON(t *testing.T) {
	raw := []byte(`{
		"results": {
			"passed_checks": [
				{"check_id": "CKV_DOCKER_2", "file_path": "/Dockerfile", "resource": "Dockerfile"}
			],
			"failed_checks": [
				{
					"check_id": "CKV_DOCKER_3",
					"check_name": "Ensure that a user for the container has been created",
					"file_path": "/Dockerfile",
					"resource": "Dockerfile",
					"guideline": "https://docs.example.com/ckv-docker-3"
				}
			],
			"skipped_checks": []
		}
	}`)

	findings, metrics, err := parseCheckovJSON(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(findings))
	}
	if metrics["passed"] != 1 || metrics["failed"] != 1 || metrics["skipped"] != 0 {
		t.Errorf("Unexpected metrics: %v", metrics)
	}
	if findings[0].Category != "iac" {
		t.Errorf("Unexpected category: %s", findings[0].Category)
	}
	if findings[0].RemediationHint != "See https://docs.example.com/ckv-docker-3" {
		t.Errorf("Unexpected hint: %s", findings[0].RemediationHint)
	}
}

func TestParseCheckovJSONArray(t *testing.T) {
	// Checkov emits an array when several frameworks ran.
	raw := []byte(`[
		{"results": {"passed_checks": [{"check_id": "A"}], "failed_checks": [], "skipped_checks": []}},
		{"results": {"passed_checks": [], "failed_checks": [{"check_id": "B", "file_path": "/main.tf", "resource": "aws_s3_bucket.b"}], "skipped_checks": []}}
	]`)

	findings, metrics, err := parseCheckovJSON(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(findings) != 1 {
		t.Errorf("Expected 1 finding across frameworks, got %d", len(findings))
	}
	if metrics["passed"] != 1 || metrics["failed"] != 1 {
		t.Errorf("Unexpected metrics: %v", metrics)
	}
}

func TestParseTruffleHogJSONL(t *testing.T) {
	raw := []byte(`{"level":"info","msg":"scanning filesystem"}
{"DetectorName":"AWS","Verified":true,"Raw":"AKIAEXAMPLE","SourceMetadata":{"Data":{"Filesystem":{"file":"/target/.env","line":3}}}}
{"DetectorName":"Slack","Verified":false,"Raw":"xoxb-example","SourceMetadata":{"Data":{"Filesystem":{"file":"/target/config.yml","line":12}}}}
not json at all
`)

	findings, metrics, err := parseTruffleHogJSONL(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(findings))
	}
	if metrics["verified"] != 1 || metrics["unverified"] != 1 || metrics["detectors"] != 2 {
		t.Errorf("Unexpected metrics: %v", metrics)
	}

	verified := findings[0]
	if verified.Severity != engine.SeverityCritical {
		t.Errorf("Expected verified secret to be critical, got %d", verified.Severity)
	}
	// The secret value itself must never appear in evidence.
	if verified.Evidence == "" || strings.Contains(verified.Evidence, "AKIAEXAMPLE") {
		t.Errorf("Evidence leaks the secret: %q", verified.Evidence)
	}
	if findings[1].Severity != engine.SeverityHigh {
		t.Errorf("Expected unverified secret to be high, got %d", findings[1].Severity)
	}
}

func TestParseClamScanOutput(t *testing.T) {
	raw := []byte(`/target/bin/dropper.exe: Win.Trojan.Agent-123 FOUND
/target/docs/readme.md: OK

----------- SCAN SUMMARY -----------
Known viruses: 8000000
Scanned files: 42
Infected files: 1
`)

	findings, metrics := parseClamScanOutput(raw)
	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(findings))
	}
	if findings[0].Asset != "/target/bin/dropper.exe" {
		t.Errorf("Unexpected asset: %s", findings[0].Asset)
	}
	if findings[0].VulnID != "Win.Trojan.Agent-123" {
		t.Errorf("Unexpected signature: %s", findings[0].VulnID)
	}
	if findings[0].Severity != engine.SeverityCritical {
		t.Errorf("Expected malware to be critical, got %d", findings[0].Severity)
	}
	if metrics["threats"] != 1 || metrics["files_scanned"] != 42 {
		t.Errorf("Unexpected metrics: %v", metrics)
	}
}

func TestParseXeolJSON(t *testing.T) {
	raw := []byte(`{
		"matches": [
			{
				"Cycle": {"ProductName": "Python", "Eol": "2020-01-01"},
				"Artifact": {"Name": "python", "Version": "2.7.18"}
			}
		]
	}`)

	findings, err := parseXeolJSON(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(findings))
	}
	if findings[0].Asset != "python@2.7.18" {
		t.Errorf("Unexpected asset: %s", findings[0].Asset)
	}
	if findings[0].Category != "eol" {
		t.Errorf("Unexpected category: %s", findings[0].Category)
	}
}

func TestEmptyReports(t *testing.T) {
	if f, err := parseTrivyJSON(nil); err != nil || len(f) != 0 {
		t.Errorf("Expected empty trivy report to parse cleanly, got %v %v", f, err)
	}
	if f, err := parseGrypeJSON(nil); err != nil || len(f) != 0 {
		t.Errorf("Expected empty grype report to parse cleanly, got %v %v", f, err)
	}
	if f, _, err := parseCheckovJSON(nil); err != nil || len(f) != 0 {
		t.Errorf("Expected empty checkov report to parse cleanly, got %v %v", f, err)
	}
	if f, _, err := parseTruffleHogJSONL(nil); err != nil || len(f) != 0 {
		t.Errorf("Expected empty trufflehog report to parse cleanly, got %v %v", f, err)
	}
}
