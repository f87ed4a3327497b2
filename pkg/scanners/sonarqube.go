package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/engine"
)

// SonarQubeScanner runs the sonar-scanner-cli container against the target
// and then pulls the resulting issues from the server's search API. Unlike
// the other wrappers the findings do not come from the container's stdout;
// the container only pushes the analysis to the configured server.
type SonarQubeScanner struct {
	docker     *DockerRunner
	image      string
	hostURL    string
	token      string
	projectKey string
	httpClient *http.Client
}

func NewSonarQubeScanner(cfg *config.Config, docker *DockerRunner) *SonarQubeScanner {
	return &SonarQubeScanner{
		docker:     docker,
		image:      imageFor(cfg, "sonarqube", DefaultSonarImage),
		hostURL:    cfg.Sonar.HostURL,
		token:      cfg.Sonar.Token,
		projectKey: cfg.Sonar.ProjectKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SonarQubeScanner) Name() string {
	return "sonarqube"
}

func (s *SonarQubeScanner) Description() string {
	return "Runs SonarQube static analysis on the target and collects issues from the server."
}

func (s *SonarQubeScanner) Scan(ctx context.Context, target string) (*Result, error) {
	if s.hostURL == "" || s.token == "" {
		return nil, fmt.Errorf("sonarqube host URL or token not configured: set them with 'secsweep config set' or SONAR_HOST_URL / SONAR_TOKEN")
	}
	projectKey := s.projectKey
	if projectKey == "" {
		projectKey = filepath.Base(target)
	}

	// sonar-scanner wants the sources writable for its work dir, so the
	// target is mounted at the image's expected /usr/src instead of the
	// read-only /target mount the other tools use.
	raw, err := s.docker.Run(ctx, RunOptions{
		Image:  s.image,
		Mounts: []string{target + ":/usr/src"},
		Env: []string{
			"SONAR_HOST_URL=" + s.hostURL,
			"SONAR_TOKEN=" + s.token,
		},
		Args: []string{"-Dsonar.projectKey=" + projectKey},
	})
	if err != nil {
		return nil, err
	}

	findings, rawIssues, err := s.fetchIssues(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	if len(rawIssues) > 0 {
		raw = rawIssues
	}

	summary := engine.NewToolSummary(s.Name())
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	summary.Metrics["issues"] = len(findings)
	summary.StatusFromSeverities()

	return &Result{Tool: s.Name(), Findings: findings, Summary: summary, Raw: raw}, nil
}

type sonarIssuesResponse struct {
	Issues []struct {
		Key       string `json:"key"`
		Rule      string `json:"rule"`
		Severity  string `json:"severity"` // BLOCKER/CRITICAL/MAJOR/MINOR/INFO
		Component string `json:"component"`
		Line      int    `json:"line"`
		Message   string `json:"message"`
		Type      string `json:"type"`
	} `json:"issues"`
}

func (s *SonarQubeScanner) fetchIssues(ctx context.Context, projectKey string) ([]engine.Finding, []byte, error) {
	endpoint := fmt.Sprintf("%s/api/issues/search?componentKeys=%s&resolved=false&ps=500",
		s.hostURL, url.QueryEscape(projectKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	req.SetBasicAuth(s.token, "")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("query sonarqube issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("sonarqube issues API returned %s", resp.Status)
	}

	var parsed sonarIssuesResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("decode sonarqube response: %w", err)
	}
	raw, _ := json.Marshal(parsed)

	var findings []engine.Finding
	for _, issue := range parsed.Issues {
		sev := engine.SeverityFromLabel(issue.Severity)
		// Sonar BLOCKER maps to critical; plain code smells stay low so a
		// noisy quality gate cannot mask real vulnerabilities.
		if issue.Type == "CODE_SMELL" && sev > engine.SeverityMedium {
			sev = engine.SeverityMedium
		}
		findings = append(findings, engine.Finding{
			ID:              fmt.Sprintf("sonarqube-%s", issue.Key),
			SourceTools:     []string{"sonarqube"},
			Category:        "quality",
			Severity:        sev,
			Confidence:      "Medium",
			Asset:           issue.Component,
			VulnID:          issue.Rule,
			Evidence:        fmt.Sprintf("%s at %s:%d (%s)", issue.Message, issue.Component, issue.Line, issue.Type),
			RemediationHint: "Address the reported issue in the SonarQube UI for full context.",
		})
	}
	return findings, raw, nil
}
