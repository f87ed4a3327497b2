package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/scanners"
)

// fakeScanner stands in for a containerized tool.
type fakeScanner struct {
	name     string
	findings []engine.Finding
	err      error
	delay    time.Duration

	running *int32 // live run counter, for concurrency assertions
	maxSeen *int32
}

func (f *fakeScanner) Name() string        { return f.name }
func (f *fakeScanner) Description() string { return "fake scanner" }

func (f *fakeScanner) Scan(ctx context.Context, target string) (*scanners.Result, error) {
	if f.running != nil {
		now := atomic.AddInt32(f.running, 1)
		for {
			seen := atomic.LoadInt32(f.maxSeen)
			if now <= seen || atomic.CompareAndSwapInt32(f.maxSeen, seen, now) {
				break
			}
		}
		defer atomic.AddInt32(f.running, -1)
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	summary := engine.NewToolSummary(f.name)
	for _, finding := range f.findings {
		summary.Count(finding.Severity)
	}
	summary.StatusFromSeverities()
	return &scanners.Result{
		Tool:     f.name,
		Findings: f.findings,
		Summary:  summary,
		Raw:      []byte(`{"tool":"` + f.name + `"}`),
	}, nil
}

func TestRunAggregatesFindings(t *testing.T) {
	s := New(Options{Concurrency: 2, Timeout: time.Second}, zerolog.Nop())

	scans := []scanners.Scanner{
		&fakeScanner{name: "trivy", findings: []engine.Finding{
			{SourceTools: []string{"trivy"}, Category: "vuln", Severity: 8, Asset: "pkg@1.0", VulnID: "CVE-1"},
		}},
		&fakeScanner{name: "grype", findings: []engine.Finding{
			{SourceTools: []string{"grype"}, Category: "vuln", Severity: 10, Asset: "pkg@1.0", VulnID: "CVE-1"},
		}},
		&fakeScanner{name: "clamav"},
	}

	run := s.Run(context.Background(), "/src", scans)

	// cross-tool CVE overlap collapses to one finding
	assert.Equal(t, 1, run.Findings.Len())
	require.Len(t, run.Tools, 3)
	assert.Equal(t, "trivy", run.Tools[0].Tool)
	assert.Equal(t, "grype", run.Tools[1].Tool)
	assert.Equal(t, "clamav", run.Tools[2].Tool)
	assert.Contains(t, run.RawByTool, "trivy")
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, maxSeen int32

	var scans []scanners.Scanner
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		scans = append(scans, &fakeScanner{
			name:    name,
			delay:   20 * time.Millisecond,
			running: &running,
			maxSeen: &maxSeen,
		})
	}

	s := New(Options{Concurrency: 2, Timeout: time.Second}, zerolog.Nop())
	s.Run(context.Background(), "/src", scans)

	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2),
		"more scanners ran at once than the configured bound")
}

func TestRunFailSoft(t *testing.T) {
	scans := []scanners.Scanner{
		&fakeScanner{name: "trivy", findings: []engine.Finding{
			{SourceTools: []string{"trivy"}, Category: "vuln", Severity: 5, Asset: "a", Evidence: "x"},
		}},
		&fakeScanner{name: "grype", err: errors.New("image pull failed")},
	}

	s := New(Options{Concurrency: 2, Timeout: time.Second}, zerolog.Nop())
	run := s.Run(context.Background(), "/src", scans)

	// the failing scanner is recorded, not fatal
	require.Len(t, run.Tools, 2)
	assert.Empty(t, run.Tools[0].Error)
	assert.Equal(t, "image pull failed", run.Tools[1].Error)
	assert.Equal(t, 1, run.Findings.Len())
}

func TestRunPerScannerTimeout(t *testing.T) {
	scans := []scanners.Scanner{
		&fakeScanner{name: "slow", delay: 500 * time.Millisecond},
		&fakeScanner{name: "fast"},
	}

	opts := Options{
		Concurrency: 2,
		TimeoutFor: func(name string) time.Duration {
			if name == "slow" {
				return 10 * time.Millisecond
			}
			return time.Second
		},
	}
	run := New(opts, zerolog.Nop()).Run(context.Background(), "/src", scans)

	require.Len(t, run.Tools, 2)
	assert.Contains(t, run.Tools[0].Error, context.DeadlineExceeded.Error())
	assert.Empty(t, run.Tools[1].Error)
}

func TestRunDeterministicOrder(t *testing.T) {
	// Completion order is scrambled by delays; aggregation order must not be.
	scans := []scanners.Scanner{
		&fakeScanner{name: "first", delay: 30 * time.Millisecond},
		&fakeScanner{name: "second", delay: 10 * time.Millisecond},
		&fakeScanner{name: "third"},
	}

	var wg sync.WaitGroup
	results := make([][]string, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run := New(Options{Concurrency: 3, Timeout: time.Second}, zerolog.Nop()).
				Run(context.Background(), "/src", scans)
			for _, ts := range run.Tools {
				results[i] = append(results[i], ts.Tool)
			}
		}(i)
	}
	wg.Wait()

	want := []string{"first", "second", "third"}
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
