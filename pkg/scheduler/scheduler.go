package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/scanners"
)

// Options tune a run.
type Options struct {
	// Concurrency bounds how many scanner containers run at once.
	Concurrency int
	// Timeout applies per scanner unless TimeoutFor overrides it.
	Timeout time.Duration
	// TimeoutFor, when set, resolves a per-scanner timeout.
	TimeoutFor func(name string) time.Duration
}

// Scheduler fans scanners out over a bounded worker pool and aggregates
// their findings into one deduplicated set. Scanner failures are fail-soft:
// recorded on the tool summary, never fatal to the run.
type Scheduler struct {
	opts Options
	log  zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &Scheduler{opts: opts, log: log.With().Str("component", "scheduler").Logger()}
}

// RunResult is the aggregate outcome of one scheduled run.
type RunResult struct {
	Findings  *engine.FindingSet
	Tools     []engine.ToolSummary
	RawByTool map[string][]byte
}

type scanOutcome struct {
	index  int
	result *scanners.Result
	err    error
}

// Run executes all scanners against the target. Results are aggregated in
// registration order regardless of which container finished first, so two
// runs over the same tree produce identical output.
func (s *Scheduler) Run(ctx context.Context, target string, scans []scanners.Scanner) RunResult {
	sem := make(chan struct{}, s.opts.Concurrency)
	outcomes := make(chan scanOutcome, len(scans))

	for i, sc := range scans {
		go func(index int, sc scanners.Scanner) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes <- scanOutcome{index: index, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			timeout := s.opts.Timeout
			if s.opts.TimeoutFor != nil {
				timeout = s.opts.TimeoutFor(sc.Name())
			}
			scanCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			started := time.Now()
			s.log.Info().Str("scanner", sc.Name()).Msg("starting")
			result, err := sc.Scan(scanCtx, target)
			elapsed := time.Since(started)

			if err != nil {
				s.log.Warn().Str("scanner", sc.Name()).Dur("elapsed", elapsed).Err(err).Msg("scanner failed")
			} else {
				s.log.Info().Str("scanner", sc.Name()).Dur("elapsed", elapsed).
					Int("findings", len(result.Findings)).Msg("finished")
			}
			if result != nil {
				result.Summary.DurationMS = elapsed.Milliseconds()
			}
			outcomes <- scanOutcome{index: index, result: result, err: err}
		}(i, sc)
	}

	collected := make([]scanOutcome, 0, len(scans))
	for range scans {
		collected = append(collected, <-outcomes)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	run := RunResult{
		Findings:  engine.NewFindingSet(),
		RawByTool: make(map[string][]byte),
	}
	for _, oc := range collected {
		name := scans[oc.index].Name()
		summary := engine.NewToolSummary(name)
		if oc.result != nil {
			summary = oc.result.Summary
			run.Findings.AddFindings(oc.result.Findings)
			if len(oc.result.Raw) > 0 {
				run.RawByTool[name] = oc.result.Raw
			}
		}
		if oc.err != nil {
			summary.Error = oc.err.Error()
		}
		run.Tools = append(run.Tools, summary)
	}
	return run
}
