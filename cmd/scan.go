package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/compliance"
	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/ext"
	"github.com/user/secsweep/pkg/policy"
	"github.com/user/secsweep/pkg/scanners"
	"github.com/user/secsweep/pkg/scheduler"
	"github.com/user/secsweep/pkg/store"
)

var scanCmd = &cobra.Command{
	Use:   "scan <target-dir>",
	Short: "Run all enabled scanners against a directory and gate the result",
	Long: `Runs the enabled scanners concurrently against the target directory,
merges their findings into one deduplicated set, stores the scan, appends a
compliance-log row and evaluates the policy gate.

Exit codes: 0 scan passed, 1 the scan itself failed, 2 the gate denied.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScan(cmd, args[0]))
	},
}

func runScan(cmd *cobra.Command, targetArg string) int {
	log := newLogger()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	tools, _ := cmd.Flags().GetStringSlice("tools")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeoutStr, _ := cmd.Flags().GetString("timeout")
	skipStore, _ := cmd.Flags().GetBool("skip-store")
	failOn, _ := cmd.Flags().GetString("fail-on")
	policyFile, _ := cmd.Flags().GetString("policy")

	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if failOn == "" {
		failOn = cfg.FailOn
	}
	if policyFile == "" {
		policyFile = cfg.PolicyFile
	}

	target, err := filepath.Abs(targetArg)
	if err != nil {
		fmt.Printf("Error resolving target: %v\n", err)
		return 1
	}
	info, err := os.Stat(target)
	if err != nil {
		fmt.Printf("Error: cannot access target: %v\n", err)
		return 1
	}
	if !info.IsDir() {
		fmt.Printf("Error: target %s is not a directory\n", target)
		return 1
	}

	docker := scanners.NewDockerRunner(cfg.DockerPath, log)
	if err := docker.Preflight(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	selected, err := scanners.Select(cfg, docker, tools)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if len(selected) == 0 {
		fmt.Println("Error: no scanners enabled")
		return 1
	}

	fingerprint, err := store.Fingerprint(target)
	if err != nil {
		fmt.Printf("Error fingerprinting target: %v\n", err)
		return 1
	}

	names := make([]string, 0, len(selected))
	for _, sc := range selected {
		names = append(names, sc.Name())
	}
	fmt.Printf("Scanning %s with %s (concurrency %d)\n", target, strings.Join(names, ", "), cfg.Concurrency)

	opts := scheduler.Options{
		Concurrency: cfg.Concurrency,
		TimeoutFor:  cfg.TimeoutFor,
	}
	if timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil {
			fmt.Printf("Error: invalid --timeout: %v\n", err)
			return 1
		}
		opts.Timeout = d
		opts.TimeoutFor = nil
	}

	run := scheduler.New(opts, log).Run(ctx, target, selected)

	findings := run.Findings.All()
	profiles := compliance.NewProfiles()
	if err := profiles.Load("profiles"); err != nil {
		log.Debug().Err(err).Msg("no compliance profiles loaded")
	}
	profiles.Annotate(findings)

	summary := engine.BuildSummary(target, fingerprint, run.Tools, run.Findings)
	printSummary(summary)

	verdict, err := evalGate(ctx, summary, policyFile, failOn)
	if err != nil {
		fmt.Printf("Error evaluating policy: %v\n", err)
		return 1
	}

	if !skipStore {
		st := openStore(cfg, log)
		id, err := st.Save(target, fingerprint, summary, findings, run.RawByTool)
		if err != nil {
			fmt.Printf("Error storing scan: %v\n", err)
			return 1
		}
		fmt.Printf("Scan stored: %s\n", id)

		auditLog := compliance.NewLog(complianceLogPath(cfg), ext.NewSystemClock())
		if _, err := auditLog.Append(id, summary, verdict.Pass); err != nil {
			fmt.Printf("Error appending compliance log: %v\n", err)
			return 1
		}
	}

	fmt.Print(verdict.Render())
	if !verdict.Pass {
		return 2
	}
	return 0
}

// evalGate combines the Rego gate with the optional severity threshold: the
// scan passes only when both agree.
func evalGate(ctx context.Context, summary engine.Summary, policyFile, failOn string) (policy.Verdict, error) {
	gate := policy.NewGate()
	if policyFile != "" {
		var err error
		gate, err = policy.LoadGate(policyFile)
		if err != nil {
			return policy.Verdict{}, err
		}
	}
	verdict, err := gate.Eval(ctx, summary)
	if err != nil {
		return policy.Verdict{}, err
	}
	if failOn != "" {
		threshold, err := policy.ThresholdVerdict(summary, failOn)
		if err != nil {
			return policy.Verdict{}, err
		}
		verdict.Pass = verdict.Pass && threshold.Pass
		verdict.Failures = append(verdict.Failures, threshold.Failures...)
	}
	return verdict, nil
}

func printSummary(summary engine.Summary) {
	fmt.Println("\nScan Summary")
	fmt.Println("--------------------------------------------------")
	for _, ts := range summary.Tools {
		line := fmt.Sprintf("[%s] status=%s findings=%d (%s)", ts.Tool, ts.Status, ts.Findings,
			formatDuration(ts.DurationMS))
		if ts.Error != "" {
			line += " error=" + ts.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("\nTotal: %d distinct findings (critical=%d high=%d medium=%d low=%d)\n",
		summary.TotalFindings,
		summary.BySeverity["critical"], summary.BySeverity["high"],
		summary.BySeverity["medium"], summary.BySeverity["low"])
	fmt.Printf("Overall status: %s\n\n", strings.ToUpper(summary.Overall))
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func init() {
	scanCmd.Flags().StringSlice("tools", nil, "Scanners to run (default: all enabled)")
	scanCmd.Flags().Int("concurrency", 0, "Max scanners running at once (default from config)")
	scanCmd.Flags().String("timeout", "", "Per-scanner timeout, e.g. 15m (overrides config)")
	scanCmd.Flags().Bool("skip-store", false, "Do not persist the scan or append the compliance log")
	scanCmd.Flags().String("fail-on", "", "Also fail at or above this severity (low|medium|high|critical)")
	scanCmd.Flags().String("policy", "", "Custom Rego policy file for the gate")
	rootCmd.AddCommand(scanCmd)
}
