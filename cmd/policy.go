package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/config"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Work with the pass/fail policy gate",
}

var policyEvalCmd = &cobra.Command{
	Use:   "eval [scan-id]",
	Short: "Evaluate the policy gate against a stored scan",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		policyFile, _ := cmd.Flags().GetString("policy")

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if policyFile == "" {
			policyFile = cfg.PolicyFile
		}
		st := openStore(cfg, newLogger())

		entry, err := resolveScan(st, args)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		summary, err := st.Summary(entry.ID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		verdict, err := evalGate(context.Background(), summary, policyFile, cfg.FailOn)
		if err != nil {
			fmt.Printf("Error evaluating policy: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Scan %s (%s)\n", entry.ID[:8], entry.Target)
		fmt.Print(verdict.Render())
		if !verdict.Pass {
			os.Exit(2)
		}
	},
}

func init() {
	policyEvalCmd.Flags().String("policy", "", "Custom Rego policy file for the gate")
	policyCmd.AddCommand(policyEvalCmd)
	rootCmd.AddCommand(policyCmd)
}
