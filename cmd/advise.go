package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/advisor"
	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/policy"
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Start an interactive LLM triage session over stored scans",
	Run: func(cmd *cobra.Command, args []string) {
		advisor.DebugEnabled = DebugMode

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		providerName := cfg.Provider
		if providerName == "" {
			providerName = "gemini" // Default
		}

		apiKey := cfg.GetAPIKey(providerName)
		if apiKey == "" {
			// Fallback to env var for Gemini if not in config
			if providerName == "gemini" {
				apiKey = os.Getenv("GOOGLE_API_KEY")
			}
		}
		if apiKey == "" {
			fmt.Println("Error: API Key not found.")
			fmt.Println("Please run 'secsweep config setup' to configure your keys.")
			return
		}

		ctx := context.Background()
		modelName := cfg.Model
		fmt.Printf("Connecting to %s (Model: %s)...\n", providerName, modelName)

		provider, err := advisor.NewProvider(ctx, providerName, apiKey, modelName)
		if err != nil {
			fmt.Printf("Error creating AI provider: %v\n", err)
			return
		}
		if closer, ok := provider.(interface{ Close() }); ok {
			defer closer.Close()
		}

		agent := advisor.NewAgent(provider)

		log := newLogger()
		st := openStore(cfg, log)

		gate := policy.NewGate()
		if cfg.PolicyFile != "" {
			if custom, err := policy.LoadGate(cfg.PolicyFile); err == nil {
				gate = custom
			} else {
				fmt.Printf("Warning: failed to load policy file, using default gate: %v\n", err)
			}
		}

		remediationEng := engine.NewRemediationEngine()
		if err := remediationEng.LoadTemplates(remediationTemplatesDir); err != nil {
			fmt.Printf("Warning: failed to load remediation templates: %v\n", err)
		}

		agent.RegisterTool(&advisor.ShowFindingsTool{Store: st})
		agent.RegisterTool(&advisor.CompareScansTool{Store: st})
		agent.RegisterTool(&advisor.PolicyVerdictTool{Store: st, Gate: gate})
		agent.RegisterTool(&advisor.ListRemediationsTool{Engine: remediationEng})

		agent.SetSystemPrompt(advisor.GetSystemPrompt())

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("\n---------------------------------------------------------")
		fmt.Println("secsweep Advisor Initialized. Ready for questions.")
		fmt.Println("Example: 'Summarize the latest scan'")
		fmt.Println("Example: 'What changed since scan a1b2c3?'")
		fmt.Println("Type 'quit' or 'exit' to stop.")
		fmt.Println("---------------------------------------------------------")

		for {
			fmt.Print("\n> ")
			if !scanner.Scan() {
				break
			}
			input := scanner.Text()
			if input == "quit" || input == "exit" {
				break
			}
			if input == "" {
				continue
			}

			resp, err := agent.Chat(ctx, input)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Printf("\n[Advisor]: %s\n", resp)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(adviseCmd)
}
