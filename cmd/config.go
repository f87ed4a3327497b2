package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/advisor"
	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/scanners"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (scanners, providers, models, keys)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Manually set API key for a provider",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			fmt.Println("Error: --provider and --key are required")
			return
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		cfg.SetAPIKey(strings.ToLower(provider), key)
		if err := config.SaveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("API key saved for provider: %s\n", provider)
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Manually set the active provider and model",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		if provider != "" {
			cfg.Provider = strings.ToLower(provider)
		}
		if model != "" {
			cfg.Model = model
		}

		if err := config.SaveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("Active configuration updated: Provider=%s, Model=%s\n", cfg.Provider, cfg.Model)
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models from the configured provider",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Println("Error loading config:", err)
			return
		}

		provider := cfg.Provider
		if provider == "" {
			fmt.Println("No provider selected. Please run 'secsweep config setup'.")
			return
		}
		apiKey := cfg.GetAPIKey(provider)
		if apiKey == "" {
			fmt.Printf("No API key found for %s.\n", provider)
			return
		}

		fmt.Printf("Fetching models for %s...\n", provider)
		ctx := context.Background()
		p, err := advisor.NewProvider(ctx, provider, apiKey, "")
		if err != nil {
			fmt.Println("Error initializing provider:", err)
			return
		}

		models, err := p.ListModels(ctx)
		if err != nil {
			fmt.Println("Error fetching models:", err)
			return
		}

		fmt.Printf("\nAvailable Models (%s):\n", provider)
		for _, m := range models {
			mark := " "
			if m == cfg.Model {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, m)
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change scanner and scheduler defaults",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
			cfg.Concurrency = v
		}
		if v, _ := cmd.Flags().GetString("reports-dir"); v != "" {
			cfg.ReportsDir = v
		}
		if v, _ := cmd.Flags().GetString("fail-on"); v != "" {
			cfg.FailOn = v
		}
		if v, _ := cmd.Flags().GetString("scan-timeout"); v != "" {
			cfg.ScanTimeout = v
		}
		if v, _ := cmd.Flags().GetString("sonar-host"); v != "" {
			cfg.Sonar.HostURL = v
		}
		if v, _ := cmd.Flags().GetString("sonar-token"); v != "" {
			cfg.Sonar.Token = v
		}
		if v, _ := cmd.Flags().GetString("sonar-project"); v != "" {
			cfg.Sonar.ProjectKey = v
		}

		name, _ := cmd.Flags().GetString("scanner")
		if name != "" {
			name = strings.ToLower(name)
			if !containsName(scanners.Names(), name) {
				fmt.Printf("Error: unknown scanner %q (known: %s)\n", name, strings.Join(scanners.Names(), ", "))
				return
			}
			sc := cfg.Scanners[name]
			if cmd.Flags().Changed("disable") {
				sc.Disabled, _ = cmd.Flags().GetBool("disable")
			}
			if v, _ := cmd.Flags().GetString("image"); v != "" {
				sc.Image = v
			}
			if v, _ := cmd.Flags().GetString("timeout"); v != "" {
				sc.Timeout = v
			}
			cfg.Scanners[name] = sc
		}

		if err := config.SaveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Println("Configuration updated.")
	},
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func init() {
	setKeyCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setKeyCmd.Flags().StringP("key", "k", "", "API key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configSetCmd.Flags().Int("concurrency", 0, "Max scanners running at once")
	configSetCmd.Flags().String("reports-dir", "", "Directory for the scan store and compliance log")
	configSetCmd.Flags().String("fail-on", "", "Default severity threshold for failing scans")
	configSetCmd.Flags().String("scan-timeout", "", "Default per-scanner timeout, e.g. 10m")
	configSetCmd.Flags().String("sonar-host", "", "SonarQube server URL")
	configSetCmd.Flags().String("sonar-token", "", "SonarQube API token")
	configSetCmd.Flags().String("sonar-project", "", "SonarQube project key")
	configSetCmd.Flags().String("scanner", "", "Scanner to configure (checkov, trivy, grype, trufflehog, clamav, xeol, sonarqube)")
	configSetCmd.Flags().Bool("disable", false, "Disable the selected scanner")
	configSetCmd.Flags().String("image", "", "Container image override for the selected scanner")
	configSetCmd.Flags().String("timeout", "", "Timeout override for the selected scanner")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(listModelsCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
