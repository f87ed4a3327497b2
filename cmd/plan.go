package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/engine"
)

const remediationTemplatesDir = "remediation_templates"

var planCmd = &cobra.Command{
	Use:   "plan [template-id]",
	Short: "Render a remediation plan from the YAML templates",
	Long: `Renders a step-by-step remediation plan. Without arguments the available
templates are listed. Template variables are filled with --var key=value.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng := engine.NewRemediationEngine()
		if err := eng.LoadTemplates(remediationTemplatesDir); err != nil {
			fmt.Printf("Error loading remediation templates: %v\n", err)
			return
		}

		if len(args) == 0 {
			list := eng.ListTemplates()
			if len(list) == 0 {
				fmt.Println("No remediation templates found.")
				return
			}
			fmt.Println("Available remediation templates:")
			for _, line := range list {
				fmt.Printf("  %s\n", line)
			}
			return
		}

		varFlags, _ := cmd.Flags().GetStringSlice("var")
		vars := make(map[string]string, len(varFlags))
		for _, v := range varFlags {
			key, value, ok := strings.Cut(v, "=")
			if !ok {
				fmt.Printf("Error: invalid --var %q (expected key=value)\n", v)
				return
			}
			vars[key] = value
		}

		plan, err := eng.GeneratePlan(args[0], vars)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println(plan)
	},
}

func init() {
	planCmd.Flags().StringSlice("var", nil, "Template variable as key=value (repeatable)")
	rootCmd.AddCommand(planCmd)
}
