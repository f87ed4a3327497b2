package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/compliance"
	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/ext"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print or export the append-only compliance log",
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		auditLog := compliance.NewLog(complianceLogPath(cfg), ext.NewSystemClock())

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				fmt.Printf("Error creating output file: %v\n", err)
				return
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "csv":
			err = auditLog.WriteCSV(w)
		case "json":
			err = auditLog.WriteJSON(w)
		default:
			fmt.Printf("Error: unknown format %q (expected csv or json)\n", format)
			return
		}
		if err != nil {
			fmt.Printf("Error exporting compliance log: %v\n", err)
			return
		}
		if output != "" {
			fmt.Printf("Compliance log written to %s\n", output)
		}
	},
}

func init() {
	auditCmd.Flags().StringP("format", "f", "csv", "Export format: csv or json")
	auditCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(auditCmd)
}
