package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/report"
	"github.com/user/secsweep/pkg/store"
)

var reportCmd = &cobra.Command{
	Use:   "report [scan-id]",
	Short: "Render a Markdown summary or HTML dashboard for a stored scan",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		st := openStore(cfg, newLogger())

		entry, err := resolveScan(st, args)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		summary, err := st.Summary(entry.ID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		meta, err := st.Meta(entry.ID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

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
		case "markdown", "md":
			set, err := st.Findings(entry.ID)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				return
			}
			err = report.WriteMarkdown(w, summary, set.All(), meta.CreatedAt)
			if err != nil {
				fmt.Printf("Error rendering report: %v\n", err)
				return
			}
		case "html":
			if err := report.WriteHTML(w, summary, meta.CreatedAt); err != nil {
				fmt.Printf("Error rendering dashboard: %v\n", err)
				return
			}
		default:
			fmt.Printf("Error: unknown format %q (expected markdown or html)\n", format)
			return
		}

		if output != "" {
			fmt.Printf("Report written to %s\n", output)
		}
	},
}

// resolveScan picks the scan from the optional id argument, defaulting to the
// most recent one.
func resolveScan(st *store.Store, args []string) (store.Entry, error) {
	if len(args) == 0 {
		return st.Latest()
	}
	return st.Resolve(args[0])
}

func init() {
	reportCmd.Flags().StringP("format", "f", "markdown", "Report format: markdown or html")
	reportCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
