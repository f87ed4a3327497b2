package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/config"
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "List stored scans",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		st := openStore(cfg, newLogger())

		entries, err := st.List()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(entries) == 0 {
			fmt.Println("No scans stored yet. Run 'secsweep scan <dir>' first.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tTARGET\tFINGERPRINT\tFINDINGS\tSTATUS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				e.ID[:8],
				e.CreatedAt.Format("2006-01-02 15:04"),
				e.Target,
				shortHash(e.Fingerprint),
				e.TotalFindings,
				e.Overall)
		}
		w.Flush()
	},
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	rootCmd.AddCommand(scansCmd)
}
