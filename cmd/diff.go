package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/store"
)

var diffCmd = &cobra.Command{
	Use:   "diff <baseline-id> [scan-id]",
	Short: "Compare a scan against a baseline: NEW, FIXED and UNCHANGED findings",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		st := openStore(cfg, newLogger())

		baseline, err := st.Resolve(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		var current store.Entry
		if len(args) == 2 {
			current, err = st.Resolve(args[1])
		} else {
			current, err = st.Latest()
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if current.ID == baseline.ID {
			fmt.Println("Error: baseline and current scan are the same")
			return
		}

		diff, err := st.Diff(baseline.ID, current.ID)
		if err != nil {
			fmt.Printf("Error comparing scans: %v\n", err)
			return
		}
		if baseline.Fingerprint == current.Fingerprint {
			fmt.Println("Note: both scans cover an identical target tree.")
		}
		fmt.Print(diff.Render(baseline.ID[:8], current.ID[:8]))
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
