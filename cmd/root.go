package cmd

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/user/secsweep/pkg/config"
	"github.com/user/secsweep/pkg/ext"
	"github.com/user/secsweep/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "secsweep",
	Short: "Containerized security scanning with unified findings and policy gating",
	Long: `secsweep orchestrates security scanners (Checkov, Trivy, Grype, TruffleHog,
ClamAV, Xeol, SonarQube) as Docker containers against a target directory,
deduplicates their findings into one report, stores every scan for diffing,
and gates pass/fail with a Rego policy.`,
}

var DebugMode bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if DebugMode {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func openStore(cfg *config.Config, log zerolog.Logger) *store.Store {
	return store.New(cfg.ReportsDir, ext.NewSystemClock(), ext.NewUUIDGenerator(), log)
}

func complianceLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.ReportsDir, "compliance-log.csv")
}
