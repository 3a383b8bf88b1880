package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hoangtm-lab/r2s-detect/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.SugaredLogger
	cfg     *config.Config

	// configWarnings carries unknown-config-key notices into each command's
	// diagnostics.
	configWarnings []string

	// exitCode is set by commands that complete without a usage error but
	// whose outcome must reach CI: 1 vulnerable, 3 inconclusive.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "r2s-detect",
	Short: "Detect React2Shell (CVE-2025-55182) vulnerable packages in local projects",
	Long: `r2s-detect checks dependency manifests, lock files, and installed package
trees for React server-rendering packages affected by CVE-2025-55182, and can
run a passive, read-only probe against a deployed URL to flag likely React
usage for manual follow-up.

Defensive use only: no exploitation, no remediation, no authenticated scans.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".r2s-detect")
			viper.SetConfigType("yaml")
		}
		_ = viper.ReadInConfig()

		if err := config.BindFlags(viper.GetViper(), cmd.Flags()); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}

		var unknown []string
		cfg, unknown = config.Load(viper.GetViper())
		configWarnings = configWarnings[:0]
		for _, key := range unknown {
			configWarnings = append(configWarnings, fmt.Sprintf("unrecognized config key %q ignored", key))
		}

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l.Sugar()

		for _, w := range configWarnings {
			logger.Warn(w)
		}
		return nil
	},
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zcfg.Build()
}

// Execute runs the CLI. Exit codes: 0 safe, 1 vulnerable, 2 validation or
// usage error, 3 inconclusive probe.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorError("Error:"), err)
		os.Exit(2)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.r2s-detect.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}
