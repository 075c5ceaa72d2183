package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/slipway/src/config"
	"github.com/sofmeright/slipway/src/logs"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "slipway",
	Short: "Reproducible container release pipeline",
	Long:  "Slipway — provision, compile, and package a release binary into a minimal container image with a deterministic identity tag.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if level := os.Getenv("SLIPWAY_LOG_LEVEL"); level != "" {
			logs.SetLevel(level)
		}
		if verbose {
			logs.SetVerbose(true)
		}
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .slipway.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
