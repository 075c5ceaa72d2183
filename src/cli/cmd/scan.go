package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/slipway/src/output"
	"github.com/sofmeright/slipway/src/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Scan the build context for leaked secrets",
	Long: `Sweep the build context for credentials that would otherwise be
baked into build layers. Exits non-zero when anything is found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		if len(args) > 0 {
			rootDir = args[0]
		}

		start := time.Now()
		scanner := &scan.Scanner{Root: rootDir, Cfg: cfg.Scan}
		files, err := scanner.Collect()
		if err != nil {
			return fmt.Errorf("collecting context files: %w", err)
		}
		findings, err := scanner.Run(context.Background(), files)
		if err != nil {
			return fmt.Errorf("scanning context: %w", err)
		}
		elapsed := time.Since(start)

		if output.IsCI() {
			if jErr := output.WriteScanJUnit(".slipway/reports", findings, files, elapsed); jErr != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to write junit report: %v\n", jErr)
			}
		}

		p := output.NewPrinter()
		p.Print(findings)
		p.Summary(len(findings), len(files))

		if len(findings) > 0 {
			return fmt.Errorf("%d secret finding(s) in build context", len(findings))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
