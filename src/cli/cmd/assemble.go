package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/slipway/src/assemble"
	"github.com/sofmeright/slipway/src/meta"
)

var asmOutput string

var assembleCmd = &cobra.Command{
	Use:   "assemble [dir]",
	Short: "Generate the two-stage Dockerfile",
	Long: `Render the two-stage Dockerfile for the package at dir (default
current directory), verify its stage isolation, and print it to stdout
or write it with --output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		if len(args) > 0 {
			rootDir = args[0]
		}

		manifest, err := meta.LoadManifest(rootDir)
		if err != nil {
			return err
		}

		content, err := assemble.Generate(assemble.Input{
			Image:       cfg.Image,
			Toolchain:   cfg.Toolchain,
			Mirrors:     cfg.Mirrors,
			PackageName: manifest.Package.Name,
		})
		if err != nil {
			return err
		}

		df, err := assemble.Parse(strings.NewReader(content))
		if err != nil {
			return fmt.Errorf("parsing generated dockerfile: %w", err)
		}
		if err := assemble.VerifyStageIsolation(df); err != nil {
			return err
		}

		if asmOutput != "" {
			return os.WriteFile(asmOutput, []byte(content), 0o644)
		}
		fmt.Print(content)
		return nil
	},
}

func init() {
	assembleCmd.Flags().StringVarP(&asmOutput, "output", "o", "", "write the Dockerfile to a file instead of stdout")
	rootCmd.AddCommand(assembleCmd)
}
