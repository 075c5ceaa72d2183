package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/slipway/src/build"
	"github.com/sofmeright/slipway/src/publish"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Reclaim dangling intermediate build images",
	Long: `Remove the untagged intermediate images left behind by discarded
builder stages. Reclamation only affects disk usage; nothing tagged is
touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bx := build.NewBuildx(verbose)
		pub := &publish.Publisher{BX: bx}

		report, err := pub.Prune(context.Background())
		if err != nil {
			return err
		}
		if report == "" {
			report = "nothing to reclaim"
		}
		fmt.Println(report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
