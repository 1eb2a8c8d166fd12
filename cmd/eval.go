package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/detreview/internal/evalcmd"
)

func newEvalCmd(cfg evalcmd.ConfigFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Batch evaluation tools",
		Long: `Evaluation tools for scoring a detector over a labelled dataset.

A dataset is described by a manifest listing each drawing's size, ground-truth
file and detections file. Runs produce per-drawing scores, micro and macro
totals and per-class breakdowns.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewRunCmd(cfg))
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())

	return cmd
}
