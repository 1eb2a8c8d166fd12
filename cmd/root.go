package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/detreview/internal/config"
)

type rootOptions struct {
	configFile string
	verbose    bool
	cfg        *config.Config
}

func (o *rootOptions) config() *config.Config {
	return o.cfg
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "detreview",
		Short: "Score object detections against ground-truth annotations",
		Long: `detreview compares detector output with labelled ground truth.

Ground truth can be YOLO .txt, Pascal VOC .xml or COCO .json. Detections are
matched greedily by confidence at an IoU threshold and scored as TP/FP/FN with
precision, recall and F1. Use it for one drawing (compare), over HTTP (serve)
or for a whole dataset (eval).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(config.New(), opts.configFile)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.cfg = cfg

			level := cfg.SlogLevel()
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newCompareCmd(opts.config))
	cmd.AddCommand(newServeCmd(opts.config))
	cmd.AddCommand(newEvalCmd(opts.config))

	return cmd
}
