package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/versusvoid/rikaikun"
	"github.com/versusvoid/rikaikun/crf"
)

func (c *CLI) newTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [<features> <weights>] <corpus>",
		Short: "Evaluate a trained model on a segmented corpus",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("accepts 1 or 3 arg(s), received %d", len(args))
			}
			return nil
		},
		Example: `  rikaikun-crf test features.bin model.bin test.txt
  rikaikun-crf test test.txt --paths-weights out/model.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			features, weights, corpusPath := c.cfg.Paths.Features, c.cfg.Paths.Weights, args[0]
			if len(args) == 3 {
				features, weights, corpusPath = args[0], args[1], args[2]
			}

			if _, err := os.Stat(c.cfg.Paths.Manifest); err == nil {
				if m, err := crf.LoadManifest(c.cfg.Paths.Manifest); err == nil {
					slog.Info("Model manifest", "features", m.NumFeatures, "samples", m.Samples,
						"iterations", m.Iterations, "objective", m.Objective, "converged", m.Converged)
				} else {
					slog.Warn("Cannot read manifest", "path", c.cfg.Paths.Manifest, "error", err)
				}
			}

			slog.Info("Testing model", "features", features, "weights", weights, "corpus", corpusPath)
			start := time.Now()
			result, err := rikaikun.Test(features, weights, corpusPath)
			if err != nil {
				return err
			}
			slog.Debug("Testing completed", "duration", time.Since(start))
			printEval(corpusPath, result)
			return nil
		},
	}
	return cmd
}
