package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/versusvoid/rikaikun"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <train-corpus> [test-corpus]",
		Short: "Train a model on a space-segmented corpus",
		Args:  cobra.RangeArgs(1, 2),
		Example: `  rikaikun-crf train train.txt test.txt
  rikaikun-crf train train.txt --train-threads 4 --train-c 2
  rikaikun-crf train train.txt --paths-weights out/model.bin -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trainPath, testPath := args[0], ""
			if len(args) == 2 {
				testPath = args[1]
			}

			config := &rikaikun.TrainConfig{
				Trainer:        c.cfg.Train.Trainer(),
				DropDuplicates: c.cfg.Train.DropDuplicates,
				FeaturesPath:   c.cfg.Paths.Features,
				WeightsPath:    c.cfg.Paths.Weights,
				ManifestPath:   c.cfg.Paths.Manifest,
			}
			slog.Info("Training model", "corpus", trainPath, "test", testPath, "threads", config.Trainer.Threads)
			start := time.Now()
			_, report, err := rikaikun.Train(trainPath, testPath, config)
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start),
				"iterations", len(report.Result.Iterations), "converged", report.Result.Converged)

			printEval(trainPath, report.Train)
			if testPath != "" {
				printEval(testPath, report.Test)
			}
			slog.Info("Model saved", "features", config.FeaturesPath, "weights", config.WeightsPath,
				"manifest", config.ManifestPath)
			return nil
		},
	}
	return cmd
}

func printEval(name string, r rikaikun.EvalResult) {
	fmt.Printf("%s:\n", name)
	fmt.Printf("%d samples, %d true first\n", r.Samples, r.TrueFirst)
	fmt.Printf("%8d %8d\n", r.TP, r.FP)
	fmt.Printf("%8d %8d\n", r.FN, r.TN)
	fmt.Printf("tfirst = %.5f, tlast = %.5f, recall = %.5f, precision = %.5f, F1 = %.5f\n",
		r.TrueFirstRatio(), r.TrueLastRatio(), r.Recall(), r.Precision(), r.F1())
}
