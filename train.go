package rikaikun

import (
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/versusvoid/rikaikun/crf"
	"github.com/versusvoid/rikaikun/internal/corpus"
)

// TrainConfig holds configuration for training.
type TrainConfig struct {
	Trainer        crf.TrainerConfig
	DropDuplicates bool

	// Output files; an empty path is not written.
	FeaturesPath string
	WeightsPath  string
	ManifestPath string

	Optimizer crf.Optimizer // nil selects OWL-QN
}

// DefaultTrainConfig returns the settings the shipped model is trained with.
func DefaultTrainConfig() *TrainConfig {
	return &TrainConfig{
		Trainer:      crf.DefaultTrainerConfig(),
		FeaturesPath: FeaturesFile,
		WeightsPath:  WeightsFile,
		ManifestPath: ManifestFile,
	}
}

// TrainReport describes a training run.
type TrainReport struct {
	Result   *crf.TrainResult
	Manifest crf.Manifest
	Train    EvalResult
	Test     EvalResult
}

// Train builds a feature index from the training corpus, fits the weights,
// evaluates the model on both corpora and writes the model files. testPath
// may be empty. Nothing is written when training fails.
func Train(trainPath, testPath string, config *TrainConfig) (*Segmenter, *TrainReport, error) {
	if config == nil {
		config = DefaultTrainConfig()
	}

	opts := corpus.DefaultReadOptions()
	opts.DropDuplicates = config.DropDuplicates
	samples, err := corpus.New(trainPath).Samples(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("rikaikun: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("rikaikun: no samples in %s", trainPath)
	}

	index := crf.BuildFeatureIndex(samples, config.Trainer.MinFeatureCount)
	slog.Info("Built feature index", "keys", index.Len(), "features", index.NumFeatures())

	weights := make([]float64, index.NumFeatures())
	result, err := crf.Train(samples, index, weights, config.Trainer, config.Optimizer)
	report := &TrainReport{Result: result}
	if err != nil {
		return nil, report, fmt.Errorf("rikaikun: %w", err)
	}

	model := &crf.Model{Index: index, Weights: weights}
	report.Manifest = crf.NewManifest(index, len(samples), config.Trainer, result)
	report.Train = EvaluateSamples(model, samples, config.Trainer.Threads)
	slog.Info("Evaluated", "corpus", trainPath, "result", report.Train.String())
	if testPath != "" {
		report.Test, err = EvaluateCorpus(model, testPath)
		if err != nil {
			return nil, report, err
		}
		slog.Info("Evaluated", "corpus", testPath, "result", report.Test.String())
	}

	if config.FeaturesPath != "" && config.WeightsPath != "" {
		if err := crf.SaveModel(model, config.FeaturesPath, config.WeightsPath); err != nil {
			return nil, report, fmt.Errorf("rikaikun: %w", err)
		}
	}
	if config.ManifestPath != "" {
		if err := crf.SaveManifest(report.Manifest, config.ManifestPath); err != nil {
			return nil, report, fmt.Errorf("rikaikun: write manifest: %w", err)
		}
	}

	return NewSegmenter(model, nil), report, nil
}

// Test loads a saved model and evaluates it on a corpus.
func Test(featuresPath, weightsPath, corpusPath string) (EvalResult, error) {
	model, err := crf.LoadModel(featuresPath, weightsPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("rikaikun: %w", err)
	}
	return EvaluateCorpus(model, corpusPath)
}

// EvaluateSamples scores the model's predictions on tagged samples. Samples
// are split i mod threads across workers, each with its own predictor, and
// the shard results are merged in shard order.
func EvaluateSamples(model *crf.Model, samples []crf.Sample, threads int) EvalResult {
	threads = max(1, min(threads, len(samples)))
	results := make([]EvalResult, threads)
	var wg conc.WaitGroup
	for t := range threads {
		wg.Go(func() {
			pred := model.NewPredictor()
			for i := t; i < len(samples); i += threads {
				results[t].Add(samples[i], pred.Predict(samples[i]))
			}
		})
	}
	wg.Wait()

	var r EvalResult
	for _, sr := range results {
		r.Merge(sr)
	}
	return r
}

// EvaluateCorpus scores the model on a corpus file without holding it in
// memory.
func EvaluateCorpus(model *crf.Model, path string) (EvalResult, error) {
	var r EvalResult
	pred := model.NewPredictor()
	err := corpus.New(path).Each(corpus.ReadOptions{ProgressEvery: 500000}, func(_ int, s crf.Sample) error {
		r.Add(s, pred.Predict(s))
		return nil
	})
	if err != nil {
		return r, fmt.Errorf("rikaikun: %w", err)
	}
	return r, nil
}
