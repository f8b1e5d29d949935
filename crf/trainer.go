package crf

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/sourcegraph/conc"
)

// ErrOptimizer is returned when the optimizer reports a non-positive status.
var ErrOptimizer = errors.New("crf: optimizer failed")

// TrainerConfig holds CRF training hyperparameters.
type TrainerConfig struct {
	C               float64 `yaml:"c"`   // regularization strength, larger means weaker
	Eta             float64 `yaml:"eta"` // relative objective change counted as converged
	MaxIterations   int     `yaml:"max_iterations"`
	Threads         int     `yaml:"threads"`
	L1              bool    `yaml:"l1"` // orthant-wise L1 instead of L2
	MinFeatureCount int     `yaml:"min_feature_count"`
	Memory          int     `yaml:"memory"` // L-BFGS correction pairs
}

// DefaultTrainerConfig returns the settings the shipped model is trained with.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		C:               1.0,
		Eta:             1e-4,
		MaxIterations:   100000,
		Threads:         8,
		L1:              true,
		MinFeatureCount: DefaultMinFeatureCount,
		Memory:          5,
	}
}

// IterationStats describes one training iteration.
type IterationStats struct {
	Iteration      int
	Objective      float64
	Diff           float64
	TagError       float64 // fraction of mislabelled positions
	SentenceError  float64 // fraction of samples with any error
	NonzeroWeights int
}

// TrainResult summarizes a training run.
type TrainResult struct {
	Iterations []IterationStats
	Converged  bool
}

// Objective returns the objective of the last iteration.
func (r *TrainResult) Objective() float64 {
	if len(r.Iterations) == 0 {
		return math.NaN()
	}
	return r.Iterations[len(r.Iterations)-1].Objective
}

// shard owns the samples i with i mod threads == index, a predictor and a
// private expectation buffer.
type shard struct {
	index    int
	threads  int
	samples  []Sample
	expected []float64
	pred     *Predictor

	obj     float64
	err     int
	zeroOne int
}

func (s *shard) run() {
	s.obj = 0
	s.err = 0
	s.zeroOne = 0
	clear(s.expected)
	for i := s.index; i < len(s.samples); i += s.threads {
		s.obj += s.pred.Gradient(s.samples[i], s.expected)
		n := s.pred.Eval(s.samples[i])
		s.err += n
		if n > 0 {
			s.zeroOne++
		}
	}
}

// Train fits weights to samples in place. weights must have
// index.NumFeatures() entries; a nil optimizer selects OWL-QN. On failure the
// weights are left at the last point evaluated and must not be persisted.
func Train(samples []Sample, index *FeatureIndex, weights []float64, config TrainerConfig, opt Optimizer) (*TrainResult, error) {
	n := index.NumFeatures()
	if len(weights) != n {
		return nil, fmt.Errorf("crf: %d weights for %d features", len(weights), n)
	}
	if config.C <= 0 {
		return nil, fmt.Errorf("crf: regularization C must be positive, got %v", config.C)
	}
	threads := max(1, config.Threads)
	if opt == nil {
		l1 := 0.0
		if config.L1 {
			l1 = 1.0 / config.C
		}
		opt = NewOWLQN(n, max(1, config.Memory), l1)
	}

	shards := make([]*shard, threads)
	for i := range shards {
		shards[i] = &shard{
			index:    i,
			threads:  threads,
			samples:  samples,
			expected: make([]float64, n),
			pred:     NewPredictor(index.Lookup, weights),
		}
	}

	numLabels := 0
	for _, s := range samples {
		numLabels += len(s)
	}

	result := &TrainResult{}
	oldObj := 1e37
	converge := 0

	for itr := 0; itr < config.MaxIterations; itr++ {
		var wg conc.WaitGroup
		for _, s := range shards {
			wg.Go(s.run)
		}
		wg.Wait()

		// Reduce in shard order so results do not depend on scheduling.
		total := shards[0]
		for _, s := range shards[1:] {
			total.obj += s.obj
			total.err += s.err
			total.zeroOne += s.zeroOne
			for k := range total.expected {
				total.expected[k] += s.expected[k]
			}
		}

		nonzero := 0
		if config.L1 {
			for _, w := range weights {
				total.obj += math.Abs(w / config.C)
				if w != 0 {
					nonzero++
				}
			}
		} else {
			nonzero = n
			for k, w := range weights {
				total.obj += w * w / (2.0 * config.C)
				total.expected[k] += w / config.C
			}
		}

		diff := 1.0
		if itr > 0 {
			diff = math.Abs(oldObj-total.obj) / oldObj
		}
		stats := IterationStats{
			Iteration:      itr,
			Objective:      total.obj,
			Diff:           diff,
			TagError:       float64(total.err) / float64(numLabels),
			SentenceError:  float64(total.zeroOne) / float64(len(samples)),
			NonzeroWeights: nonzero,
		}
		result.Iterations = append(result.Iterations, stats)
		slog.Info("CRF training iteration",
			"iter", itr,
			"tag_error", stats.TagError,
			"sentence_error", stats.SentenceError,
			"nonzero", nonzero,
			"obj", stats.Objective,
			"diff", diff)
		oldObj = total.obj

		if diff < config.Eta {
			converge++
		} else {
			converge = 0
		}

		if itr > config.MaxIterations || converge == 3 {
			result.Converged = converge == 3
			break
		}

		if status := opt.Optimize(weights, total.obj, total.expected); status <= 0 {
			return result, fmt.Errorf("%w: status %d at iteration %d", ErrOptimizer, status, itr)
		}
	}

	return result, nil
}
