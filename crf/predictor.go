package crf

// Predictor scores samples against a weight vector. It owns its lattice and
// feature buffers and must not be shared between goroutines.
type Predictor struct {
	lookup  FeatureFunc
	weights []float64

	templater Templater
	unigrams  [][]int
	bigrams   [][]int
	lattice   Lattice

	z        float64
	bestCost float64
	result   []Label
}

// NewPredictor creates a predictor over weights. The slice is read on every
// Build, so updates made between calls are picked up.
func NewPredictor(lookup FeatureFunc, weights []float64) *Predictor {
	return &Predictor{lookup: lookup, weights: weights}
}

// Build extracts the features of sample, grows the lattice if needed and
// recomputes every node and edge cost from the weights.
func (p *Predictor) Build(sample Sample) {
	p.unigrams, p.bigrams = p.templater.Extract(sample, p.lookup)
	l := &p.lattice
	l.Grow(len(sample))

	for i := range sample {
		for y := range Label(NumLabels) {
			cost := 0.0
			for _, base := range p.unigrams[i] {
				cost += p.weights[UnigramIndex(base, y)]
			}
			l.node(i, y).cost = cost

			if i == 0 {
				continue
			}
			for k := range Label(NumLabels) {
				cost := 0.0
				for _, base := range p.bigrams[i] {
					cost += p.weights[BigramIndex(base, k, y)]
				}
				*l.edge(i, k, y) = cost
			}
		}
	}
}

// Gradient adds the expected minus observed feature counts of sample to
// expected and returns the sample's negative log-likelihood. The Viterbi path
// is kept for Eval.
func (p *Predictor) Gradient(sample Sample, expected []float64) float64 {
	if len(sample) == 0 {
		return 0
	}

	p.Build(sample)
	p.Viterbi()
	p.ForwardBackward()
	p.Expectation(expected)

	l := &p.lattice
	s := 0.0
	for i, sym := range sample {
		y := sym.Tag
		for _, base := range p.unigrams[i] {
			expected[UnigramIndex(base, y)]--
		}
		s += l.node(i, y).cost

		if i == 0 {
			continue
		}
		prev := sample[i-1].Tag
		for _, base := range p.bigrams[i] {
			expected[BigramIndex(base, prev, y)]--
		}
		s += *l.edge(i, prev, y)
	}
	return p.z - s
}

// Predict returns the best label sequence for sample. The returned slice is
// reused by the next call.
func (p *Predictor) Predict(sample Sample) []Label {
	if len(sample) == 0 {
		p.result = p.result[:0]
		p.lattice.size = 0
		return p.result
	}
	p.Build(sample)
	return p.Viterbi()
}

// Eval counts the positions where the last prediction differs from the gold
// tags of sample.
func (p *Predictor) Eval(sample Sample) int {
	errs := 0
	for i, sym := range sample {
		if i >= len(p.result) || p.result[i] != sym.Tag {
			errs++
		}
	}
	return errs
}

// Z returns the log partition value of the last ForwardBackward.
func (p *Predictor) Z() float64 {
	return p.z
}

// Lattice exposes the lattice of the last built sample.
func (p *Predictor) Lattice() *Lattice {
	return &p.lattice
}
