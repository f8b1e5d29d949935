package crf

import "math"

// minusLogEpsilon is the gap (in nats) beyond which the smaller term of a
// log-sum-exp is dropped.
const minusLogEpsilon = 50

// LogSumExp returns log(exp(x)+exp(y)). With init set it returns y, which
// starts an accumulation. When the operands differ by more than 50 the larger
// one is returned unchanged.
func LogSumExp(x, y float64, init bool) float64 {
	if init {
		return y
	}
	vmin, vmax := math.Min(x, y), math.Max(x, y)
	if vmax > vmin+minusLogEpsilon {
		return vmax
	}
	return vmax + math.Log(math.Exp(vmin-vmax)+1.0)
}

// ForwardBackward fills alpha and beta of every node and returns the log
// partition value computed from the betas at position 0.
func (p *Predictor) ForwardBackward() float64 {
	l := &p.lattice
	n := l.Len()
	if n == 0 {
		p.z = 0
		return 0
	}

	for y := range Label(NumLabels) {
		nd := l.node(0, y)
		nd.alpha = nd.cost
	}
	for i := 1; i < n; i++ {
		for y := range Label(NumLabels) {
			alpha := 0.0
			for k := range Label(NumLabels) {
				alpha = LogSumExp(alpha, *l.edge(i, k, y)+l.node(i-1, k).alpha, k == 0)
			}
			nd := l.node(i, y)
			nd.alpha = alpha + nd.cost
		}
	}

	for y := range Label(NumLabels) {
		nd := l.node(n-1, y)
		nd.beta = nd.cost
	}
	for i := n - 2; i >= 0; i-- {
		for y := range Label(NumLabels) {
			beta := 0.0
			for k := range Label(NumLabels) {
				beta = LogSumExp(beta, *l.edge(i+1, y, k)+l.node(i+1, k).beta, k == 0)
			}
			nd := l.node(i, y)
			nd.beta = beta + nd.cost
		}
	}

	z := 0.0
	for y := range Label(NumLabels) {
		z = LogSumExp(z, l.node(0, y).beta, y == 0)
	}
	p.z = z
	return z
}

// ForwardLogZ returns the log partition value computed from the alphas at the
// last position. It agrees with the value returned by ForwardBackward up to
// rounding.
func (p *Predictor) ForwardLogZ() float64 {
	l := &p.lattice
	n := l.Len()
	if n == 0 {
		return 0
	}
	z := 0.0
	for y := range Label(NumLabels) {
		z = LogSumExp(z, l.node(n-1, y).alpha, y == 0)
	}
	return z
}

// Marginal returns P(y_pos = label | x) after ForwardBackward.
func (p *Predictor) Marginal(pos int, label Label) float64 {
	nd := p.lattice.node(pos, label)
	return math.Exp(nd.alpha + nd.beta - nd.cost - p.z)
}

// Expectation adds the model expectation of every active feature to
// expected.
func (p *Predictor) Expectation(expected []float64) {
	l := &p.lattice
	for i := range l.Len() {
		for y := range Label(NumLabels) {
			nd := l.node(i, y)
			c := math.Exp(nd.alpha + nd.beta - nd.cost - p.z)
			for _, base := range p.unigrams[i] {
				expected[UnigramIndex(base, y)] += c
			}

			if len(p.bigrams[i]) == 0 {
				continue
			}
			for k := range Label(NumLabels) {
				c := math.Exp(l.node(i-1, k).alpha + *l.edge(i, k, y) + nd.beta - p.z)
				for _, base := range p.bigrams[i] {
					expected[BigramIndex(base, k, y)] += c
				}
			}
		}
	}
}
