package crf

import "math"

// Viterbi finds the best label sequence over the built lattice and stores it
// as the current prediction. Ties keep the smallest label.
func (p *Predictor) Viterbi() []Label {
	l := &p.lattice
	n := l.Len()
	p.result = p.result[:0]
	if n == 0 {
		return p.result
	}

	for y := range Label(NumLabels) {
		nd := l.node(0, y)
		nd.prev = -1
		nd.bestCost = nd.cost
	}
	for i := 1; i < n; i++ {
		for y := range Label(NumLabels) {
			nd := l.node(i, y)
			bestCost := math.Inf(-1)
			best := -1
			for k := range Label(NumLabels) {
				cost := l.node(i-1, k).bestCost + *l.edge(i, k, y) + nd.cost
				if cost > bestCost {
					bestCost = cost
					best = int(k)
				}
			}
			nd.prev = best
			nd.bestCost = bestCost
		}
	}

	bestCost := math.Inf(-1)
	var last Label
	for y := range Label(NumLabels) {
		if bestCost < l.node(n-1, y).bestCost {
			bestCost = l.node(n-1, y).bestCost
			last = y
		}
	}
	p.bestCost = bestCost

	if cap(p.result) < n {
		p.result = make([]Label, n)
	}
	p.result = p.result[:n]
	y := last
	for i := n - 1; i >= 0; i-- {
		p.result[i] = y
		if prev := l.node(i, y).prev; prev >= 0 {
			y = Label(prev)
		}
	}
	return p.result
}

// BestCost returns the score of the last Viterbi path.
func (p *Predictor) BestCost() float64 {
	return p.bestCost
}

// PathCost sums the node and edge costs of labels over the built lattice.
func (p *Predictor) PathCost(labels []Label) float64 {
	l := &p.lattice
	s := 0.0
	for i, y := range labels {
		s += l.NodeCost(i, y)
		if i > 0 {
			s += l.EdgeCost(i, labels[i-1], y)
		}
	}
	return s
}
