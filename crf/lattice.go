package crf

// node is one (position, label) cell of the lattice.
type node struct {
	alpha    float64
	beta     float64
	cost     float64
	bestCost float64
	prev     int // best previous label, -1 at position 0
}

// Lattice holds the nodes and transition costs of one sample. Nodes live in a
// flat arena indexed by position*NumLabels+label; the edge from
// (position-1, prev) to (position, label) is addressed arithmetically. A
// lattice only grows, so a worker reuses it across samples.
type Lattice struct {
	nodes []node
	edges []float64
	size  int // positions in use
}

// Grow makes room for at least n positions.
func (l *Lattice) Grow(n int) {
	if have := len(l.nodes) / NumLabels; have < n {
		l.nodes = append(l.nodes, make([]node, (n-have)*NumLabels)...)
		l.edges = append(l.edges, make([]float64, (n-have)*NumLabels*NumLabels)...)
	}
	l.size = n
}

// Cap returns the number of positions the lattice can hold without growing.
func (l *Lattice) Cap() int {
	return len(l.nodes) / NumLabels
}

// Len returns the number of positions of the current sample.
func (l *Lattice) Len() int {
	return l.size
}

func (l *Lattice) node(pos int, label Label) *node {
	return &l.nodes[pos*NumLabels+int(label)]
}

// edge returns the cost slot of the transition into (pos, label) from
// (pos-1, prev). Slots at position 0 exist but are never read.
func (l *Lattice) edge(pos int, prev, label Label) *float64 {
	return &l.edges[(pos*NumLabels+int(prev))*NumLabels+int(label)]
}

// NodeCost returns the unigram score of label at pos.
func (l *Lattice) NodeCost(pos int, label Label) float64 {
	return l.node(pos, label).cost
}

// EdgeCost returns the transition score from prev at pos-1 to label at pos.
func (l *Lattice) EdgeCost(pos int, prev, label Label) float64 {
	return *l.edge(pos, prev, label)
}
