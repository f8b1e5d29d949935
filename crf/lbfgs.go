package crf

import "math"

// Optimizer advances a weight vector given the objective and its gradient at
// the current point. It is called once per training iteration and updates x in
// place to the next point to evaluate. A non-positive status means the
// optimizer cannot make progress and training must stop.
type Optimizer interface {
	Optimize(x []float64, f float64, g []float64) int
}

const (
	armijo        = 1e-4
	maxLineSearch = 20
)

// OWLQN is an L-BFGS optimizer with orthant-wise handling of an L1 term. The
// objective passed to Optimize must already include the L1 term while the
// gradient covers only the smooth part. The backtracking line search runs
// across calls: each call either accepts the point it is given or proposes a
// shorter step.
type OWLQN struct {
	n   int
	l1  float64
	mem *lbfgs

	searching bool
	trials    int
	step      float64
	f0        float64
	x0        []float64
	g0        []float64
	pg0       []float64
	pg        []float64
	dir       []float64
	s         []float64
	y         []float64
}

// NewOWLQN creates an optimizer for n variables keeping memory correction
// pairs. l1 is the coefficient of the L1 term, zero for smooth objectives.
func NewOWLQN(n, memory int, l1 float64) *OWLQN {
	return &OWLQN{
		n:   n,
		l1:  l1,
		mem: newLBFGS(n, memory),
		x0:  make([]float64, n),
		g0:  make([]float64, n),
		pg0: make([]float64, n),
		pg:  make([]float64, n),
		dir: make([]float64, n),
		s:   make([]float64, n),
		y:   make([]float64, n),
	}
}

// Optimize implements Optimizer. It returns 1 after moving x and -1 when the
// line search fails to find a sufficient decrease.
func (o *OWLQN) Optimize(x []float64, f float64, g []float64) int {
	o.pseudoGradient(x, g, o.pg)

	if o.searching {
		// Armijo condition on the projected step actually taken.
		decrease := 0.0
		for i := range o.n {
			decrease += (x[i] - o.x0[i]) * o.pg0[i]
		}
		if f > o.f0+armijo*decrease {
			o.trials++
			if o.trials >= maxLineSearch {
				return -1
			}
			o.step *= 0.5
			o.take(x)
			return 1
		}
		for i := range o.n {
			o.s[i] = x[i] - o.x0[i]
			o.y[i] = g[i] - o.g0[i]
		}
		o.mem.update(o.s, o.y)
		o.searching = false
	}

	if dot(o.pg, o.pg) == 0 {
		return 1
	}

	o.mem.computeDirection(o.pg, o.dir)
	if o.l1 > 0 {
		// Constrain direction to the orthant of the negative pseudo-gradient.
		for i := range o.n {
			if o.dir[i]*o.pg[i] >= 0 {
				o.dir[i] = 0
			}
		}
	}
	if dot(o.dir, o.pg) >= 0 {
		o.mem.reset()
		for i := range o.n {
			o.dir[i] = -o.pg[i]
		}
	}

	copy(o.x0, x)
	copy(o.g0, g)
	copy(o.pg0, o.pg)
	o.f0 = f
	o.step = 1.0
	if o.mem.size == 0 {
		o.step = 1.0 / math.Sqrt(dot(o.dir, o.dir))
	}
	o.trials = 0
	o.searching = true
	o.take(x)
	return 1
}

// take moves x to x0 + step*dir, projected onto the orthant of x0.
func (o *OWLQN) take(x []float64) {
	for i := range o.n {
		x[i] = o.x0[i] + o.step*o.dir[i]
	}
	if o.l1 == 0 {
		return
	}
	for i := range o.n {
		orthant := o.x0[i]
		if orthant == 0 {
			orthant = -o.pg0[i]
		}
		if x[i]*orthant <= 0 {
			x[i] = 0
		}
	}
}

func (o *OWLQN) pseudoGradient(x, g, pg []float64) {
	if o.l1 == 0 {
		copy(pg, g)
		return
	}
	c := o.l1
	for i := range o.n {
		switch {
		case x[i] > 0:
			pg[i] = g[i] + c
		case x[i] < 0:
			pg[i] = g[i] - c
		case g[i]+c < 0:
			pg[i] = g[i] + c
		case g[i]-c > 0:
			pg[i] = g[i] - c
		default:
			pg[i] = 0
		}
	}
}

// lbfgs implements the L-BFGS two-loop recursion.
type lbfgs struct {
	n     int // number of variables
	m     int // memory size
	s     [][]float64
	y     [][]float64
	rho   []float64
	alpha []float64
	k     int
	size  int
}

func newLBFGS(n, m int) *lbfgs {
	return &lbfgs{
		n:     n,
		m:     m,
		s:     make([][]float64, m),
		y:     make([][]float64, m),
		rho:   make([]float64, m),
		alpha: make([]float64, m),
	}
}

func (l *lbfgs) reset() {
	l.k = 0
	l.size = 0
}

func (l *lbfgs) update(s, y []float64) {
	sy := dot(s, y)
	if sy <= 0 {
		return
	}
	idx := l.k % l.m
	if l.s[idx] == nil {
		l.s[idx] = make([]float64, l.n)
		l.y[idx] = make([]float64, l.n)
	}
	copy(l.s[idx], s)
	copy(l.y[idx], y)
	l.rho[idx] = 1.0 / sy
	l.k++
	if l.size < l.m {
		l.size++
	}
}

// computeDirection writes the quasi-Newton descent direction for gradient pg
// into q.
func (l *lbfgs) computeDirection(pg, q []float64) {
	copy(q, pg)

	if l.size > 0 {
		// First loop, newest pair first.
		for i := l.size - 1; i >= 0; i-- {
			idx := (l.k - l.size + i) % l.m
			l.alpha[i] = l.rho[idx] * dot(l.s[idx], q)
			for j := range l.n {
				q[j] -= l.alpha[i] * l.y[idx][j]
			}
		}

		// Scale by H_0 = (s_k^T y_k) / (y_k^T y_k)
		latest := (l.k - 1) % l.m
		if yy := dot(l.y[latest], l.y[latest]); yy > 0 {
			gamma := dot(l.s[latest], l.y[latest]) / yy
			for j := range q {
				q[j] *= gamma
			}
		}

		// Second loop, oldest pair first.
		for i := range l.size {
			idx := (l.k - l.size + i) % l.m
			beta := l.rho[idx] * dot(l.y[idx], q)
			for j := range l.n {
				q[j] += (l.alpha[i] - beta) * l.s[idx][j]
			}
		}
	}

	// Negate for descent direction
	for j := range q {
		q[j] = -q[j]
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
