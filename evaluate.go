package rikaikun

import (
	"fmt"

	"github.com/versusvoid/rikaikun/crf"
)

// EvalResult holds word-start metrics over a corpus. A position counts as
// positive when its label says it starts a word.
type EvalResult struct {
	Samples   int
	TP        int
	FP        int
	FN        int
	TN        int
	TrueFirst int // samples whose first predicted-or-gold start was a true positive, or with none
	TrueLast  int // samples whose last start decision was correct
}

// Add scores one prediction against the gold tags of sample.
func (r *EvalResult) Add(sample crf.Sample, predicted []crf.Label) {
	firstStart := true
	trueLast := true
	for i, sym := range sample {
		gold := sym.Tag.StartsWord()
		pred := i < len(predicted) && predicted[i].StartsWord()
		switch {
		case !gold && !pred:
			r.TN++
		case gold && pred:
			r.TP++
			if firstStart {
				r.TrueFirst++
			}
			firstStart = false
			trueLast = true
		case pred:
			r.FP++
			firstStart = false
			trueLast = false
		default:
			r.FN++
			firstStart = false
			trueLast = false
		}
	}
	if firstStart {
		r.TrueFirst++
	}
	if trueLast {
		r.TrueLast++
	}
	r.Samples++
}

// Merge adds the counts of other.
func (r *EvalResult) Merge(other EvalResult) {
	r.Samples += other.Samples
	r.TP += other.TP
	r.FP += other.FP
	r.FN += other.FN
	r.TN += other.TN
	r.TrueFirst += other.TrueFirst
	r.TrueLast += other.TrueLast
}

// Undefined ratios are NaN.

func (r EvalResult) Precision() float64 { return ratio(r.TP, r.TP+r.FP) }
func (r EvalResult) Recall() float64    { return ratio(r.TP, r.TP+r.FN) }

func (r EvalResult) F1() float64 {
	p, rc := r.Precision(), r.Recall()
	return 2 * p * rc / (p + rc)
}

func (r EvalResult) TrueFirstRatio() float64 { return ratio(r.TrueFirst, r.Samples) }
func (r EvalResult) TrueLastRatio() float64  { return ratio(r.TrueLast, r.Samples) }

func (r EvalResult) String() string {
	return fmt.Sprintf("samples = %d, tfirst = %.5f, tlast = %.5f, recall = %.5f, precision = %.5f, F1 = %.5f",
		r.Samples, r.TrueFirstRatio(), r.TrueLastRatio(), r.Recall(), r.Precision(), r.F1())
}

func ratio(a, b int) float64 {
	return float64(a) / float64(b)
}
