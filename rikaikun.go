// Package rikaikun segments Japanese text into words with a character-level
// linear-chain CRF.
//
// Every character gets one of eight labels describing whether it, the next
// and the character after that begin a word. The dictionary search uses
// Extend to decide whether a lookup should start earlier in the text.
//
//	s, _ := rikaikun.New()
//	words, _ := s.Boundaries("今日は晴れ")
//	fmt.Println(words) // [今日 は 晴れ]
package rikaikun

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/versusvoid/rikaikun/crf"
	"github.com/versusvoid/rikaikun/internal/textutil"
)

// Default model file names, as written by Train.
const (
	FeaturesFile = "features.bin"
	WeightsFile  = "model.bin"
	ManifestFile = "model.yaml"
)

// Options configures a Segmenter.
type Options struct {
	CacheBytes       int // Extend result cache size, 0 disables
	MaxPrefixSymbols int // trailing prefix symbols Extend considers
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		CacheBytes:       32 << 20,
		MaxPrefixSymbols: 8,
	}
}

// Segmenter predicts word boundaries with a loaded model. It is safe for
// concurrent use; predictions are serialized on a single predictor.
type Segmenter struct {
	mu        sync.Mutex
	model     *crf.Model
	pred      *crf.Predictor
	cache     *fastcache.Cache
	maxPrefix int
}

// New loads the model from FeaturesFile and WeightsFile, searching the
// current directory and parent directories up to the module root (where
// go.mod lives).
func New() (*Segmenter, error) {
	features, err := findModel(FeaturesFile)
	if err != nil {
		return nil, fmt.Errorf("rikaikun: %w", err)
	}
	weights, err := findModel(WeightsFile)
	if err != nil {
		return nil, fmt.Errorf("rikaikun: %w", err)
	}
	return Load(features, weights, nil)
}

func findModel(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found", name)
}

// Load reads a feature index and weights file. A nil opts selects
// DefaultOptions.
func Load(featuresPath, weightsPath string, opts *Options) (*Segmenter, error) {
	m, err := crf.LoadModel(featuresPath, weightsPath)
	if err != nil {
		return nil, fmt.Errorf("rikaikun: %w", err)
	}
	return NewSegmenter(m, opts), nil
}

// NewSegmenter wraps an in-memory model.
func NewSegmenter(m *crf.Model, opts *Options) *Segmenter {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	s := &Segmenter{
		model:     m,
		pred:      m.NewPredictor(),
		maxPrefix: o.MaxPrefixSymbols,
	}
	if o.CacheBytes > 0 {
		s.cache = fastcache.New(o.CacheBytes)
	}
	return s
}

// Model returns the underlying model.
func (s *Segmenter) Model() *crf.Model {
	return s.model
}

// Predict returns one label per symbol of the NFC form of text.
func (s *Segmenter) Predict(text string) ([]crf.Label, error) {
	sample, err := crf.NewSample(textutil.Normalize(text))
	if err != nil {
		return nil, fmt.Errorf("rikaikun: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := s.pred.Predict(sample)
	out := make([]crf.Label, len(labels))
	copy(out, labels)
	return out, nil
}

// Boundaries splits the NFC form of text into predicted words.
func (s *Segmenter) Boundaries(text string) ([]string, error) {
	text = textutil.Normalize(text)
	labels, err := s.Predict(text)
	if err != nil {
		return nil, err
	}
	return textutil.SplitWords(text, func(i int) bool { return labels[i].StartsWord() }), nil
}

// Extend decides whether a word starting in prefix runs on into text. prefix
// is the text immediately before text. When the first symbol of text is
// predicted to start a word Extend returns "" and 0. Otherwise it returns text
// preceded by the prefix symbols back to the nearest predicted word start
// (or the start of the considered prefix) and the number of those symbols.
func (s *Segmenter) Extend(text, prefix string) (string, int, error) {
	text = textutil.Normalize(text)
	prefix = textutil.LastSymbols(textutil.Normalize(prefix), s.maxPrefix)
	if text == "" || prefix == "" {
		return "", 0, nil
	}

	key := append(append([]byte(prefix), 0), text...)
	if s.cache != nil {
		if v, ok := s.cache.HasGet(nil, key); ok {
			n, size := binary.Uvarint(v)
			if size > 0 {
				return string(v[size:]), int(n), nil
			}
		}
	}

	extended, n, err := s.extend(text, prefix)
	if err != nil {
		return "", 0, err
	}
	if s.cache != nil {
		s.cache.Set(key, append(binary.AppendUvarint(nil, uint64(n)), extended...))
	}
	return extended, n, nil
}

func (s *Segmenter) extend(text, prefix string) (string, int, error) {
	labels, err := s.Predict(prefix + text)
	if err != nil {
		return "", 0, err
	}
	p := textutil.SymbolCount(prefix)
	if len(labels) <= p {
		return "", 0, errors.New("rikaikun: prediction shorter than input")
	}
	if labels[p].StartsWord() {
		return "", 0, nil
	}

	start := 0
	for i := p - 1; i > 0; i-- {
		if labels[i].StartsWord() {
			start = i
			break
		}
	}
	n := p - start
	extended := textutil.LastSymbols(prefix, n) + text
	return extended, n, nil
}

// ResetCache drops all cached Extend results.
func (s *Segmenter) ResetCache() {
	if s.cache != nil {
		s.cache.Reset()
	}
}
