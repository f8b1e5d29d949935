package crf

import (
	"fmt"
	"sort"
)

// DefaultMinFeatureCount is the minimum corpus-wide support a feature key
// needs to enter the index.
const DefaultMinFeatureCount = 1000

// Counter accumulates corpus-wide occurrence counts of feature keys.
type Counter struct {
	counts map[string]int
	t      Templater
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Record is a FeatureFunc that counts key and never resolves it.
func (c *Counter) Record(key string) (int, bool) {
	c.counts[key]++
	return 0, false
}

// Add counts every feature key generated for sample.
func (c *Counter) Add(sample Sample) {
	c.t.Extract(sample, c.Record)
}

// Count returns the number of times key was recorded.
func (c *Counter) Count(key string) int {
	return c.counts[key]
}

// Len returns the number of distinct keys seen.
func (c *Counter) Len() int {
	return len(c.counts)
}

// Build keeps the keys seen at least minCount times and assigns them weight
// blocks in ascending key order.
func (c *Counter) Build(minCount int) *FeatureIndex {
	keys := make([]string, 0, len(c.counts))
	for key, count := range c.counts {
		if count >= minCount {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	idx := &FeatureIndex{bases: make(map[string]int, len(keys))}
	for _, key := range keys {
		idx.bases[key] = idx.numFeatures
		idx.numFeatures += blockWidth(key)
	}
	return idx
}

// BuildFeatureIndex counts the features of all samples and prunes the keys
// below minCount.
func BuildFeatureIndex(samples []Sample, minCount int) *FeatureIndex {
	c := NewCounter()
	for _, s := range samples {
		c.Add(s)
	}
	return c.Build(minCount)
}

// FeatureIndex maps feature keys to the base of their weight block. It is
// immutable once built and safe for concurrent lookups.
type FeatureIndex struct {
	bases       map[string]int
	numFeatures int
}

// NewFeatureIndex rebuilds an index from stored block bases.
func NewFeatureIndex(bases map[string]int) (*FeatureIndex, error) {
	idx := &FeatureIndex{bases: make(map[string]int, len(bases))}
	for key, base := range bases {
		if key == "" {
			return nil, fmt.Errorf("empty feature key")
		}
		if base < 0 {
			return nil, fmt.Errorf("feature %q: negative id %d", key, base)
		}
		idx.bases[key] = base
		idx.numFeatures = max(idx.numFeatures, base+blockWidth(key))
	}
	return idx, nil
}

// Lookup is a FeatureFunc over the index.
func (idx *FeatureIndex) Lookup(key string) (int, bool) {
	base, ok := idx.bases[key]
	return base, ok
}

// NumFeatures returns the size of the weight vector.
func (idx *FeatureIndex) NumFeatures() int {
	return idx.numFeatures
}

// Len returns the number of feature keys.
func (idx *FeatureIndex) Len() int {
	return len(idx.bases)
}

// Keys returns the feature keys ordered by block base.
func (idx *FeatureIndex) Keys() []string {
	keys := make([]string, 0, len(idx.bases))
	for key := range idx.bases {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		bi, bj := idx.bases[keys[i]], idx.bases[keys[j]]
		if bi != bj {
			return bi < bj
		}
		return keys[i] < keys[j]
	})
	return keys
}
