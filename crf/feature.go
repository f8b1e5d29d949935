package crf

import (
	"strconv"
	"unicode/utf8"
)

// FeatureFunc resolves a feature key to the base of its weight block.
// It returns false for keys the model does not know; such features score zero.
type FeatureFunc func(key string) (int, bool)

// Feature key prefixes. Keys starting with bigramMarker own a
// NumLabels*NumLabels weight block, all others a NumLabels block.
const (
	unigramMarker = 'U'
	bigramMarker  = 'B'
)

// firstTemplateKey is the template tag of the first unigram template; each
// following template takes the next code point.
const firstTemplateKey = 'а'

var windowOffsets = [...]int{-2, -1, 0, 1, 2}

const windowBound = 2

// Templater expands a sample into the ids of its active features. Buffers are
// reused between calls, so the returned slices are only valid until the next
// call to Extract.
type Templater struct {
	unigrams [][]int
	bigrams  [][]int

	literal []byte
	class   []byte
	key     []byte
}

// Extract generates the unigram and bigram features of every position in
// sample, resolving each key through lookup.
func (t *Templater) Extract(sample Sample, lookup FeatureFunc) (unigrams, bigrams [][]int) {
	if len(t.unigrams) < len(sample) {
		t.unigrams = append(t.unigrams, make([][]int, len(sample)-len(t.unigrams))...)
		t.bigrams = append(t.bigrams, make([][]int, len(sample)-len(t.bigrams))...)
	}

	for i := range sample {
		uni := t.unigrams[i][:0]
		templateKey := rune(firstTemplateKey)
		for _, start := range windowOffsets {
			t.literal = t.literal[:0]
			t.class = t.class[:0]
			for length := 1; length <= 3; length++ {
				if start+length-1 > windowBound {
					break
				}
				index := i + start + length - 1
				if index < 0 || index >= len(sample) {
					distance := index
					if index >= 0 {
						distance = index + 1 - len(sample)
					}
					t.literal = appendBoundary(t.literal, 'S', distance)
					t.class = appendBoundary(t.class, 'C', distance)
				} else {
					t.literal = appendCodeUnit(t.literal, sample[index].Code)
					t.class = append(t.class, byte(sample[index].Class))
				}

				uni = t.resolve(uni, lookup, templateKey, t.literal)
				templateKey++
				uni = t.resolve(uni, lookup, templateKey, t.class)
				templateKey++
			}
		}
		t.unigrams[i] = uni

		bi := t.bigrams[i][:0]
		if i > 0 {
			if id, ok := lookup(string(bigramMarker)); ok {
				bi = append(bi, id)
			}
			t.key = append(t.key[:0], bigramMarker, '1', byte(sample[i-1].Class), byte(sample[i].Class))
			if i+1 < len(sample) {
				t.key = append(t.key, byte(sample[i+1].Class))
			} else {
				t.key = append(t.key, "C[1]"...)
			}
			if id, ok := lookup(string(t.key)); ok {
				bi = append(bi, id)
			}
		}
		t.bigrams[i] = bi
	}
	return t.unigrams[:len(sample)], t.bigrams[:len(sample)]
}

func (t *Templater) resolve(ids []int, lookup FeatureFunc, templateKey rune, window []byte) []int {
	t.key = append(t.key[:0], unigramMarker)
	t.key = appendCodeUnit(t.key, uint16(templateKey))
	t.key = append(t.key, window...)
	if id, ok := lookup(string(t.key)); ok {
		ids = append(ids, id)
	}
	return ids
}

func appendBoundary(buf []byte, marker byte, distance int) []byte {
	buf = append(buf, marker, '[')
	buf = strconv.AppendInt(buf, int64(distance), 10)
	return append(buf, ']')
}

func appendCodeUnit(buf []byte, c uint16) []byte {
	return utf8.AppendRune(buf, rune(c))
}

// isBigramKey reports whether key names a transition feature.
func isBigramKey(key string) bool {
	return len(key) > 0 && key[0] == bigramMarker
}

// blockWidth returns the number of weight slots owned by key.
func blockWidth(key string) int {
	if isBigramKey(key) {
		return NumLabels * NumLabels
	}
	return NumLabels
}
