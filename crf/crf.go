// Package crf implements a linear-chain Conditional Random Field that tags
// Japanese text with per-character word boundary labels.
package crf

import (
	"fmt"
	"unicode/utf8"
)

// NumLabels is the size of the fixed tagset.
const NumLabels = 8

// Class is the coarse script class of a symbol. Its byte value is what
// class feature keys embed.
type Class byte

const (
	ClassKanji    Class = 'K'
	ClassHiragana Class = 'h'
	ClassKatakana Class = 'k'
	ClassOther    Class = 'm'
)

// Classify returns the script class of a UTF-16 code unit.
func Classify(c uint16) Class {
	switch {
	case c >= 0x4e00 && c <= 0x9fa5:
		return ClassKanji
	case c >= 0x3040 && c <= 0x309f:
		return ClassHiragana
	case c >= 0x30a1 && c <= 0x30fe:
		return ClassKatakana
	default:
		return ClassOther
	}
}

// Label packs three word-start flags: bit 2 for the position itself, bit 1
// for the next position and bit 0 for the one after it.
type Label uint8

var labelNames = [NumLabels]string{"MMM", "MMS", "MSM", "MSS", "SMM", "SMS", "SSM", "SSS"}

func (l Label) String() string {
	if int(l) < NumLabels {
		return labelNames[l]
	}
	return fmt.Sprintf("Label(%d)", uint8(l))
}

// StartsWord reports whether the labelled position begins a word.
func (l Label) StartsWord() bool {
	return l>>2&1 == 1
}

// Symbol is one UTF-16 code unit of a sample.
type Symbol struct {
	Code  uint16
	Class Class
	Tag   Label
}

// Sample is one corpus line.
type Sample []Symbol

// Labels returns the gold tags of the sample.
func (s Sample) Labels() []Label {
	labels := make([]Label, len(s))
	for i, sym := range s {
		labels[i] = sym.Tag
	}
	return labels
}

// String returns the sample text without boundary markers.
func (s Sample) String() string {
	buf := make([]byte, 0, len(s)*3)
	for _, sym := range s {
		buf = utf8.AppendRune(buf, rune(sym.Code))
	}
	return string(buf)
}

// ParseSample converts a corpus line into a sample. A space marks the
// following character as the start of a word; the space itself is dropped.
// Tags are packed looking two positions ahead, zero past the end.
func ParseSample(line string) (Sample, error) {
	sample := make(Sample, 0, utf8.RuneCountInString(line))
	var start Label
	for i, r := range line {
		if r == ' ' {
			start = 1
			continue
		}
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(line[i:]); size <= 1 {
				return nil, fmt.Errorf("invalid UTF-8 at byte %d", i)
			}
		}
		if r > 0xffff {
			return nil, fmt.Errorf("code point %U at byte %d is outside the basic multilingual plane", r, i)
		}
		sample = append(sample, Symbol{Code: uint16(r), Class: Classify(uint16(r)), Tag: start})
		start = 0
	}
	sample.packTags()
	return sample, nil
}

// NewSample builds an untagged sample for inference. Characters outside the
// basic multilingual plane are rejected like in ParseSample.
func NewSample(text string) (Sample, error) {
	sample := make(Sample, 0, utf8.RuneCountInString(text))
	for i, r := range text {
		if r > 0xffff {
			return nil, fmt.Errorf("code point %U at byte %d is outside the basic multilingual plane", r, i)
		}
		sample = append(sample, Symbol{Code: uint16(r), Class: Classify(uint16(r))})
	}
	return sample, nil
}

func (s Sample) packTags() {
	for i := range s {
		tag := s[i].Tag << 2
		if i+1 < len(s) {
			tag |= s[i+1].Tag << 1
		}
		if i+2 < len(s) {
			tag |= s[i+2].Tag
		}
		s[i].Tag = tag
	}
}

// Weight layout: a unigram block holds one weight per label, a bigram block
// one weight per (previous label, label) pair.

// UnigramIndex returns the weight slot of a unigram feature for a label.
func UnigramIndex(base int, label Label) int {
	return base + int(label)
}

// BigramIndex returns the weight slot of a bigram feature for a transition.
func BigramIndex(base int, prev, label Label) int {
	return base + int(prev)*NumLabels + int(label)
}
