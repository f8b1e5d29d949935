package crf

import (
	"fmt"
	"slices"
)

// Self-check fixture: one unigram block keyed on the character two positions
// back, one transition block, and a fixed sample of ten kanji.
var (
	selfCheckWeights = []float64{
		0.2277, 0.5562, -0.8271, 0.1732, 0.5766, 0.6755, 0.6696, 0.5387, -0.5272, -0.1661, 0.1718, 0.6204, -0.8499,
		-0.1671, 0.6117, 0.1135, 0.7622, -0.0028, 0.0451, 0.2367, -0.2144, 0.6808, 0.3066, -0.2559, -0.9013, -0.2359,
		-0.8393, 0.4544, 0.9062, 0.8766, -0.8139, 0.4308, -0.1595, -0.8759, -0.4251, -0.6401, -0.6595, 0.0779, 0.0961,
		-0.1691, -0.3485, 0.8815, -0.8278, -0.0943, -0.0695, -0.641, -0.2377, 0.064, -0.7586, -0.1627, -0.0313, 0.6813,
		0.2844, -0.3523, 0.1633, 0.748, -0.635, -0.3963, 0.8417, 0.8207, 0.1813, 0.3449, -0.4297, -0.9229, -0.1472,
		0.902, 0.7855, 0.7293, -0.0101, -0.926, 0.9603, -0.4158,
	}
	selfCheckFeatures = map[string]int{
		"Uа毲": 0,
		"B":   NumLabels,
	}
	selfCheckSample = Sample{
		{Code: '毲', Class: 'a'},
		{Code: '浨', Class: 'b'},
		{Code: '劽', Class: 'c'},
		{Code: '泮', Class: 'a'},
		{Code: '崶', Class: 'b', Tag: 1},
		{Code: '矏', Class: 'a'},
		{Code: '漐', Class: 'a'},
		{Code: '翈', Class: 'b'},
		{Code: '掏', Class: 'b'},
		{Code: '爎', Class: 'b'},
	}
	selfCheckLabels = []Label{5, 7, 6, 2, 5, 7, 6, 2, 4, 1}
)

// SelfCheck runs Gradient and Predict on a fixed model and sample and
// compares the prediction with the known answer.
func SelfCheck() ([]Label, error) {
	lookup := func(key string) (int, bool) {
		id, ok := selfCheckFeatures[key]
		return id, ok
	}
	weights := slices.Clone(selfCheckWeights)
	p := NewPredictor(lookup, weights)
	expected := make([]float64, len(weights))
	p.Gradient(selfCheckSample, expected)
	got := slices.Clone(p.Predict(selfCheckSample))
	if !slices.Equal(got, selfCheckLabels) {
		return got, fmt.Errorf("crf: self-check predicted %v, want %v", got, selfCheckLabels)
	}
	return got, nil
}
