package crf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ErrWeightsSize is returned when a weights file does not match its index.
var ErrWeightsSize = errors.New("crf: weights do not match feature index")

// Model is a feature index together with its weights.
type Model struct {
	Index   *FeatureIndex
	Weights []float64
}

// NewPredictor creates a predictor over the model.
func (m *Model) NewPredictor() *Predictor {
	return NewPredictor(m.Index.Lookup, m.Weights)
}

// SaveModel writes the feature index and the weights to their files.
func SaveModel(m *Model, indexPath, weightsPath string) error {
	if err := writeFile(indexPath, func(w io.Writer) error { return WriteIndex(w, m.Index) }); err != nil {
		return fmt.Errorf("write feature index: %w", err)
	}
	if err := writeFile(weightsPath, func(w io.Writer) error { return WriteWeights(w, m.Weights) }); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	return nil
}

// LoadModel reads a model saved by SaveModel.
func LoadModel(indexPath, weightsPath string) (*Model, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	index, err := ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", indexPath, err)
	}

	weights, err := LoadWeights(weightsPath)
	if err != nil {
		return nil, err
	}
	if len(weights) != index.NumFeatures() {
		return nil, fmt.Errorf("%w: %d weights, %d features", ErrWeightsSize, len(weights), index.NumFeatures())
	}
	return &Model{Index: index, Weights: weights}, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteWeights writes each weight as a little-endian float32, without header.
func WriteWeights(w io.Writer, weights []float64) error {
	var buf [4]byte
	for _, v := range weights {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadWeights reads size bytes of little-endian float32 weights.
func ReadWeights(r io.Reader, size int64) ([]float64, error) {
	if size%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of 4", ErrWeightsSize, size)
	}
	raw := make([]float32, size/4)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, err
	}
	weights := make([]float64, len(raw))
	for i, v := range raw {
		weights[i] = float64(v)
	}
	return weights, nil
}

// LoadWeights reads a weights file, taking the element count from its size.
func LoadWeights(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	weights, err := ReadWeights(bufio.NewReader(f), fi.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return weights, nil
}

// WriteIndex writes one "key<TAB>id" line per feature, ordered by id.
func WriteIndex(w io.Writer, index *FeatureIndex) error {
	for _, key := range index.Keys() {
		base, _ := index.Lookup(key)
		if _, err := fmt.Fprintf(w, "%s\t%d\n", key, base); err != nil {
			return err
		}
	}
	return nil
}

// ReadIndex parses a feature index written by WriteIndex. Any malformed line
// fails the whole read.
func ReadIndex(r io.Reader) (*FeatureIndex, error) {
	bases := make(map[string]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		key, id, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: missing tab", lineNo)
		}
		if !utf8.ValidString(key) {
			return nil, fmt.Errorf("line %d: invalid UTF-8 in feature key", lineNo)
		}
		for _, r := range key {
			if r > 0xffff {
				return nil, fmt.Errorf("line %d: unexpected character %U in feature %q", lineNo, r, key)
			}
		}
		base, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		bases[key] = int(base)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewFeatureIndex(bases)
}

// Manifest describes how a model was trained.
type Manifest struct {
	Labels      []string      `yaml:"labels"`
	NumFeatures int           `yaml:"num_features"`
	NumKeys     int           `yaml:"num_keys"`
	Samples     int           `yaml:"samples"`
	Trainer     TrainerConfig `yaml:"trainer"`
	Iterations  int           `yaml:"iterations"`
	Objective   float64       `yaml:"objective"`
	Converged   bool          `yaml:"converged"`
}

// NewManifest summarizes a finished training run.
func NewManifest(index *FeatureIndex, samples int, config TrainerConfig, result *TrainResult) Manifest {
	labels := make([]string, NumLabels)
	for i := range labels {
		labels[i] = Label(i).String()
	}
	return Manifest{
		Labels:      labels,
		NumFeatures: index.NumFeatures(),
		NumKeys:     index.Len(),
		Samples:     samples,
		Trainer:     config,
		Iterations:  len(result.Iterations),
		Objective:   result.Objective(),
		Converged:   result.Converged,
	}
}

// SaveManifest writes the manifest as YAML.
func SaveManifest(m Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
