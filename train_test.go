package rikaikun

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/versusvoid/rikaikun/crf"
)

const trainCorpus = `今日 は 晴れ
明日 は 雨 が 降る
私 は 学生 です

猫 が 好き です
本 を 読んだ
雨 が 降った
`

const testCorpus = `今日 は 雨
猫 が 好き
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func smallTrainConfig(dir string) *TrainConfig {
	config := DefaultTrainConfig()
	config.Trainer.MinFeatureCount = 1
	config.Trainer.MaxIterations = 20
	config.Trainer.Threads = 2
	config.FeaturesPath = filepath.Join(dir, FeaturesFile)
	config.WeightsPath = filepath.Join(dir, WeightsFile)
	config.ManifestPath = filepath.Join(dir, ManifestFile)
	return config
}

type failingOptimizer struct{}

func (failingOptimizer) Optimize([]float64, float64, []float64) int { return -1 }

func TestTrain(t *testing.T) {
	dir := t.TempDir()
	trainPath := writeFile(t, dir, "train.txt", trainCorpus)
	testPath := writeFile(t, dir, "test.txt", testCorpus)
	config := smallTrainConfig(dir)

	s, report, err := Train(trainPath, testPath, config)
	if err != nil {
		t.Fatal(err)
	}

	if report.Train.Samples != 6 || report.Test.Samples != 2 {
		t.Errorf("evaluated %d train and %d test samples", report.Train.Samples, report.Test.Samples)
	}
	if len(report.Result.Iterations) == 0 {
		t.Fatal("no iterations recorded")
	}
	if report.Manifest.Samples != 6 || report.Manifest.NumFeatures != s.Model().Index.NumFeatures() {
		t.Errorf("manifest = %+v", report.Manifest)
	}

	loaded, err := Load(config.FeaturesPath, config.WeightsPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	words, err := loaded.Boundaries("今日は晴れ")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(words, "") != "今日は晴れ" {
		t.Errorf("Boundaries lost text: %q", words)
	}

	manifest, err := crf.LoadManifest(config.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Iterations != len(report.Result.Iterations) {
		t.Errorf("manifest iterations = %d, want %d", manifest.Iterations, len(report.Result.Iterations))
	}

	result, err := Test(config.FeaturesPath, config.WeightsPath, testPath)
	if err != nil {
		t.Fatal(err)
	}
	if result.Samples != 2 {
		t.Errorf("Test evaluated %d samples, want 2", result.Samples)
	}
}

func TestTrainFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	trainPath := writeFile(t, dir, "train.txt", trainCorpus)
	config := smallTrainConfig(dir)
	config.Optimizer = failingOptimizer{}

	_, report, err := Train(trainPath, "", config)
	if !errors.Is(err, crf.ErrOptimizer) {
		t.Fatalf("err = %v, want ErrOptimizer", err)
	}
	if report == nil || len(report.Result.Iterations) != 1 {
		t.Errorf("report = %+v", report)
	}
	for _, path := range []string{config.FeaturesPath, config.WeightsPath, config.ManifestPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should not exist", path)
		}
	}
}

func TestTrainEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	trainPath := writeFile(t, dir, "train.txt", "\n\n")
	if _, _, err := Train(trainPath, "", smallTrainConfig(dir)); err == nil {
		t.Error("expected error for empty corpus")
	}
}

func TestTestMissingModel(t *testing.T) {
	dir := t.TempDir()
	if _, err := Test(filepath.Join(dir, "features.bin"), filepath.Join(dir, "model.bin"), filepath.Join(dir, "c.txt")); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestEvaluateSamplesShards(t *testing.T) {
	model := testModel(t)
	var samples []crf.Sample
	for _, line := range strings.Split(strings.TrimSpace(trainCorpus+testCorpus), "\n") {
		if line == "" {
			continue
		}
		s, err := crf.ParseSample(line)
		if err != nil {
			t.Fatal(err)
		}
		samples = append(samples, s)
	}

	want := EvaluateSamples(model, samples, 1)
	if want.Samples != len(samples) {
		t.Fatalf("evaluated %d samples, want %d", want.Samples, len(samples))
	}
	for _, threads := range []int{2, 3, 100} {
		if got := EvaluateSamples(model, samples, threads); got != want {
			t.Errorf("threads=%d: %+v, want %+v", threads, got, want)
		}
	}
	if got := EvaluateSamples(model, nil, 4); got.Samples != 0 {
		t.Errorf("empty input: %+v", got)
	}
}
