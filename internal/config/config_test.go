package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/versusvoid/rikaikun/crf"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(defaults Config, args ...string) (*fakeBinder, error) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &fakeBinder{fs: fs}, nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.Features != "features.bin" || cfg.Paths.Weights != "model.bin" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if got := cfg.Train.Trainer(); got != crf.DefaultTrainerConfig() {
		t.Errorf("Trainer() = %+v; want %+v", got, crf.DefaultTrainerConfig())
	}
	if cfg.Inference.MaxPrefixSymbols != 8 {
		t.Errorf("MaxPrefixSymbols = %d; want 8", cfg.Inference.MaxPrefixSymbols)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != defaults {
		t.Errorf("Load() = %+v; want %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults,
		"--train-c=0.5",
		"--train-threads=2",
		"--train-l1=false",
		"--paths-weights=/tmp/w.bin",
		"--inference-cache-bytes=0",
	)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Train.C != 0.5 || cfg.Train.Threads != 2 || cfg.Train.L1 {
		t.Errorf("Train = %+v", cfg.Train)
	}
	if cfg.Paths.Weights != "/tmp/w.bin" {
		t.Errorf("Paths.Weights = %q", cfg.Paths.Weights)
	}
	if cfg.Inference.CacheBytes != 0 {
		t.Errorf("CacheBytes = %d; want 0", cfg.Inference.CacheBytes)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RIKAIKUN_TRAIN_MAX_ITERATIONS", "50")
	t.Setenv("RIKAIKUN_PATHS_FEATURES", "/env/features.bin")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Train.MaxIterations != 50 {
		t.Errorf("MaxIterations = %d; want 50", cfg.Train.MaxIterations)
	}
	if cfg.Paths.Features != "/env/features.bin" {
		t.Errorf("Paths.Features = %q", cfg.Paths.Features)
	}
}

func TestLoad_Invalid(t *testing.T) {
	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults, "--train-c=0")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadOptions{Cmd: binder, Defaults: defaults}); err == nil {
		t.Error("Load() = nil; want error for train.c = 0")
	}
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_ConfigFile(t *testing.T) {
	cfgFile := writeConfigFile(t, "rikaikun.yaml",
		"train:\n  threads: 4\n  max_iterations: 30\npaths:\n  weights: /file/w.bin\ninference:\n  cache_bytes: 0\n")
	defaults := DefaultConfig()

	t.Run("without flags", func(t *testing.T) {
		cfg, err := Load(LoadOptions{ConfigFile: cfgFile, Defaults: defaults})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Train.Threads != 4 || cfg.Train.MaxIterations != 30 {
			t.Errorf("Train = %+v; want threads 4, max_iterations 30", cfg.Train)
		}
		if cfg.Paths.Weights != "/file/w.bin" || cfg.Paths.Features != defaults.Paths.Features {
			t.Errorf("Paths = %+v", cfg.Paths)
		}
		if cfg.Inference.CacheBytes != 0 {
			t.Errorf("CacheBytes = %d; want 0", cfg.Inference.CacheBytes)
		}
		if cfg.Train.C != defaults.Train.C {
			t.Errorf("C = %v; want default %v", cfg.Train.C, defaults.Train.C)
		}
	})

	t.Run("unset flags keep file values", func(t *testing.T) {
		binder, err := newFlagBinder(defaults)
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(LoadOptions{Cmd: binder, ConfigFile: cfgFile, Defaults: defaults})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Train.Threads != 4 || cfg.Paths.Weights != "/file/w.bin" {
			t.Errorf("Threads = %d, Weights = %q; want 4, /file/w.bin", cfg.Train.Threads, cfg.Paths.Weights)
		}
	})
}

func TestLoad_Precedence(t *testing.T) {
	cfgFile := writeConfigFile(t, "rikaikun.yaml", "train:\n  threads: 4\n  memory: 7\n  eta: 0.5\n")
	t.Setenv("RIKAIKUN_TRAIN_THREADS", "3")
	t.Setenv("RIKAIKUN_TRAIN_MEMORY", "9")
	defaults := DefaultConfig()
	binder, err := newFlagBinder(defaults, "--train-threads=2")
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, ConfigFile: cfgFile, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Train.Threads != 2 {
		t.Errorf("Threads = %d; want flag value 2", cfg.Train.Threads)
	}
	if cfg.Train.Memory != 9 {
		t.Errorf("Memory = %d; want env value 9", cfg.Train.Memory)
	}
	if cfg.Train.Eta != 0.5 {
		t.Errorf("Eta = %v; want file value 0.5", cfg.Train.Eta)
	}
}

func TestFlagKeysCoverRegisteredFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())
	fs.VisitAll(func(f *pflag.Flag) {
		if _, ok := flagKeys[f.Name]; !ok {
			t.Errorf("flag %q has no config key", f.Name)
		}
	})
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(LoadOptions{ConfigFile: cfgFile, Defaults: DefaultConfig()}); err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/rikaikun.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero C", func(c *Config) { c.Train.C = 0 }},
		{"negative eta", func(c *Config) { c.Train.Eta = -1 }},
		{"no threads", func(c *Config) { c.Train.Threads = 0 }},
		{"no memory", func(c *Config) { c.Train.Memory = 0 }},
		{"negative cache", func(c *Config) { c.Inference.CacheBytes = -1 }},
		{"negative prefix", func(c *Config) { c.Inference.MaxPrefixSymbols = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil; want error")
			}
		})
	}
}
