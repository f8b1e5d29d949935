// Package config loads layered settings: defaults, an optional rikaikun
// config file, RIKAIKUN_* environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/versusvoid/rikaikun/crf"
)

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Train     TrainConfig     `mapstructure:"train"`
	Inference InferenceConfig `mapstructure:"inference"`
}

type PathsConfig struct {
	Features string `mapstructure:"features"`
	Weights  string `mapstructure:"weights"`
	Manifest string `mapstructure:"manifest"`
}

type TrainConfig struct {
	C               float64 `mapstructure:"c"`
	Eta             float64 `mapstructure:"eta"`
	MaxIterations   int     `mapstructure:"max_iterations"`
	Threads         int     `mapstructure:"threads"`
	L1              bool    `mapstructure:"l1"`
	MinFeatureCount int     `mapstructure:"min_feature_count"`
	Memory          int     `mapstructure:"memory"`
	DropDuplicates  bool    `mapstructure:"drop_duplicates"`
}

type InferenceConfig struct {
	CacheBytes       int `mapstructure:"cache_bytes"`
	MaxPrefixSymbols int `mapstructure:"max_prefix_symbols"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	tc := crf.DefaultTrainerConfig()
	return Config{
		Paths: PathsConfig{
			Features: "features.bin",
			Weights:  "model.bin",
			Manifest: "model.yaml",
		},
		Train: TrainConfig{
			C:               tc.C,
			Eta:             tc.Eta,
			MaxIterations:   tc.MaxIterations,
			Threads:         tc.Threads,
			L1:              tc.L1,
			MinFeatureCount: tc.MinFeatureCount,
			Memory:          tc.Memory,
		},
		Inference: InferenceConfig{
			CacheBytes:       32 << 20,
			MaxPrefixSymbols: 8,
		},
	}
}

// Trainer converts the train section to crf settings.
func (c TrainConfig) Trainer() crf.TrainerConfig {
	return crf.TrainerConfig{
		C:               c.C,
		Eta:             c.Eta,
		MaxIterations:   c.MaxIterations,
		Threads:         c.Threads,
		L1:              c.L1,
		MinFeatureCount: c.MinFeatureCount,
		Memory:          c.Memory,
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-features", defaults.Paths.Features, "Feature index file")
	fs.String("paths-weights", defaults.Paths.Weights, "Weights file")
	fs.String("paths-manifest", defaults.Paths.Manifest, "Model manifest file")
	fs.Float64("train-c", defaults.Train.C, "Regularization strength (larger is weaker)")
	fs.Float64("train-eta", defaults.Train.Eta, "Relative objective change counted as converged")
	fs.Int("train-max-iterations", defaults.Train.MaxIterations, "Maximum training iterations")
	fs.Int("train-threads", defaults.Train.Threads, "Training worker count")
	fs.Bool("train-l1", defaults.Train.L1, "Use L1 regularization instead of L2")
	fs.Int("train-min-feature-count", defaults.Train.MinFeatureCount, "Minimum occurrences for a feature key")
	fs.Int("train-memory", defaults.Train.Memory, "L-BFGS correction pairs")
	fs.Bool("train-drop-duplicates", defaults.Train.DropDuplicates, "Skip repeated corpus lines")
	fs.Int("inference-cache-bytes", defaults.Inference.CacheBytes, "Extend result cache size, 0 disables")
	fs.Int("inference-max-prefix-symbols", defaults.Inference.MaxPrefixSymbols, "Prefix symbols considered by extend")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("RIKAIKUN")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("rikaikun")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the trainer or segmenter cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Train.C <= 0:
		return fmt.Errorf("train.c must be positive, got %v", c.Train.C)
	case c.Train.Eta < 0:
		return fmt.Errorf("train.eta must not be negative, got %v", c.Train.Eta)
	case c.Train.Threads < 1:
		return fmt.Errorf("train.threads must be at least 1, got %d", c.Train.Threads)
	case c.Train.Memory < 1:
		return fmt.Errorf("train.memory must be at least 1, got %d", c.Train.Memory)
	case c.Inference.CacheBytes < 0:
		return fmt.Errorf("inference.cache_bytes must not be negative, got %d", c.Inference.CacheBytes)
	case c.Inference.MaxPrefixSymbols < 0:
		return fmt.Errorf("inference.max_prefix_symbols must not be negative, got %d", c.Inference.MaxPrefixSymbols)
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.features", c.Paths.Features)
	v.SetDefault("paths.weights", c.Paths.Weights)
	v.SetDefault("paths.manifest", c.Paths.Manifest)
	v.SetDefault("train.c", c.Train.C)
	v.SetDefault("train.eta", c.Train.Eta)
	v.SetDefault("train.max_iterations", c.Train.MaxIterations)
	v.SetDefault("train.threads", c.Train.Threads)
	v.SetDefault("train.l1", c.Train.L1)
	v.SetDefault("train.min_feature_count", c.Train.MinFeatureCount)
	v.SetDefault("train.memory", c.Train.Memory)
	v.SetDefault("train.drop_duplicates", c.Train.DropDuplicates)
	v.SetDefault("inference.cache_bytes", c.Inference.CacheBytes)
	v.SetDefault("inference.max_prefix_symbols", c.Inference.MaxPrefixSymbols)
}

// flagKeys maps each command-line flag to the config key it overrides.
var flagKeys = map[string]string{
	"paths-features":               "paths.features",
	"paths-weights":                "paths.weights",
	"paths-manifest":               "paths.manifest",
	"train-c":                      "train.c",
	"train-eta":                    "train.eta",
	"train-max-iterations":         "train.max_iterations",
	"train-threads":                "train.threads",
	"train-l1":                     "train.l1",
	"train-min-feature-count":      "train.min_feature_count",
	"train-memory":                 "train.memory",
	"train-drop-duplicates":        "train.drop_duplicates",
	"inference-cache-bytes":        "inference.cache_bytes",
	"inference-max-prefix-symbols": "inference.max_prefix_symbols",
}

// bindFlags binds the registered flags present in fs to their nested keys,
// so an unset flag leaves the config file and environment in effect.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
