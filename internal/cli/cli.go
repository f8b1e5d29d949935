package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/versusvoid/rikaikun"
	"github.com/versusvoid/rikaikun/internal/config"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version     string
	verbose     bool
	silent      bool
	configFile  string
	initialized bool
	cfg         config.Config
	rootCmd     *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:     "rikaikun-crf",
		Short:   "Japanese word boundary CRF trainer and tagger",
		Version: c.version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.initApp()
			return c.loadConfig(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		SilenceUsage: true,
	}

	pf := c.rootCmd.PersistentFlags()
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	pf.BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging")
	pf.StringVar(&c.configFile, "config", "", "Config file (default: ./rikaikun.{yaml,toml,json} if present)")
	config.RegisterFlags(pf, config.DefaultConfig())

	defaultHelp := c.rootCmd.HelpFunc()
	c.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		c.initApp()
		defaultHelp(cmd, args)
	})

	c.rootCmd.AddCommand(c.newTrainCommand())
	c.rootCmd.AddCommand(c.newTestCommand())
	c.rootCmd.AddCommand(c.newPredictCommand())
	c.rootCmd.AddCommand(c.newExtendCommand())
	c.rootCmd.AddCommand(c.newSelfCheckCommand())
}

// Run executes the CLI and returns any error.
func (c *CLI) Run() error {
	return c.rootCmd.Execute()
}

// initApp initializes logging.
func (c *CLI) initApp() {
	if c.initialized {
		return
	}
	c.initialized = true

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	if c.silent {
		level = slog.Level(100)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	slog.Debug("Starting", "version", c.version)
}

func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{
		Cmd:        cmd,
		ConfigFile: c.configFile,
		Defaults:   config.DefaultConfig(),
	})
	if err != nil {
		return err
	}
	c.cfg = cfg
	slog.Debug("Loaded config", "config", cfg)
	return nil
}

func (c *CLI) loadSegmenter(features, weights string) (*rikaikun.Segmenter, error) {
	slog.Debug("Loading model", "features", features, "weights", weights)
	return rikaikun.Load(features, weights, &rikaikun.Options{
		CacheBytes:       c.cfg.Inference.CacheBytes,
		MaxPrefixSymbols: c.cfg.Inference.MaxPrefixSymbols,
	})
}
