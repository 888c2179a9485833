// Package cli implements the sketchstory command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchstory/internal/config"
	"github.com/ivlev/sketchstory/internal/system"
)

var (
	verbose    bool
	quiet      bool
	showStats  bool
	configPath string

	cfg   *config.Config
	stats *system.Stats
)

var rootCmd = &cobra.Command{
	Use:   "sketchstory",
	Short: "Turn a topic into an animated whiteboard sketch",
	Long: `SketchStory asks a script provider (demo, OpenAI, Gemini or Grok) for a short
narrative about a topic, compiles it into timed scenes of simple shapes and
plays them on a raster whiteboard you can export as PNG.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg.ShowStats = showStats
		cfg.BuildVersion = buildVersion
		stats = system.NewStats(buildVersion)
		return system.EnsureDirs(cfg.InputDir, cfg.OutputDir)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil || !cfg.ShowStats {
			return nil
		}
		return stats.Print(cmd.OutOrStdout(), "benchmark.log")
	},
}

var buildVersion = "dev"

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command.
func Execute(version string) error {
	if version != "" {
		buildVersion = version
	}
	rootCmd.Version = buildVersion
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print a performance report when done")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
}
