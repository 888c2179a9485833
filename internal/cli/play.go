package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/system"
)

var playCmd = &cobra.Command{
	Use:   "play [timeline.yaml]",
	Short: "Play a saved timeline",
	Long: `Play loads a timeline written by "generate --save" and plays it in real time.
Without an argument the newest timeline in the output directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

var (
	playExport     bool
	playExportPath string
	playOffline    bool
)

func init() {
	playCmd.Flags().BoolVar(&playExport, "export", false, "export the final drawing as PNG")
	playCmd.Flags().StringVarP(&playExportPath, "output", "o", "", "PNG path (default: <output-dir>/<topic>_<timestamp>.png)")
	playCmd.Flags().BoolVar(&playOffline, "offline", false, "skip real-time pacing and only render the result")

	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		latest, err := director.FindLatestTimeline(cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("no timeline given and none found in %s: %w", cfg.OutputDir, err)
		}
		path = latest
	}

	tl, err := director.ReadTimeline(path)
	if err != nil {
		return err
	}
	info(out, "timeline: %s", path)
	fmt.Fprintln(out, renderTimeline(tl))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := newCompletion()
	rt, err := newRuntime(ctx, cfg, runtimeOptions{
		realtime: !playOffline,
		listener: func(locale string) engine.Listener { return printEvents(out, locale, done) },
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.studio.Load(tl)
	if err := playThrough(ctx, rt, tl, done); err != nil {
		return err
	}
	if playExport {
		return exportPNG(out, rt, pickString(playExportPath, system.ExportPath(cfg.OutputDir, tl.Topic)))
	}
	return nil
}
