package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/i18n"
	"github.com/ivlev/sketchstory/internal/provider"
	"github.com/ivlev/sketchstory/internal/source"
	"github.com/ivlev/sketchstory/internal/studio"
	"github.com/ivlev/sketchstory/internal/system"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a script for a topic and compile it into scenes",
	Long: `Generate asks the configured provider for a script, compiles it into a timeline
and optionally plays it, saves the timeline as YAML and exports the final
drawing as PNG.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var (
	genDuration   float64
	genStyle      string
	genVoice      string
	genProvider   string
	genEnhance    bool
	genScript     string
	genLatest     bool
	genPlay       bool
	genSave       bool
	genExport     bool
	genExportPath string
)

func init() {
	generateCmd.Flags().Float64VarP(&genDuration, "duration", "d", 0, "total duration in seconds (default from config)")
	generateCmd.Flags().StringVarP(&genStyle, "style", "s", "", "visual style: hand-drawn, minimal, business, educational, creative")
	generateCmd.Flags().StringVar(&genVoice, "voice", "", "narration style passed to the provider")
	generateCmd.Flags().StringVarP(&genProvider, "provider", "p", "", "override the provider: demo, openai, gemini, grok")
	generateCmd.Flags().BoolVarP(&genEnhance, "enhance", "e", false, "add enhanced shapes to scenes with longer text")
	generateCmd.Flags().StringVar(&genScript, "script", "", "use a script file (.txt, .md, .pdf) instead of a provider")
	generateCmd.Flags().BoolVar(&genLatest, "latest", false, "use the newest script file in the input directory")
	generateCmd.Flags().BoolVar(&genPlay, "play", false, "play the animation in real time")
	generateCmd.Flags().BoolVar(&genSave, "save", false, "save the timeline as YAML in the output directory")
	generateCmd.Flags().BoolVar(&genExport, "export", false, "export the final drawing as PNG")
	generateCmd.Flags().StringVarP(&genExportPath, "output", "o", "", "PNG path (default: <output-dir>/<topic>_<timestamp>.png)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	topic := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	style := director.StyleID(pickString(genStyle, cfg.Style))
	if !director.Known(style) {
		return fmt.Errorf("unknown style %q (want one of %v)", style, director.Styles())
	}

	script, err := loadScript()
	if err != nil {
		return err
	}

	done := newCompletion()
	rt, err := newRuntime(ctx, cfg, runtimeOptions{
		realtime: genPlay,
		listener: func(locale string) engine.Listener { return printEvents(out, locale, done) },
		status: func(locale string) func(provider.Status) {
			return func(st provider.Status) { warn(out, "%s", studio.StatusMessage(st, locale)) }
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	req := studio.Request{
		Topic:    topic,
		Duration: pickFloat(genDuration, cfg.TotalDuration),
		Voice:    pickString(genVoice, cfg.Voice),
		Style:    style,
		Enhance:  genEnhance || cfg.Enhance,
		Provider: genProvider,
		Script:   script,
	}

	if script == "" {
		info(out, "%s", i18n.T(rt.locale(), "GENERATING", topic))
	}
	var res *studio.Result
	err = stats.Track("Generate", func() error {
		var err error
		res, err = rt.studio.Generate(ctx, req)
		return err
	})
	if err != nil {
		fail(out, "%s", studio.UserMessage(err, rt.locale()))
		return err
	}
	success(out, "%s", i18n.T(rt.locale(), "GENERATED", len(res.Timeline.Scenes), res.Provider))
	fmt.Fprintln(out, renderTimeline(res.Timeline))

	if genSave {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return err
		}
		path := director.GenerateTimelinePath(cfg.OutputDir)
		if err := director.WriteTimeline(res.Timeline, path); err != nil {
			return err
		}
		info(out, "timeline: %s", path)
	}

	if !genPlay && !genExport {
		return nil
	}
	if err := playThrough(ctx, rt, res.Timeline, done); err != nil {
		fail(out, "%s", studio.UserMessage(err, rt.locale()))
		return err
	}
	if genExport {
		return exportPNG(out, rt, pickString(genExportPath, system.ExportPath(cfg.OutputDir, topic)))
	}
	return nil
}

func loadScript() (string, error) {
	path := genScript
	if path == "" && genLatest {
		latest, err := system.FindLatestScript(cfg.InputDir)
		if err != nil {
			return "", err
		}
		path = latest
	}
	if path == "" {
		return "", nil
	}

	src, err := source.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	if pdf, ok := src.(*source.FitzPDFSource); ok {
		slog.Info("using script file", "path", path, "pages", pdf.PageCount())
	} else {
		slog.Info("using script file", "path", path)
	}
	return src.Script()
}

// completion is closed once by the first playback completion event
type completion struct {
	once sync.Once
	ch   chan struct{}
}

func newCompletion() *completion {
	return &completion{ch: make(chan struct{})}
}

func (c *completion) signal() {
	c.once.Do(func() { close(c.ch) })
}

func printEvents(w io.Writer, locale string, done *completion) engine.Listener {
	return func(ev engine.Event) {
		switch ev.Type {
		case engine.EventFire:
			info(w, "%s", i18n.T(locale, "SCENE_FIRED", ev.Scene+1, ev.Text))
		case engine.EventNotice:
			warn(w, "%s", studio.NoticeMessage(ev.Notice, locale))
		case engine.EventComplete:
			success(w, "%s", i18n.T(locale, "PLAYBACK_DONE"))
			done.signal()
		}
	}
}

// playThrough plays tl to completion. Offline runtimes advance their clock
// past the end so every staggered entrance settles.
func playThrough(ctx context.Context, rt *runtime, tl *director.Timeline, done *completion) error {
	return stats.Track("Playback", func() error {
		if err := rt.studio.Play(); err != nil {
			return err
		}
		total := time.Duration(tl.TotalDuration * float64(time.Second))
		if rt.manual != nil {
			rt.advance(total + 2*time.Second)
			return nil
		}

		select {
		case <-done.ch:
		case <-ctx.Done():
			rt.studio.Pause()
			return ctx.Err()
		}
		// let the last entrance animations finish
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return nil
	})
}

func exportPNG(w io.Writer, rt *runtime, path string) error {
	return stats.Track("Export", func() error {
		data, err := rt.studio.Export()
		if err != nil {
			fail(w, "%s", studio.UserMessage(err, rt.locale()))
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
		success(w, "%s", i18n.T(rt.locale(), "EXPORTED", path))
		return nil
	})
}

func pickString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func pickFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}
