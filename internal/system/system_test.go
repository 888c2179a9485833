package system

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFindLatestScript(t *testing.T) {
	dir := t.TempDir()
	names := []string{"old.txt", "newest.md", "picture.png", "middle.pdf"}
	for i, n := range names {
		p := filepath.Join(dir, n)
		os.WriteFile(p, []byte("x"), 0644)
		mod := time.Now().Add(-time.Duration(len(names)-i) * time.Hour)
		if n == "newest.md" {
			mod = time.Now()
		}
		if n == "picture.png" {
			mod = time.Now().Add(time.Hour)
		}
		os.Chtimes(p, mod, mod)
	}

	latest, err := FindLatestScript(dir)
	if err != nil {
		t.Fatalf("FindLatestScript failed: %v", err)
	}
	if filepath.Base(latest) != "newest.md" {
		t.Errorf("Expected newest.md, got %s", latest)
	}

	if _, err := FindLatestScript(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestExportPath(t *testing.T) {
	p := ExportPath("output", "AI / startups: why?")
	base := filepath.Base(p)
	if !strings.HasPrefix(base, "AI___startups__why_") || !strings.HasSuffix(base, ".png") {
		t.Errorf("Unexpected export name %s", base)
	}
	if !strings.HasPrefix(filepath.Base(ExportPath("out", "  ")), "animation_") {
		t.Error("Expected fallback name for blank topic")
	}
}

func TestImagePool(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 16, 8)

	img := pool.Get(rect)
	if img.Bounds() != rect {
		t.Fatalf("Expected bounds %v, got %v", rect, img.Bounds())
	}
	pool.Put(img)
	pool.Put(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	pool.Put(nil)

	if again := pool.Get(rect); again.Bounds() != rect {
		t.Errorf("Expected bounds %v, got %v", rect, again.Bounds())
	}
}

func TestStatsReport(t *testing.T) {
	s := NewStats("test")
	s.Track("Generate", func() error { return nil })
	err := s.Track("Compile", func() error { return errors.New("bad") })
	if err == nil {
		t.Error("Expected Track to return the phase error")
	}

	var buf bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "benchmark.log")
	if err := s.Print(&buf, logPath); err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"PERFORMANCE REPORT", "Build: test", "Generate:", "Compile:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(logPath)
	if err != nil || !strings.Contains(string(data), "Build: test") {
		t.Errorf("Expected benchmark log entry, got %q (%v)", data, err)
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "nested", "output")
	if err := EnsureDirs(in, "", out); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, d := range []string{in, out} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Errorf("Expected directory %s, got %v", d, err)
		}
	}
}
