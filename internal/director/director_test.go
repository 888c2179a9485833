package director

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleScript = `🚀 Startup: Coffee Robots

- Problem: people wait too long for coffee
Every morning the queue grows.

- Solution: a robot barista that learns your order

- Summary: faster mornings, happier teams
This is a demo script.`

func TestCompile(t *testing.T) {
	d := NewDirector(1)

	tl, err := d.Compile(sampleScript, StyleBusiness, 40)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if len(tl.Scenes) != 4 {
		t.Fatalf("Expected 4 scenes, got %d", len(tl.Scenes))
	}
	if tl.ID == "" {
		t.Error("Expected timeline ID to be set")
	}

	for i, s := range tl.Scenes {
		if s.Duration != 10 {
			t.Errorf("Scene %d: expected duration 10, got %f", i, s.Duration)
		}
		if s.StartTime != float64(i)*10 {
			t.Errorf("Scene %d: expected start %d, got %f", i, i*10, s.StartTime)
		}
		t.Logf("Scene %d: start=%.1fs text=%q shapes=%d", i, s.StartTime, s.DisplayText, len(s.Shapes))
	}

	if tl.Scenes[0].DisplayText != "🚀 Startup: Coffee Robots" {
		t.Errorf("Expected title line for scene 0, got %q", tl.Scenes[0].DisplayText)
	}
	if tl.Scenes[1].DisplayText != "Problem: people wait too long for coffee" {
		t.Errorf("Expected bullet stripped for scene 1, got %q", tl.Scenes[1].DisplayText)
	}
}

func TestCompileContiguous(t *testing.T) {
	d := NewDirector(1)

	tests := []struct {
		name     string
		sections int
		total    float64
		want     int
	}{
		{"single", 1, 30, 1},
		{"three uneven", 3, 10, 3},
		{"seven", 7, 61.3, 7},
		{"capped", 14, 120, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := make([]string, tt.sections)
			for i := range parts {
				parts[i] = "- section line number " + strings.Repeat("x", i)
			}
			tl, err := d.Compile(strings.Join(parts, "\n\n"), StyleMinimal, tt.total)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if len(tl.Scenes) != tt.want {
				t.Fatalf("scenes = %d, want %d", len(tl.Scenes), tt.want)
			}
			if tl.Scenes[0].StartTime != 0 {
				t.Errorf("first start = %f, want 0", tl.Scenes[0].StartTime)
			}
			for i := 1; i < len(tl.Scenes); i++ {
				if tl.Scenes[i].StartTime != tl.Scenes[i-1].End() {
					t.Errorf("gap between scene %d and %d: %f != %f", i-1, i, tl.Scenes[i-1].End(), tl.Scenes[i].StartTime)
				}
			}
			last := tl.Scenes[len(tl.Scenes)-1]
			if last.End() != tt.total {
				t.Errorf("last end = %f, want %f", last.End(), tt.total)
			}
		})
	}
}

func TestCompileEdgeCases(t *testing.T) {
	d := NewDirector(1)

	for _, total := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if _, err := d.Compile(sampleScript, StyleMinimal, total); err == nil {
			t.Errorf("Expected error for total %v", total)
		}
	}

	tl, err := d.Compile("  \n\n \n\t\n", StyleMinimal, 30)
	if err != nil {
		t.Fatalf("Compile of blank script failed: %v", err)
	}
	if len(tl.Scenes) != 0 {
		t.Errorf("Expected 0 scenes for blank script, got %d", len(tl.Scenes))
	}

	tl, err = d.Compile("one\r\n\r\ntwo", "unknown-style", 10)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(tl.Scenes) != 2 {
		t.Errorf("Expected CRLF blank line to split, got %d scenes", len(tl.Scenes))
	}
	if tl.Style != DefaultStyle {
		t.Errorf("Expected unknown style to fall back to %s, got %s", DefaultStyle, tl.Style)
	}
}

func TestCompileIdempotent(t *testing.T) {
	a, err := NewDirector(7).Compile(sampleScript, StyleCreative, 33)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	b, err := NewDirector(7).Compile(sampleScript, StyleCreative, 33)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !reflect.DeepEqual(a.Scenes, b.Scenes) {
		t.Error("Expected identical scenes for identical inputs")
	}
}

func TestMainLine(t *testing.T) {
	tests := []struct {
		section string
		want    string
	}{
		{"Intro\n- first bullet\nlong trailing sentence", "- first bullet"},
		{"Short\nThis line is long enough", "This line is long enough"},
		{"Hi\nYo", "Hi"},
		{"   \n  Only  ", "Only"},
	}
	for _, tt := range tests {
		if got := mainLine(tt.section); got != tt.want {
			t.Errorf("mainLine(%q) = %q, want %q", tt.section, got, tt.want)
		}
	}
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- bullet", "bullet"},
		{"• dot bullet", "dot bullet"},
		{"3. numbered", "numbered"},
		{"12 plain number", "plain number"},
		{"Scena 2: Wprowadzenie", "Wprowadzenie"},
		{"SCENE 4 closing", "closing"},
		{"- 1. Scene 3: stacked", "stacked"},
		{"  padded  ", "padded"},
		{"Scenery stays", "Scenery stays"},
	}
	for _, tt := range tests {
		if got := CleanLine(tt.in); got != tt.want {
			t.Errorf("CleanLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := CleanLine("- " + strings.Repeat("ż", 150))
	if n := len([]rune(long)); n != MaxSceneText {
		t.Errorf("Expected %d runes, got %d", MaxSceneText, n)
	}
}

func TestEnhance(t *testing.T) {
	d := NewDirector(3)
	tl, err := d.Compile("Startup w biznesie i technologii\n\nkrótko", StyleMinimal, 20)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	enhanced := d.Enhance(tl)
	if enhanced == tl {
		t.Fatal("Expected Enhance to return a copy")
	}

	if reflect.DeepEqual(enhanced.Scenes[0].Shapes, tl.Scenes[0].Shapes) {
		t.Error("Expected long scene shapes to be replaced")
	}
	if !reflect.DeepEqual(enhanced.Scenes[1].Shapes, tl.Scenes[1].Shapes) {
		t.Error("Expected short scene shapes to stay untouched")
	}
	if len(enhanced.Scenes[0].Shapes) > maxEnhancedShapes {
		t.Errorf("Expected at most %d shapes, got %d", maxEnhancedShapes, len(enhanced.Scenes[0].Shapes))
	}
}

func TestTimelineWriteRead(t *testing.T) {
	tl, err := NewDirector(1).Compile(sampleScript, StyleEducational, 40)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	tl.Topic = "coffee robots"

	path := filepath.Join(t.TempDir(), "timeline.yaml")
	if err := WriteTimeline(tl, path); err != nil {
		t.Fatalf("WriteTimeline failed: %v", err)
	}

	read, err := ReadTimeline(path)
	if err != nil {
		t.Fatalf("ReadTimeline failed: %v", err)
	}

	if read.ID != tl.ID || read.Topic != tl.Topic {
		t.Errorf("Header mismatch: got %s/%s", read.ID, read.Topic)
	}
	if len(read.Scenes) != len(tl.Scenes) {
		t.Fatalf("Scene count mismatch: expected %d, got %d", len(tl.Scenes), len(read.Scenes))
	}
	if !reflect.DeepEqual(read.Scenes[3].Shapes, tl.Scenes[3].Shapes) {
		t.Errorf("Shape mismatch after round trip:\n%+v\n%+v", read.Scenes[3].Shapes, tl.Scenes[3].Shapes)
	}
}

func TestReadTimelineRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tl *Timeline)
		want   error
	}{
		{"zero total", func(tl *Timeline) { tl.TotalDuration = 0 }, ErrInvalidDuration},
		{"negative total", func(tl *Timeline) { tl.TotalDuration = -5 }, ErrInvalidDuration},
		{"gap between scenes", func(tl *Timeline) { tl.Scenes[2].StartTime += 1 }, ErrInvalidTimeline},
		{"scenes short of total", func(tl *Timeline) { tl.TotalDuration = 50 }, ErrInvalidTimeline},
		{"zero duration scene", func(tl *Timeline) { tl.Scenes[1].Duration = 0 }, ErrInvalidTimeline},
		{"index out of order", func(tl *Timeline) { tl.Scenes[0].Index = 3 }, ErrInvalidTimeline},
		{"too many shapes", func(tl *Timeline) {
			s := tl.Scenes[0].Shapes[0]
			tl.Scenes[0].Shapes = []Shape{s, s, s, s, s}
		}, ErrInvalidTimeline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := NewDirector(1).Compile(sampleScript, StyleMinimal, 40)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if err := tl.Validate(); err != nil {
				t.Fatalf("Compiled timeline invalid: %v", err)
			}
			tt.mutate(tl)

			path := filepath.Join(t.TempDir(), "timeline.yaml")
			if err := WriteTimeline(tl, path); err != nil {
				t.Fatalf("WriteTimeline failed: %v", err)
			}
			if _, err := ReadTimeline(path); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
