package director

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxScenes caps how many script sections become scenes
	MaxScenes = 10
	// MaxSceneText is the rune limit for a scene's display text
	MaxSceneText = 100

	enhanceMinText = 10
	mainLineMinLen = 10
)

// ErrInvalidDuration is returned when the requested total duration is not a positive finite number
var ErrInvalidDuration = errors.New("total duration must be a positive number of seconds")

var (
	sectionSplit = regexp.MustCompile(`\n[ \t]*\n`)
	bulletPrefix = regexp.MustCompile(`^[-•*]\s*`)
	numberPrefix = regexp.MustCompile(`^\d+\.?\s*`)
	sceneLabel   = regexp.MustCompile(`(?i)^(?:scena|scene)\s*\d+\s*:?\s*`)
)

// Director compiles narrative scripts into timelines
type Director struct {
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// NewDirector creates a Director whose icon picks come from the given seed
func NewDirector(seed int64) *Director {
	return &Director{
		rand: rand.New(rand.NewSource(seed)),
		now:  time.Now,
	}
}

func (d *Director) intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rand.Intn(n)
}

// Compile splits script into at most MaxScenes contiguous scenes covering [0, total)
func (d *Director) Compile(script string, style StyleID, total float64) (*Timeline, error) {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDuration, total)
	}
	if !Known(style) {
		style = DefaultStyle
	}

	sections := splitSections(script)
	count := len(sections)
	if count > MaxScenes {
		count = MaxScenes
	}

	tl := &Timeline{
		ID:            uuid.NewString(),
		Style:         style,
		TotalDuration: total,
		CreatedAt:     d.now(),
		Scenes:        make([]Scene, 0, count),
	}
	if count == 0 {
		return tl, nil
	}

	step := total / float64(count)
	start := 0.0
	for i, section := range sections[:count] {
		text := CleanLine(mainLine(section))
		duration := step
		if i == count-1 {
			// absorb rounding so the last scene ends exactly at total
			duration = total - start
		}
		tl.Scenes = append(tl.Scenes, Scene{
			Index:       i,
			StartTime:   start,
			Duration:    duration,
			DisplayText: text,
			Style:       style,
			Shapes:      d.DeriveShapes(text, style, i),
		})
		start += duration
	}

	return tl, nil
}

// Enhance returns a copy of tl where scenes with enough text get the enhanced shape set.
func (d *Director) Enhance(tl *Timeline) *Timeline {
	if tl == nil {
		return nil
	}
	out := *tl
	out.Scenes = make([]Scene, len(tl.Scenes))
	for i, s := range tl.Scenes {
		if len([]rune(s.DisplayText)) > enhanceMinText {
			s.Shapes = d.DeriveEnhancedShapes(s.DisplayText, s.Style, s.Index)
		}
		out.Scenes[i] = s
	}
	return &out
}

// splitSections cuts a script on blank lines and drops empty sections
func splitSections(script string) []string {
	script = strings.ReplaceAll(script, "\r\n", "\n")
	var sections []string
	for _, s := range sectionSplit.Split(script, -1) {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}
	return sections
}

// mainLine picks the section's representative line
func mainLine(section string) string {
	var lines []string
	for _, l := range strings.Split(section, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	for _, l := range lines {
		if strings.ContainsAny(l, "-•") || len([]rune(l)) > mainLineMinLen {
			return l
		}
	}
	if len(lines) > 0 {
		return lines[0]
	}
	return strings.TrimSpace(section)
}

// CleanLine strips bullet, number and scene-label prefixes and limits the length.
func CleanLine(line string) string {
	s := strings.TrimSpace(line)
	for {
		next := bulletPrefix.ReplaceAllString(s, "")
		next = numberPrefix.ReplaceAllString(next, "")
		next = sceneLabel.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(truncateRunes(s, MaxSceneText))
}
