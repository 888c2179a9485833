package director

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// GenerateTimelinePath creates a timestamped timeline filename inside dir
func GenerateTimelinePath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("timeline_%s.yaml", timestamp))
}

// FindLatestTimeline finds the most recent timeline file in dir
func FindLatestTimeline(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read timelines directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var timelines []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		timelines = append(timelines, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	if len(timelines) == 0 {
		return "", fmt.Errorf("no timeline files found in %s", dir)
	}

	// Newest first
	sort.Slice(timelines, func(i, j int) bool {
		return timelines[i].mod.After(timelines[j].mod)
	})

	return timelines[0].path, nil
}

var hashtag = regexp.MustCompile(`#\S+`)

// ScriptParagraphs prepares a script for display: hashtags removed, list
// markers stripped, one paragraph per non-empty line.
func ScriptParagraphs(script string) []string {
	script = hashtag.ReplaceAllString(strings.ReplaceAll(script, "\r\n", "\n"), "")

	var paragraphs []string
	for _, l := range strings.Split(script, "\n") {
		l = strings.TrimSpace(l)
		l = bulletPrefix.ReplaceAllString(l, "")
		l = numberPrefix.ReplaceAllString(l, "")
		if l = strings.TrimSpace(l); l != "" {
			paragraphs = append(paragraphs, l)
		}
	}
	return paragraphs
}
