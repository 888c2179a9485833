// Package i18n holds the localized user-facing texts. Messages are keyed by
// stable ids and stored as gettext catalogs.
package i18n

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/leonelquinteros/gotext"
)

const (
	Polish  = "pl"
	English = "en"

	DefaultLocale = Polish
)

//go:embed locales/*.po
var catalogFS embed.FS

var (
	loadOnce sync.Once
	catalogs map[string]*gotext.Po
	loadErr  error
)

func load() {
	catalogs = make(map[string]*gotext.Po)
	for _, locale := range Locales() {
		data, err := catalogFS.ReadFile("locales/" + locale + ".po")
		if err != nil {
			loadErr = fmt.Errorf("read %s catalog: %w", locale, err)
			return
		}
		po := gotext.NewPo()
		po.Parse(data)
		catalogs[locale] = po
	}
}

// Locales lists the supported locales.
func Locales() []string {
	return []string{Polish, English}
}

// Normalize maps a locale tag such as "en-US" to a supported locale.
func Normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	for _, known := range Locales() {
		if l == known {
			return known
		}
	}
	return DefaultLocale
}

// T returns the message id in locale, formatted with args. Unknown ids come
// back unchanged.
func T(locale, id string, args ...interface{}) string {
	loadOnce.Do(load)
	if loadErr != nil {
		return id
	}
	return catalogs[Normalize(locale)].Get(id, args...)
}
