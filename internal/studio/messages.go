package studio

import (
	"errors"

	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/i18n"
	"github.com/ivlev/sketchstory/internal/provider"
)

// UserMessage maps err to a localized message for the user.
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, engine.ErrEmptyTimeline) {
		return i18n.T(locale, engine.NoticeEmptyTimeline)
	}
	if errors.Is(err, director.ErrInvalidDuration) {
		return i18n.T(locale, "INVALID_DURATION")
	}

	var pe *provider.Error
	if !errors.As(err, &pe) {
		return i18n.T(locale, "GENERIC", err.Error())
	}
	name := provider.DisplayName(pe.Provider)
	switch pe.Kind {
	case provider.Overloaded:
		return i18n.T(locale, "OVERLOADED", name)
	case provider.RateLimited:
		return i18n.T(locale, "RATE_LIMITED", name)
	case provider.Unauthorized:
		return i18n.T(locale, "UNAUTHORIZED", name)
	case provider.MissingCredential:
		return i18n.T(locale, "MISSING_CREDENTIAL", name)
	case provider.NetworkFailure:
		return i18n.T(locale, "NETWORK", name)
	case provider.MalformedResponse:
		return i18n.T(locale, "MALFORMED", name)
	default:
		return i18n.T(locale, "GENERIC", err.Error())
	}
}

// StatusMessage localizes a retry or fallback report.
func StatusMessage(st provider.Status, locale string) string {
	name := provider.DisplayName(st.Provider)
	switch {
	case st.Event == provider.StatusRetrying:
		return i18n.T(locale, "RETRYING", name, st.Wait.String())
	case st.Reason == provider.NetworkFailure:
		return i18n.T(locale, "FALLBACK_NETWORK")
	default:
		return i18n.T(locale, "FALLBACK_OVERLOADED", name)
	}
}

// NoticeMessage localizes an engine notice id.
func NoticeMessage(id, locale string) string {
	return i18n.T(locale, id)
}
