package director

// StyleID names a visual style profile
type StyleID string

const (
	StyleHandDrawn   StyleID = "hand-drawn"
	StyleMinimal     StyleID = "minimal"
	StyleBusiness    StyleID = "business"
	StyleEducational StyleID = "educational"
	StyleCreative    StyleID = "creative"

	DefaultStyle = StyleMinimal
)

// StyleProfile is the color and font pair every factory draws with
type StyleProfile struct {
	Color      Color
	FontFamily string
}

var styleProfiles = map[StyleID]StyleProfile{
	StyleHandDrawn:   {Color: Color{R: 34, G: 34, B: 34, A: 1}, FontFamily: "Comic Sans MS, cursive"},
	StyleMinimal:     {Color: Color{R: 102, G: 126, B: 234, A: 1}, FontFamily: "Inter, sans-serif"},
	StyleBusiness:    {Color: Color{R: 59, G: 130, B: 246, A: 1}, FontFamily: "Arial, sans-serif"},
	StyleEducational: {Color: Color{R: 16, G: 185, B: 129, A: 1}, FontFamily: "Georgia, serif"},
	StyleCreative:    {Color: Color{R: 245, G: 101, B: 101, A: 1}, FontFamily: "Trebuchet MS, sans-serif"},
}

// Profile returns the profile for id, falling back to the default style.
func Profile(id StyleID) StyleProfile {
	if p, ok := styleProfiles[id]; ok {
		return p
	}
	return styleProfiles[DefaultStyle]
}

// Known reports whether id names a registered style.
func Known(id StyleID) bool {
	_, ok := styleProfiles[id]
	return ok
}

// Styles lists the registered style ids in display order.
func Styles() []StyleID {
	return []StyleID{StyleHandDrawn, StyleMinimal, StyleBusiness, StyleEducational, StyleCreative}
}
