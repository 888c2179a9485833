package director

import (
	"strings"
)

const (
	maxBasicMatches    = 2
	maxEnhancedMatches = 3
	maxBasicShapes     = 3
	maxEnhancedShapes  = 4

	textContentLimit = 60
)

var iconGlyphs = []string{"★", "♦", "●", "▲", "■"}

// placement carries everything a shape factory needs for one scene
type placement struct {
	text    string
	profile StyleProfile
	x, y    float64
	pick    func(n int) int
}

type shapeFactory func(p placement) Shape

// keywordRule contributes one shape when any of its keywords occurs in the text
type keywordRule struct {
	keywords []string
	factory  shapeFactory
}

func (r keywordRule) matches(lower string) bool {
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Rule order decides which shapes win once the match cap is reached. Each
// keyword is its own rule, so a line naming a shape in both languages counts
// twice.
var basicRules = []keywordRule{
	{keywords: []string{"tytuł"}, factory: titleShape},
	{keywords: []string{"title"}, factory: titleShape},
	{keywords: []string{"tekst"}, factory: bodyTextShape},
	{keywords: []string{"text"}, factory: bodyTextShape},
	{keywords: []string{"strzałka"}, factory: arrowShape},
	{keywords: []string{"ramka"}, factory: boxShape},
	{keywords: []string{"frame"}, factory: boxShape},
	{keywords: []string{"diagram"}, factory: diagramShape},
	{keywords: []string{"ikona"}, factory: iconShape},
	{keywords: []string{"icon"}, factory: iconShape},
	{keywords: []string{"linia"}, factory: lineShape},
	{keywords: []string{"line"}, factory: lineShape},
	{keywords: []string{"wykres"}, factory: chartShape},
	{keywords: []string{"chart"}, factory: chartShape},
	{keywords: []string{"circle"}, factory: diagramShape},
	{keywords: []string{"box"}, factory: boxShape},
	{keywords: []string{"arrow"}, factory: arrowShape},
}

var enhancedRules = []keywordRule{
	{keywords: []string{"tytuł"}, factory: titleShape},
	{keywords: []string{"title"}, factory: titleShape},
	{keywords: []string{"tekst"}, factory: bodyTextShape},
	{keywords: []string{"text"}, factory: bodyTextShape},
	{keywords: []string{"strzałka"}, factory: arrowShape},
	{keywords: []string{"ramka"}, factory: boxShape},
	{keywords: []string{"frame"}, factory: boxShape},
	{keywords: []string{"diagram"}, factory: diagramShape},
	{keywords: []string{"ikona"}, factory: iconShape},
	{keywords: []string{"icon"}, factory: iconShape},
	{keywords: []string{"linia"}, factory: lineShape},
	{keywords: []string{"line"}, factory: lineShape},
	{keywords: []string{"wykres"}, factory: chartShape},
	{keywords: []string{"chart"}, factory: chartShape},
	{keywords: []string{"circle"}, factory: filledCircleShape},
	{keywords: []string{"box"}, factory: boxShape},
	{keywords: []string{"arrow"}, factory: arrowShape},
	{keywords: []string{"startup"}, factory: rocketShape},
	{keywords: []string{"biznes"}, factory: chartShape},
	{keywords: []string{"business"}, factory: chartShape},
	{keywords: []string{"edukacj"}, factory: diagramShape},
	{keywords: []string{"educat"}, factory: diagramShape},
	{keywords: []string{"technolog"}, factory: boxShape},
}

// Contextual augmentation, evaluated in order, first match only.
var augmentRules = []keywordRule{
	{keywords: []string{"wprowadz", "start", "intro"}, factory: arrowShape},
	{keywords: []string{"główn", "treść", "main", "body"}, factory: boxShape},
	{keywords: []string{"podsumow", "zakończ", "summary", "conclu"}, factory: diagramShape},
}

// DeriveShapes maps a cleaned scene line to at most three shapes.
func (d *Director) DeriveShapes(text string, style StyleID, index int) []Shape {
	return d.derive(text, style, index, basicRules, maxBasicMatches, maxBasicShapes)
}

// DeriveEnhancedShapes is the richer variant used when visual elements are requested.
// It recognizes thematic keywords and keeps up to four shapes.
func (d *Director) DeriveEnhancedShapes(text string, style StyleID, index int) []Shape {
	return d.derive(text, style, index, enhancedRules, maxEnhancedMatches, maxEnhancedShapes)
}

func (d *Director) derive(text string, style StyleID, index int, rules []keywordRule, maxMatches, maxShapes int) []Shape {
	if index < 0 {
		index = 0
	}
	baseX, baseY := bucket(index)
	p := placement{
		text:    text,
		profile: Profile(style),
		x:       baseX,
		y:       baseY,
		pick:    d.intn,
	}
	lower := strings.ToLower(text)

	shapes := make([]Shape, 0, maxShapes+2)
	for _, rule := range rules {
		if len(shapes) >= maxMatches {
			break
		}
		if rule.matches(lower) {
			shapes = append(shapes, rule.factory(p))
		}
	}

	if !hasText(shapes) {
		fallback := p
		fallback.y = baseY + 30
		shapes = append(shapes, bodyTextShape(fallback))
	}

	for _, rule := range augmentRules {
		if rule.matches(lower) {
			side := p
			side.x = baseX + 150
			shapes = append(shapes, rule.factory(side))
			break
		}
	}

	if len(shapes) > maxShapes {
		shapes = shapes[:maxShapes]
	}
	return shapes
}

// bucket spreads scenes over a three-column grid
func bucket(index int) (float64, float64) {
	return 50 + float64(index%3)*250, 50 + float64(index/3)*150
}

func hasText(shapes []Shape) bool {
	for _, s := range shapes {
		if s.Kind == KindText {
			return true
		}
	}
	return false
}

func textShape(p placement, content string, size float64, family string) Shape {
	return Shape{
		Kind:       KindText,
		X:          p.x,
		Y:          p.y,
		Content:    content,
		FontSize:   size,
		FontFamily: family,
		Stroke:     p.profile.Color,
	}
}

func titleShape(p placement) Shape {
	return textShape(p, truncateRunes(p.text, textContentLimit), 20, p.profile.FontFamily)
}

func bodyTextShape(p placement) Shape {
	return textShape(p, truncateRunes(p.text, textContentLimit), 14, p.profile.FontFamily)
}

func rocketShape(p placement) Shape {
	return textShape(p, "🚀", 14, p.profile.FontFamily)
}

func iconShape(p placement) Shape {
	glyph := iconGlyphs[0]
	if p.pick != nil {
		glyph = iconGlyphs[p.pick(len(iconGlyphs))]
	}
	return textShape(p, glyph, 24, "Arial")
}

func arrowShape(p placement) Shape {
	return Shape{
		Kind:        KindArrow,
		X1:          p.x,
		Y1:          p.y,
		X2:          p.x + 80,
		Y2:          p.y + 40,
		Stroke:      p.profile.Color,
		StrokeWidth: 3,
	}
}

func lineShape(p placement) Shape {
	return Shape{
		Kind:        KindLine,
		X1:          p.x,
		Y1:          p.y,
		X2:          p.x + 100,
		Y2:          p.y,
		Stroke:      p.profile.Color,
		StrokeWidth: 2,
	}
}

func boxShape(p placement) Shape {
	return Shape{
		Kind:        KindRectangle,
		X:           p.x,
		Y:           p.y,
		Width:       120,
		Height:      80,
		Stroke:      p.profile.Color,
		StrokeWidth: 2,
	}
}

func chartShape(p placement) Shape {
	fill := p.profile.Color.WithAlpha(0.2)
	return Shape{
		Kind:        KindRectangle,
		X:           p.x,
		Y:           p.y,
		Width:       100,
		Height:      60,
		Stroke:      p.profile.Color,
		Fill:        &fill,
		StrokeWidth: 2,
	}
}

func diagramShape(p placement) Shape {
	return Shape{
		Kind:        KindCircle,
		X:           p.x,
		Y:           p.y,
		Radius:      40,
		Stroke:      p.profile.Color,
		StrokeWidth: 2,
	}
}

func filledCircleShape(p placement) Shape {
	fill := p.profile.Color.WithAlpha(0.2)
	return Shape{
		Kind:        KindCircle,
		X:           p.x,
		Y:           p.y,
		Radius:      30,
		Stroke:      p.profile.Color,
		Fill:        &fill,
		StrokeWidth: 2,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
