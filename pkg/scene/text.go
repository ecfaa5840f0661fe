package scene

import (
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// DefaultFontSize is used when a text style leaves FontSize unset.
const DefaultFontSize = 10.0

// Measurer reports the rendered size of a single line of text.
type Measurer interface {
	Measure(text string, fontSize float64) (width, height float64)
}

// FontMeasurer measures with a fixed-pitch bitmap face scaled to the
// requested size.
type FontMeasurer struct {
	face font.Face
	// native pixel height of face
	height float64
}

// NewFontMeasurer returns a measurer backed by basicfont.Face7x13.
func NewFontMeasurer() *FontMeasurer {
	return &FontMeasurer{face: basicfont.Face7x13, height: float64(basicfont.Face7x13.Height)}
}

// Measure implements Measurer.
func (m *FontMeasurer) Measure(text string, fontSize float64) (float64, float64) {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	adv := font.MeasureString(m.face, text)
	scale := fontSize / m.height
	return float64(adv) / 64 * scale, fontSize
}

// CellMeasurer measures text in terminal cells. Wide glyphs take two.
// Terminal hosts use it so widths line up with the character grid.
type CellMeasurer struct {
	CellWidth float64
}

// Measure implements Measurer.
func (m CellMeasurer) Measure(text string, fontSize float64) (float64, float64) {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	return float64(ansi.StringWidth(text)) * m.CellWidth, fontSize
}
