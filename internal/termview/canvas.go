// Package termview paints a timeline scene onto a grid of terminal cells
// and maps cells back to scene coordinates.
//
// Each cell stands for a CellW x CellH block of scene pixels. Fills colour
// cell backgrounds, text is laid out by display width and thin strokes
// become box-drawing glyphs. Nothing finer than a cell survives.
package termview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"

	"github.com/daviddao/tlview/pkg/scene"
)

// Default cell size in scene pixels.
const (
	DefaultCellWidth  = 6.0
	DefaultCellHeight = 12.0
)

// cell holds one glyph. r is 0 in the right half of a wide glyph.
type cell struct {
	r      rune
	fg, bg string
	bold   bool
}

// Canvas is a cols x rows character grid.
type Canvas struct {
	CellW, CellH float64

	cols, rows int
	cells      []cell
}

// New returns a blank canvas. Non-positive cell sizes select the defaults.
func New(cols, rows int, cellW, cellH float64) *Canvas {
	if cellW <= 0 {
		cellW = DefaultCellWidth
	}
	if cellH <= 0 {
		cellH = DefaultCellHeight
	}
	c := &Canvas{CellW: cellW, CellH: cellH, cols: max(cols, 0), rows: max(rows, 0)}
	c.cells = make([]cell, c.cols*c.rows)
	c.Clear()
	return c
}

// Cols returns the grid width.
func (c *Canvas) Cols() int { return c.cols }

// Rows returns the grid height.
func (c *Canvas) Rows() int { return c.rows }

// PixelSize is the scene size that exactly covers the grid.
func (c *Canvas) PixelSize() (w, h float64) {
	return float64(c.cols) * c.CellW, float64(c.rows) * c.CellH
}

// Point returns the scene position at the centre of a cell.
func (c *Canvas) Point(col, row int) scene.Point {
	return scene.Point{X: (float64(col) + 0.5) * c.CellW, Y: (float64(row) + 0.5) * c.CellH}
}

// Cell returns the cell containing a scene position.
func (c *Canvas) Cell(p scene.Point) (col, row int) {
	return int(math.Floor(p.X / c.CellW)), int(math.Floor(p.Y / c.CellH))
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
}

// Rune returns the glyph at a cell, or 0 outside the grid and in the
// right half of a wide glyph.
func (c *Canvas) Rune(col, row int) rune {
	if p := c.at(col, row); p != nil {
		return p.r
	}
	return 0
}

// Background returns the background colour at a cell as #rrggbb.
func (c *Canvas) Background(col, row int) string {
	if p := c.at(col, row); p != nil {
		return p.bg
	}
	return ""
}

func (c *Canvas) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return nil
	}
	return &c.cells[row*c.cols+col]
}

// Paint clears the canvas and draws every layer of s in paint order.
func (c *Canvas) Paint(s *scene.Scene) {
	c.Clear()
	if s == nil {
		return
	}
	for _, l := range s.Layers {
		clip := scene.Box{X: 0, Y: 0, W: float64(c.cols) * c.CellW, H: float64(c.rows) * c.CellH}
		if l.Clipped() {
			if l.Clip.Empty() {
				continue
			}
			clip = intersect(clip, l.Clip)
		}
		p := painter{c: c, clip: clip}
		p.nodes(l.Nodes, l.Origin())
	}
}

// Render returns the grid as styled lines joined by newlines. Runs of
// cells that share a style are rendered together.
func (c *Canvas) Render() string {
	lines := make([]string, c.rows)
	for row := 0; row < c.rows; row++ {
		var b strings.Builder
		start := 0
		for col := 1; col <= c.cols; col++ {
			if col < c.cols && sameStyle(c.cells[row*c.cols+col], c.cells[row*c.cols+start]) {
				continue
			}
			b.WriteString(c.run(row, start, col))
			start = col
		}
		lines[row] = b.String()
	}
	return strings.Join(lines, "\n")
}

func (c *Canvas) run(row, from, to int) string {
	first := c.cells[row*c.cols+from]
	rs := make([]rune, 0, to-from)
	for col := from; col < to; col++ {
		if r, ok := c.glyph(col, row); ok {
			rs = append(rs, r)
		}
	}
	if first.fg == "" && first.bg == "" && !first.bold {
		return string(rs)
	}
	st := lipgloss.NewStyle().Bold(first.bold)
	if first.fg != "" {
		st = st.Foreground(lipgloss.Color(first.fg))
	}
	if first.bg != "" {
		st = st.Background(lipgloss.Color(first.bg))
	}
	return st.Render(string(rs))
}

// glyph returns what a cell contributes to its line so that every cell
// takes exactly one column. A wide glyph whose right half was painted over
// becomes a blank, as does an orphaned right half.
func (c *Canvas) glyph(col, row int) (rune, bool) {
	r := c.cells[row*c.cols+col].r
	if r == 0 {
		if col > 0 && runeWidth(c.cells[row*c.cols+col-1].r) == 2 {
			return 0, false
		}
		return ' ', true
	}
	if runeWidth(r) == 2 && (col+1 >= c.cols || c.cells[row*c.cols+col+1].r != 0) {
		return ' ', true
	}
	return r, true
}

func runeWidth(r rune) int {
	if r == 0 {
		return 0
	}
	return ansi.StringWidth(string(r))
}

func sameStyle(a, b cell) bool { return a.fg == b.fg && a.bg == b.bg && a.bold == b.bold }

// --- Painting ---

type painter struct {
	c    *Canvas
	clip scene.Box
}

func (p painter) nodes(nodes []scene.Node, off scene.Point) {
	for _, n := range nodes {
		st := n.NodeStyle()
		if st.Opacity > 0 && st.Opacity < 0.2 {
			continue
		}
		switch v := n.(type) {
		case *scene.Group:
			p.nodes(v.Children, off.Add(v.Offset))
		case *scene.Rect:
			b := v.Bounds().Offset(off)
			if bg, ok := hexColor(st.Fill); ok {
				p.fill(b, bg)
			} else if fg, ok := hexColor(st.Stroke); ok && st.StrokeWidth > 0 {
				p.outline(b, fg)
			}
		case *scene.Path:
			if fg, ok := hexColor(st.Fill); ok {
				b := v.Box.Offset(off)
				p.glyph(scene.Point{X: b.X + b.W/2, Y: b.Y + b.H/2}, '◆', fg)
			}
		case *scene.Ellipse:
			if fg, ok := hexColor(st.Fill); ok {
				p.glyph(scene.Point{X: v.CX + off.X, Y: v.CY + off.Y}, '●', fg)
			}
		case *scene.Line:
			fg, ok := hexColor(st.Stroke)
			if !ok {
				continue
			}
			p.line(v, off, fg)
		case *scene.Text:
			fg, _ := hexColor(st.Fill)
			b := v.Bounds().Offset(off)
			p.text(b, v.Content, fg, st.FontWeight == "bold")
		}
	}
}

// covered calls fn for every cell whose centre lies in b and the clip.
func (p painter) covered(b scene.Box, fn func(*cell)) {
	b = intersect(b, p.clip)
	if b.Empty() {
		return
	}
	c := p.c
	c0 := int(math.Round(b.X / c.CellW))
	c1 := int(math.Round((b.X + b.W) / c.CellW))
	r0 := int(math.Round(b.Y / c.CellH))
	r1 := int(math.Round((b.Y + b.H) / c.CellH))
	// Anything thinner than a cell still claims the cell it sits in.
	if c1 == c0 {
		c0 = int(math.Floor((b.X + b.W/2) / c.CellW))
		c1 = c0 + 1
	}
	if r1 == r0 {
		r0 = int(math.Floor((b.Y + b.H/2) / c.CellH))
		r1 = r0 + 1
	}
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			if x := c.at(col, row); x != nil {
				fn(x)
			}
		}
	}
}

func (p painter) fill(b scene.Box, bg string) {
	p.covered(b, func(x *cell) {
		x.bg = bg
		x.r = ' '
	})
}

func (p painter) outline(b scene.Box, fg string) {
	p.covered(b, func(x *cell) {
		x.fg = fg
		if x.r == ' ' {
			x.r = '░'
		}
	})
}

func (p painter) glyph(at scene.Point, r rune, fg string) {
	if !p.clip.Contains(at) {
		return
	}
	col, row := p.c.Cell(at)
	if x := p.c.at(col, row); x != nil {
		x.r = r
		x.fg = fg
	}
}

func (p painter) line(l *scene.Line, off scene.Point, fg string) {
	x1, y1, x2, y2 := l.X1+off.X, l.Y1+off.Y, l.X2+off.X, l.Y2+off.Y
	var r rune
	var b scene.Box
	switch {
	case x1 == x2:
		r = '│'
		b = scene.Box{X: x1 - 0.5, Y: math.Min(y1, y2), W: 1, H: math.Abs(y2 - y1)}
	case y1 == y2:
		r = '─'
		b = scene.Box{X: math.Min(x1, x2), Y: y1 - 0.5, W: math.Abs(x2 - x1), H: 1}
	default:
		return
	}
	p.covered(b, func(x *cell) {
		x.r = r
		x.fg = fg
	})
}

func (p painter) text(b scene.Box, s, fg string, bold bool) {
	c := p.c
	row := int(math.Floor((b.Y + b.H/2) / c.CellH))
	col := int(math.Round(b.X / c.CellW))
	for _, r := range s {
		w := runeWidth(r)
		if w == 0 {
			continue
		}
		if p.clip.Contains(c.Point(col, row)) && p.clip.Contains(c.Point(col+w-1, row)) {
			for i := range w {
				if x := c.at(col+i, row); x != nil {
					x.r = r
					if i > 0 {
						x.r = 0
					}
					x.fg = fg
					x.bold = bold
				}
			}
		}
		col += w
	}
}

func intersect(a, b scene.Box) scene.Box {
	x0, y0 := math.Max(a.X, b.X), math.Max(a.Y, b.Y)
	x1, y1 := math.Min(a.X+a.W, b.X+b.W), math.Min(a.Y+a.H, b.Y+b.H)
	if x1 <= x0 || y1 <= y0 {
		return scene.Box{}
	}
	return scene.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func hexColor(s string) (string, bool) {
	rgba, ok := scene.ParseColor(s)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B), true
}

// --- Tooltip ---

var tooltipStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#7C3AED")).
	Foreground(lipgloss.Color("#CDD6F4")).
	Padding(0, 1)

// Tooltip renders title and body in a bordered box no wider than width.
func Tooltip(title, body string, width int) string {
	inner := max(width-4, 8)
	text := lipgloss.NewStyle().Bold(true).Render(wordwrap.String(title, inner))
	if body != "" {
		text += "\n" + wordwrap.String(body, inner)
	}
	return tooltipStyle.Render(text)
}
