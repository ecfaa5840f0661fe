package scene

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MaxRasterWidth caps the pixel width of a rasterized band.
const MaxRasterWidth = 16384

var namedColors = map[string]color.RGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"grey":   {128, 128, 128, 255},
	"gray":   {128, 128, 128, 255},
	"orange": {255, 165, 0, 255},
	"yellow": {255, 255, 0, 255},
}

// ParseColor understands #rgb, #rrggbb and a few names. "none",
// "transparent" and url() references report false.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, true
}

// Rasterize paints nodes into an image covering box, in the nodes' own
// coordinates. Only flat fills and strokes are painted; paths without a
// fill are skipped.
func Rasterize(nodes []Node, box Box) (*image.RGBA, error) {
	w, h := int(math.Ceil(box.W)), int(math.Ceil(box.H))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rasterize: empty box %v", box)
	}
	if w > MaxRasterWidth {
		return nil, fmt.Errorf("rasterize: width %d exceeds %d", w, MaxRasterWidth)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r := rasterizer{img: img, origin: Point{-box.X, -box.Y}}
	r.paint(nodes, Point{})
	return img, nil
}

type rasterizer struct {
	img    *image.RGBA
	origin Point
}

func (r *rasterizer) paint(nodes []Node, off Point) {
	for _, n := range nodes {
		o := off.Add(r.origin)
		switch v := n.(type) {
		case *Group:
			r.paint(v.Children, off.Add(v.Offset))
		case *Rect:
			if c, ok := fillOf(v.Style); ok {
				r.fill(Box{v.X, v.Y, v.W, v.H}.Offset(o), c)
			}
			if c, ok := ParseColor(v.Style.Stroke); ok && v.Style.StrokeWidth > 0 {
				r.outline(Box{v.X, v.Y, v.W, v.H}.Offset(o), c)
			}
		case *Path:
			if c, ok := fillOf(v.Style); ok {
				r.fill(v.Box.Offset(o), c)
			}
		case *Ellipse:
			if c, ok := fillOf(v.Style); ok {
				r.ellipse(v.CX+o.X, v.CY+o.Y, v.RX, v.RY, c)
			}
		case *Line:
			if c, ok := ParseColor(v.Style.Stroke); ok {
				r.line(v.X1+o.X, v.Y1+o.Y, v.X2+o.X, v.Y2+o.Y, c)
			}
		case *Text:
			c, ok := ParseColor(v.Style.Fill)
			if !ok {
				c = color.RGBA{0, 0, 0, 255}
			}
			b := v.Bounds().Offset(o)
			d := &font.Drawer{
				Dst:  r.img,
				Src:  image.NewUniform(c),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(int(b.X), int(b.Y+b.H)),
			}
			d.DrawString(v.Content)
		}
	}
}

func fillOf(s Style) (color.RGBA, bool) {
	c, ok := ParseColor(s.Fill)
	if !ok {
		return c, false
	}
	if s.FillOpacity > 0 && s.FillOpacity < 1 {
		c.A = uint8(255 * s.FillOpacity)
	}
	return c, true
}

func (r *rasterizer) fill(b Box, c color.RGBA) {
	rect := image.Rect(int(math.Floor(b.X)), int(math.Floor(b.Y)), int(math.Ceil(b.X+b.W)), int(math.Ceil(b.Y+b.H)))
	draw.Draw(r.img, rect.Intersect(r.img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func (r *rasterizer) outline(b Box, c color.RGBA) {
	r.line(b.X, b.Y, b.X+b.W, b.Y, c)
	r.line(b.X, b.Y+b.H, b.X+b.W, b.Y+b.H, c)
	r.line(b.X, b.Y, b.X, b.Y+b.H, c)
	r.line(b.X+b.W, b.Y, b.X+b.W, b.Y+b.H, c)
}

func (r *rasterizer) line(x1, y1, x2, y2 float64, c color.RGBA) {
	steps := int(math.Max(math.Abs(x2-x1), math.Abs(y2-y1)))
	if steps == 0 {
		r.img.Set(int(x1), int(y1), c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.img.Set(int(x1+t*(x2-x1)), int(y1+t*(y2-y1)), c)
	}
}

func (r *rasterizer) ellipse(cx, cy, rx, ry float64, c color.RGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	for y := int(cy - ry); y <= int(cy+ry); y++ {
		dy := (float64(y) - cy) / ry
		if dy*dy > 1 {
			continue
		}
		half := rx * math.Sqrt(1-dy*dy)
		for x := int(cx - half); x <= int(cx+half); x++ {
			r.img.Set(x, y, c)
		}
	}
}

// DataURI encodes img as a base64 PNG data URI.
func DataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
