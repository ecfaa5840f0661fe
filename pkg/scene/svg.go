package scene

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string { return xmlReplacer.Replace(s) }

// num formats coordinates without trailing zeros.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteSVG serialises the scene as a standalone SVG document. Each layer
// becomes a clipped group holding a translated group.
func WriteSVG(w io.Writer, s *Scene) error {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s"`,
		num(s.Width), num(s.Height), num(s.Width), num(s.Height))
	if s.Cursor != "" {
		fmt.Fprintf(&b, ` style="cursor:%s"`, escapeXML(s.Cursor))
	}
	b.WriteString(">\n<defs>\n")
	for _, n := range s.Defs {
		writeNode(&b, n)
	}
	for _, l := range s.Layers {
		if l.Clipped() {
			fmt.Fprintf(&b, `<clipPath id="clip-%s"><rect x="%s" y="%s" width="%s" height="%s"/></clipPath>`+"\n",
				escapeXML(l.Name), num(l.Clip.X), num(l.Clip.Y), num(l.Clip.W), num(l.Clip.H))
		}
	}
	b.WriteString("</defs>\n")

	for _, l := range s.Layers {
		if len(l.Nodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, `<g class="%s"`, escapeXML(l.Name))
		if l.Clipped() {
			fmt.Fprintf(&b, ` clip-path="url(#clip-%s)"`, escapeXML(l.Name))
		}
		b.WriteString(">")
		o := l.Origin()
		fmt.Fprintf(&b, `<g transform="translate(%s,%s)">`+"\n", num(o.X), num(o.Y))
		for _, n := range l.Nodes {
			writeNode(&b, n)
		}
		b.WriteString("</g></g>\n")
	}
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Group:
		b.WriteString("<g")
		writeID(b, v.ID)
		if v.Offset != (Point{}) {
			fmt.Fprintf(b, ` transform="translate(%s,%s)"`, num(v.Offset.X), num(v.Offset.Y))
		}
		writeStyle(b, v.Style)
		b.WriteString(">")
		if v.Title != "" {
			fmt.Fprintf(b, "<title>%s</title>", escapeXML(v.Title))
		}
		b.WriteString("\n")
		for _, c := range v.Children {
			writeNode(b, c)
		}
		b.WriteString("</g>\n")
	case *Rect:
		b.WriteString("<rect")
		writeID(b, v.ID)
		fmt.Fprintf(b, ` x="%s" y="%s" width="%s" height="%s"`, num(v.X), num(v.Y), num(max(v.W, 0)), num(max(v.H, 0)))
		if v.RX > 0 {
			fmt.Fprintf(b, ` rx="%s"`, num(v.RX))
		}
		writeStyle(b, v.Style)
		if v.Title != "" {
			fmt.Fprintf(b, "><title>%s</title></rect>\n", escapeXML(v.Title))
		} else {
			b.WriteString("/>\n")
		}
	case *Line:
		b.WriteString("<line")
		writeID(b, v.ID)
		fmt.Fprintf(b, ` x1="%s" y1="%s" x2="%s" y2="%s"`, num(v.X1), num(v.Y1), num(v.X2), num(v.Y2))
		writeStyle(b, v.Style)
		b.WriteString("/>\n")
	case *Text:
		b.WriteString("<text")
		writeID(b, v.ID)
		fmt.Fprintf(b, ` x="%s" y="%s"`, num(v.X), num(v.Y))
		writeStyle(b, v.Style)
		fmt.Fprintf(b, ">%s</text>\n", escapeXML(v.Content))
	case *Path:
		b.WriteString("<path")
		writeID(b, v.ID)
		fmt.Fprintf(b, ` d="%s"`, escapeXML(v.D))
		writeStyle(b, v.Style)
		b.WriteString("/>\n")
	case *Ellipse:
		b.WriteString("<ellipse")
		writeID(b, v.ID)
		fmt.Fprintf(b, ` cx="%s" cy="%s" rx="%s" ry="%s"`, num(v.CX), num(v.CY), num(v.RX), num(v.RY))
		writeStyle(b, v.Style)
		b.WriteString("/>\n")
	case *Image:
		b.WriteString("<image")
		writeID(b, v.ID)
		fmt.Fprintf(b, ` x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="%s"`,
			num(v.X), num(v.Y), num(v.W), num(v.H), escapeXML(v.Href))
		writeStyle(b, v.Style)
		b.WriteString("/>\n")
	case *ClipPath:
		fmt.Fprintf(b, `<clipPath id="%s">`+"\n", escapeXML(v.ID))
		for _, c := range v.Children {
			writeNode(b, c)
		}
		b.WriteString("</clipPath>\n")
	case *Pattern:
		fmt.Fprintf(b, `<pattern id="%s" width="%s" height="%s" patternUnits="userSpaceOnUse"`,
			escapeXML(v.ID), num(v.W), num(v.H))
		if v.Rotate != 0 {
			fmt.Fprintf(b, ` patternTransform="rotate(%s)"`, num(v.Rotate))
		}
		b.WriteString(">\n")
		for _, c := range v.Children {
			writeNode(b, c)
		}
		b.WriteString("</pattern>\n")
	}
}

func writeID(b *strings.Builder, id string) {
	if id != "" {
		fmt.Fprintf(b, ` id="%s"`, escapeXML(id))
	}
}

func writeStyle(b *strings.Builder, s Style) {
	attr := func(name, value string) {
		if value != "" {
			fmt.Fprintf(b, ` %s="%s"`, name, escapeXML(value))
		}
	}
	numAttr := func(name string, value float64) {
		if value != 0 {
			fmt.Fprintf(b, ` %s="%s"`, name, num(value))
		}
	}
	attr("fill", s.Fill)
	numAttr("fill-opacity", s.FillOpacity)
	attr("stroke", s.Stroke)
	numAttr("stroke-width", s.StrokeWidth)
	attr("stroke-dasharray", s.StrokeDash)
	numAttr("opacity", s.Opacity)
	numAttr("font-size", s.FontSize)
	attr("font-family", s.FontFamily)
	attr("font-weight", s.FontWeight)
	attr("text-anchor", s.TextAnchor)
	attr("dominant-baseline", s.DominantBaseline)
	attr("pointer-events", s.PointerEvents)
	attr("cursor", s.Cursor)
	if s.ClipPath != "" {
		fmt.Fprintf(b, ` clip-path="url(#%s)"`, escapeXML(s.ClipPath))
	}
	if s.Filter != "" {
		fmt.Fprintf(b, ` filter="url(#%s)"`, escapeXML(s.Filter))
	}
}
