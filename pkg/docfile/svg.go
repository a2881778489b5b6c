// SVG export of a diagram.
// The drawing covers the graph bounds and uses the same curve geometry the
// editor uses for hit testing.

package docfile

import (
	"fmt"
	"html"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// Export palette.
const (
	linkStroke     = "#64748b"
	labelText      = "#334155"
	pillStroke     = "#cbd5e1"
	nodeStroke     = "#475569"
	startFill      = "#f0fdf4"
	startStroke    = "#166534"
	endFill        = "#fef2f2"
	endStroke      = "#991b1b"
	labelFontSize  = 12
	nodeLineHeight = 14.0
	pillHeight     = 24.0
	pillRadius     = 6.0
)

// pillWidth is the width of the rounded box behind a link label.
func pillWidth(label string) float64 {
	return float64(len([]rune(label))*8 + 16)
}

// nodeStyle returns fill, stroke and stroke width for a node.
func nodeStyle(n *diagram.Node) (fill, stroke string, width float64) {
	switch {
	case n.IsStart:
		fill, stroke = startFill, startStroke
	case n.IsEnd:
		fill, stroke = endFill, endStroke
	default:
		fill, stroke = "white", nodeStroke
	}
	width = 2
	if n.IsEnd {
		width = 4
	}
	return fill, stroke, width
}

// labelLines splits a node label into lines with their vertical offsets
// from the node centre.
func labelLines(label string) ([]string, []float64) {
	lines := strings.Split(label, "\n")
	offsets := make([]float64, len(lines))
	mid := float64(len(lines)-1) / 2
	for i := range lines {
		offsets[i] = (float64(i) - mid) * nodeLineHeight
	}
	return lines, offsets
}

// GenerateSVG renders the graph as a standalone SVG document.
func GenerateSVG(g *diagram.Graph) string {
	b := g.Bounds()
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">
<rect width="100%%" height="100%%" fill="white"/>
<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="%s"/>
  </marker>
</defs>
<g transform="translate(%s, %s)">
`, f1(b.W), f1(b.H), f1(b.W), f1(b.H), linkStroke, f1(-b.X), f1(-b.Y)))

	for _, l := range g.Links() {
		c, ok := g.LinkCurve(l)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2" marker-end="url(#arrowhead)"/>
`, c.Path(), linkStroke))

		p, _ := g.LabelAnchor(l)
		w := pillWidth(l.Label)
		sb.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="white" stroke="%s" stroke-width="1"/>
`, f1(p.X-w/2), f1(p.Y-pillHeight/2), f1(w), f1(pillHeight), f1(pillRadius), pillStroke))
		sb.WriteString(fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle" font-family="monospace" font-size="%d" font-weight="bold" fill="%s">%s</text>
`, f1(p.X), f1(p.Y), labelFontSize, labelText, html.EscapeString(l.Label)))
	}

	for _, n := range g.Nodes() {
		fill, stroke, width := nodeStyle(n)
		sb.WriteString(fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" stroke-width="%s"/>
`, f1(n.X), f1(n.Y), f1(n.Radius()), fill, stroke, f1(width)))

		lines, offsets := labelLines(n.Label)
		for i, line := range lines {
			sb.WriteString(fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="%d" font-weight="bold" fill="%s">%s</text>
`, f1(n.X), f1(n.Y+offsets[i]), labelFontSize, labelText, html.EscapeString(line)))
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// f1 formats a coordinate without trailing zeros.
func f1(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}
