// PNG export of a diagram.
// Draws the same picture as the SVG export, rasterised with gg.

package docfile

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// DefaultPNGScale is the pixel density of PNG exports.
const DefaultPNGScale = 2.0

// Arrowhead size in world units; the SVG marker is 10x7 in stroke-width
// units at stroke width 2.
const (
	arrowLength    = 20.0
	arrowHalfWidth = 7.0
)

// Limits on the rasterised image.
const (
	MaxPNGSide   = 16384
	MaxPNGPixels = 64 << 20
)

// ErrImageTooLarge is returned when a diagram does not fit the PNG limits
// at the requested scale.
var ErrImageTooLarge = errors.New("diagram too large to rasterise")

// RenderPNG rasterises the graph at scale pixels per world unit and writes
// it as PNG. A scale of zero or less means DefaultPNGScale.
func RenderPNG(g *diagram.Graph, w io.Writer, scale float64) error {
	dc, err := rasterise(g, scale)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// RenderImage rasterises the graph into an image.
func RenderImage(g *diagram.Graph, scale float64) (image.Image, error) {
	dc, err := rasterise(g, scale)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

func rasterise(g *diagram.Graph, scale float64) (*gg.Context, error) {
	if scale <= 0 {
		scale = DefaultPNGScale
	}
	b := g.Bounds()
	fw, fh := math.Ceil(b.W*scale), math.Ceil(b.H*scale)
	if !(fw >= 1 && fh >= 1 && fw <= MaxPNGSide && fh <= MaxPNGSide && fw*fh <= MaxPNGPixels) {
		return nil, fmt.Errorf("%w: %.0fx%.0f px at scale %g", ErrImageTooLarge, fw, fh, scale)
	}
	width, height := int(fw), int(fh)

	nodeFace, err := newFace(gobold.TTF, labelFontSize*scale)
	if err != nil {
		return nil, err
	}
	defer nodeFace.Close()
	linkFace, err := newFace(gomonobold.TTF, labelFontSize*scale)
	if err != nil {
		return nil, err
	}
	defer linkFace.Close()

	r := &raster{dc: gg.NewContext(width, height), origin: diagram.Point{X: b.X, Y: b.Y}, scale: scale}
	r.dc.SetHexColor("#ffffff")
	r.dc.Clear()

	r.dc.SetFontFace(linkFace)
	for _, l := range g.Links() {
		c, ok := g.LinkCurve(l)
		if !ok {
			continue
		}
		r.curve(c)
		p, _ := g.LabelAnchor(l)
		r.pill(p, l.Label)
	}

	r.dc.SetFontFace(nodeFace)
	for _, n := range g.Nodes() {
		r.node(n)
	}

	return r.dc, nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// raster maps world coordinates into the pixel grid of dc.
type raster struct {
	dc     *gg.Context
	origin diagram.Point
	scale  float64
}

func (r *raster) px(p diagram.Point) (float64, float64) {
	return (p.X - r.origin.X) * r.scale, (p.Y - r.origin.Y) * r.scale
}

func (r *raster) curve(c diagram.Curve) {
	dc := r.dc
	dc.SetHexColor(linkStroke)
	dc.SetLineWidth(2 * r.scale)

	dc.MoveTo(r.px(c.Start))
	ex, ey := r.px(c.End)
	if c.Kind == diagram.Quadratic {
		x1, y1 := r.px(c.C1)
		dc.QuadraticTo(x1, y1, ex, ey)
	} else {
		x1, y1 := r.px(c.C1)
		x2, y2 := r.px(c.C2)
		dc.CubicTo(x1, y1, x2, y2, ex, ey)
	}
	dc.Stroke()

	// Arrowhead with its tip on the end point.
	dir := c.EndTangent()
	perp := diagram.Point{X: -dir.Y, Y: dir.X}
	base := c.End.Sub(dir.Scale(arrowLength))
	left := base.Add(perp.Scale(arrowHalfWidth))
	right := base.Sub(perp.Scale(arrowHalfWidth))
	dc.MoveTo(r.px(c.End))
	dc.LineTo(r.px(left))
	dc.LineTo(r.px(right))
	dc.ClosePath()
	dc.Fill()
}

func (r *raster) pill(p diagram.Point, label string) {
	dc := r.dc
	w := pillWidth(label)
	x, y := r.px(diagram.Point{X: p.X - w/2, Y: p.Y - pillHeight/2})
	dc.DrawRoundedRectangle(x, y, w*r.scale, pillHeight*r.scale, pillRadius*r.scale)
	dc.SetHexColor("#ffffff")
	dc.FillPreserve()
	dc.SetHexColor(pillStroke)
	dc.SetLineWidth(r.scale)
	dc.Stroke()

	dc.SetHexColor(labelText)
	cx, cy := r.px(p)
	dc.DrawStringAnchored(label, cx, cy, 0.5, 0.35)
}

func (r *raster) node(n *diagram.Node) {
	dc := r.dc
	fill, stroke, width := nodeStyle(n)
	cx, cy := r.px(n.Center())
	dc.DrawCircle(cx, cy, n.Radius()*r.scale)
	if fill == "white" {
		fill = "#ffffff"
	}
	dc.SetHexColor(fill)
	dc.FillPreserve()
	dc.SetHexColor(stroke)
	dc.SetLineWidth(width * r.scale)
	dc.Stroke()

	dc.SetHexColor(labelText)
	lines, offsets := labelLines(n.Label)
	for i, line := range lines {
		_, y := r.px(diagram.Point{X: n.X, Y: n.Y + offsets[i]})
		dc.DrawStringAnchored(line, cx, y, 0.5, 0.35)
	}
}
