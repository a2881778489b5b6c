// Link geometry derived from node positions and a link's control point.
// All results are computed on demand; nothing here is cached on the graph.

package diagram

import "math"

// Self-loop and curvature constants.
const (
	DefaultSpread   = math.Pi / 4
	MinSpread       = 15 * math.Pi / 180
	MaxSpread       = 160 * math.Pi / 180
	MinCurvature    = 10.0
	MaxCurvature    = 400.0
	StraightEpsilon = 5.0

	minLoopHandle = 20.0
	loopHandleK   = 1.3
	boundsMargin  = 100.0
	controlMargin = 50.0
)

// LinkCurve computes the drawable curve of a link. It reports false when
// either endpoint does not resolve.
func (g *Graph) LinkCurve(l *Link) (Curve, bool) {
	s, t, ok := g.Endpoints(l)
	if !ok {
		return Curve{}, false
	}
	if s == t {
		return selfLoopCurve(s, l.Control, effectiveSpread(l.Spread)), true
	}
	return Curve{
		Kind:  Quadratic,
		Start: rimPoint(s, l.Control),
		C1:    l.Control,
		End:   rimPoint(t, l.Control),
	}, true
}

// LabelAnchor returns the label position of a link: the curve midpoint.
func (g *Graph) LabelAnchor(l *Link) (Point, bool) {
	c, ok := g.LinkCurve(l)
	if !ok {
		return Point{}, false
	}
	if c.Kind == Quadratic {
		return Point{
			X: 0.25*c.Start.X + 0.5*c.C1.X + 0.25*c.End.X,
			Y: 0.25*c.Start.Y + 0.5*c.C1.Y + 0.25*c.End.Y,
		}, true
	}
	return Point{
		X: 0.125*c.Start.X + 0.375*c.C1.X + 0.375*c.C2.X + 0.125*c.End.X,
		Y: 0.125*c.Start.Y + 0.375*c.C1.Y + 0.375*c.C2.Y + 0.125*c.End.Y,
	}, true
}

// rimPoint projects from the node centre towards toward onto the circle.
func rimPoint(n *Node, toward Point) Point {
	dir := toward.Sub(n.Center()).Unit()
	return n.Center().Add(dir.Scale(n.Radius()))
}

// selfLoopCurve builds the cubic for a loop on n. The loop leaves and
// re-enters the rim at ±spread around the direction of the control point;
// both handles extend radially from those rim points.
func selfLoopCurve(n *Node, control Point, spread float64) Curve {
	c := n.Center()
	d := control.Sub(c)
	rot := 0.0
	if d.Len() > 0 {
		rot = math.Atan2(d.Y, d.X)
	}
	r := n.Radius()

	out := Point{math.Cos(rot - spread), math.Sin(rot - spread)}
	in := Point{math.Cos(rot + spread), math.Sin(rot + spread)}
	p0 := c.Add(out.Scale(r))
	p3 := c.Add(in.Scale(r))

	handle := math.Max(minLoopHandle, (d.Len()-r)*loopHandleK)
	return Curve{
		Kind:  Cubic,
		Start: p0,
		C1:    p0.Add(out.Scale(handle)),
		C2:    p3.Add(in.Scale(handle)),
		End:   p3,
	}
}

func effectiveSpread(s float64) float64 {
	if s <= 0 || math.IsNaN(s) {
		return DefaultSpread
	}
	return s
}

// chordMidpoint returns the midpoint between a link's node centres.
func (g *Graph) chordMidpoint(l *Link) (Point, bool) {
	s, t, ok := g.Endpoints(l)
	if !ok {
		return Point{}, false
	}
	return Midpoint(s.Center(), t.Center()), true
}

// Curvature returns the distance of the control point from the chord
// midpoint. Self-loops and dangling links report 0.
func (g *Graph) Curvature(l *Link) float64 {
	if l.IsSelfLoop() {
		return 0
	}
	mid, ok := g.chordMidpoint(l)
	if !ok {
		return 0
	}
	return l.Control.Dist(mid)
}

// IsStraight reports whether an inter-node link's control point sits on
// the chord midpoint, within StraightEpsilon.
func (g *Graph) IsStraight(l *Link) bool {
	if l.IsSelfLoop() {
		return false
	}
	if _, ok := g.chordMidpoint(l); !ok {
		return false
	}
	return g.Curvature(l) < StraightEpsilon
}

// Straighten moves the control point to the chord midpoint.
func (g *Graph) Straighten(l *Link) bool {
	if l.IsSelfLoop() {
		return false
	}
	mid, ok := g.chordMidpoint(l)
	if !ok {
		return false
	}
	l.Control = mid
	return true
}

// SetCurvature places the control point at distance d from the chord
// midpoint, along the current offset direction. A link with no offset
// bends along +Y. d is clamped to [MinCurvature, MaxCurvature].
func (g *Graph) SetCurvature(l *Link, d float64) bool {
	if l.IsSelfLoop() {
		return false
	}
	mid, ok := g.chordMidpoint(l)
	if !ok {
		return false
	}
	d = clamp(d, MinCurvature, MaxCurvature)
	dir := l.Control.Sub(mid)
	if dir.Len() == 0 {
		dir = Point{0, 1}
	}
	l.Control = mid.Add(dir.Unit().Scale(d))
	return true
}

// SetSpread sets a self-loop's half-angle in radians, clamped to
// [MinSpread, MaxSpread].
func (g *Graph) SetSpread(l *Link, radians float64) bool {
	if !l.IsSelfLoop() {
		return false
	}
	l.Spread = clamp(radians, MinSpread, MaxSpread)
	return true
}

// SpreadDegrees returns the effective self-loop spread in whole degrees.
func SpreadDegrees(l *Link) int {
	return int(math.Round(effectiveSpread(l.Spread) * 180 / math.Pi))
}

// Bounds returns the world rectangle covering every node (± its size) and
// every drawable link's control point (± 50), padded by 100 on each side.
// An empty graph yields the default 800x600 canvas.
func (g *Graph) Bounds() Rect {
	if len(g.nodes) == 0 {
		return Rect{0, 0, 800, 600}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p Point, m float64) {
		minX = math.Min(minX, p.X-m)
		minY = math.Min(minY, p.Y-m)
		maxX = math.Max(maxX, p.X+m)
		maxY = math.Max(maxY, p.Y+m)
	}
	for _, n := range g.nodes {
		grow(n.Center(), n.Size)
	}
	for _, l := range g.links {
		if _, _, ok := g.Endpoints(l); ok {
			grow(l.Control, controlMargin)
		}
	}

	return Rect{
		X: minX - boundsMargin,
		Y: minY - boundsMargin,
		W: maxX - minX + 2*boundsMargin,
		H: maxY - minY + 2*boundsMargin,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
