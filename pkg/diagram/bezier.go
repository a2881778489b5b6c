// Bézier evaluation for link paths.
// Inter-node links are quadratic; self-loops are a single cubic segment.

package diagram

import (
	"fmt"
	"strconv"
	"strings"
)

// CurveKind distinguishes quadratic from cubic curves.
type CurveKind int

const (
	Quadratic CurveKind = iota
	Cubic
)

// Curve is a single Bézier segment. For Quadratic curves C2 is unused.
type Curve struct {
	Kind  CurveKind
	Start Point
	C1    Point
	C2    Point
	End   Point
}

// At computes the point on the curve at parameter t ∈ [0,1].
func (c Curve) At(t float64) Point {
	mt := 1 - t
	if c.Kind == Quadratic {
		a, b, d := mt*mt, 2*mt*t, t*t
		return Point{
			X: a*c.Start.X + b*c.C1.X + d*c.End.X,
			Y: a*c.Start.Y + b*c.C1.Y + d*c.End.Y,
		}
	}

	mt2 := mt * mt
	mt3 := mt2 * mt
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: mt3*c.Start.X + 3*mt2*t*c.C1.X + 3*mt*t2*c.C2.X + t3*c.End.X,
		Y: mt3*c.Start.Y + 3*mt2*t*c.C1.Y + 3*mt*t2*c.C2.Y + t3*c.End.Y,
	}
}

// Tangent computes the derivative at parameter t.
func (c Curve) Tangent(t float64) Point {
	mt := 1 - t
	if c.Kind == Quadratic {
		return Point{
			X: 2*mt*(c.C1.X-c.Start.X) + 2*t*(c.End.X-c.C1.X),
			Y: 2*mt*(c.C1.Y-c.Start.Y) + 2*t*(c.End.Y-c.C1.Y),
		}
	}

	mt2 := mt * mt
	t2 := t * t
	return Point{
		X: 3*mt2*(c.C1.X-c.Start.X) + 6*mt*t*(c.C2.X-c.C1.X) + 3*t2*(c.End.X-c.C2.X),
		Y: 3*mt2*(c.C1.Y-c.Start.Y) + 6*mt*t*(c.C2.Y-c.C1.Y) + 3*t2*(c.End.Y-c.C2.Y),
	}
}

// Midpoint returns the point at t=0.5.
func (c Curve) Midpoint() Point {
	return c.At(0.5)
}

// EndTangent returns the direction of travel at the end of the curve,
// used to orient arrowheads. Falls back to the chord when the last
// control point coincides with the end.
func (c Curve) EndTangent() Point {
	d := c.Tangent(1)
	if d.Len() < 1e-9 {
		d = c.End.Sub(c.Start)
	}
	return d.Unit()
}

// Sample returns n+1 evenly spaced points along the curve.
func (c Curve) Sample(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.At(float64(i) / float64(n))
	}
	return pts
}

// Path returns SVG path data for the curve.
func (c Curve) Path() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "M %s %s ", num(c.Start.X), num(c.Start.Y))
	if c.Kind == Quadratic {
		fmt.Fprintf(&sb, "Q %s %s %s %s",
			num(c.C1.X), num(c.C1.Y), num(c.End.X), num(c.End.Y))
	} else {
		fmt.Fprintf(&sb, "C %s %s %s %s %s %s",
			num(c.C1.X), num(c.C1.Y), num(c.C2.X), num(c.C2.Y), num(c.End.X), num(c.End.Y))
	}
	return sb.String()
}

// DistanceTo approximates the shortest distance from p to the curve by
// sampling it as a polyline.
func (c Curve) DistanceTo(p Point) float64 {
	pts := c.Sample(curveSamples)
	best := p.Dist(pts[0])
	for i := 1; i < len(pts); i++ {
		if d := segmentDistance(p, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}

const curveSamples = 48

func segmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Dist(a.Add(ab.Scale(t)))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
