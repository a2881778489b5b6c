// Automatic placement of nodes.

package diagram

import (
	"fmt"
	"math"
	"strings"
)

// Layout is an arrangement strategy.
type Layout int

const (
	LayoutLayered Layout = iota
	LayoutGrid
	LayoutCircle
)

// Spacing between arranged node centres, and the top-left margin.
const (
	LayerGap     = 250.0
	RowGap       = 180.0
	LayoutMargin = 200.0
)

var layoutNames = [...]string{"layered", "grid", "circle"}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "unknown"
}

// ParseLayout parses a layout name.
func ParseLayout(s string) (Layout, error) {
	for i, name := range layoutNames {
		if strings.EqualFold(s, name) {
			return Layout(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layout %q (want layered, grid or circle)", s)
}

// Arrange moves every node to a position chosen by the layout. Links
// between distinct nodes are straightened; self-loops keep their offset
// from their node.
func (g *Graph) Arrange(l Layout) {
	if len(g.nodes) == 0 {
		return
	}
	var pos map[string]Point
	switch l {
	case LayoutGrid:
		pos = g.gridPositions()
	case LayoutCircle:
		pos = g.circlePositions()
	default:
		pos = g.layeredPositions()
	}

	moved := make(map[string]Point, len(pos))
	for _, n := range g.nodes {
		p := pos[n.ID]
		moved[n.ID] = p.Sub(n.Center())
		n.X, n.Y = p.X, p.Y
	}
	for _, lk := range g.links {
		if lk.IsSelfLoop() {
			lk.Control = lk.Control.Add(moved[lk.SourceID])
			continue
		}
		g.Straighten(lk)
	}
}

// bfsOrder returns node ids breadth-first from the start nodes, with
// depth, then any unreached nodes rooted one layer further on.
func (g *Graph) bfsOrder() ([]string, map[string]int) {
	adj := make(map[string][]string, len(g.nodes))
	for _, l := range g.links {
		if _, ok := g.nodeByID[l.TargetID]; ok && !l.IsSelfLoop() {
			adj[l.SourceID] = append(adj[l.SourceID], l.TargetID)
		}
	}

	order := make([]string, 0, len(g.nodes))
	depth := make(map[string]int, len(g.nodes))
	walk := func(roots []string, base int) int {
		maxDepth := base
		queue := make([]string, 0, len(roots))
		for _, r := range roots {
			if _, seen := depth[r]; !seen {
				depth[r] = base
				queue = append(queue, r)
			}
		}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, next := range adj[cur] {
				if _, seen := depth[next]; seen {
					continue
				}
				depth[next] = depth[cur] + 1
				if depth[next] > maxDepth {
					maxDepth = depth[next]
				}
				queue = append(queue, next)
			}
		}
		return maxDepth
	}

	var roots []string
	for _, n := range g.nodes {
		if n.IsStart {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		roots = []string{g.nodes[0].ID}
	}
	last := walk(roots, 0)
	for _, n := range g.nodes {
		if _, seen := depth[n.ID]; !seen {
			last = walk([]string{n.ID}, last+1)
		}
	}
	return order, depth
}

// layeredPositions places each BFS layer in a column, centred on the
// starter template's row.
func (g *Graph) layeredPositions() map[string]Point {
	order, depth := g.bfsOrder()
	layers := make(map[int][]string)
	maxLayer := 0
	for _, id := range order {
		d := depth[id]
		layers[d] = append(layers[d], id)
		if d > maxLayer {
			maxLayer = d
		}
	}

	pos := make(map[string]Point, len(order))
	for d := 0; d <= maxLayer; d++ {
		ids := layers[d]
		for i, id := range ids {
			pos[id] = Point{
				X: LayoutMargin + float64(d)*LayerGap,
				Y: 300 + (float64(i)-float64(len(ids)-1)/2)*RowGap,
			}
		}
	}
	return pos
}

// gridPositions fills rows of ceil(sqrt(n)) columns in insertion order.
func (g *Graph) gridPositions() map[string]Point {
	cols := int(math.Ceil(math.Sqrt(float64(len(g.nodes)))))
	pos := make(map[string]Point, len(g.nodes))
	for i, n := range g.nodes {
		pos[n.ID] = Point{
			X: LayoutMargin + float64(i%cols)*LayerGap,
			Y: LayoutMargin + float64(i/cols)*RowGap,
		}
	}
	return pos
}

// circlePositions spaces nodes clockwise from the top in BFS order, on a
// circle wide enough that neighbours do not touch.
func (g *Graph) circlePositions() map[string]Point {
	order, _ := g.bfsOrder()
	n := len(order)
	maxSize := 0.0
	for _, nd := range g.nodes {
		maxSize = math.Max(maxSize, nd.Size)
	}
	radius := math.Max(LayerGap, float64(n)*maxSize*1.5/(2*math.Pi))
	centre := Point{X: LayoutMargin + radius, Y: LayoutMargin + radius}

	pos := make(map[string]Point, n)
	for i, id := range order {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		pos[id] = centre.Add(Point{X: radius * math.Cos(a), Y: radius * math.Sin(a)})
	}
	return pos
}
