package diagram

// ConnectTolerance widens the node hit radius when looking for the target
// of a new link.
const ConnectTolerance = 10.0

// NodeAt returns the topmost node whose circle contains p, or nil.
// Later nodes are drawn on top, so the search runs backwards.
func (g *Graph) NodeAt(p Point) *Node {
	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := g.nodes[i]
		if p.Dist(n.Center()) <= n.Radius() {
			return n
		}
	}
	return nil
}

// ConnectTargetAt returns the first node within its radius plus
// ConnectTolerance of p, or nil.
func (g *Graph) ConnectTargetAt(p Point) *Node {
	for _, n := range g.nodes {
		if p.Dist(n.Center()) < n.Radius()+ConnectTolerance {
			return n
		}
	}
	return nil
}

// LinkAt returns the topmost link whose curve passes within halfWidth of
// p, or nil. Links with a dangling endpoint are never hit.
func (g *Graph) LinkAt(p Point, halfWidth float64) *Link {
	for i := len(g.links) - 1; i >= 0; i-- {
		l := g.links[i]
		c, ok := g.LinkCurve(l)
		if !ok {
			continue
		}
		if c.DistanceTo(p) <= halfWidth {
			return l
		}
	}
	return nil
}
