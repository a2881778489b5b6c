// Package diagram provides the node/link graph of an FSM diagram and the
// geometry derived from it.
package diagram

import (
	"github.com/google/uuid"
)

// Default attribute values for new elements.
const (
	DefaultNodeSize  = 100.0
	MinNodeSize      = 60.0
	MaxNodeSize      = 250.0
	DefaultLinkLabel = "Event"
	NewNodeLabel     = "New\nState"
)

// Node is a labeled circular state. X and Y are world coordinates of the
// centre; Size is the diameter.
type Node struct {
	ID      string
	X, Y    float64
	Size    float64
	Label   string
	IsStart bool
	IsEnd   bool
}

// Center returns the node centre.
func (n *Node) Center() Point {
	return Point{n.X, n.Y}
}

// Radius returns half the node diameter.
func (n *Node) Radius() float64 {
	return n.Size / 2
}

// Link is a directed transition between two nodes. Links refer to nodes by
// id only; a link whose endpoints do not resolve has no geometry.
type Link struct {
	ID       string
	SourceID string
	TargetID string
	Label    string
	Control  Point
	Spread   float64 // radians, self-loops only
}

// IsSelfLoop reports whether the link starts and ends on the same node.
func (l *Link) IsSelfLoop() bool {
	return l.SourceID == l.TargetID
}

// NodeAttrs holds the caller-supplied attributes of a new node.
type NodeAttrs struct {
	X, Y    float64
	Size    float64 // 0 = DefaultNodeSize
	Label   string
	IsStart bool
	IsEnd   bool
}

// Graph owns the node and link collections. Insertion order is kept for
// deterministic drawing; lookups go through the id indexes.
type Graph struct {
	nodes    []*Node
	links    []*Link
	nodeByID map[string]*Node
	linkByID map[string]*Link
	newID    func() string
}

// New creates an empty graph that assigns UUIDs to new elements.
func New() *Graph {
	return NewWithIDs(func() string { return uuid.New().String() })
}

// NewWithIDs creates an empty graph using gen for element ids.
func NewWithIDs(gen func() string) *Graph {
	return &Graph{
		nodes:    make([]*Node, 0),
		links:    make([]*Link, 0),
		nodeByID: make(map[string]*Node),
		linkByID: make(map[string]*Link),
		newID:    gen,
	}
}

// Starter returns the default template: a start node and an end node,
// horizontally offset, not connected.
func Starter() *Graph {
	g := New()
	g.AddStarterNodes()
	return g
}

// AddStarterNodes appends the two template nodes to g.
func (g *Graph) AddStarterNodes() {
	g.AddNode(NodeAttrs{X: 200, Y: 300, Label: "Initial\nState", IsStart: true})
	g.AddNode(NodeAttrs{X: 550, Y: 300, Label: "Final\nState", IsEnd: true})
}

// Nodes returns the nodes in insertion order. The slice is a copy; the
// nodes are shared.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Links returns the links in insertion order.
func (g *Graph) Links() []*Link {
	out := make([]*Link, len(g.links))
	copy(out, g.links)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// LinkCount returns the number of links.
func (g *Graph) LinkCount() int { return len(g.links) }

// FindNode looks up a node by id.
func (g *Graph) FindNode(id string) (*Node, bool) {
	n, ok := g.nodeByID[id]
	return n, ok
}

// FindLink looks up a link by id.
func (g *Graph) FindLink(id string) (*Link, bool) {
	l, ok := g.linkByID[id]
	return l, ok
}

// Endpoints resolves the source and target of a link.
func (g *Graph) Endpoints(l *Link) (source, target *Node, ok bool) {
	source, sok := g.nodeByID[l.SourceID]
	target, tok := g.nodeByID[l.TargetID]
	if !sok || !tok {
		return nil, nil, false
	}
	return source, target, true
}

// LinksTouching returns every link whose source or target is nodeID.
// Self-loops appear once.
func (g *Graph) LinksTouching(nodeID string) []*Link {
	var result []*Link
	for _, l := range g.links {
		if l.SourceID == nodeID || l.TargetID == nodeID {
			result = append(result, l)
		}
	}
	return result
}

// AddNode appends a node with a fresh id.
func (g *Graph) AddNode(attrs NodeAttrs) *Node {
	size := attrs.Size
	if size <= 0 {
		size = DefaultNodeSize
	}
	n := &Node{
		ID:      g.freshID(),
		X:       attrs.X,
		Y:       attrs.Y,
		Size:    size,
		Label:   attrs.Label,
		IsStart: attrs.IsStart,
		IsEnd:   attrs.IsEnd,
	}
	g.insertNode(n)
	return n
}

// RemoveNode deletes the node and every link touching it.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodeByID[id]; !ok {
		return false
	}

	kept := g.links[:0]
	for _, l := range g.links {
		if l.SourceID == id || l.TargetID == id {
			delete(g.linkByID, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	clearTail(g.links, len(kept))
	g.links = kept

	for i, n := range g.nodes {
		if n.ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.nodeByID, id)
	return true
}

// AddLink connects two existing nodes. It returns nil and changes nothing
// if either id does not resolve. The control point starts at the chord
// midpoint, or above the node for a self-loop.
func (g *Graph) AddLink(sourceID, targetID string) *Link {
	s, ok := g.nodeByID[sourceID]
	if !ok {
		return nil
	}
	t, ok := g.nodeByID[targetID]
	if !ok {
		return nil
	}

	l := &Link{
		ID:       g.freshID(),
		SourceID: sourceID,
		TargetID: targetID,
		Label:    DefaultLinkLabel,
	}
	if sourceID == targetID {
		l.Control = Point{s.X, s.Y - s.Size*1.5}
		l.Spread = DefaultSpread
	} else {
		l.Control = Midpoint(s.Center(), t.Center())
	}
	g.insertLink(l)
	return l
}

// RemoveLink deletes a single link.
func (g *Graph) RemoveLink(id string) bool {
	if _, ok := g.linkByID[id]; !ok {
		return false
	}
	for i, l := range g.links {
		if l.ID == id {
			g.links = append(g.links[:i], g.links[i+1:]...)
			break
		}
	}
	delete(g.linkByID, id)
	return true
}

// Clear removes every node and link.
func (g *Graph) Clear() {
	g.nodes = make([]*Node, 0)
	g.links = make([]*Link, 0)
	g.nodeByID = make(map[string]*Node)
	g.linkByID = make(map[string]*Link)
}

// Replace rewrites the graph wholesale. Elements are copied; links whose
// endpoints are not among the new nodes are dropped, as are elements with
// duplicate ids (first wins). Self-loops without a spread get the default;
// other links lose theirs.
func (g *Graph) Replace(nodes []Node, links []Link) {
	g.Clear()
	for i := range nodes {
		n := nodes[i]
		if _, dup := g.nodeByID[n.ID]; dup {
			continue
		}
		g.insertNode(&n)
	}
	for i := range links {
		l := links[i]
		if _, dup := g.linkByID[l.ID]; dup {
			continue
		}
		if _, _, ok := g.Endpoints(&l); !ok {
			continue
		}
		switch {
		case !l.IsSelfLoop():
			l.Spread = 0
		case l.Spread <= 0:
			l.Spread = DefaultSpread
		}
		g.insertLink(&l)
	}
}

// Prune drops links with a dangling endpoint and returns how many.
func (g *Graph) Prune() int {
	dropped := 0
	kept := g.links[:0]
	for _, l := range g.links {
		if _, _, ok := g.Endpoints(l); !ok {
			delete(g.linkByID, l.ID)
			dropped++
			continue
		}
		kept = append(kept, l)
	}
	clearTail(g.links, len(kept))
	g.links = kept
	return dropped
}

// InsertLink appends a link as given, without checking its endpoints.
// Used by callers that rebuild graphs from external documents.
func (g *Graph) InsertLink(l Link) bool {
	if _, dup := g.linkByID[l.ID]; dup || l.ID == "" {
		return false
	}
	g.insertLink(&l)
	return true
}

// Clone returns a deep copy sharing the id generator.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:    make([]*Node, len(g.nodes)),
		links:    make([]*Link, len(g.links)),
		nodeByID: make(map[string]*Node, len(g.nodes)),
		linkByID: make(map[string]*Link, len(g.links)),
		newID:    g.newID,
	}
	for i, n := range g.nodes {
		nc := *n
		c.nodes[i] = &nc
		c.nodeByID[nc.ID] = &nc
	}
	for i, l := range g.links {
		lc := *l
		c.links[i] = &lc
		c.linkByID[lc.ID] = &lc
	}
	return c
}

// Restore makes g a deep copy of snapshot, keeping g's identity so that
// holders of the *Graph see the restored content.
func (g *Graph) Restore(snapshot *Graph) {
	c := snapshot.Clone()
	g.nodes = c.nodes
	g.links = c.links
	g.nodeByID = c.nodeByID
	g.linkByID = c.linkByID
}

// Equal reports structural equality: same nodes and links with the same
// attributes in the same order.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil {
		return false
	}
	if len(g.nodes) != len(other.nodes) || len(g.links) != len(other.links) {
		return false
	}
	for i, n := range g.nodes {
		if *n != *other.nodes[i] {
			return false
		}
	}
	for i, l := range g.links {
		if *l != *other.links[i] {
			return false
		}
	}
	return true
}

func (g *Graph) freshID() string {
	for {
		id := g.newID()
		_, nodeTaken := g.nodeByID[id]
		_, linkTaken := g.linkByID[id]
		if !nodeTaken && !linkTaken {
			return id
		}
	}
}

func (g *Graph) insertNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.nodeByID[n.ID] = n
}

func (g *Graph) insertLink(l *Link) {
	g.links = append(g.links, l)
	g.linkByID[l.ID] = l
}

// clearTail nils out pointers past n so filtered-away elements can be
// collected.
func clearTail(s []*Link, n int) {
	for i := n; i < len(s); i++ {
		s[i] = nil
	}
}
