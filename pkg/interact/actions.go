package interact

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
)

// Errors returned by discrete actions.
var (
	ErrNoSuchNode = errors.New("no such node")
	ErrNoSuchLink = errors.New("no such link")
	ErrNotLoop    = errors.New("link is not a self-loop")
	ErrLoop       = errors.New("link is a self-loop")
)

// NodePatch lists node attributes to change; nil fields are left alone.
type NodePatch struct {
	Label   *string
	Size    *float64
	IsStart *bool
	IsEnd   *bool
}

// LinkPatch lists link attributes to change.
type LinkPatch struct {
	Label *string
}

// AddNode adds a "New State" node at the centre of the visible canvas and
// selects it.
func (c *Controller) AddNode() *diagram.Node {
	size := c.viewport()
	c.view.SetOrigin(c.origin())
	centre := c.view.ToWorld(c.view.Origin.Add(size.Scale(0.5)))
	return c.AddNodeAt(centre, diagram.NewNodeLabel)
}

// AddNodeAt adds a node at a world position and selects it.
func (c *Controller) AddNodeAt(p diagram.Point, label string) *diagram.Node {
	var n *diagram.Node
	_ = c.Do(func() error {
		n = c.graph.AddNode(diagram.NodeAttrs{X: p.X, Y: p.Y, Label: label})
		return nil
	})
	c.sel = Selection{NodeID: n.ID}
	c.log.Debug("node added", zap.String("node", n.ID))
	c.emit(ChangeSelection)
	return n
}

// DeleteSelected removes the selected node (with its links) or link.
func (c *Controller) DeleteSelected() bool {
	sel := c.sel
	if sel.Empty() {
		return false
	}
	removed := false
	_ = c.Do(func() error {
		if sel.NodeID != "" {
			removed = c.graph.RemoveNode(sel.NodeID)
		} else {
			removed = c.graph.RemoveLink(sel.LinkID)
		}
		return nil
	})
	c.sel = Selection{}
	c.emit(ChangeSelection)
	return removed
}

// NewDiagram replaces the graph with the starter template and resets the
// view, as one undoable action.
func (c *Controller) NewDiagram() {
	_ = c.Do(func() error {
		c.graph.Clear()
		c.graph.AddStarterNodes()
		return nil
	})
	c.sel = Selection{}
	c.view.Reset()
	c.emit(ChangeSelection)
	c.emit(ChangeView)
}

// UpdateNode applies a patch to a node. Size is clamped to the allowed
// range.
func (c *Controller) UpdateNode(id string, p NodePatch) error {
	n, ok := c.graph.FindNode(id)
	if !ok {
		return fmt.Errorf("update node %s: %w", id, ErrNoSuchNode)
	}
	return c.Do(func() error {
		if p.Label != nil {
			n.Label = *p.Label
		}
		if p.Size != nil {
			n.Size = math.Max(diagram.MinNodeSize, math.Min(diagram.MaxNodeSize, *p.Size))
		}
		if p.IsStart != nil {
			n.IsStart = *p.IsStart
		}
		if p.IsEnd != nil {
			n.IsEnd = *p.IsEnd
		}
		return nil
	})
}

// UpdateLink applies a patch to a link.
func (c *Controller) UpdateLink(id string, p LinkPatch) error {
	l, ok := c.graph.FindLink(id)
	if !ok {
		return fmt.Errorf("update link %s: %w", id, ErrNoSuchLink)
	}
	return c.Do(func() error {
		if p.Label != nil {
			l.Label = *p.Label
		}
		return nil
	})
}

// SetLinkStraight snaps an inter-node link's control point onto the chord
// midpoint.
func (c *Controller) SetLinkStraight(id string) error {
	l, ok := c.graph.FindLink(id)
	if !ok {
		return fmt.Errorf("straighten %s: %w", id, ErrNoSuchLink)
	}
	if l.IsSelfLoop() {
		return fmt.Errorf("straighten %s: %w", id, ErrLoop)
	}
	return c.Do(func() error {
		c.graph.Straighten(l)
		return nil
	})
}

// SetLinkCurvature moves an inter-node link's control point to distance d
// from the chord midpoint.
func (c *Controller) SetLinkCurvature(id string, d float64) error {
	l, ok := c.graph.FindLink(id)
	if !ok {
		return fmt.Errorf("curvature %s: %w", id, ErrNoSuchLink)
	}
	if l.IsSelfLoop() {
		return fmt.Errorf("curvature %s: %w", id, ErrLoop)
	}
	return c.Do(func() error {
		c.graph.SetCurvature(l, d)
		return nil
	})
}

// SetLoopSpread sets a self-loop's spread in degrees.
func (c *Controller) SetLoopSpread(id string, degrees float64) error {
	l, ok := c.graph.FindLink(id)
	if !ok {
		return fmt.Errorf("spread %s: %w", id, ErrNoSuchLink)
	}
	if !l.IsSelfLoop() {
		return fmt.Errorf("spread %s: %w", id, ErrNotLoop)
	}
	return c.Do(func() error {
		c.graph.SetSpread(l, degrees*math.Pi/180)
		return nil
	})
}

// Arrange repositions every node with an automatic layout, as one
// undoable action.
func (c *Controller) Arrange(l diagram.Layout) {
	_ = c.Do(func() error {
		c.graph.Arrange(l)
		return nil
	})
	c.log.Debug("arranged", zap.Stringer("layout", l))
}

// ReplaceDocument replaces the graph with a JSON interchange document, as
// typed into a raw editor. A malformed document returns an error and
// leaves the graph untouched.
func (c *Controller) ReplaceDocument(data []byte) error {
	doc, err := docfile.ParseJSON(data)
	if err != nil {
		c.log.Debug("document rejected", zap.Error(err))
		return err
	}
	c.ReplaceGraph(doc.Graph())
	return nil
}

// ReplaceGraph copies src into the edited graph as one undoable action.
// Links with a dangling endpoint are dropped. The view is left where it is.
func (c *Controller) ReplaceGraph(src *diagram.Graph) {
	_ = c.Do(func() error {
		c.graph.Restore(src)
		if n := c.graph.Prune(); n > 0 {
			c.log.Debug("dropped dangling links", zap.Int("count", n))
		}
		return nil
	})
	c.dropStaleSelection()
}

// Load replaces the graph with src, clears the selection and resets the
// view, as when opening a file.
func (c *Controller) Load(src *diagram.Graph) {
	c.ReplaceGraph(src)
	c.sel = Selection{}
	c.view.Reset()
	c.emit(ChangeSelection)
	c.emit(ChangeView)
}
