package interact

import (
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// LinkHitWidth is the width in screen pixels of the grab region around a
// link's curve.
const LinkHitWidth = 24.0

// PointerDown starts a gesture at a screen position.
func (c *Controller) PointerDown(screen diagram.Point, mods Modifiers) {
	if c.pinching {
		return
	}
	if c.state != Idle {
		c.settle()
	}

	c.view.SetOrigin(c.origin())
	wp := c.view.ToWorld(screen)
	c.last = screen

	mode := c.mode
	if mods&ModCtrl != 0 && mode != ModeConnect {
		mode = ModeConnect
		c.override = true
	}

	if n := c.graph.NodeAt(wp); n != nil {
		c.openGesture()
		if mode == ModeConnect {
			c.state = Connecting
			c.source = n.ID
			c.preview = &Segment{From: n.Center(), To: wp}
			c.log.Debug("connect start", zap.String("node", n.ID))
			return
		}
		c.sel = Selection{NodeID: n.ID}
		c.state = DraggingNode
		c.grab = wp.Sub(n.Center())
		c.emit(ChangeSelection)
		return
	}

	if l := c.graph.LinkAt(wp, LinkHitWidth/2/c.view.Zoom); l != nil {
		c.openGesture()
		c.sel = Selection{LinkID: l.ID}
		c.state = DraggingLinkCurve
		if l.IsSelfLoop() {
			c.grab = l.Control.Sub(wp)
		} else {
			s, t, _ := c.graph.Endpoints(l)
			mid := s.Center().Scale(0.25).Add(l.Control.Scale(0.5)).Add(t.Center().Scale(0.25))
			c.grab = mid.Sub(wp)
		}
		c.emit(ChangeSelection)
		return
	}

	c.sel = Selection{}
	c.state = Panning
	c.panLast = screen
	c.emit(ChangeSelection)
}

// PointerMove advances the active gesture.
func (c *Controller) PointerMove(screen diagram.Point) {
	if c.pinching {
		return
	}
	c.last = screen

	switch c.state {
	case Panning:
		c.view.PanBy(screen.X-c.panLast.X, screen.Y-c.panLast.Y)
		c.panLast = screen
		c.emit(ChangeView)

	case DraggingNode:
		n := c.SelectedNode()
		if n == nil {
			return
		}
		wp := c.view.ToWorld(screen)
		pos := wp.Sub(c.grab)
		delta := pos.Sub(n.Center())
		n.X, n.Y = pos.X, pos.Y
		for _, l := range c.graph.LinksTouching(n.ID) {
			if l.IsSelfLoop() {
				l.Control = l.Control.Add(delta)
			} else {
				l.Control = l.Control.Add(delta.Scale(0.5))
			}
		}

	case DraggingLinkCurve:
		l := c.SelectedLink()
		if l == nil {
			return
		}
		target := c.view.ToWorld(screen).Add(c.grab)
		if l.IsSelfLoop() {
			l.Control = target
			return
		}
		s, t, ok := c.graph.Endpoints(l)
		if !ok {
			return
		}
		l.Control = target.Scale(2).Sub(diagram.Midpoint(s.Center(), t.Center()))

	case Connecting:
		if c.preview != nil {
			c.preview.To = c.view.ToWorld(screen)
		}
	}
}

// PointerUp ends the active gesture. A connect released over a node
// creates a link; anywhere else it is discarded.
func (c *Controller) PointerUp(screen diagram.Point) {
	if c.pinching {
		return
	}
	c.last = screen

	if c.state == Connecting {
		wp := c.view.ToWorld(screen)
		if target := c.graph.ConnectTargetAt(wp); target != nil {
			if l := c.graph.AddLink(c.source, target.ID); l != nil {
				c.log.Debug("link created",
					zap.String("link", l.ID),
					zap.String("source", l.SourceID),
					zap.String("target", l.TargetID))
			}
		}
	}
	c.finishGesture()
}

// DoubleClick selects the node or link under the pointer and asks for its
// properties. It reports whether anything was hit.
func (c *Controller) DoubleClick(screen diagram.Point) bool {
	c.view.SetOrigin(c.origin())
	wp := c.view.ToWorld(screen)

	if n := c.graph.NodeAt(wp); n != nil {
		c.sel = Selection{NodeID: n.ID}
	} else if l := c.graph.LinkAt(wp, LinkHitWidth/2/c.view.Zoom); l != nil {
		c.sel = Selection{LinkID: l.ID}
	} else {
		return false
	}
	c.emit(ChangeSelection)
	c.emit(ChangeProperties)
	return true
}

// TouchStart handles the set of active touches after a finger lands.
// One touch acts as a pointer; two start a pinch that suspends pointer
// handling until fewer than two remain.
func (c *Controller) TouchStart(points []diagram.Point) {
	switch {
	case len(points) >= 2:
		if c.state != Idle {
			c.settle()
		}
		c.pinching = true
		c.view.SetOrigin(c.origin())
		c.view.BeginPinch(points[0], points[1])
	case len(points) == 1 && !c.pinching:
		c.PointerDown(points[0], 0)
	}
}

// TouchMove handles movement of the active touches.
func (c *Controller) TouchMove(points []diagram.Point) {
	switch {
	case len(points) >= 2 && c.pinching:
		if c.view.Pinch(points[0], points[1]) {
			c.emit(ChangeView)
		}
	case len(points) == 1 && !c.pinching:
		c.PointerMove(points[0])
	}
}

// TouchEnd handles the touches that remain after a finger lifts.
func (c *Controller) TouchEnd(remaining []diagram.Point) {
	if c.pinching {
		if len(remaining) < 2 {
			c.pinching = false
		}
		return
	}
	if len(remaining) == 0 {
		c.PointerUp(c.last)
	}
}

// Wheel zooms around the cursor.
func (c *Controller) Wheel(deltaY float64, screen diagram.Point) {
	c.view.SetOrigin(c.origin())
	if c.view.Wheel(deltaY, screen) {
		c.emit(ChangeView)
	}
}

// ZoomIn zooms in one step.
func (c *Controller) ZoomIn() {
	c.view.ZoomIn()
	c.emit(ChangeView)
}

// ZoomOut zooms out one step.
func (c *Controller) ZoomOut() {
	c.view.ZoomOut()
	c.emit(ChangeView)
}

// ResetZoom restores zoom 1.
func (c *Controller) ResetZoom() {
	c.view.ResetZoom()
	c.emit(ChangeView)
}

// ResetView recentres: zero pan and zoom 1.
func (c *Controller) ResetView() {
	c.view.Reset()
	c.emit(ChangeView)
}

// Pan moves the view by a screen delta outside of a pointer gesture, for
// keyboard scrolling.
func (c *Controller) Pan(dx, dy float64) {
	c.view.PanBy(dx, dy)
	c.emit(ChangeView)
}

func (c *Controller) openGesture() {
	c.gestureOpen = true
	c.begin()
}

// finishGesture returns to idle and commits whatever the gesture changed.
func (c *Controller) finishGesture() {
	c.state = Idle
	c.preview = nil
	c.source = ""
	c.override = false
	if c.gestureOpen {
		c.gestureOpen = false
		c.end()
	}
}

// settle ends an interrupted gesture without completing a connect.
func (c *Controller) settle() {
	c.log.Debug("gesture interrupted", zap.Stringer("state", c.state))
	c.finishGesture()
}
