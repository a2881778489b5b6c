// Package interact turns pointer, touch and wheel input into diagram edits.
//
// A Controller owns the interaction state (mode, selection, active gesture)
// and is the only writer of its graph and view. It is not safe for
// concurrent use; callers on other goroutines must marshal into the
// goroutine that drives it.
package interact

import (
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/history"
	"github.com/ha1tch/fsm-designer/pkg/view"
)

// Mode selects what a pointer-down on a node does.
type Mode int

const (
	ModeSelect Mode = iota
	ModeConnect
)

func (m Mode) String() string {
	if m == ModeConnect {
		return "connect"
	}
	return "select"
}

// State is the active gesture.
type State int

const (
	Idle State = iota
	Panning
	DraggingNode
	DraggingLinkCurve
	Connecting
)

var stateNames = [...]string{"idle", "panning", "dragging-node", "dragging-link", "connecting"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Modifiers are keyboard modifiers held during a pointer event.
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModShift
)

// ChangeKind classifies a notification.
type ChangeKind int

const (
	// ChangeGraph follows every committed action that altered the graph.
	ChangeGraph ChangeKind = iota
	// ChangeView follows pan and zoom updates.
	ChangeView
	// ChangeSelection follows selection and mode changes.
	ChangeSelection
	// ChangeProperties asks the UI to show the properties of the selection.
	ChangeProperties
)

// Change is delivered to subscribers.
type Change struct {
	Kind ChangeKind
}

// Selection holds at most one of a node or a link.
type Selection struct {
	NodeID string
	LinkID string
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.NodeID == "" && s.LinkID == ""
}

// Segment is the connect preview, in world coordinates.
type Segment struct {
	From, To diagram.Point
}

// OriginFunc reports the canvas origin on screen. It is sampled once per
// gesture.
type OriginFunc func() diagram.Point

// Controller drives a graph from user input.
type Controller struct {
	graph *diagram.Graph
	view  *view.Transform
	hist  *history.Manager
	log   *zap.Logger

	origin   OriginFunc
	viewport func() diagram.Point

	mode     Mode
	prevMode Mode
	held     bool
	override bool

	state   State
	sel     Selection
	grab    diagram.Point
	panLast diagram.Point
	source  string
	preview *Segment
	last    diagram.Point

	pinching    bool
	gestureOpen bool
	editOpen    bool
	depth       int

	listeners []func(Change)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithOrigin sets the canvas origin source.
func WithOrigin(f OriginFunc) Option {
	return func(c *Controller) { c.origin = f }
}

// WithViewport sets the visible canvas size source, used to place new
// nodes at the centre of the view.
func WithViewport(f func() diagram.Point) Option {
	return func(c *Controller) { c.viewport = f }
}

// WithHistoryLimit sets the number of undo levels.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) { c.hist = history.New(n) }
}

// New creates a controller over g. A nil graph starts from the starter
// template.
func New(g *diagram.Graph, opts ...Option) *Controller {
	if g == nil {
		g = diagram.Starter()
	}
	c := &Controller{
		graph:    g,
		view:     view.New(),
		hist:     history.New(history.DefaultLimit),
		log:      zap.NewNop(),
		origin:   func() diagram.Point { return diagram.Point{} },
		viewport: func() diagram.Point { return diagram.Point{X: 800, Y: 600} },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph returns the edited graph.
func (c *Controller) Graph() *diagram.Graph { return c.graph }

// View returns the view transform.
func (c *Controller) View() *view.Transform { return c.view }

// Mode returns the current interaction mode.
func (c *Controller) Mode() Mode { return c.mode }

// ConnectArmed reports whether pointer-downs on nodes currently start links,
// either from the mode or a modifier held for this gesture.
func (c *Controller) ConnectArmed() bool {
	return c.mode == ModeConnect || c.override
}

// State returns the active gesture.
func (c *Controller) State() State { return c.state }

// Selection returns the current selection.
func (c *Controller) Selection() Selection { return c.sel }

// SelectedNode resolves the selected node, if any.
func (c *Controller) SelectedNode() *diagram.Node {
	if c.sel.NodeID == "" {
		return nil
	}
	n, _ := c.graph.FindNode(c.sel.NodeID)
	return n
}

// SelectedLink resolves the selected link, if any.
func (c *Controller) SelectedLink() *diagram.Link {
	if c.sel.LinkID == "" {
		return nil
	}
	l, _ := c.graph.FindLink(c.sel.LinkID)
	return l
}

// Preview returns the connect preview segment while connecting.
func (c *Controller) Preview() (Segment, bool) {
	if c.preview == nil {
		return Segment{}, false
	}
	return *c.preview, true
}

// CanUndo reports whether Undo would do anything.
func (c *Controller) CanUndo() bool { return c.hist.CanUndo() }

// CanRedo reports whether Redo would do anything.
func (c *Controller) CanRedo() bool { return c.hist.CanRedo() }

// Subscribe registers fn for change notifications. Listeners run
// synchronously after the action that caused them has been committed;
// calls they make back into the controller form separate actions.
func (c *Controller) Subscribe(fn func(Change)) {
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) emit(kind ChangeKind) {
	for _, fn := range c.listeners {
		fn(Change{Kind: kind})
	}
}

// SetMode switches between select and connect, clearing the selection.
func (c *Controller) SetMode(m Mode) {
	c.mode = m
	c.sel = Selection{}
	c.log.Debug("mode", zap.Stringer("mode", m))
	c.emit(ChangeSelection)
}

// HoldConnect temporarily switches to connect mode until ReleaseConnect.
func (c *Controller) HoldConnect() {
	if c.held || c.mode == ModeConnect {
		return
	}
	c.held = true
	c.prevMode = c.mode
	c.SetMode(ModeConnect)
}

// ReleaseConnect reverts a HoldConnect.
func (c *Controller) ReleaseConnect() {
	if !c.held {
		return
	}
	c.held = false
	c.SetMode(c.prevMode)
}

// Select sets the selection directly. Unknown ids clear it.
func (c *Controller) Select(sel Selection) {
	switch {
	case sel.NodeID != "":
		if _, ok := c.graph.FindNode(sel.NodeID); ok {
			c.sel = Selection{NodeID: sel.NodeID}
		} else {
			c.sel = Selection{}
		}
	case sel.LinkID != "":
		if _, ok := c.graph.FindLink(sel.LinkID); ok {
			c.sel = Selection{LinkID: sel.LinkID}
		} else {
			c.sel = Selection{}
		}
	default:
		c.sel = Selection{}
	}
	c.emit(ChangeSelection)
}

// begin opens an undoable action. Only the outermost open action records
// a snapshot.
func (c *Controller) begin() {
	c.depth++
	if c.depth == 1 {
		c.hist.Record(c.graph)
	}
}

// end closes an action; the outermost one commits and notifies.
func (c *Controller) end() {
	if c.depth == 0 {
		return
	}
	c.depth--
	if c.depth > 0 {
		return
	}
	if c.hist.Commit(c.graph) {
		c.emit(ChangeGraph)
	}
}

// Do runs fn as one undoable action. Calls nested inside fn, or made while
// a gesture or field edit is open, become part of that outer action.
func (c *Controller) Do(fn func() error) error {
	c.begin()
	err := fn()
	c.end()
	return err
}

// BeginEdit opens an action for a property field; EndEdit commits it.
func (c *Controller) BeginEdit() {
	if c.editOpen {
		return
	}
	c.editOpen = true
	c.begin()
}

// EndEdit commits the action opened by BeginEdit.
func (c *Controller) EndEdit() {
	if !c.editOpen {
		return
	}
	c.editOpen = false
	c.end()
}

// Undo restores the previous graph state. It is refused while an action
// is open.
func (c *Controller) Undo() bool {
	if c.depth > 0 || !c.hist.Undo(c.graph) {
		return false
	}
	c.dropStaleSelection()
	c.log.Debug("undo")
	c.emit(ChangeGraph)
	return true
}

// Redo re-applies the last undone state.
func (c *Controller) Redo() bool {
	if c.depth > 0 || !c.hist.Redo(c.graph) {
		return false
	}
	c.dropStaleSelection()
	c.log.Debug("redo")
	c.emit(ChangeGraph)
	return true
}

func (c *Controller) dropStaleSelection() {
	if c.sel.NodeID != "" {
		if _, ok := c.graph.FindNode(c.sel.NodeID); !ok {
			c.sel = Selection{}
		}
	}
	if c.sel.LinkID != "" {
		if _, ok := c.graph.FindLink(c.sel.LinkID); !ok {
			c.sel = Selection{}
		}
	}
}
