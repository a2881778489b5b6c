package main

import (
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/interact"
)

// Keyboard step sizes.
const (
	sizeStep      = 10.0
	curvatureStep = 20.0
	spreadStep    = 5.0
	panStep       = 4 // cells
)

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	switch ed.mode {
	case ModeInput:
		ed.handleInputKey(ev)
		return false
	case ModeHelp:
		ed.mode = ModeCanvas
		return false
	}

	// Global shortcuts (Ctrl, or Cmd reported as Meta+rune)
	mod := ev.Modifiers()
	isCtrlOrCmd := func(key tcell.Key, r rune) bool {
		if ev.Key() == key {
			return true
		}
		return mod&tcell.ModMeta != 0 && ev.Rune() == r
	}

	switch {
	case isCtrlOrCmd(tcell.KeyCtrlQ, 'q'):
		return true
	case isCtrlOrCmd(tcell.KeyCtrlZ, 'z'):
		if ed.ctrl.Undo() {
			ed.showMessage("Undo", MsgInfo)
		} else {
			ed.showMessage("Nothing to undo", MsgInfo)
		}
		return false
	case isCtrlOrCmd(tcell.KeyCtrlY, 'y'):
		if ed.ctrl.Redo() {
			ed.showMessage("Redo", MsgInfo)
		} else {
			ed.showMessage("Nothing to redo", MsgInfo)
		}
		return false
	case isCtrlOrCmd(tcell.KeyCtrlS, 's'):
		ed.save()
		return false
	case isCtrlOrCmd(tcell.KeyCtrlW, 'w'):
		ed.saveAs()
		return false
	case isCtrlOrCmd(tcell.KeyCtrlO, 'o'):
		ed.promptOpen()
		return false
	case isCtrlOrCmd(tcell.KeyCtrlN, 'n'):
		ed.ctrl.NewDiagram()
		ed.showMessage("New diagram", MsgSuccess)
		return false
	case isCtrlOrCmd(tcell.KeyCtrlE, 'e'):
		ed.export()
		return false
	case isCtrlOrCmd(tcell.KeyCtrlC, 'c'):
		ed.copyToClipboard()
		return false
	case isCtrlOrCmd(tcell.KeyCtrlV, 'v'):
		ed.pasteFromClipboard()
		return false
	}

	return ed.handleCanvasKey(ev)
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		if ed.ctrl.Mode() == interact.ModeConnect {
			ed.ctrl.SetMode(interact.ModeSelect)
		} else {
			ed.ctrl.Select(interact.Selection{})
		}
	case tcell.KeyUp:
		ed.ctrl.Pan(0, panStep*cellH)
	case tcell.KeyDown:
		ed.ctrl.Pan(0, -panStep*cellH)
	case tcell.KeyLeft:
		ed.ctrl.Pan(panStep*cellW, 0)
	case tcell.KeyRight:
		ed.ctrl.Pan(-panStep*cellW, 0)
	case tcell.KeyEnter, tcell.KeyF2:
		ed.editLabel()
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		if !ed.ctrl.DeleteSelected() {
			ed.showMessage("Nothing selected", MsgInfo)
		}
	case tcell.KeyTab:
		ed.cycleSelection()
	case tcell.KeyF1:
		ed.mode = ModeHelp
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case 'a', 'A':
			ed.ctrl.AddNode()
		case 'c', 'C':
			if ed.ctrl.Mode() == interact.ModeConnect {
				ed.ctrl.SetMode(interact.ModeSelect)
			} else {
				ed.ctrl.SetMode(interact.ModeConnect)
			}
		case 's', 'S':
			ed.toggleNodeFlag(true)
		case 'f', 'F':
			ed.toggleNodeFlag(false)
		case '[':
			ed.adjustSelection(-1)
		case ']':
			ed.adjustSelection(1)
		case '|':
			ed.straightenSelection()
		case '+', '=':
			ed.ctrl.ZoomIn()
		case '-', '_':
			ed.ctrl.ZoomOut()
		case '0':
			ed.ctrl.ResetZoom()
		case 'r', 'R':
			ed.ctrl.ResetView()
		case 'l', 'L':
			ed.arrange()
		case 'x', 'X':
			ed.cycleExportFormat()
		case '\\':
			ed.toggleSidebar()
		case 'h', 'H', '?':
			ed.mode = ModeHelp
		}
	}
	return false
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	btn := ev.Buttons()
	prev := ed.buttons
	if btn&(tcell.WheelUp|tcell.WheelDown) == 0 {
		ed.buttons = btn
	}
	pressed := btn&tcell.Button1 != 0
	was := prev&tcell.Button1 != 0
	rightPressed := btn&tcell.Button2 != 0 && prev&tcell.Button2 == 0

	if ed.mode == ModeHelp {
		if pressed && !was {
			ed.mode = ModeCanvas
		}
		return
	}
	if ed.mode != ModeCanvas {
		return
	}

	p := cellToPixel(x, y)
	cw, ch := ed.canvasSize()
	inCanvas := x >= 0 && y >= 0 && x < cw && y < ch

	switch {
	case btn&tcell.WheelUp != 0:
		if inCanvas {
			ed.ctrl.Wheel(-1, p)
		}
		return
	case btn&tcell.WheelDown != 0:
		if inCanvas {
			ed.ctrl.Wheel(1, p)
		}
		return
	}

	switch {
	case pressed && !was:
		if !inCanvas {
			return
		}
		now := time.Now()
		if ed.isDoubleClick(x, y, now) {
			ed.lastClick = time.Time{}
			ed.ctrl.DoubleClick(p)
			return
		}
		ed.lastClick, ed.lastClickX, ed.lastClickY = now, x, y
		ed.ctrl.PointerDown(p, mouseMods(ev.Modifiers()))
	case pressed && was:
		ed.ctrl.PointerMove(p)
	case !pressed && was:
		ed.ctrl.PointerUp(p)
	case rightPressed && inCanvas:
		ed.ctrl.AddNodeAt(ed.ctrl.View().ToWorld(p), diagram.NewNodeLabel)
	}
}

// isDoubleClick reports whether a press at (x, y) follows the previous one
// closely enough in time and place.
func (ed *Editor) isDoubleClick(x, y int, now time.Time) bool {
	if ed.lastClick.IsZero() {
		return false
	}
	window := time.Duration(ed.cfg.Editor.DoubleClickMS) * time.Millisecond
	return now.Sub(ed.lastClick) <= window && abs(x-ed.lastClickX) <= 1 && abs(y-ed.lastClickY) <= 1
}

func mouseMods(m tcell.ModMask) interact.Modifiers {
	var mods interact.Modifiers
	if m&(tcell.ModCtrl|tcell.ModMeta) != 0 {
		mods |= interact.ModCtrl
	}
	if m&tcell.ModShift != 0 {
		mods |= interact.ModShift
	}
	return mods
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cycleSelection steps through nodes, then links.
func (ed *Editor) cycleSelection() {
	g := ed.ctrl.Graph()
	var order []interact.Selection
	for _, n := range g.Nodes() {
		order = append(order, interact.Selection{NodeID: n.ID})
	}
	for _, l := range g.Links() {
		order = append(order, interact.Selection{LinkID: l.ID})
	}
	if len(order) == 0 {
		return
	}
	next := 0
	cur := ed.ctrl.Selection()
	for i, s := range order {
		if s == cur {
			next = (i + 1) % len(order)
			break
		}
	}
	ed.ctrl.Select(order[next])
}

// toggleNodeFlag flips the start (or end) flag of the selected node.
func (ed *Editor) toggleNodeFlag(start bool) {
	n := ed.ctrl.SelectedNode()
	if n == nil {
		ed.showMessage("Select a state first (Tab to cycle)", MsgInfo)
		return
	}
	var patch interact.NodePatch
	if start {
		v := !n.IsStart
		patch.IsStart = &v
	} else {
		v := !n.IsEnd
		patch.IsEnd = &v
	}
	if err := ed.ctrl.UpdateNode(n.ID, patch); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
	}
}

// adjustSelection grows or shrinks the selection: node size, link
// curvature or self-loop spread.
func (ed *Editor) adjustSelection(dir float64) {
	var err error
	if n := ed.ctrl.SelectedNode(); n != nil {
		size := n.Size + dir*sizeStep
		err = ed.ctrl.UpdateNode(n.ID, interact.NodePatch{Size: &size})
	} else if l := ed.ctrl.SelectedLink(); l != nil {
		if l.IsSelfLoop() {
			err = ed.ctrl.SetLoopSpread(l.ID, float64(diagram.SpreadDegrees(l))+dir*spreadStep)
		} else {
			err = ed.ctrl.SetLinkCurvature(l.ID, ed.ctrl.Graph().Curvature(l)+dir*curvatureStep)
		}
	} else {
		ed.showMessage("Nothing selected", MsgInfo)
		return
	}
	if err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
	}
}

func (ed *Editor) straightenSelection() {
	l := ed.ctrl.SelectedLink()
	if l == nil {
		ed.showMessage("Select a transition first", MsgInfo)
		return
	}
	if err := ed.ctrl.SetLinkStraight(l.ID); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
	}
}

// arrange applies the next automatic layout in turn.
func (ed *Editor) arrange() {
	l := ed.nextLayout
	ed.nextLayout = (l + 1) % (diagram.LayoutCircle + 1)
	ed.ctrl.Arrange(l)
	ed.showMessage("Layout: "+l.String(), MsgSuccess)
}

func (ed *Editor) toggleSidebar() {
	if ed.sidebarWidth > 1 {
		ed.sidebarWidth = 1
		ed.showMessage("Sidebar collapsed", MsgInfo)
	} else {
		ed.sidebarWidth = 30
		ed.showMessage("Sidebar expanded", MsgInfo)
	}
}

// Labels keep their line breaks as a literal \n while typed.
func escapeLabel(s string) string   { return strings.ReplaceAll(s, "\n", `\n`) }
func unescapeLabel(s string) string { return strings.ReplaceAll(s, `\n`, "\n") }

// editLabel opens a prompt on the selection's label. Every keystroke
// updates the diagram; the whole edit is one undo step.
func (ed *Editor) editLabel() {
	if ed.mode == ModeInput {
		return
	}
	var apply func(string)
	var orig, prompt string
	if n := ed.ctrl.SelectedNode(); n != nil {
		id := n.ID
		orig, prompt = n.Label, "State: "
		apply = func(s string) {
			label := unescapeLabel(s)
			_ = ed.ctrl.UpdateNode(id, interact.NodePatch{Label: &label})
		}
	} else if l := ed.ctrl.SelectedLink(); l != nil {
		id := l.ID
		orig, prompt = l.Label, "Transition: "
		apply = func(s string) {
			label := unescapeLabel(s)
			_ = ed.ctrl.UpdateLink(id, interact.LinkPatch{Label: &label})
		}
	} else {
		ed.showMessage("Select a state or transition first", MsgInfo)
		return
	}

	ed.ctrl.BeginEdit()
	ed.startInput(prompt, escapeLabel(orig), func(s string) {
		apply(s)
		ed.ctrl.EndEdit()
	})
	ed.inputLive = apply
	ed.inputCancel = func() {
		apply(escapeLabel(orig))
		ed.ctrl.EndEdit()
	}
}

func (ed *Editor) startInput(prompt, initial string, action func(string)) {
	ed.mode = ModeInput
	ed.inputPrompt = prompt
	ed.inputBuffer = initial
	ed.inputAction = action
	ed.inputLive = nil
	ed.inputCancel = nil
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		if ed.inputCancel != nil {
			ed.inputCancel()
		}
		ed.showMessage("Cancelled", MsgInfo)
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		if ed.inputAction != nil {
			ed.inputAction(ed.inputBuffer)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
			ed.live()
		}
	case tcell.KeyCtrlU:
		ed.inputBuffer = ""
		ed.live()
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
		ed.live()
	}
}

func (ed *Editor) live() {
	if ed.inputLive != nil {
		ed.inputLive(ed.inputBuffer)
	}
}
