package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/interact"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleState      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStateSel   = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleStateInit  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStateAcc   = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleLabel      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleTrans      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleTransSel   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleTransDrag  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 162, 200)) // Lilac
	styleTransLabel = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorTeal)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Flash timing: normal, inverted, normal, inverted, then steady.
const (
	flashPhase    = 125 // ms
	flashDuration = 4 * flashPhase
)

// shouldBeInverted reports whether a flashing message is drawn inverted
// elapsed milliseconds after it was shown.
func shouldBeInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashDuration {
		return false
	}
	phase := elapsed / flashPhase
	return phase == 1 || phase == 3
}

// shouldFlashForType reports whether messages of a type flash.
func shouldFlashForType(msgType MessageType) bool {
	switch msgType {
	case MsgError, MsgSuccess, MsgWarning:
		return true
	default:
		return false
	}
}

var arrowRunes = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// arrowRune picks the arrow closest to a direction in screen space.
func arrowRune(dir diagram.Point) rune {
	octant := int(math.Round(math.Atan2(dir.Y, dir.X) / (math.Pi / 4)))
	return arrowRunes[(octant+8)%8]
}

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()
	cw, ch := ed.canvasSize()

	ed.drawCanvas(cw, ch)
	if ed.sidebarWidth > 1 {
		ed.drawSidebar(cw, 0, w-cw, ch)
	} else {
		for y := 0; y < ch; y++ {
			ed.screen.SetContent(cw, y, '│', nil, styleBorder)
		}
	}
	ed.drawStatusBar(w, h)

	switch ed.mode {
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModeHelp:
		ed.drawHelp(w, h)
	}
}

// canvasPainter plots world-space geometry into the canvas cells.
type canvasPainter struct {
	ed     *Editor
	w, h   int
	toCell func(diagram.Point) (int, int)
}

func (ed *Editor) painter(cw, ch int) *canvasPainter {
	v := ed.ctrl.View()
	return &canvasPainter{
		ed: ed,
		w:  cw,
		h:  ch,
		toCell: func(p diagram.Point) (int, int) {
			return pixelToCell(v.ToScreen(p))
		},
	}
}

func (cp *canvasPainter) set(x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= cp.w || y >= cp.h {
		return
	}
	cp.ed.screen.SetContent(x, y, r, nil, style)
}

func (cp *canvasPainter) plot(p diagram.Point, r rune, style tcell.Style) {
	x, y := cp.toCell(p)
	cp.set(x, y, r, style)
}

// text draws s centred on a world point.
func (cp *canvasPainter) text(p diagram.Point, dy int, s string, style tcell.Style) {
	x, y := cp.toCell(p)
	runes := []rune(s)
	x -= len(runes) / 2
	for i, r := range runes {
		cp.set(x+i, y+dy, r, style)
	}
}

// stroke plots a curve with enough samples to leave no gaps between cells.
func (cp *canvasPainter) stroke(c diagram.Curve, r rune, style tcell.Style) {
	zoom := cp.ed.ctrl.View().Zoom
	length := 0.0
	coarse := c.Sample(16)
	for i := 1; i < len(coarse); i++ {
		length += coarse[i].Dist(coarse[i-1])
	}
	n := int(length*zoom/(cellW/2)) + 1
	if n > 2000 {
		n = 2000
	}
	for _, p := range c.Sample(n) {
		cp.plot(p, r, style)
	}
}

func (ed *Editor) drawCanvas(cw, ch int) {
	cp := ed.painter(cw, ch)
	g := ed.ctrl.Graph()
	sel := ed.ctrl.Selection()

	for _, l := range g.Links() {
		c, ok := g.LinkCurve(l)
		if !ok {
			continue
		}
		style := styleTrans
		if l.ID == sel.LinkID {
			style = styleTransSel
		}
		cp.stroke(c, '·', style)
		cp.plot(c.End, arrowRune(c.EndTangent()), style)
	}

	for _, n := range g.Nodes() {
		ed.drawNode(cp, n, n.ID == sel.NodeID)
	}

	// Transition labels sit above nodes.
	for _, l := range g.Links() {
		if p, ok := g.LabelAnchor(l); ok && l.Label != "" {
			style := styleTransLabel
			if l.ID == sel.LinkID {
				style = styleStateSel
			}
			cp.text(p, 0, " "+l.Label+" ", style)
		}
	}

	if seg, ok := ed.ctrl.Preview(); ok {
		c := diagram.Curve{Kind: diagram.Quadratic, Start: seg.From, C1: diagram.Midpoint(seg.From, seg.To), End: seg.To}
		cp.stroke(c, '·', styleTransDrag)
		if seg.To.Dist(seg.From) > 0 {
			cp.plot(seg.To, arrowRune(seg.To.Sub(seg.From)), styleTransDrag)
		}
	}
}

func (ed *Editor) drawNode(cp *canvasPainter, n *diagram.Node, selected bool) {
	style := styleState
	switch {
	case selected:
		style = styleStateSel
	case n.IsStart:
		style = styleStateInit
	case n.IsEnd:
		style = styleStateAcc
	}
	ring := '○'
	if n.IsEnd {
		ring = '◎'
	}

	r := n.Radius()
	steps := int(2*math.Pi*r*ed.ctrl.View().Zoom/(cellW/2)) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		cp.plot(n.Center().Add(diagram.Point{X: r * math.Cos(a), Y: r * math.Sin(a)}), ring, style)
	}
	if n.IsStart {
		cp.plot(n.Center().Add(diagram.Point{X: -r - 12}), '▶', styleStateInit)
	}

	lines := strings.Split(n.Label, "\n")
	labelStyle := styleLabel
	if selected {
		labelStyle = styleStateSel
	}
	top := -len(lines) / 2
	for i, line := range lines {
		cp.text(n.Center(), top+i, line, labelStyle)
	}
}

func (ed *Editor) drawSidebar(x, y, w, h int) {
	for row := y; row < y+h; row++ {
		ed.screen.SetContent(x, row, '│', nil, styleBorder)
	}
	x += 2
	w -= 3
	g := ed.ctrl.Graph()
	line := y

	put := func(s string, style tcell.Style) {
		if line >= y+h {
			return
		}
		ed.drawString(x, line, truncate(s, w), style)
		line++
	}

	put("DIAGRAM", styleSidebarH)
	put(fmt.Sprintf("States:      %d", g.NodeCount()), styleSidebar)
	put(fmt.Sprintf("Transitions: %d", g.LinkCount()), styleSidebar)
	put(fmt.Sprintf("Zoom:        %d%%", ed.ctrl.View().Percent()), styleSidebar)
	put(fmt.Sprintf("Tool:        %s", ed.ctrl.Mode()), styleSidebar)
	put(fmt.Sprintf("Export:      %s", strings.ToUpper(ed.cfg.Export.Format)), styleSidebar)
	line++

	if n := ed.ctrl.SelectedNode(); n != nil {
		put("STATE", styleSidebarH)
		put("Label: "+escapeLabel(n.Label), styleSidebar)
		put(fmt.Sprintf("Size:  %.0f", n.Size), styleSidebar)
		put("Start: "+yesNo(n.IsStart), styleSidebar)
		put("End:   "+yesNo(n.IsEnd), styleSidebar)
		line++
		put("Enter  edit label", styleHelp)
		put("s / f  toggle start / end", styleHelp)
		put("[ ]    resize", styleHelp)
		return
	}
	if l := ed.ctrl.SelectedLink(); l != nil {
		put("TRANSITION", styleSidebarH)
		put("Label: "+escapeLabel(l.Label), styleSidebar)
		if s, t, ok := g.Endpoints(l); ok {
			put(truncate(escapeLabel(s.Label), 12)+" → "+truncate(escapeLabel(t.Label), 12), styleSidebar)
		}
		if l.IsSelfLoop() {
			put(fmt.Sprintf("Spread: %d°", diagram.SpreadDegrees(l)), styleSidebar)
			line++
			put("[ ]    narrow / widen", styleHelp)
		} else {
			shape := fmt.Sprintf("curved %.0f", g.Curvature(l))
			if g.IsStraight(l) {
				shape = "straight"
			}
			put("Shape: "+shape, styleSidebar)
			line++
			put("[ ]    less / more curve", styleHelp)
			put("|      straighten", styleHelp)
		}
		put("Enter  edit label", styleHelp)
		return
	}
	put("Nothing selected", styleHelp)
	put("Tab to cycle selection", styleHelp)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	// Background
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	// File info
	fileInfo := "[New]"
	if ed.filename != "" {
		if len(ed.filename) > 30 {
			fileInfo = filepath.Base(ed.filename)
		} else {
			fileInfo = ed.filename
		}
	}
	if ed.modified {
		fileInfo += " *"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	modeStr := ed.modeString()
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgSuccess
		case MsgWarning:
			style = styleMsgWarning
		}
		if shouldFlashForType(ed.messageType) {
			elapsed := time.Now().UnixMilli() - ed.messageFlashStart
			if shouldBeInverted(elapsed) {
				style = style.Reverse(true)
			}
			if elapsed >= flashDuration {
				ed.flashing.Store(false)
			}
		}
		msg := truncate(ed.message, w/2-2)
		ed.drawString(w-len([]rune(msg))-2, y, msg, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, truncate(ed.helpString(), w-2), styleHelp)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 60
	if boxW > w-2 {
		boxW = w - 2
	}
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)

	text := ed.inputBuffer + "_"
	room := boxW - 4 - len(ed.inputPrompt)
	if r := []rune(text); room > 0 && len(r) > room {
		text = string(r[len(r)-room:])
	}
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len(ed.inputPrompt), boxY+1, text, styleInput)
}

var helpLines = []string{
	"Mouse",
	"  drag state          move",
	"  drag transition     bend",
	"  drag empty space    pan",
	"  Ctrl+drag state     connect",
	"  double-click        edit label",
	"  right-click         add state",
	"  wheel               zoom",
	"",
	"Keys",
	"  a        add state       c      connect tool",
	"  Tab      cycle selection Del    delete",
	"  Enter    edit label      s / f  start / end",
	"  [ ]      size / curve    |      straighten",
	"  + - 0    zoom            r      recentre",
	"  arrows   pan             \\      sidebar",
	"  x        export format   l      auto layout",
	"  Esc      deselect",
	"",
	"  ^S save  ^W save as  ^O open  ^N new  ^E export",
	"  ^Z undo  ^Y redo  ^C copy  ^V paste  ^Q quit",
}

func (ed *Editor) drawHelp(w, h int) {
	boxW := 56
	boxH := len(helpLines) + 2
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2
	if boxX < 0 {
		boxX = 0
	}
	if boxY < 0 {
		boxY = 0
	}
	ed.drawBox(boxX, boxY, boxW, boxH, styleDefault)
	for i, l := range helpLines {
		style := styleSidebar
		if l == "Mouse" || l == "Keys" {
			style = styleSidebarH
		}
		ed.drawString(boxX+2, boxY+1+i, truncate(l, boxW-4), style)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	// Horizontal borders
	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}

	// Vertical borders
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	// Fill
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		ed.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

func (ed *Editor) modeString() string {
	switch ed.mode {
	case ModeInput:
		return "INPUT"
	case ModeHelp:
		return "HELP"
	}
	switch ed.ctrl.State() {
	case interact.Panning:
		return "PAN"
	case interact.DraggingNode:
		return "MOVE"
	case interact.DraggingLinkCurve:
		return "BEND"
	case interact.Connecting:
		return "CONNECT"
	}
	if ed.ctrl.ConnectArmed() {
		return "CONNECT TOOL"
	}
	return ""
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeInput:
		return "Enter: confirm  Esc: cancel  \\n: line break  ^U: clear"
	case ModeHelp:
		return "Any key to close"
	}
	if ed.ctrl.ConnectArmed() {
		return "Drag from a state to another to connect  c/Esc: select tool"
	}
	return "a:add  c:connect  Enter:label  Del:delete  ^Z/^Y:undo/redo  ^S:save  ^E:export  ?:help  q:quit"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		if maxLen < 0 {
			maxLen = 0
		}
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
