package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/config"
	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
	"github.com/ha1tch/fsm-designer/pkg/interact"
	"github.com/ha1tch/fsm-designer/pkg/store"
)

// newTestEditor returns an editor on a 120x40 simulated screen with two
// states: A at (200,300), start, and B at (550,300), end.
func newTestEditor(t *testing.T) (*Editor, *diagram.Node, *diagram.Node) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(120, 40)
	t.Cleanup(s.Fini)

	cfg := config.Default()
	cfg.Editor.WatchFile = false
	cfg.Export.Dir = t.TempDir()

	n := 0
	g := diagram.NewWithIDs(func() string { n++; return fmt.Sprintf("e%d", n) })
	a := g.AddNode(diagram.NodeAttrs{X: 200, Y: 300, Label: "A", IsStart: true})
	b := g.AddNode(diagram.NodeAttrs{X: 550, Y: 300, Label: "B", IsEnd: true})

	return newEditor(s, cfg, zap.NewNop(), g), a, b
}

func mouse(ed *Editor, x, y int, btn tcell.ButtonMask, mods tcell.ModMask) {
	ed.handleMouse(tcell.NewEventMouse(x, y, btn, mods))
}

func key(ed *Editor, k tcell.Key) bool {
	return ed.handleKey(tcell.NewEventKey(k, 0, tcell.ModNone))
}

func typeRunes(ed *Editor, s string) {
	for _, r := range s {
		ed.handleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
}

func TestCellPixelMapping(t *testing.T) {
	assert.Equal(t, diagram.Point{X: 4, Y: 8}, cellToPixel(0, 0))
	assert.Equal(t, diagram.Point{X: 204, Y: 296}, cellToPixel(25, 18))

	for _, c := range [][2]int{{0, 0}, {1, 1}, {25, 18}, {89, 37}} {
		x, y := pixelToCell(cellToPixel(c[0], c[1]))
		assert.Equal(t, c, [2]int{x, y})
	}

	x, y := pixelToCell(diagram.Point{X: -0.5, Y: -16})
	assert.Equal(t, [2]int{-1, -1}, [2]int{x, y})
	x, y = pixelToCell(diagram.Point{X: 200, Y: 300})
	assert.Equal(t, [2]int{25, 18}, [2]int{x, y})
}

func TestArrowRune(t *testing.T) {
	tests := []struct {
		dir  diagram.Point
		want rune
	}{
		{diagram.Point{X: 1}, '→'},
		{diagram.Point{X: -1}, '←'},
		{diagram.Point{Y: 1}, '↓'},
		{diagram.Point{Y: -1}, '↑'},
		{diagram.Point{X: 1, Y: 1}, '↘'},
		{diagram.Point{X: -1, Y: -1}, '↖'},
		{diagram.Point{X: 1, Y: 0.2}, '→'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(arrowRune(tt.dir)), "%v", tt.dir)
	}
}

func TestLabelEscaping(t *testing.T) {
	assert.Equal(t, `New\nState`, escapeLabel(diagram.NewNodeLabel))
	assert.Equal(t, diagram.NewNodeLabel, unescapeLabel(escapeLabel(diagram.NewNodeLabel)))
}

func TestMouseDragMovesNode(t *testing.T) {
	ed, a, _ := newTestEditor(t)

	mouse(ed, 25, 18, tcell.Button1, tcell.ModNone)
	assert.Equal(t, interact.DraggingNode, ed.ctrl.State())
	mouse(ed, 35, 18, tcell.Button1, tcell.ModNone)
	mouse(ed, 35, 18, tcell.ButtonNone, tcell.ModNone)

	assert.Equal(t, interact.Idle, ed.ctrl.State())
	assert.Equal(t, diagram.Point{X: 280, Y: 300}, a.Center())
	assert.True(t, ed.modified)
	assert.True(t, ed.ctrl.CanUndo())
}

func TestCtrlDragConnects(t *testing.T) {
	ed, a, b := newTestEditor(t)

	mouse(ed, 25, 18, tcell.Button1, tcell.ModCtrl)
	assert.Equal(t, interact.Connecting, ed.ctrl.State())
	mouse(ed, 68, 18, tcell.Button1, tcell.ModCtrl)
	mouse(ed, 68, 18, tcell.ButtonNone, tcell.ModNone)

	require.Equal(t, 1, ed.ctrl.Graph().LinkCount())
	l := ed.ctrl.Graph().Links()[0]
	assert.Equal(t, a.ID, l.SourceID)
	assert.Equal(t, b.ID, l.TargetID)
	assert.Equal(t, interact.ModeSelect, ed.ctrl.Mode())
}

func TestDragEmptySpacePans(t *testing.T) {
	ed, _, _ := newTestEditor(t)

	mouse(ed, 5, 2, tcell.Button1, tcell.ModNone)
	mouse(ed, 7, 3, tcell.Button1, tcell.ModNone)
	mouse(ed, 7, 3, tcell.ButtonNone, tcell.ModNone)

	assert.Equal(t, diagram.Point{X: 16, Y: 16}, ed.ctrl.View().Pan)
	assert.False(t, ed.ctrl.CanUndo())
}

func TestWheelZooms(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	mouse(ed, 10, 10, tcell.WheelUp, tcell.ModNone)
	assert.Greater(t, ed.ctrl.View().Zoom, 1.0)
	mouse(ed, 10, 10, tcell.WheelDown, tcell.ModNone)
	assert.InDelta(t, 1.0, ed.ctrl.View().Zoom, 1e-9)
}

func TestDoubleClickEditsLabel(t *testing.T) {
	ed, a, _ := newTestEditor(t)

	mouse(ed, 25, 18, tcell.Button1, tcell.ModNone)
	mouse(ed, 25, 18, tcell.ButtonNone, tcell.ModNone)
	mouse(ed, 25, 18, tcell.Button1, tcell.ModNone)
	mouse(ed, 25, 18, tcell.ButtonNone, tcell.ModNone)

	require.Equal(t, ModeInput, ed.mode)
	assert.Equal(t, "A", ed.inputBuffer)

	typeRunes(ed, `1\n2`)
	assert.Equal(t, "A1\n2", a.Label, "label follows each keystroke")

	key(ed, tcell.KeyEnter)
	assert.Equal(t, ModeCanvas, ed.mode)
	assert.Equal(t, "A1\n2", a.Label)

	require.True(t, ed.ctrl.Undo())
	na, _ := ed.ctrl.Graph().FindNode(a.ID)
	assert.Equal(t, "A", na.Label, "the whole edit is one undo step")
}

func TestEscapeCancelsLabelEdit(t *testing.T) {
	ed, a, _ := newTestEditor(t)
	ed.ctrl.Select(interact.Selection{NodeID: a.ID})

	key(ed, tcell.KeyEnter)
	require.Equal(t, ModeInput, ed.mode)
	typeRunes(ed, "zz")
	key(ed, tcell.KeyEscape)

	assert.Equal(t, "A", a.Label)
	assert.False(t, ed.ctrl.CanUndo())
	assert.False(t, ed.modified)
}

func TestKeyActions(t *testing.T) {
	ed, a, _ := newTestEditor(t)

	typeRunes(ed, "a")
	require.Equal(t, 3, ed.ctrl.Graph().NodeCount())
	added := ed.ctrl.SelectedNode()
	require.NotNil(t, added)
	assert.Equal(t, diagram.NewNodeLabel, added.Label)

	typeRunes(ed, "]")
	assert.Equal(t, diagram.DefaultNodeSize+sizeStep, added.Size)
	typeRunes(ed, "s")
	assert.True(t, added.IsStart)

	key(ed, tcell.KeyDelete)
	assert.Equal(t, 2, ed.ctrl.Graph().NodeCount())

	key(ed, tcell.KeyCtrlZ)
	assert.Equal(t, 3, ed.ctrl.Graph().NodeCount())
	key(ed, tcell.KeyCtrlY)
	assert.Equal(t, 2, ed.ctrl.Graph().NodeCount())

	typeRunes(ed, "c")
	assert.Equal(t, interact.ModeConnect, ed.ctrl.Mode())
	key(ed, tcell.KeyEscape)
	assert.Equal(t, interact.ModeSelect, ed.ctrl.Mode())

	key(ed, tcell.KeyTab)
	assert.Equal(t, a.ID, ed.ctrl.Selection().NodeID)

	typeRunes(ed, "+")
	assert.Greater(t, ed.ctrl.View().Zoom, 1.0)
	typeRunes(ed, "r")
	assert.Equal(t, 1.0, ed.ctrl.View().Zoom)

	assert.True(t, key(ed, tcell.KeyCtrlQ))
}

func TestAdjustLinkCurvature(t *testing.T) {
	ed, a, b := newTestEditor(t)
	l := ed.ctrl.Graph().AddLink(a.ID, b.ID)
	ed.ctrl.Select(interact.Selection{LinkID: l.ID})

	typeRunes(ed, "]")
	assert.InDelta(t, 20.0, ed.ctrl.Graph().Curvature(l), 1e-9)
	typeRunes(ed, "|")
	assert.True(t, ed.ctrl.Graph().IsStraight(l))
}

func TestArrangeCyclesLayouts(t *testing.T) {
	ed, _, b := newTestEditor(t)

	typeRunes(ed, "l")
	assert.Equal(t, diagram.Point{X: 450, Y: 300}, b.Center())
	assert.Equal(t, diagram.LayoutGrid, ed.nextLayout)

	typeRunes(ed, "ll")
	assert.Equal(t, diagram.LayoutLayered, ed.nextLayout)
}

func TestSaveWritesDocument(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	path := filepath.Join(t.TempDir(), "m.yaml")

	require.NoError(t, ed.saveFile(path))
	assert.Equal(t, path, ed.filename)
	assert.False(t, ed.modified)

	g, err := readGraph(path)
	require.NoError(t, err)
	assert.True(t, g.Equal(ed.ctrl.Graph()))
}

func TestReloadFromDisk(t *testing.T) {
	ed, a, _ := newTestEditor(t)
	ed.filename = filepath.Join(t.TempDir(), "m.json")

	edited := ed.ctrl.Graph().Clone()
	n, _ := edited.FindNode(a.ID)
	n.Label = "Edited"
	data, err := docfile.Marshal(edited, docfile.FormatJSON)
	require.NoError(t, err)

	ed.handleEvent(tcell.NewEventInterrupt(fileChanged{data: data}))
	got, _ := ed.ctrl.Graph().FindNode(a.ID)
	assert.Equal(t, "Edited", got.Label)
	assert.False(t, ed.modified)

	ed.reloadFromDisk([]byte(`{"nodes": [`))
	assert.Equal(t, MsgError, ed.messageType)
	got, _ = ed.ctrl.Graph().FindNode(a.ID)
	assert.Equal(t, "Edited", got.Label)
}

func TestOpenMalformedFileStartsFresh(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": []}`), 0644))

	ed.openFile(path)
	nodes := ed.ctrl.Graph().Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "Initial\nState", nodes[0].Label)
	assert.Equal(t, path, ed.filename)
	assert.Equal(t, MsgWarning, ed.messageType)

	ed.openFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, path, ed.filename, "a missing file leaves the current one open")
	assert.Equal(t, MsgError, ed.messageType)
}

func TestAutosave(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	st, err := store.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ed.store = st

	typeRunes(ed, "a")

	g, loaded, err := st.LoadGraph(context.Background(), ed.cfg.Storage.Slot)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 3, g.NodeCount())
}

func TestExport(t *testing.T) {
	ed, _, _ := newTestEditor(t)

	for _, f := range []string{config.FormatSVG, config.FormatDOT, config.FormatPNG} {
		ed.cfg.Export.Format = f
		ed.export()
		info, err := os.Stat(filepath.Join(ed.cfg.Export.Dir, "diagram."+f))
		require.NoError(t, err, f)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestCycleExportFormatPersists(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	ed.cfgPath = filepath.Join(t.TempDir(), "config.toml")

	typeRunes(ed, "x")
	assert.Equal(t, config.FormatSVG, ed.cfg.Export.Format)

	saved, err := config.LoadFile(ed.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.FormatSVG, saved.Export.Format)
}

func TestDrawShowsDiagram(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	ed.draw()

	s := ed.screen
	r, _, _, _ := s.GetContent(25, 18)
	assert.Equal(t, "A", string(r))

	// Start marker left of A's rim.
	x, y := pixelToCell(diagram.Point{X: 200 - 50 - 12, Y: 300})
	r, _, _, _ = s.GetContent(x, y)
	assert.Equal(t, "▶", string(r))
}

func TestShowMessageArmsFlash(t *testing.T) {
	ed, _, _ := newTestEditor(t)
	ed.showMessage("Saved", MsgSuccess)
	assert.True(t, ed.flashing.Load())
	ed.showMessage("Undo", MsgInfo)
	assert.False(t, ed.flashing.Load())
}

func TestRootCmdArgs(t *testing.T) {
	cmd := rootCmd()
	require.NotNil(t, cmd.Flags().Lookup("config"))
	require.NotNil(t, cmd.Flags().Lookup("slot"))

	cmd.SetArgs([]string{"one.json", "two.json"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	assert.Error(t, cmd.Execute(), "at most one file is accepted")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "edit.toml")
	fileCfg := config.Default()
	fileCfg.Storage.Slot = "from_file"
	fileCfg.Export.Format = config.FormatSVG
	require.NoError(t, config.SaveFile(path, fileCfg))

	cfg, err := loadConfig(options{cfgPath: path})
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.Storage.Slot)
	assert.Equal(t, config.FormatSVG, cfg.Export.Format)

	cfg, err = loadConfig(options{cfgPath: path, slot: "from_flag"})
	require.NoError(t, err)
	assert.Equal(t, "from_flag", cfg.Storage.Slot)

	cfg, err = loadConfig(options{})
	require.NoError(t, err)
	assert.Equal(t, config.Default().Storage.Slot, cfg.Storage.Slot)

	_, err = loadConfig(options{cfgPath: filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}

func TestInitialGraph(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	log := zap.NewNop()
	cfg := config.Default()

	missing := filepath.Join(t.TempDir(), "new.json")
	g, msg := initialGraph(cfg, nil, missing, log)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, "New file: "+missing, msg)

	st, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg.Storage.Slot = "work"
	g, msg = initialGraph(cfg, st, "", log)
	assert.Equal(t, 2, g.NodeCount(), "empty slot gives the starter diagram")
	assert.Empty(t, msg)

	saved := diagram.Starter()
	saved.AddNode(diagram.NodeAttrs{Label: "Third"})
	require.NoError(t, st.SaveGraph(context.Background(), "work", saved))
	g, msg = initialGraph(cfg, st, "", log)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, "Restored work", msg)
}
