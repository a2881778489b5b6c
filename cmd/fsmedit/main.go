// Command fsmedit is a terminal editor for FSM diagrams.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/config"
	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/interact"
	"github.com/ha1tch/fsm-designer/pkg/logging"
	"github.com/ha1tch/fsm-designer/pkg/store"
	"github.com/ha1tch/fsm-designer/pkg/watch"
)

// Each terminal cell stands for a block of canvas pixels.
const (
	cellW = 8
	cellH = 16
)

// Mode represents editor mode
type Mode int

const (
	ModeCanvas Mode = iota
	ModeInput
	ModeHelp
)

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

// fileChanged is posted by the watcher when the open file changes on disk.
type fileChanged struct {
	data []byte
}

// Editor holds the terminal UI state around an interaction controller.
type Editor struct {
	screen  tcell.Screen
	ctrl    *interact.Controller
	cfg     *config.Config
	cfgPath string
	log     *zap.Logger
	store   *store.Store

	filename string
	modified bool
	mode     Mode

	message           string
	messageType       MessageType
	messageFlashStart int64
	flashing          atomic.Bool

	// Mouse tracking
	buttons    tcell.ButtonMask
	lastClick  time.Time
	lastClickX int
	lastClickY int

	// Input prompt
	inputPrompt string
	inputBuffer string
	inputAction func(string)
	inputLive   func(string)
	inputCancel func()

	sidebarWidth int
	nextLayout   diagram.Layout

	watcher     *watch.Watcher
	stopWatcher context.CancelFunc
}

func newEditor(screen tcell.Screen, cfg *config.Config, log *zap.Logger, g *diagram.Graph) *Editor {
	ed := &Editor{
		screen:       screen,
		cfg:          cfg,
		log:          log,
		sidebarWidth: 30,
	}
	ed.ctrl = interact.New(g,
		interact.WithLogger(log),
		interact.WithViewport(ed.viewport))
	ed.ctrl.Subscribe(ed.onChange)
	return ed
}

// options are the command-line settings of the editor.
type options struct {
	cfgPath string
	slot    string
}

func rootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "fsmedit [file.json|file.yaml]",
		Short:         "Terminal editor for FSM diagrams",
		Long:          "fsmedit edits a diagram file, or the autosave slot when no file is given.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filename string
			if len(args) > 0 {
				filename = args[0]
			}
			return edit(opts, filename)
		},
	}
	cmd.Flags().StringVar(&opts.cfgPath, "config", "", "config file (default "+config.Path()+")")
	cmd.Flags().StringVar(&opts.slot, "slot", "", "storage slot used when no file is given")
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fsmedit: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by opts, or the default one, and
// applies the flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Load()
	if opts.cfgPath != "" {
		c, err := config.LoadFile(opts.cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if opts.slot != "" {
		cfg.Storage.Slot = opts.slot
	}
	return cfg, nil
}

// initialGraph picks the starting document: the named file, else the
// autosave slot, else the starter template. The message is shown in the
// status bar.
func initialGraph(cfg *config.Config, st *store.Store, filename string, log *zap.Logger) (*diagram.Graph, string) {
	switch {
	case filename != "":
		g, err := readGraph(filename)
		if errors.Is(err, os.ErrNotExist) {
			return diagram.Starter(), "New file: " + filename
		}
		if err != nil {
			log.Warn("document rejected, using starter", zap.String("file", filename), zap.Error(err))
			return diagram.Starter(), "Could not load " + filename + ": " + err.Error()
		}
		return g, ""
	case st != nil:
		g, loaded, err := st.LoadGraph(context.Background(), cfg.Storage.Slot)
		if err != nil {
			log.Warn("autosave unreadable", zap.Error(err))
			return diagram.Starter(), ""
		}
		if loaded {
			return g, "Restored " + cfg.Storage.Slot
		}
		return g, ""
	default:
		return diagram.Starter(), ""
	}
}

func edit(opts options, filename string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// The terminal belongs to tcell, so logs only go to a file.
	var paths []string
	if cfg.Log.File != "" {
		paths = []string{cfg.Log.File}
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Paths: paths})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Sync()

	var st *store.Store
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err == nil {
		st, err = store.Open(cfg.Storage.Path, log)
		if err != nil {
			log.Warn("autosave disabled", zap.Error(err))
		}
	}
	if st != nil {
		defer st.Close()
	}

	g, startMsg := initialGraph(cfg, st, filename, log)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initialize screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse(tcell.MouseDragEvents)
	screen.Clear()

	ed := newEditor(screen, cfg, log, g)
	ed.store = st
	ed.cfgPath = opts.cfgPath
	if filename != "" {
		ed.setFile(filename)
	}
	if startMsg != "" {
		ed.showMessage(startMsg, MsgInfo)
	}

	ed.run()

	if ed.stopWatcher != nil {
		ed.stopWatcher()
	}
	return nil
}

func (ed *Editor) run() {
	// Refresh while a message is flashing
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if ed.flashing.Load() {
				ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		if ev == nil {
			return
		}
		if ed.handleEvent(ev) {
			return
		}
	}
}

// handleEvent dispatches one event and reports whether the editor should
// quit.
func (ed *Editor) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		ed.screen.Sync()
	case *tcell.EventKey:
		return ed.handleKey(ev)
	case *tcell.EventMouse:
		ed.handleMouse(ev)
	case *tcell.EventInterrupt:
		if fc, ok := ev.Data().(fileChanged); ok {
			ed.reloadFromDisk(fc.data)
		}
	}
	return false
}

// onChange reacts to committed controller actions.
func (ed *Editor) onChange(ch interact.Change) {
	switch ch.Kind {
	case interact.ChangeGraph:
		ed.modified = true
		ed.autosave()
	case interact.ChangeProperties:
		ed.editLabel()
	}
}

// autosave writes the graph to the storage slot.
func (ed *Editor) autosave() {
	if ed.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ed.store.SaveGraph(ctx, ed.cfg.Storage.Slot, ed.ctrl.Graph()); err != nil {
		ed.log.Warn("autosave failed", zap.Error(err))
		ed.showMessage("Autosave failed: "+err.Error(), MsgWarning)
	}
}

// setFile makes path the current file and, if enabled, watches it for
// outside edits.
func (ed *Editor) setFile(path string) {
	ed.filename = path
	if ed.stopWatcher != nil {
		ed.stopWatcher()
		ed.stopWatcher, ed.watcher = nil, nil
	}
	if !ed.cfg.Editor.WatchFile || path == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := watch.New(path, func(data []byte) {
		ed.screen.PostEvent(tcell.NewEventInterrupt(fileChanged{data: data}))
	}, ed.log)
	go func() {
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			ed.log.Warn("file watch stopped", zap.String("file", path), zap.Error(err))
		}
	}()
	ed.watcher, ed.stopWatcher = w, cancel
}

// reloadFromDisk applies an outside edit of the open file. Edits made in
// an open gesture or prompt are left alone.
func (ed *Editor) reloadFromDisk(data []byte) {
	if ed.ctrl.State() != interact.Idle || ed.mode == ModeInput {
		ed.showMessage("File changed on disk; finish editing to reload", MsgWarning)
		return
	}
	g, err := parseGraph(ed.filename, data)
	if err != nil {
		ed.log.Warn("reload rejected", zap.String("file", ed.filename), zap.Error(err))
		ed.showMessage("Reload failed: "+err.Error(), MsgError)
		return
	}
	ed.ctrl.ReplaceGraph(g)
	ed.modified = false
	ed.showMessage("Reloaded: "+filepath.Base(ed.filename), MsgSuccess)
}

// canvasSize returns the canvas area in cells.
func (ed *Editor) canvasSize() (int, int) {
	w, h := ed.screen.Size()
	cw := w - ed.sidebarWidth
	if cw < 1 {
		cw = 1
	}
	ch := h - 2
	if ch < 1 {
		ch = 1
	}
	return cw, ch
}

// viewport returns the canvas area in pixels.
func (ed *Editor) viewport() diagram.Point {
	cw, ch := ed.canvasSize()
	return diagram.Point{X: float64(cw * cellW), Y: float64(ch * cellH)}
}

// cellToPixel returns the pixel at the centre of a cell.
func cellToPixel(x, y int) diagram.Point {
	return diagram.Point{X: float64(x*cellW + cellW/2), Y: float64(y*cellH + cellH/2)}
}

// pixelToCell returns the cell containing a pixel.
func pixelToCell(p diagram.Point) (int, int) {
	return floorDiv(p.X, cellW), floorDiv(p.Y, cellH)
}

func floorDiv(v float64, d int) int {
	q := int(v) / d
	if v < 0 && float64(q*d) != v {
		q--
	}
	return q
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart = time.Now().UnixMilli()
	ed.flashing.Store(shouldFlashForType(msgType))
	// Trigger immediate refresh for flash animation
	if ed.screen != nil {
		ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}
