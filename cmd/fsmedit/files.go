package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/config"
	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
)

// File operations

func readGraph(path string) (*diagram.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseGraph(path, data)
}

// parseGraph decodes a document, choosing JSON or YAML by extension.
func parseGraph(path string, data []byte) (*diagram.Graph, error) {
	return docfile.Unmarshal(data, docfile.FormatFromPath(path))
}

// openFile loads a document into the editor. A file that cannot be parsed
// opens as the starter diagram.
func (ed *Editor) openFile(path string) {
	g, err := readGraph(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	case err != nil:
		ed.log.Warn("document rejected, using starter", zap.String("file", path), zap.Error(err))
		ed.ctrl.Load(diagram.Starter())
		ed.showMessage("Invalid document, started fresh: "+err.Error(), MsgWarning)
	default:
		ed.ctrl.Load(g)
		ed.showMessage("Loaded: "+path, MsgSuccess)
	}
	ed.setFile(path)
	ed.modified = false
	ed.rememberDir(path)
}

func (ed *Editor) saveFile(path string) error {
	data, err := docfile.Marshal(ed.ctrl.Graph(), docfile.FormatFromPath(path))
	if err != nil {
		return err
	}
	if ed.watcher != nil && path == ed.filename {
		ed.watcher.Seen(data)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	if path != ed.filename {
		ed.setFile(path)
		if ed.watcher != nil {
			ed.watcher.Seen(data)
		}
	}
	ed.modified = false
	ed.rememberDir(path)
	return nil
}

func (ed *Editor) save() {
	if ed.filename == "" {
		ed.saveAs()
		return
	}
	if err := ed.saveFile(ed.filename); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Saved: "+ed.filename, MsgSuccess)
}

func (ed *Editor) saveAs() {
	initial := ed.filename
	if initial == "" {
		initial = filepath.Join(ed.cfg.Editor.LastDir, "diagram.json")
	}
	ed.startInput("Save as: ", initial, func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			ed.showMessage("Cancelled", MsgInfo)
			return
		}
		if err := ed.saveFile(path); err != nil {
			ed.showMessage("Error: "+err.Error(), MsgError)
			return
		}
		ed.showMessage("Saved: "+path, MsgSuccess)
	})
}

func (ed *Editor) promptOpen() {
	initial := ed.cfg.Editor.LastDir
	if initial != "" {
		initial += string(filepath.Separator)
	}
	ed.startInput("Open: ", initial, func(path string) {
		if path = strings.TrimSpace(path); path != "" {
			ed.openFile(path)
		}
	})
}

// rememberDir records the directory of path as the last used one.
func (ed *Editor) rememberDir(path string) {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil || dir == ed.cfg.Editor.LastDir {
		return
	}
	ed.cfg.Editor.LastDir = dir
	if err := ed.saveConfig(); err != nil {
		ed.log.Debug("config not saved", zap.Error(err))
	}
}

func (ed *Editor) saveConfig() error {
	if ed.cfgPath != "" {
		return config.SaveFile(ed.cfgPath, ed.cfg)
	}
	return config.Save(ed.cfg)
}

// exportPath returns where an export in the given format is written.
func (ed *Editor) exportPath(format string) string {
	base := "diagram"
	if ed.filename != "" {
		base = strings.TrimSuffix(filepath.Base(ed.filename), filepath.Ext(ed.filename))
	}
	dir := ed.cfg.Export.Dir
	if dir == "" && ed.filename != "" {
		dir = filepath.Dir(ed.filename)
	}
	return filepath.Join(dir, base+"."+format)
}

func (ed *Editor) export() {
	format := ed.cfg.Export.Format
	path := ed.exportPath(format)
	g := ed.ctrl.Graph()

	var data []byte
	switch format {
	case config.FormatSVG:
		data = []byte(docfile.GenerateSVG(g))
	case config.FormatDOT:
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		data = []byte(docfile.GenerateDOT(g, title))
	default:
		var buf bytes.Buffer
		if err := docfile.RenderPNG(g, &buf, ed.cfg.Export.Scale); err != nil {
			ed.showMessage("Export failed: "+err.Error(), MsgError)
			return
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		ed.showMessage("Export failed: "+err.Error(), MsgError)
		return
	}
	ed.log.Info("exported", zap.String("file", path), zap.String("format", format))
	ed.showMessage("Exported: "+path, MsgSuccess)
}

// cycleExportFormat steps png -> svg -> dot and persists the choice.
func (ed *Editor) cycleExportFormat() {
	switch ed.cfg.Export.Format {
	case config.FormatPNG:
		ed.cfg.Export.Format = config.FormatSVG
	case config.FormatSVG:
		ed.cfg.Export.Format = config.FormatDOT
	default:
		ed.cfg.Export.Format = config.FormatPNG
	}
	ed.showMessage("Export format: "+strings.ToUpper(ed.cfg.Export.Format), MsgInfo)
	if err := ed.saveConfig(); err != nil {
		ed.showMessage("Failed to save config: "+err.Error(), MsgError)
	}
}

// copyToClipboard copies the diagram as a JSON document.
func (ed *Editor) copyToClipboard() {
	if !ed.cfg.Editor.Clipboard {
		ed.showMessage("Clipboard disabled in config", MsgInfo)
		return
	}
	data, err := docfile.ToJSON(docfile.FromGraph(ed.ctrl.Graph()), true)
	if err != nil {
		ed.showMessage("Clipboard error: "+err.Error(), MsgError)
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		ed.showMessage("Clipboard error: "+err.Error(), MsgError)
		return
	}
	g := ed.ctrl.Graph()
	ed.showMessage(fmt.Sprintf("Copied diagram (%d states, %d transitions)", g.NodeCount(), g.LinkCount()), MsgSuccess)
}

// pasteFromClipboard replaces the diagram with a JSON document from the
// clipboard. The diagram is untouched if the document is malformed.
func (ed *Editor) pasteFromClipboard() {
	if !ed.cfg.Editor.Clipboard {
		ed.showMessage("Clipboard disabled in config", MsgInfo)
		return
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		ed.showMessage("Clipboard error: "+err.Error(), MsgError)
		return
	}
	if strings.TrimSpace(text) == "" {
		ed.showMessage("Clipboard is empty", MsgError)
		return
	}
	if err := ed.ctrl.ReplaceDocument([]byte(text)); err != nil {
		ed.showMessage("Invalid document: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Pasted diagram", MsgSuccess)
}
