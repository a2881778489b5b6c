package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ha1tch/fsm-designer/pkg/docfile"
)

const sampleDoc = `{
  "nodes": [
    {"id": "a", "x": 200, "y": 300, "size": 100, "label": "A", "isStart": true, "isEnd": false},
    {"id": "b", "x": 550, "y": 300, "size": 100, "label": "B", "isStart": false, "isEnd": true}
  ],
  "links": [
    {"id": "ab", "sourceId": "a", "targetId": "b", "label": "go", "controlPoint": {"x": 375, "y": 300}}
  ]
}`

func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := rootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSwapExt(t *testing.T) {
	tests := []struct{ in, ext, want string }{
		{"a/b.json", ".yaml", "a/b.yaml"},
		{"noext", ".svg", "noext.svg"},
		{"x.tar.json", ".png", "x.tar.png"},
	}
	for _, tt := range tests {
		if got := swapExt(tt.in, tt.ext); got != tt.want {
			t.Errorf("swapExt(%q, %q): expected %q, got %q", tt.in, tt.ext, tt.want, got)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	input := writeSample(t)
	if err := run(t, "convert", input); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	yamlPath := swapExt(input, ".yaml")
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatalf("Expected %s to be written: %v", yamlPath, err)
	}
	if !strings.Contains(string(data), "sourceId: a") {
		t.Errorf("Expected YAML keys, got:\n%s", data)
	}

	back := filepath.Join(t.TempDir(), "back.json")
	if err := run(t, "convert", yamlPath, "-o", back); err != nil {
		t.Fatalf("convert back failed: %v", err)
	}
	orig, _ := docfile.Unmarshal([]byte(sampleDoc), docfile.FormatJSON)
	data, _ = os.ReadFile(back)
	got, err := docfile.Unmarshal(data, docfile.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !orig.Equal(got) {
		t.Error("Expected JSON -> YAML -> JSON to preserve the diagram")
	}
}

func TestExportFormats(t *testing.T) {
	input := writeSample(t)
	dir := t.TempDir()

	for _, f := range []string{"svg", "png", "dot"} {
		out := filepath.Join(dir, "out."+f)
		if err := run(t, "export", input, "-f", f, "-o", out); err != nil {
			t.Fatalf("export %s failed: %v", f, err)
		}
		info, err := os.Stat(out)
		if err != nil || info.Size() == 0 {
			t.Errorf("Expected non-empty %s output", f)
		}
	}

	if err := run(t, "export", input, "-f", "gif", "-o", filepath.Join(dir, "x.gif")); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"nodes": []}`), 0644)
	if err := run(t, "validate", path); err == nil {
		t.Error("Expected validation error")
	}
	if err := run(t, "validate", writeSample(t)); err != nil {
		t.Errorf("Expected valid document, got %v", err)
	}
}

func TestLayout(t *testing.T) {
	input := writeSample(t)
	out := filepath.Join(t.TempDir(), "grid.json")
	if err := run(t, "layout", input, "-a", "grid", "-o", out); err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	g, err := loadGraph(out)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := g.FindNode("b")
	if !ok || b.X != 450 || b.Y != 200 {
		t.Errorf("Expected b on the grid at (450, 200), got %+v", b)
	}

	if err := run(t, "layout", input, "-a", "spiral"); err == nil {
		t.Error("Expected error for unknown layout")
	}
}

func TestSlotSaveLoad(t *testing.T) {
	input := writeSample(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	db := filepath.Join(t.TempDir(), "slots.db")
	os.WriteFile(cfgFile, []byte("[storage]\npath = \""+filepath.ToSlash(db)+"\"\n"), 0644)

	exec := func(args ...string) error {
		cmd := rootCmd()
		cmd.SetArgs(append([]string{"--config", cfgFile}, args...))
		return cmd.Execute()
	}

	if err := exec("slot", "save", "demo", input); err != nil {
		t.Fatalf("slot save failed: %v", err)
	}
	out := filepath.Join(t.TempDir(), "demo.yaml")
	if err := exec("slot", "load", "demo", "-o", out); err != nil {
		t.Fatalf("slot load failed: %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), "label: go") {
		t.Errorf("Expected stored document, got:\n%s", data)
	}
	if err := exec("slot", "delete", "demo"); err != nil {
		t.Fatalf("slot delete failed: %v", err)
	}
	if err := exec("slot", "load", "demo"); err == nil {
		t.Error("Expected error loading a deleted slot")
	}
}
