// Package config loads persistent settings for the fsm-designer tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds persistent settings.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Export  ExportConfig  `toml:"export"`
	Editor  EditorConfig  `toml:"editor"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects the autosave database.
type StorageConfig struct {
	Path string `toml:"path"`
	Slot string `toml:"slot"`
}

// ExportConfig controls image export.
type ExportConfig struct {
	Dir    string  `toml:"dir"`
	Format string  `toml:"format"` // "png", "svg" or "dot"
	Scale  float64 `toml:"scale"`
}

// EditorConfig controls the terminal editor.
type EditorConfig struct {
	WatchFile     bool   `toml:"watch_file"`
	Clipboard     bool   `toml:"clipboard"`
	DoubleClickMS int    `toml:"double_click_ms"`
	LastDir       string `toml:"last_dir"`
}

// LogConfig controls logging. An empty file disables it.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Export formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatDOT = "dot"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Path: filepath.Join(Dir(), "diagrams.db"), Slot: "fsm_db"},
		Export:  ExportConfig{Format: FormatPNG, Scale: 2},
		Editor:  EditorConfig{WatchFile: true, Clipboard: true, DoubleClickMS: 400},
		Log:     LogConfig{Level: "info"},
	}
}

// Dir returns the config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "fsmdesign")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file. A missing or unreadable file gives defaults.
func Load() *Config {
	cfg, err := LoadFile(Path())
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads settings from path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	d := Default()
	switch c.Export.Format {
	case FormatPNG, FormatSVG, FormatDOT:
	default:
		c.Export.Format = d.Export.Format
	}
	if c.Export.Scale <= 0 {
		c.Export.Scale = d.Export.Scale
	}
	if c.Editor.DoubleClickMS <= 0 {
		c.Editor.DoubleClickMS = d.Editor.DoubleClickMS
	}
	if c.Storage.Slot == "" {
		c.Storage.Slot = d.Storage.Slot
	}
}

// Save writes the config to its default path.
func Save(cfg *Config) error {
	return SaveFile(Path(), cfg)
}

// SaveFile writes the config to path.
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
