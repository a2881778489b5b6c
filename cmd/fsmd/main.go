// Command fsmd converts, inspects, exports and serves FSM diagrams.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/config"
	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
	"github.com/ha1tch/fsm-designer/pkg/logging"
)

var version = "0.3.0"

// CLI colours.
var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

var (
	cfg      *config.Config
	cfgPath  string
	logLevel string
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fsmd",
		Short:         "fsmd - FSM diagram toolkit",
		Long:          brand.Sprint("fsmd") + " - convert, inspect, export and serve FSM diagrams",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfg = config.Load()
				return nil
			}
			c, err := config.LoadFile(cfgPath)
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default "+config.Path()+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		exportCmd(),
		convertCmd(),
		infoCmd(),
		validateCmd(),
		layoutCmd(),
		serveCmd(),
		slotCmd(),
	)
	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		bad.Fprintf(os.Stderr, "fsmd: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds a stderr logger from the config and --log-level.
func newLogger() (*zap.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	paths := []string{"stderr"}
	if cfg.Log.File != "" {
		paths = []string{cfg.Log.File}
	}
	return logging.New(logging.Options{Level: level, Paths: paths})
}

// readDocument loads an interchange document, choosing JSON or YAML by
// extension.
func readDocument(path string) (*docfile.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return docfile.Parse(data, docfile.FormatFromPath(path))
}

func loadGraph(path string) (*diagram.Graph, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc.Graph(), nil
}

// swapExt replaces the extension of path.
func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func written(path string) {
	fmt.Printf("%s %s\n", good.Sprint("Written:"), path)
}
