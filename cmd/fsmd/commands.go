package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fsm-designer/pkg/config"
	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
)

func exportCmd() *cobra.Command {
	var output, format, title string
	var scale float64

	cmd := &cobra.Command{
		Use:   "export <input>",
		Short: "Export a diagram as SVG, PNG or DOT",
		Example: `  fsmd export machine.json
  fsmd export machine.yaml -f svg -o machine.svg
  fsmd export machine.json -f dot | neato -n -Tpng -o machine.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			g, err := loadGraph(input)
			if err != nil {
				return err
			}

			if format == "" {
				format = cfg.Export.Format
			}
			if scale <= 0 {
				scale = cfg.Export.Scale
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			}

			data, err := render(g, format, scale, title)
			if err != nil {
				return err
			}

			if output == "" {
				if format == config.FormatDOT {
					_, err = os.Stdout.Write(data)
					return err
				}
				output = swapExt(input, "."+format)
				if cfg.Export.Dir != "" {
					output = filepath.Join(cfg.Export.Dir, filepath.Base(output))
				}
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			written(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (DOT defaults to stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "svg, png or dot (default from config)")
	cmd.Flags().Float64Var(&scale, "scale", 0, "PNG pixels per diagram unit")
	cmd.Flags().StringVarP(&title, "title", "t", "", "DOT graph title")
	return cmd
}

func render(g *diagram.Graph, format string, scale float64, title string) ([]byte, error) {
	switch format {
	case config.FormatSVG:
		return []byte(docfile.GenerateSVG(g)), nil
	case config.FormatPNG:
		var buf bytes.Buffer
		if err := docfile.RenderPNG(g, &buf, scale); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case config.FormatDOT:
		return []byte(docfile.GenerateDOT(g, title)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func convertCmd() *cobra.Command {
	var output string
	var compact bool

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert between JSON and YAML documents",
		Example: `  fsmd convert machine.json          # writes machine.yaml
  fsmd convert machine.yaml -o out.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			doc, err := readDocument(input)
			if err != nil {
				return fmt.Errorf("load %s: %w", input, err)
			}

			if output == "" {
				if docfile.FormatFromPath(input) == docfile.FormatYAML {
					output = swapExt(input, ".json")
				} else {
					output = swapExt(input, ".yaml")
				}
			}

			// Round-trip through the graph so the output is normalised.
			doc = docfile.FromGraph(doc.Graph())
			var data []byte
			switch f := docfile.FormatFromPath(output); {
			case f == docfile.FormatJSON && compact:
				data, err = docfile.ToJSON(doc, false)
			default:
				data, err = docfile.Encode(doc, f)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			written(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&compact, "compact", false, "write JSON without indentation")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input>",
		Short: "Show diagram information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			printInfo(args[0], doc)
			return nil
		},
	}
}

func printInfo(name string, doc *docfile.Document) {
	g := doc.Graph()

	var starts, ends []string
	for _, n := range g.Nodes() {
		label := strings.ReplaceAll(n.Label, "\n", " ")
		if n.IsStart {
			starts = append(starts, label)
		}
		if n.IsEnd {
			ends = append(ends, label)
		}
	}
	loops, curved := 0, 0
	for _, l := range g.Links() {
		switch {
		case l.IsSelfLoop():
			loops++
		case !g.IsStraight(l):
			curved++
		}
	}
	b := g.Bounds()

	fmt.Printf("%s %s\n\n", brand.Sprint("fsmd"), subtle.Sprint(name))
	fmt.Printf("  States:      %d\n", g.NodeCount())
	fmt.Printf("  Transitions: %d (%d self-loops, %d curved)\n", g.LinkCount(), loops, curved)
	if dropped := len(doc.Links) - g.LinkCount(); dropped > 0 {
		fmt.Printf("  Dangling:    %s\n", bad.Sprintf("%d links dropped", dropped))
	}
	fmt.Printf("  Start:       %s\n", listOrNone(starts))
	fmt.Printf("  End:         %s\n", listOrNone(ends))
	fmt.Printf("  Bounds:      %.0f x %.0f at (%.0f, %.0f)\n", b.W, b.H, b.X, b.Y)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return subtle.Sprint("none")
	}
	return strings.Join(items, ", ")
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <input>",
		Short: "Validate a diagram document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			g := doc.Graph()
			fmt.Printf("%s %s: %d states, %d transitions\n",
				good.Sprint("valid"), args[0], g.NodeCount(), g.LinkCount())
			if dropped := len(doc.Links) - g.LinkCount(); dropped > 0 {
				fmt.Printf("  %s\n", bad.Sprintf("%d links reference missing states", dropped))
			}
			return nil
		},
	}
}

func layoutCmd() *cobra.Command {
	var output, algorithm string

	cmd := &cobra.Command{
		Use:   "layout <input>",
		Short: "Arrange the states of a diagram automatically",
		Example: `  fsmd layout machine.json                 # rewrites machine.json
  fsmd layout machine.yaml -a circle -o arranged.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := diagram.ParseLayout(algorithm)
			if err != nil {
				return err
			}
			input := args[0]
			g, err := loadGraph(input)
			if err != nil {
				return err
			}
			g.Arrange(layout)

			if output == "" {
				output = input
			}
			data, err := docfile.Marshal(g, docfile.FormatFromPath(output))
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			written(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: rewrite input)")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "layered", "layered, grid or circle")
	return cmd
}
