package docfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// GenerateDOT converts a diagram to Graphviz DOT format. Node positions
// are pinned so neato reproduces the editor layout.
func GenerateDOT(g *diagram.Graph, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph FSM {\n")
	sb.WriteString("    layout=neato;\n")
	sb.WriteString("    inputscale=72;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11, shape=circle, fixedsize=true];\n")
	sb.WriteString("    edge [fontname=\"Courier\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	nodes := g.Nodes()

	// Invisible entry arrows for start states
	for i, n := range nodes {
		if !n.IsStart {
			continue
		}
		start := fmt.Sprintf("__start%d", i)
		sb.WriteString(fmt.Sprintf("    %s [shape=none, label=\"\", width=0, height=0, pos=\"%.1f,%.1f!\"];\n",
			start, n.X-n.Size, -n.Y))
		sb.WriteString(fmt.Sprintf("    %s -> \"%s\";\n", start, escapeDOT(n.ID)))
	}

	for _, n := range nodes {
		attrs := []string{
			fmt.Sprintf("label=\"%s\"", escapeDOT(n.Label)),
			fmt.Sprintf("pos=\"%.1f,%.1f!\"", n.X, -n.Y),
			fmt.Sprintf("width=%.2f", n.Size/72),
		}
		if n.IsEnd {
			attrs = append(attrs, "shape=doublecircle")
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" [%s];\n", escapeDOT(n.ID), strings.Join(attrs, ", ")))
	}
	sb.WriteString("\n")

	// Group labels by (from, to), keeping first-seen order
	type edgeKey struct{ from, to string }
	var order []edgeKey
	labels := make(map[edgeKey][]string)
	for _, l := range g.Links() {
		if _, _, ok := g.Endpoints(l); !ok {
			continue
		}
		key := edgeKey{l.SourceID, l.TargetID}
		if _, seen := labels[key]; !seen {
			order = append(order, key)
		}
		labels[key] = append(labels[key], l.Label)
	}

	for _, key := range order {
		combined := strings.Join(labels[key], ", ")
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\" [label=\"%s\"];\n",
			escapeDOT(key.from), escapeDOT(key.to), escapeDOT(combined)))
	}

	sb.WriteString("}\n")

	return sb.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
