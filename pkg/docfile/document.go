// Package docfile converts diagrams to and from the interchange document
// and renders them for export.
package docfile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// Errors reported for malformed documents.
var (
	ErrMissingSequence = errors.New("document must contain both nodes and links")
	ErrInvalid         = errors.New("invalid document")
)

// Document is the interchange form of a diagram.
type Document struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"required,dive"`
	Links []Link `json:"links" yaml:"links" validate:"required,dive"`
}

// Node is a state in the interchange document.
type Node struct {
	ID      string  `json:"id" yaml:"id" validate:"required"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Size    float64 `json:"size" yaml:"size"`
	Label   string  `json:"label" yaml:"label"`
	IsStart bool    `json:"isStart" yaml:"isStart"`
	IsEnd   bool    `json:"isEnd" yaml:"isEnd"`
}

// Point is a nested {x, y} object.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Link is a transition in the interchange document. Spread is only
// written for self-loops.
type Link struct {
	ID           string   `json:"id" yaml:"id" validate:"required"`
	SourceID     string   `json:"sourceId" yaml:"sourceId"`
	TargetID     string   `json:"targetId" yaml:"targetId"`
	Label        string   `json:"label" yaml:"label"`
	ControlPoint Point    `json:"controlPoint" yaml:"controlPoint"`
	Spread       *float64 `json:"spread,omitempty" yaml:"spread,omitempty"`
}

var validate = validator.New()

// Validate checks that both sequences are present and every element is
// well formed. Referential integrity is not checked here; dangling links
// are dropped when the document is turned into a graph.
func (d *Document) Validate() error {
	if d.Nodes == nil || d.Links == nil {
		return ErrMissingSequence
	}
	if err := validate.Struct(d); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// FromGraph builds a document from a graph. Dangling links are kept, so a
// document written back reproduces exactly what the graph holds.
func FromGraph(g *diagram.Graph) *Document {
	doc := &Document{
		Nodes: make([]Node, 0, g.NodeCount()),
		Links: make([]Link, 0, g.LinkCount()),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, Node{
			ID:      n.ID,
			X:       n.X,
			Y:       n.Y,
			Size:    n.Size,
			Label:   n.Label,
			IsStart: n.IsStart,
			IsEnd:   n.IsEnd,
		})
	}
	for _, l := range g.Links() {
		dl := Link{
			ID:           l.ID,
			SourceID:     l.SourceID,
			TargetID:     l.TargetID,
			Label:        l.Label,
			ControlPoint: Point{l.Control.X, l.Control.Y},
		}
		if l.IsSelfLoop() {
			spread := l.Spread
			dl.Spread = &spread
		}
		doc.Links = append(doc.Links, dl)
	}
	return doc
}

// Graph builds a new graph from the document. Links whose endpoints are
// missing or empty are dropped; nodes without a positive size get the
// default size.
func (d *Document) Graph() *diagram.Graph {
	nodes := make([]diagram.Node, len(d.Nodes))
	for i, n := range d.Nodes {
		size := n.Size
		if !(size > 0) {
			size = diagram.DefaultNodeSize
		}
		nodes[i] = diagram.Node{
			ID:      n.ID,
			X:       n.X,
			Y:       n.Y,
			Size:    size,
			Label:   n.Label,
			IsStart: n.IsStart,
			IsEnd:   n.IsEnd,
		}
	}
	links := make([]diagram.Link, len(d.Links))
	for i, l := range d.Links {
		links[i] = diagram.Link{
			ID:       l.ID,
			SourceID: l.SourceID,
			TargetID: l.TargetID,
			Label:    l.Label,
			Control:  diagram.Point{X: l.ControlPoint.X, Y: l.ControlPoint.Y},
		}
		if l.Spread != nil {
			links[i].Spread = *l.Spread
		}
	}

	g := diagram.New()
	g.Replace(nodes, links)
	return g
}
