package docfile

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// ParseJSON parses and validates a JSON document.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ToJSON encodes a document as JSON.
func ToJSON(doc *Document, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// ParseYAML parses and validates a YAML document of the same shape.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ToYAML encodes a document as YAML.
func ToYAML(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// Format names an interchange encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension, defaulting to
// JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes a document in the given format.
func Parse(data []byte, f Format) (*Document, error) {
	if f == FormatYAML {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// Encode writes a document in the given format. JSON is indented.
func Encode(doc *Document, f Format) ([]byte, error) {
	if f == FormatYAML {
		return ToYAML(doc)
	}
	return ToJSON(doc, true)
}

// Marshal encodes a graph directly.
func Marshal(g *diagram.Graph, f Format) ([]byte, error) {
	return Encode(FromGraph(g), f)
}

// Unmarshal decodes a document into a new graph.
func Unmarshal(data []byte, f Format) (*diagram.Graph, error) {
	doc, err := Parse(data, f)
	if err != nil {
		return nil, err
	}
	return doc.Graph(), nil
}
