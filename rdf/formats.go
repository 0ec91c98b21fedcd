package rdf

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ontocloud/ttl"
)

// Format names an output serialization of a converted document.
type Format string

// Supported formats.
const (
	FormatTurtle  Format = "turtle"
	FormatNQuads  Format = "nquads"
	FormatJSONLD  Format = "jsonld"
	FormatDatalog Format = "datalog"
)

// ErrUnknownFormat is returned by Render for a format missing from FormatRegistry.
var ErrUnknownFormat = errors.New("unknown output format")

// FormatInfo provides metadata about an output format.
type FormatInfo struct {
	Name Format
	// MIMEType is sent as the Content-Type of rendered documents.
	MIMEType string
	// Extension is the file extension, with the dot.
	Extension   string
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNQuads: {
		Name:        FormatNQuads,
		MIMEType:    "application/n-quads",
		Extension:   ".nq",
		Description: "N-Quads - Line-based RDF dataset format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
	FormatDatalog: {
		Name:        FormatDatalog,
		MIMEType:    "text/plain",
		Extension:   ".mg",
		Description: "Mangle Datalog facts",
	},
}

// GetFormatInfo returns metadata for a format. The empty format is Turtle.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	if format == "" {
		format = FormatTurtle
	}
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats lists the registered format names in sorted order.
func Formats() []Format {
	names := make([]Format, 0, len(FormatRegistry))
	for name := range FormatRegistry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Render serializes doc in the given format. The empty format is Turtle.
func Render(doc *ttl.Document, format Format) (string, error) {
	info, ok := GetFormatInfo(format)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	switch info.Name {
	case FormatTurtle:
		return doc.String(), nil
	case FormatNQuads:
		return ToNQuads(doc)
	case FormatJSONLD:
		out, err := json.Marshal(DocumentJSONLD{doc}, jsontext.WithIndent("  "))
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON-LD: %w", err)
		}
		return string(out) + "\n", nil
	case FormatDatalog:
		atoms, err := ToAtoms(doc)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, a := range atoms {
			sb.WriteString(a.String())
			sb.WriteString(".\n")
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
