package rdf

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/piprate/json-gold/ld"

	"github.com/twinfer/ontocloud/ttl"
)

// ToNQuads serializes doc as N-Quads. Lines are sorted, so the output does
// not depend on member order.
func ToNQuads(doc *ttl.Document) (string, error) {
	serializer := &ld.NQuadRDFSerializer{}
	out, err := serializer.Serialize(ToDataset(doc))
	if err != nil {
		return "", fmt.Errorf("failed to serialize N-Quads: %w", err)
	}
	nquads, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("unexpected N-Quads result type: %T", out)
	}
	return nquads, nil
}

// ToJSONLD converts doc to a compacted JSON-LD document using Context(doc).
// Numbers and booleans typed with XSD datatypes become native JSON values.
func ToJSONLD(doc *ttl.Document) (map[string]any, error) {
	// FromRDF only parses serialized input, so go through N-Quads.
	nquads, err := ToNQuads(doc)
	if err != nil {
		return nil, err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	opts.UseNativeTypes = true

	expanded, err := proc.FromRDF(nquads, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert RDF to JSON-LD: %w", err)
	}

	compacted, err := proc.Compact(expanded, map[string]any{"@context": Context(doc)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compact JSON-LD: %w", err)
	}
	return compacted, nil
}

// DocumentJSONLD wraps a ttl.Document so that it marshals as compacted JSON-LD.
type DocumentJSONLD struct {
	*ttl.Document
}

// MarshalJSONTo implements json.MarshalerTo.
func (d DocumentJSONLD) MarshalJSONTo(enc *jsontext.Encoder) error {
	if d.Document == nil {
		return enc.WriteToken(jsontext.Null)
	}
	compacted, err := ToJSONLD(d.Document)
	if err != nil {
		return err
	}
	return json.MarshalEncode(enc, compacted)
}
