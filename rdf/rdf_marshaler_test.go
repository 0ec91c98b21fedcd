package rdf

import (
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
)

func TestToNQuads(t *testing.T) {
	doc := convert(t, `{"district": "Gangnam-gu", "population": 561052, "name": "Seoul \"south\""}`)

	out, err := ToNQuads(doc)
	if err != nil {
		t.Fatalf("ToNQuads failed: %v", err)
	}

	for _, want := range []string{
		"<http://example.org/ontology#Gangnam-gu> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/ontology#District> .\n",
		"<http://example.org/ontology#Gangnam-gu> <http://example.org/ontology#population> \"561052\"^^<http://www.w3.org/2001/XMLSchema#integer> .\n",
		"<http://example.org/ontology#Gangnam-gu> <http://example.org/ontology#name> \"Seoul \\\"south\\\"\" .\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("N-Quads missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got != doc.TripleCount() {
		t.Errorf("got %d lines, want %d", got, doc.TripleCount())
	}
}

func TestToJSONLD(t *testing.T) {
	doc := convert(t, `{"district": "Gangnam-gu", "population": 561052, "transport": {"lines": "2,3"}}`)

	compacted, err := ToJSONLD(doc)
	if err != nil {
		t.Fatalf("ToJSONLD failed: %v", err)
	}

	ctx, ok := compacted["@context"].(map[string]any)
	if !ok {
		t.Fatalf("missing @context in %v", compacted)
	}
	if ctx["ex"] != base {
		t.Errorf("context ex = %v, want %s", ctx["ex"], base)
	}

	graph, ok := compacted["@graph"].([]any)
	if !ok {
		t.Fatalf("missing @graph in %v", compacted)
	}
	if len(graph) != 2 {
		t.Errorf("got %d nodes, want 2", len(graph))
	}
}

func TestDocumentJSONLDMarshal(t *testing.T) {
	doc := convert(t, `{"district": "Gangnam-gu", "population": 561052}`)

	out, err := json.Marshal(DocumentJSONLD{doc})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(out)
	for _, want := range []string{`"@id":"ex:Gangnam-gu"`, `"@type":"ex:District"`, `"ex:population":561052`, `"ex:district":"Gangnam-gu"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON-LD missing %s:\n%s", want, s)
		}
	}

	null, err := json.Marshal(DocumentJSONLD{})
	if err != nil {
		t.Fatalf("Marshal of empty wrapper failed: %v", err)
	}
	if string(null) != "null" {
		t.Errorf("empty wrapper = %s, want null", null)
	}
}

func TestContext(t *testing.T) {
	doc := convert(t, `{"district": "R"}`)
	ctx := Context(doc)
	for prefix, want := range map[string]string{
		"ex":   base,
		"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		"xsd":  "http://www.w3.org/2001/XMLSchema#",
	} {
		if ctx[prefix] != want {
			t.Errorf("context[%s] = %v, want %s", prefix, ctx[prefix], want)
		}
	}

	doc.Namespace = ""
	if _, ok := Context(doc)[""]; ok {
		t.Error("empty namespace added to the context")
	}
}
