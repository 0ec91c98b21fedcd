// Package rdf exposes a converted ttl.Document as an RDF dataset, as
// JSON-LD and N-Quads, and as Mangle facts.
package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
	"github.com/piprate/json-gold/ld"

	"github.com/twinfer/ontocloud/ttl"
)

// XSD datatype IRIs used for literals.
const (
	XSDString  = ttl.NamespaceXSD + "string"
	XSDInteger = ttl.NamespaceXSD + "integer"
	XSDDecimal = ttl.NamespaceXSD + "decimal"
	XSDDouble  = ttl.NamespaceXSD + "double"
)

const defaultGraph = "@default"

// ToDataset converts doc to a json-gold dataset holding every triple in the
// default graph, in document order.
func ToDataset(doc *ttl.Document) *ld.RDFDataset {
	dataset := ld.NewRDFDataset()
	triples := doc.Triples()
	quads := make([]*ld.Quad, 0, len(triples))
	for _, t := range triples {
		quads = append(quads, ld.NewQuad(
			ld.NewIRI(t.Subject),
			ld.NewIRI(t.Predicate),
			objectNode(t),
			defaultGraph,
		))
	}
	dataset.Graphs[defaultGraph] = quads
	return dataset
}

func objectNode(t ttl.Triple) ld.Node {
	switch t.Kind {
	case ttl.ObjectResource:
		return ld.NewIRI(t.Object)
	case ttl.ObjectNumber:
		return ld.NewLiteral(t.Object, numberDatatype(t.Object), "")
	default:
		return ld.NewLiteral(t.Object, XSDString, "")
	}
}

// numberDatatype picks the XSD datatype whose lexical space holds lexical.
func numberDatatype(lexical string) string {
	switch {
	case strings.ContainsAny(lexical, "eE"):
		return XSDDouble
	case strings.Contains(lexical, "."):
		return XSDDecimal
	default:
		return XSDInteger
	}
}

// ToAtoms converts doc to Mangle atoms. An rdf:type statement becomes a unary
// atom named is_<class>, every other statement a binary atom named after the
// predicate. Subjects and resources become names of the form /<local>.
func ToAtoms(doc *ttl.Document) ([]ast.Atom, error) {
	var atoms []ast.Atom
	for _, b := range doc.Blocks {
		subject, err := nameConstant(b.Subject)
		if err != nil {
			return nil, err
		}
		for _, st := range b.Statements {
			if st.Predicate.Prefix == ttl.PrefixRDF && st.Predicate.Local == "type" {
				atoms = append(atoms, ast.Atom{
					Predicate: ast.PredicateSym{Symbol: ClassSymbol(st.Object.Name.Local), Arity: 1},
					Args:      []ast.BaseTerm{subject},
				})
				continue
			}

			object, err := objectConstant(st.Object)
			if err != nil {
				return nil, fmt.Errorf("failed to convert object of %s %s: %w", b.Subject, st.Predicate, err)
			}
			atoms = append(atoms, ast.Atom{
				Predicate: ast.PredicateSym{Symbol: PredicateSymbol(st.Predicate.Local), Arity: 2},
				Args:      []ast.BaseTerm{subject, object},
			})
		}
	}
	return atoms, nil
}

// LoadFacts adds the atoms of doc to store and returns how many were new.
func LoadFacts(doc *ttl.Document, store factstore.FactStore) (int, error) {
	atoms, err := ToAtoms(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to convert document to atoms: %w", err)
	}
	added := 0
	for _, a := range atoms {
		if store.Add(a) {
			added++
		}
	}
	return added, nil
}

func nameConstant(n ttl.Name) (ast.Constant, error) {
	c, err := ast.Name("/" + n.Local)
	if err != nil {
		return ast.Constant{}, fmt.Errorf("failed to create name for %s: %w", n, err)
	}
	return c, nil
}

func objectConstant(o ttl.Object) (ast.Constant, error) {
	switch o.Kind {
	case ttl.ObjectResource:
		return nameConstant(o.Name)
	case ttl.ObjectNumber:
		if n, err := strconv.ParseInt(o.Lexical, 10, 64); err == nil {
			return ast.Number(n), nil
		}
		if f, err := strconv.ParseFloat(o.Lexical, 64); err == nil {
			return ast.Float64(f), nil
		}
		// Out of range for both; keep the digits.
		return ast.String(o.Lexical), nil
	default:
		return ast.String(o.Lexical), nil
	}
}

// PredicateSymbol maps a local name to a Mangle predicate symbol: a lowercase
// initial letter followed by letters, digits and underscores. ASCII
// punctuation becomes _ and any other rune is written as _uXXXX (or
// _UXXXXXXXX outside the BMP), so distinct non-ASCII keys stay distinct.
func PredicateSymbol(local string) string {
	var sb strings.Builder
	sb.Grow(len(local) + 2)
	for i, r := range local {
		switch {
		case i == 0 && r >= 'A' && r <= 'Z':
			sb.WriteRune(unicode.ToLower(r))
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(r)
		case r < utf8.RuneSelf || r == utf8.RuneError:
			sb.WriteByte('_')
		case r > 0xFFFF:
			fmt.Fprintf(&sb, "_U%08x", r)
		default:
			fmt.Fprintf(&sb, "_u%04x", r)
		}
	}
	s := sb.String()
	if s == "" || !(s[0] >= 'a' && s[0] <= 'z') {
		s = "p_" + s
	}
	return s
}

// ClassSymbol maps a class local name to the symbol of its unary atom. The
// is_ prefix keeps it apart from a binary predicate built from the same key.
func ClassSymbol(local string) string {
	return "is_" + PredicateSymbol(local)
}
