package ttl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Standard prefixes declared by every document, in declaration order after
// the document's own namespace.
const (
	PrefixRDF  = "rdf"
	PrefixRDFS = "rdfs"
	PrefixXSD  = "xsd"

	NamespaceRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceXSD  = "http://www.w3.org/2001/XMLSchema#"

	// RDFType is the IRI of rdf:type.
	RDFType = NamespaceRDF + "type"
)

var standardPrefixes = []struct{ prefix, iri string }{
	{PrefixRDF, NamespaceRDF},
	{PrefixRDFS, NamespaceRDFS},
	{PrefixXSD, NamespaceXSD},
}

// ObjectKind tells how the object of a statement is written.
type ObjectKind uint8

const (
	// ObjectResource is a prefixed name referring to another subject or class.
	ObjectResource ObjectKind = iota
	// ObjectString is a quoted string literal.
	ObjectString
	// ObjectNumber is a bare numeric literal.
	ObjectNumber
)

// Name is a Turtle prefixed name such as ex:Gangnam-gu.
type Name struct {
	Prefix string
	Local  string
}

func (n Name) String() string { return n.Prefix + ":" + n.Local }

// Object is the object position of a statement. Name is set for resources,
// Lexical for literals (unescaped for strings).
type Object struct {
	Kind    ObjectKind
	Name    Name
	Lexical string
}

// String returns the Turtle form of o.
func (o Object) String() string {
	switch o.Kind {
	case ObjectResource:
		return o.Name.String()
	case ObjectNumber:
		return o.Lexical
	default:
		return `"` + escapeLiteral(o.Lexical) + `"`
	}
}

// Statement is one predicate/object pair of a subject block.
type Statement struct {
	Predicate Name
	Object    Object
}

// Block groups the statements made about one subject. Depth is the number of
// objects between the subject and the root.
type Block struct {
	Subject    Name
	Depth      int
	Statements []Statement
}

// Document is the result of converting a JSON object. Blocks are in
// depth-first pre-order, the root block first.
type Document struct {
	Namespace string
	BaseURI   string
	Blocks    []Block
}

// Triple is a statement with every name expanded to a full IRI.
type Triple struct {
	Subject   string
	Predicate string
	// Object is an IRI for resources and the unescaped lexical form otherwise.
	Object string
	Kind   ObjectKind
}

// IRI expands a prefixed name. Standard prefixes win over the document
// namespace because they are declared after it.
func (d *Document) IRI(n Name) string {
	for _, p := range standardPrefixes {
		if n.Prefix == p.prefix {
			return p.iri + n.Local
		}
	}
	if n.Prefix == d.Namespace {
		return d.BaseURI + n.Local
	}
	return n.String()
}

// Triples returns every statement of the document in output order.
func (d *Document) Triples() []Triple {
	triples := make([]Triple, 0, d.TripleCount())
	for _, b := range d.Blocks {
		subject := d.IRI(b.Subject)
		for _, st := range b.Statements {
			t := Triple{
				Subject:   subject,
				Predicate: d.IRI(st.Predicate),
				Kind:      st.Object.Kind,
			}
			if st.Object.Kind == ObjectResource {
				t.Object = d.IRI(st.Object.Name)
			} else {
				t.Object = st.Object.Lexical
			}
			triples = append(triples, t)
		}
	}
	return triples
}

// TripleCount returns the number of statements in the document.
func (d *Document) TripleCount() int {
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Statements)
	}
	return n
}

// SubjectCount returns the number of synthesized subjects, including those
// that have no statements of their own.
func (d *Document) SubjectCount() int {
	return len(d.Blocks)
}

// Root returns the root subject of the document.
func (d *Document) Root() Name {
	if len(d.Blocks) == 0 {
		return Name{}
	}
	return d.Blocks[0].Subject
}

// WriteTo writes the document as Turtle. It implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprintf(bw, "@prefix %s: <%s> .\n", d.Namespace, d.BaseURI)
	for _, p := range standardPrefixes {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p.prefix, p.iri)
	}
	bw.WriteString("\n")

	first := true
	for _, b := range d.Blocks {
		// A subject without statements cannot stand alone in Turtle; it is
		// still referenced from its parent.
		if len(b.Statements) == 0 {
			continue
		}
		if !first {
			bw.WriteString("\n")
		}
		first = false

		indent := strings.Repeat("  ", b.Depth)
		for i, st := range b.Statements {
			bw.WriteString(indent)
			if i == 0 {
				bw.WriteString(b.Subject.String())
				bw.WriteString(" ")
			} else {
				bw.WriteString("    ")
			}
			bw.WriteString(st.Predicate.String())
			bw.WriteString(" ")
			bw.WriteString(st.Object.String())
			bw.WriteString(" ;\n")
		}
		bw.WriteString(indent)
		bw.WriteString(".\n")
	}

	if err := bw.Flush(); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// String returns the document as Turtle.
func (d *Document) String() string {
	var sb strings.Builder
	_, _ = d.WriteTo(&sb)
	return sb.String()
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}
