// Package ttl converts JSON documents to RDF Turtle.
//
// Every JSON object becomes a subject whose name is derived from the path of
// keys and array indices leading to it from the root:
//
//   - the root is named after its "district" member when that is a non-empty
//     string and typed <ns>:District, otherwise it is named Data_<epochMillis>
//     and typed <ns>:Dataset;
//   - an object under key k of subject S is named S_k;
//   - the i-th object of an array under key k of subject S is named S_k_i.
//
// Members are emitted in document order, so the output of a given input is
// stable once the clock is pinned.
package ttl

import (
	"bytes"
	"fmt"
	"strconv"

	"bitbucket.org/creachadair/stringset"
	"github.com/jonboulle/clockwork"
)

const (
	// ClassDistrict types a root subject named after its district.
	ClassDistrict = "District"
	// ClassDataset types a root subject with a synthesized name.
	ClassDataset = "Dataset"

	districtKey = "district"
)

// Serializer converts JSON values to Turtle. It is immutable once built and
// safe for concurrent use.
type Serializer struct {
	clock             clockwork.Clock
	maxDepth          int
	strict            bool
	quoteArrayScalars bool
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithClock sets the clock read for Data_<epochMillis> root names.
func WithClock(c clockwork.Clock) Option {
	return func(s *Serializer) {
		s.clock = c
	}
}

// WithMaxDepth sets the deepest JSON nesting accepted. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(s *Serializer) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithStrictValidation rejects base URIs that are not absolute IRIs and
// namespaces that are not legal Turtle prefixes. Without it both are written
// verbatim.
func WithStrictValidation() Option {
	return func(s *Serializer) {
		s.strict = true
	}
}

// WithQuotedArrayScalars writes every scalar array element as a quoted string,
// numbers included. By default array elements follow the same rules as
// member values.
func WithQuotedArrayScalars() Option {
	return func(s *Serializer) {
		s.quoteArrayScalars = true
	}
}

// New returns a Serializer with the given options applied.
func New(opts ...Option) *Serializer {
	s := &Serializer{
		clock:    clockwork.NewRealClock(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSerializer = New()

// Serialize converts v with a default Serializer.
func Serialize(v *Value, baseURI, namespace string) (string, error) {
	return defaultSerializer.Serialize(v, baseURI, namespace)
}

// SerializeJSON parses data and converts it with a default Serializer.
func SerializeJSON(data []byte, baseURI, namespace string) (string, error) {
	return defaultSerializer.SerializeJSON(data, baseURI, namespace)
}

// MaxDepth returns the deepest JSON nesting the serializer accepts.
func (s *Serializer) MaxDepth() int {
	return s.maxDepth
}

// Serialize converts v to a Turtle document.
func (s *Serializer) Serialize(v *Value, baseURI, namespace string) (string, error) {
	doc, err := s.Convert(v, baseURI, namespace)
	if err != nil {
		return "", err
	}
	return doc.String(), nil
}

// SerializeJSON parses data and converts it to a Turtle document.
func (s *Serializer) SerializeJSON(data []byte, baseURI, namespace string) (string, error) {
	doc, err := s.ConvertJSON(data, baseURI, namespace)
	if err != nil {
		return "", err
	}
	return doc.String(), nil
}

// ConvertJSON parses data and converts it to a Document.
func (s *Serializer) ConvertJSON(data []byte, baseURI, namespace string) (*Document, error) {
	v, err := DecodeDepth(bytes.NewReader(data), s.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return s.Convert(v, baseURI, namespace)
}

// Convert converts v, which must be a JSON object, to a Document.
func (s *Serializer) Convert(v *Value, baseURI, namespace string) (*Document, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: got nothing", ErrInvalidInputKind)
	}
	if v.Kind != KindObject {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidInputKind, v.Kind)
	}
	if s.strict {
		if err := validateBaseURI(baseURI); err != nil {
			return nil, err
		}
		if err := validateNamespace(namespace); err != nil {
			return nil, err
		}
	}

	root, class := s.rootSubject(v)
	c := &converter{
		s:    s,
		doc:  &Document{Namespace: namespace, BaseURI: baseURI},
		seen: stringset.New(),
	}
	if err := c.claim(root); err != nil {
		return nil, err
	}

	typeStmt := Statement{
		Predicate: Name{Prefix: PrefixRDF, Local: "type"},
		Object:    Object{Kind: ObjectResource, Name: Name{Prefix: namespace, Local: class}},
	}
	if err := c.expand(v, root, 1, 0, typeStmt); err != nil {
		return nil, err
	}
	return c.doc, nil
}

// rootSubject picks the root local name and its class.
func (s *Serializer) rootSubject(v *Value) (string, string) {
	if d, ok := v.Get(districtKey); ok && d.Kind == KindString && d.Text != "" {
		return localName(d.Text), ClassDistrict
	}
	return "Data_" + strconv.FormatInt(s.clock.Now().UnixMilli(), 10), ClassDataset
}

// converter holds the state of a single Convert call.
type converter struct {
	s    *Serializer
	doc  *Document
	seen stringset.Set
}

// claim registers a synthesized subject name, failing if another path
// already produced it.
func (c *converter) claim(subject string) error {
	if c.seen.Contains(subject) {
		return fmt.Errorf("%w: %s:%s", ErrSubjectCollision, c.doc.Namespace, subject)
	}
	c.seen.Add(subject)
	return nil
}

// expand appends the block for subject and, depth-first, the blocks of every
// object reachable from v. depth is the JSON nesting of v, level the number
// of subjects between it and the root.
func (c *converter) expand(v *Value, subject string, depth, level int, lead ...Statement) error {
	if depth > c.s.maxDepth {
		return fmt.Errorf("%w: subject %s is nested deeper than %d levels", ErrDepthLimitExceeded, subject, c.s.maxDepth)
	}

	ns := c.doc.Namespace
	idx := len(c.doc.Blocks)
	c.doc.Blocks = append(c.doc.Blocks, Block{
		Subject:    Name{Prefix: ns, Local: subject},
		Depth:      level,
		Statements: lead,
	})
	add := func(st Statement) {
		c.doc.Blocks[idx].Statements = append(c.doc.Blocks[idx].Statements, st)
	}

	for _, m := range members(v) {
		key := localName(m.Key)
		predicate := Name{Prefix: ns, Local: key}
		val := orNull(m.Value)

		switch val.Kind {
		case KindArray:
			if depth+1 > c.s.maxDepth {
				return fmt.Errorf("%w: array %s:%s is nested deeper than %d levels", ErrDepthLimitExceeded, ns, subject+"_"+key, c.s.maxDepth)
			}
			for i, item := range val.Items {
				item = orNull(item)
				if item.Kind == KindObject || item.Kind == KindArray {
					child := subject + "_" + key + "_" + strconv.Itoa(i)
					if err := c.claim(child); err != nil {
						return err
					}
					add(Statement{Predicate: predicate, Object: resource(ns, child)})
					if err := c.expand(item, child, depth+2, level+1); err != nil {
						return err
					}
					continue
				}
				add(Statement{Predicate: predicate, Object: c.arrayScalar(item)})
			}

		case KindObject:
			child := subject + "_" + key
			if err := c.claim(child); err != nil {
				return err
			}
			add(Statement{Predicate: predicate, Object: resource(ns, child)})
			if err := c.expand(val, child, depth+1, level+1); err != nil {
				return err
			}

		default:
			add(Statement{Predicate: predicate, Object: scalar(val)})
		}
	}
	return nil
}

func (c *converter) arrayScalar(v *Value) Object {
	o := scalar(v)
	if c.s.quoteArrayScalars {
		o.Kind = ObjectString
	}
	return o
}

// members lists the members of an object, or the elements of an array keyed
// by their index.
func members(v *Value) []Member {
	if v.Kind == KindObject {
		return v.Members
	}
	ms := make([]Member, len(v.Items))
	for i, item := range v.Items {
		ms[i] = Member{Key: strconv.Itoa(i), Value: item}
	}
	return ms
}

// orNull stands in for a missing value in a hand-built tree.
func orNull(v *Value) *Value {
	if v == nil {
		return NewNull()
	}
	return v
}

func resource(ns, local string) Object {
	return Object{Kind: ObjectResource, Name: Name{Prefix: ns, Local: local}}
}

// scalar converts a non-container value. Numbers stay numeric; booleans and
// null are written as strings.
func scalar(v *Value) Object {
	switch v.Kind {
	case KindNumber:
		return Object{Kind: ObjectNumber, Lexical: formatNumber(v.Text)}
	case KindBool:
		return Object{Kind: ObjectString, Lexical: strconv.FormatBool(v.Bool)}
	case KindNull:
		return Object{Kind: ObjectString, Lexical: "null"}
	default:
		return Object{Kind: ObjectString, Lexical: v.Text}
	}
}
