package ttl

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
)

// DefaultMaxDepth is the deepest JSON nesting accepted by the decoder and the
// serializer. The top-level object is at depth 1.
const DefaultMaxDepth = 1024

// Kind identifies the JSON type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member is a single name/value pair of a JSON object.
type Member struct {
	Key   string
	Value *Value
}

// Value is a parsed JSON value that, unlike map[string]any, remembers the
// order in which object members appeared in the source document.
type Value struct {
	Kind Kind
	Bool bool
	// Text holds the contents of a string, or the raw lexical form of a number.
	Text    string
	Items   []*Value
	Members []Member
}

// NewNull returns a JSON null.
func NewNull() *Value { return &Value{Kind: KindNull} }

// NewBool returns a JSON boolean.
func NewBool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }

// NewNumber returns a JSON number with the given lexical form.
func NewNumber(lexical string) *Value { return &Value{Kind: KindNumber, Text: lexical} }

// NewString returns a JSON string.
func NewString(s string) *Value { return &Value{Kind: KindString, Text: s} }

// NewArray returns a JSON array holding items.
func NewArray(items ...*Value) *Value { return &Value{Kind: KindArray, Items: items} }

// NewObject returns a JSON object holding members in the given order.
func NewObject(members ...Member) *Value { return &Value{Kind: KindObject, Members: members} }

// Get returns the value of the named member of an object.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.Kind != KindObject {
		return nil, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Parse parses a single JSON document, rejecting nesting deeper than
// DefaultMaxDepth.
func Parse(data []byte) (*Value, error) {
	return DecodeDepth(bytes.NewReader(data), DefaultMaxDepth)
}

// Decode reads a single JSON document from r.
func Decode(r io.Reader) (*Value, error) {
	return DecodeDepth(r, DefaultMaxDepth)
}

// DecodeDepth reads a single JSON document from r, rejecting nesting deeper
// than maxDepth with ErrDepthLimitExceeded.
//
// Duplicate object member names are accepted: the member keeps the position of
// its first occurrence and the value of its last one.
func DecodeDepth(r io.Reader, maxDepth int) (*Value, error) {
	dec := jsontext.NewDecoder(r, jsontext.AllowDuplicateNames(true))

	v, err := readValue(dec, 1, maxDepth)
	if err != nil {
		return nil, err
	}

	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("unexpected data after top-level value")
		}
		return nil, fmt.Errorf("failed to read after top-level value: %w", err)
	}
	return v, nil
}

// readValue decodes the next value from dec. depth is the nesting level the
// value would occupy if it is a container.
func readValue(dec *jsontext.Decoder, depth, maxDepth int) (*Value, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON token: %w", err)
	}

	switch tok.Kind() {
	case 'n':
		return NewNull(), nil
	case 't', 'f':
		return NewBool(tok.Bool()), nil
	case '"':
		return NewString(tok.String()), nil
	case '0':
		return NewNumber(tok.String()), nil

	case '[':
		if depth > maxDepth {
			return nil, fmt.Errorf("%w: array nested deeper than %d levels", ErrDepthLimitExceeded, maxDepth)
		}
		arr := &Value{Kind: KindArray}
		for dec.PeekKind() != ']' {
			item, err := readValue(dec, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, item)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, fmt.Errorf("failed to read array end: %w", err)
		}
		return arr, nil

	case '{':
		if depth > maxDepth {
			return nil, fmt.Errorf("%w: object nested deeper than %d levels", ErrDepthLimitExceeded, maxDepth)
		}
		obj := &Value{Kind: KindObject}
		// Positions of already seen names, only consulted for duplicates.
		var index map[string]int
		for dec.PeekKind() != '}' {
			nameTok, err := dec.ReadToken()
			if err != nil {
				return nil, fmt.Errorf("failed to read object member name: %w", err)
			}
			key := nameTok.String()

			val, err := readValue(dec, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}

			if index == nil {
				index = make(map[string]int)
			}
			if pos, dup := index[key]; dup {
				obj.Members[pos].Value = val
				continue
			}
			index[key] = len(obj.Members)
			obj.Members = append(obj.Members, Member{Key: key, Value: val})
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, fmt.Errorf("failed to read object end: %w", err)
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("unexpected JSON token %q", tok.Kind())
	}
}

// FromAny converts a generic Go value, such as the result of unmarshaling into
// an any, to a Value. Map keys are sorted so that the result is deterministic.
// Reference cycles are cut by DefaultMaxDepth.
func FromAny(x any) (*Value, error) {
	return fromAny(x, 1)
}

func fromAny(x any, depth int) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return NewNull(), nil
	case *Value:
		return t, nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case float64:
		return floatValue(t)
	case float32:
		return floatValue(float64(t))
	case int:
		return NewNumber(strconv.FormatInt(int64(t), 10)), nil
	case int8:
		return NewNumber(strconv.FormatInt(int64(t), 10)), nil
	case int16:
		return NewNumber(strconv.FormatInt(int64(t), 10)), nil
	case int32:
		return NewNumber(strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return NewNumber(strconv.FormatInt(t, 10)), nil
	case uint:
		return NewNumber(strconv.FormatUint(uint64(t), 10)), nil
	case uint8:
		return NewNumber(strconv.FormatUint(uint64(t), 10)), nil
	case uint16:
		return NewNumber(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return NewNumber(strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return NewNumber(strconv.FormatUint(t, 10)), nil

	case []any:
		if depth > DefaultMaxDepth {
			return nil, fmt.Errorf("%w: array nested deeper than %d levels", ErrDepthLimitExceeded, DefaultMaxDepth)
		}
		arr := &Value{Kind: KindArray, Items: make([]*Value, 0, len(t))}
		for i, item := range t {
			v, err := fromAny(item, depth+1)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil

	case map[string]any:
		if depth > DefaultMaxDepth {
			return nil, fmt.Errorf("%w: object nested deeper than %d levels", ErrDepthLimitExceeded, DefaultMaxDepth)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := &Value{Kind: KindObject, Members: make([]Member, 0, len(t))}
		for _, k := range keys {
			v, err := fromAny(t[k], depth+1)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", k, err)
			}
			obj.Members = append(obj.Members, Member{Key: k, Value: v})
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, reflect.TypeOf(x))
	}
}

func floatValue(f float64) (*Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number %v", ErrUnsupportedValue, f)
	}
	return NewNumber(strconv.FormatFloat(f, 'g', -1, 64)), nil
}
