package ttl

import "errors"

var (
	// ErrInvalidInputKind is returned when the top-level value is not a JSON object.
	ErrInvalidInputKind = errors.New("input is not a JSON object")

	// ErrUnsupportedBaseURI is returned by strict serializers for a base URI
	// that cannot be written as a Turtle IRI reference.
	ErrUnsupportedBaseURI = errors.New("unsupported base URI")

	// ErrInvalidNamespace is returned by strict serializers for a namespace
	// that is not a usable Turtle prefix.
	ErrInvalidNamespace = errors.New("invalid namespace prefix")

	// ErrDepthLimitExceeded is returned for input nested deeper than the
	// configured maximum depth.
	ErrDepthLimitExceeded = errors.New("depth limit exceeded")

	// ErrSubjectCollision is returned when two different key paths synthesize
	// the same subject name.
	ErrSubjectCollision = errors.New("synthesized subject name collision")

	// ErrUnsupportedValue is returned by FromAny for Go values with no JSON
	// counterpart.
	ErrUnsupportedValue = errors.New("unsupported value")
)
