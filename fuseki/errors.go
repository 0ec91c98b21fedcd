package fuseki

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDataset is returned when a dataset name contains anything
	// other than letters, digits, '_' and '-'.
	ErrInvalidDataset = errors.New("invalid dataset name")
	// ErrUnavailable is returned when the server does not answer the ping.
	ErrUnavailable = errors.New("fuseki server is not running")
	// ErrTimeout is returned when the server did not respond in time.
	ErrTimeout = errors.New("fuseki server did not respond in time")
)

// StatusError is a load response outside 200, 201 and 204.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fuseki error (%d): %s", e.Code, e.Body)
}
