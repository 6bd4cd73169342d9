package download

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrIdleTimeout is returned when a request stops receiving data for longer
// than the configured timeout
var ErrIdleTimeout = errors.New("no data received within timeout")

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s for url: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// RecordError wraps any failure of a single record. The loop recovers from it
// and moves on to the next record.
type RecordError struct {
	Key string
	Err error
}

func (e *RecordError) Error() string {
	if e.Key == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
