package iso7816

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLength reports Lc/Le values that cannot be framed (above 65535/65536,
	// negative, or inconsistent with the presence of data).
	ErrMalformedLength = errors.New("malformed APDU length")

	// ErrTruncatedResponse reports a response shorter than its two status bytes.
	ErrTruncatedResponse = errors.New("truncated response APDU")

	// ErrUnknownStatusWord reports a status word that no rule of the table matched.
	ErrUnknownStatusWord = errors.New("unknown status word")
)

// TransportError wraps a failure of the link to the reader (device removed, timeout, ...).
// It is distinct from a response whose status word denotes an error: the card never answered.
type TransportError struct {
	Op     string
	Reader string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Reader != "" {
		return fmt.Sprintf("transport %s on %q: %v", e.Op, e.Reader, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
