// Package pcsc connects the sim session layer to PC/SC readers. Two backends are offered:
// the system winscard library through cgo (scard), and a pure Go client talking to the
// pcscd socket (pcsclite).
package pcsc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregLibert/sim-card/pkg/sim"
)

// Backend names accepted by Open.
const (
	BackendSCard    = "scard"
	BackendPCSCLite = "pcsclite"
)

// ErrUnknownBackend is returned by Open for a name it does not know.
var ErrUnknownBackend = errors.New("unknown PC/SC backend")

// Backends lists the backend names accepted by Open, default first.
func Backends() []string {
	return []string{BackendSCard, BackendPCSCLite}
}

// Waiter is implemented by drivers able to block until a card is inserted.
type Waiter interface {
	WaitForCard(ctx context.Context, reader string) error
}

// Open establishes a context with the named backend.
func Open(backend string) (sim.Driver, error) {
	switch backend {
	case BackendSCard, "":
		d, err := NewSCard()
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendPCSCLite:
		d, err := NewPCSCLite()
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%q (want one of %v): %w", backend, Backends(), ErrUnknownBackend)
	}
}
