package pcsc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebfe/scard"
	"github.com/gregLibert/sim-card/pkg/sim"
)

// pollInterval bounds each GetStatusChange call so that cancellation is noticed.
const pollInterval = 500 * time.Millisecond

// SCardDriver talks to readers through the platform PC/SC library.
type SCardDriver struct {
	ctx *scard.Context
}

var (
	_ sim.Driver = (*SCardDriver)(nil)
	_ Waiter     = (*SCardDriver)(nil)
)

// NewSCard establishes a PC/SC context.
func NewSCard() (*SCardDriver, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establishing context: %w", err)
	}
	return &SCardDriver{ctx: ctx}, nil
}

func (d *SCardDriver) ListReaders() ([]string, error) {
	return d.ctx.ListReaders()
}

// Connect opens the card in shared mode. Forcing T=0 or T=1 avoids "Parameter Incorrect"
// errors raised by some readers for other protocol masks.
func (d *SCardDriver) Connect(reader string) (sim.Conn, error) {
	card, err := d.ctx.Connect(reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		return nil, err
	}
	return &scardConn{card: card}, nil
}

func (d *SCardDriver) Release() error {
	return d.ctx.Release()
}

// WaitForCard blocks until a card is present in reader or ctx is done.
func (d *SCardDriver) WaitForCard(ctx context.Context, reader string) error {
	rs := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.ctx.GetStatusChange(rs, pollInterval)
		if errors.Is(err, scard.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("watching %s: %w", reader, err)
		}

		st := rs[0].EventState
		rs[0].CurrentState = st
		if st&scard.StatePresent != 0 {
			return nil
		}
	}
}

type scardConn struct {
	card *scard.Card
}

func (c *scardConn) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

func (c *scardConn) Close() error {
	return c.card.Disconnect(scard.LeaveCard)
}
