package pcsc

import (
	"fmt"

	pcsc "github.com/gballet/go-libpcsclite"
	"github.com/gregLibert/sim-card/pkg/sim"
)

// PCSCLiteDriver talks to pcscd over its UNIX socket, without cgo.
type PCSCLiteDriver struct {
	client *pcsc.Client
}

var _ sim.Driver = (*PCSCLiteDriver)(nil)

// NewPCSCLite connects to the system pcscd.
func NewPCSCLite() (*PCSCLiteDriver, error) {
	client, err := pcsc.EstablishContext(pcsc.PCSCDSockName, pcsc.ScopeSystem)
	if err != nil {
		return nil, fmt.Errorf("establishing context: %w", err)
	}
	return &PCSCLiteDriver{client: client}, nil
}

func (d *PCSCLiteDriver) ListReaders() ([]string, error) {
	return d.client.ListReaders()
}

func (d *PCSCLiteDriver) Connect(reader string) (sim.Conn, error) {
	card, err := d.client.Connect(reader, pcsc.ShareShared, pcsc.ProtocolT0|pcsc.ProtocolT1)
	if err != nil {
		return nil, err
	}
	return &pcscliteConn{card: card}, nil
}

func (d *PCSCLiteDriver) Release() error {
	return d.client.ReleaseContext()
}

type pcscliteConn struct {
	card *pcsc.Card
}

func (c *pcscliteConn) Transmit(cmd []byte) ([]byte, error) {
	resp, _, err := c.card.Transmit(cmd)
	return resp, err
}

func (c *pcscliteConn) Close() error {
	return c.card.Disconnect(pcsc.LeaveCard)
}
