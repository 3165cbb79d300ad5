package sim

import (
	"errors"
	"sync"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

// ErrMockClosed is returned by a MockConn used after Close.
var ErrMockClosed = errors.New("mock connection closed")

// MockConn is a scripted card connection for tests. ResponseFunc answers each command;
// without it, Responses are served in order and Fallback afterwards.
type MockConn struct {
	ResponseFunc func(cmd []byte) ([]byte, error)
	Responses    [][]byte
	Fallback     []byte

	mu     sync.Mutex
	sent   []string
	closed bool
}

// NewMockConn returns a connection answering with the given raw responses in order.
func NewMockConn(responses ...[]byte) *MockConn {
	return &MockConn{Responses: responses, Fallback: []byte{0x6F, 0x00}}
}

// NewMockConnWithFunc returns a connection answering through fn.
func NewMockConnWithFunc(fn func(cmd []byte) ([]byte, error)) *MockConn {
	return &MockConn{ResponseFunc: fn}
}

// Transmit records cmd and returns the scripted answer.
func (m *MockConn) Transmit(cmd []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrMockClosed
	}
	m.sent = append(m.sent, tlv.Spaced(cmd))

	if m.ResponseFunc != nil {
		return m.ResponseFunc(cmd)
	}
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return append([]byte(nil), resp...), nil
	}
	return append([]byte(nil), m.Fallback...), nil
}

// Sent returns the commands transmitted so far, in tlv.Spaced form.
func (m *MockConn) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// Close marks the connection closed.
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MockDriver exposes a fixed list of readers, all connected to Conn.
type MockDriver struct {
	Readers    []string
	Conn       Conn
	ConnectErr error
	Released   bool
}

// ListReaders returns the configured reader names.
func (d *MockDriver) ListReaders() ([]string, error) {
	return d.Readers, nil
}

// Connect returns Conn, or ConnectErr when set.
func (d *MockDriver) Connect(string) (Conn, error) {
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	return d.Conn, nil
}

// Release records that the driver was released.
func (d *MockDriver) Release() error {
	d.Released = true
	return nil
}
