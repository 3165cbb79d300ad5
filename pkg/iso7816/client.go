package iso7816

import (
	"fmt"
)

// EXCHANGE HANDLING:
// Under T=0 the card cannot answer a command that carries data in the same exchange,
// and it may reject a wrong Le. The Client hides both:
//
//	'61XX' / '9FXX'  send GET RESPONSE with Le = XX on the same channel
//	'6CXX'           send the same command again with Le = XX
//
// Every command sent ends up in the returned Trace. Transmission failures are never
// retried.

// maxProtocolSteps bounds the GET RESPONSE / re-issue chain of a single Send.
const maxProtocolSteps = 16

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits cmd and follows up on '61XX', '9FXX' and '6CXX'.
// A failing Transmit is returned as a *TransportError together with the partial trace.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	return c.send(cmd, 0)
}

func (c *Client) send(cmd *CommandAPDU, depth int) (Trace, error) {
	if depth >= maxProtocolSteps {
		return nil, fmt.Errorf("card kept requesting follow-up commands after %d steps", depth)
	}

	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return nil, &TransportError{Op: "transmit", Err: err}
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, err
	}

	trace := Trace{{Command: cmd, Response: resp}}

	var next *CommandAPDU
	if n, ok := resp.Status.Available(); ok {
		// GET RESPONSE stays on the channel of the command, outside any chain.
		cla := cmd.Class
		cla.IsChained = false
		ins, _ := NewInstruction(INS_GET_RESPONSE)
		next = NewCommandAPDU(cla, ins, 0x00, 0x00, nil, n)
	} else if n, ok := resp.Status.ExpectedLength(); ok {
		retry := *cmd
		retry.Ne = n
		next = &retry
	}
	if next == nil {
		return trace, nil
	}

	rest, err := c.send(next, depth+1)
	return append(trace, rest...), err
}

// shortLength converts a one-byte length announced by the card to a byte count.
func shortLength(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}
