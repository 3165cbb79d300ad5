package iso7816

import (
	"fmt"
)

// MANAGE CHANNEL COMMAND LOGIC (ISO 7816-4):
// The MANAGE CHANNEL command (INS '70') opens and closes logical channels.
// It is always sent on an already open channel (usually the basic channel 0).
//
// P1: '00' opens a channel, '80' closes the channel given in P2.
// P2: '00' lets the card assign the number (returned as one data byte),
//     otherwise the channel to open or close.

const (
	manageChannelOpen  = 0x00
	manageChannelClose = 0x80
)

// MaxLogicalChannel is the highest channel number the CLA byte can address.
const MaxLogicalChannel = 19

// OpenChannel asks the card to assign a new logical channel (Case 2, Le = 1).
func OpenChannel(cla Class) *CommandAPDU {
	ins, _ := NewInstruction(INS_MANAGE_CHANNEL)
	return NewCommandAPDU(cla, ins, manageChannelOpen, 0x00, nil, 1)
}

// CloseChannel releases logical channel ch (Case 1).
func CloseChannel(cla Class, ch uint8) (*CommandAPDU, error) {
	if ch == 0 || ch > MaxLogicalChannel {
		return nil, fmt.Errorf("channel %d cannot be closed", ch)
	}

	ins, _ := NewInstruction(INS_MANAGE_CHANNEL)
	return NewCommandAPDU(cla, ins, manageChannelClose, ch, nil, 0), nil
}

// ParseOpenChannel extracts the channel number assigned by the card.
func ParseOpenChannel(resp *ResponseAPDU) (uint8, error) {
	if len(resp.Data) != 1 {
		return 0, fmt.Errorf("MANAGE CHANNEL answered %d bytes, want 1", len(resp.Data))
	}
	ch := resp.Data[0]
	if ch == 0 || ch > MaxLogicalChannel {
		return 0, fmt.Errorf("card assigned invalid channel %d", ch)
	}
	return ch, nil
}
