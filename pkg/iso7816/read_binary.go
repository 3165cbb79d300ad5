package iso7816

import (
	"fmt"
)

// READ BINARY / UPDATE BINARY COMMAND LOGIC (ISO 7816-4):
// Both commands address a transparent EF, the current one or one given by its SFI.
//
// P1-P2 (Offset):
// - If bit 8 of P1 is 0, P1-P2 is a 15-bit offset into the current EF (max '7FFF').
// - If bit 8 of P1 is 1, bits 5-1 of P1 are an SFI and P2 is an 8-bit offset.
//
// READ BINARY is a Case 2 command, UPDATE BINARY a Case 3 command.

// MaxBinaryOffset is the highest offset reachable in the current EF.
const MaxBinaryOffset = 0x7FFF

// MaxSFI is the highest Short File Identifier (5 bits).
const MaxSFI = 30

// ReadBinary reads ne bytes of the current EF starting at offset.
func ReadBinary(cla Class, offset uint16, ne int) (*CommandAPDU, error) {
	if offset > MaxBinaryOffset {
		return nil, fmt.Errorf("offset 0x%04X exceeds 0x%04X", offset, MaxBinaryOffset)
	}
	if ne <= 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("read length %d: %w", ne, ErrMalformedLength)
	}

	ins, _ := NewInstruction(INS_READ_BINARY)
	return NewCommandAPDU(cla, ins, byte(offset>>8), byte(offset), nil, ne), nil
}

// UpdateBinary overwrites the current EF with data starting at offset.
func UpdateBinary(cla Class, offset uint16, data []byte) (*CommandAPDU, error) {
	if offset > MaxBinaryOffset {
		return nil, fmt.Errorf("offset 0x%04X exceeds 0x%04X", offset, MaxBinaryOffset)
	}
	if len(data) == 0 || len(data) > MaxExtendedLc {
		return nil, fmt.Errorf("update length %d: %w", len(data), ErrMalformedLength)
	}

	ins, _ := NewInstruction(INS_UPDATE_BINARY)
	return NewCommandAPDU(cla, ins, byte(offset>>8), byte(offset), data, 0), nil
}
