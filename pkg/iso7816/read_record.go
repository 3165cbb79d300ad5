package iso7816

import (
	"fmt"
)

// RECORD COMMANDS (ISO 7816-4, TS 102.221 §11.1.5 and §11.1.6):
// READ RECORD (INS 'B2') and UPDATE RECORD (INS 'DC') address one record of a linear
// fixed or cyclic EF.
//
//	P1  record number, or 00 for the current record
//	P2  b8-b4  SFI, 0 for the current EF
//	    b3-b1  mode: 010 next, 011 previous, 100 absolute or current
//
// A UICC only implements the record-number modes. The record-identifier modes
// (b3 = 0) are decoded for reports but never built.

// ReadRecordMode is the addressing mode carried in bits 3-1 of P2.
type ReadRecordMode byte

const (
	RecordIDFirst    ReadRecordMode = 0b000
	RecordIDLast     ReadRecordMode = 0b001
	RecordNext       ReadRecordMode = 0b010
	RecordPrevious   ReadRecordMode = 0b011
	RecordAbsolute   ReadRecordMode = 0b100
	RecordAllFromP1  ReadRecordMode = 0b101
	RecordAllFromEnd ReadRecordMode = 0b110
)

func (m ReadRecordMode) String() string {
	switch m {
	case RecordIDFirst:
		return "Record ID, first occurrence"
	case RecordIDLast:
		return "Record ID, last occurrence"
	case RecordNext:
		return "Next record"
	case RecordPrevious:
		return "Previous record"
	case RecordAbsolute:
		return "Absolute/current (P1)"
	case RecordAllFromP1:
		return "All from P1"
	case RecordAllFromEnd:
		return "All from last to P1"
	default:
		return fmt.Sprintf("RFU mode (0x%X)", byte(m))
	}
}

// recordP2 packs an SFI and a mode.
func recordP2(sfi byte, mode ReadRecordMode) byte {
	return sfi<<3 | byte(mode)
}

// NewReadRecordCommand builds a READ RECORD expecting ne bytes, 256 when ne is 0.
// In next and previous mode P1 must be 00.
func NewReadRecordCommand(cla Class, sfi byte, rec byte, mode ReadRecordMode, ne int) (*CommandAPDU, error) {
	if sfi > MaxSFI {
		return nil, fmt.Errorf("SFI %d out of range (0-%d)", sfi, MaxSFI)
	}
	if (mode == RecordNext || mode == RecordPrevious) && rec != 0 {
		return nil, fmt.Errorf("%s takes P1 00, got %02X", mode, rec)
	}
	if ne <= 0 {
		ne = MaxShortLe
	}
	if ne > MaxShortLe {
		return nil, fmt.Errorf("record length %d: %w", ne, ErrMalformedLength)
	}

	ins, _ := NewInstruction(INS_READ_RECORD)
	return NewCommandAPDU(cla, ins, rec, recordP2(sfi, mode), nil, ne), nil
}

// ReadRecord reads record rec of the current EF (sfi 0) or of the EF referenced by sfi.
func ReadRecord(cla Class, sfi byte, rec byte) *CommandAPDU {
	ins, _ := NewInstruction(INS_READ_RECORD)
	return NewCommandAPDU(cla, ins, rec, recordP2(sfi, RecordAbsolute), nil, MaxShortLe)
}

// UpdateRecord overwrites record rec of the current EF (sfi 0) or of the EF referenced by
// sfi, in absolute mode.
func UpdateRecord(cla Class, sfi byte, rec byte, data []byte) (*CommandAPDU, error) {
	if rec == 0 {
		return nil, fmt.Errorf("record number 0 is not addressable in absolute mode")
	}
	if len(data) == 0 || len(data) > MaxShortLc {
		return nil, fmt.Errorf("record length %d: %w", len(data), ErrMalformedLength)
	}

	ins, _ := NewInstruction(INS_UPDATE_RECORD)
	return NewCommandAPDU(cla, ins, rec, recordP2(sfi, RecordAbsolute), data, 0), nil
}
