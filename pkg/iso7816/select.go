package iso7816

import (
	"fmt"
)

// SELECT (INS 'A4', ISO 7816-4 and TS 102.221 §11.1.1):
//
//	P1  selection method: file id, child DF, parent DF, DF name, path from MF or current DF
//	P2  b7     application session: 0 activation or reset, 1 termination (DF name only)
//	    b4-b3  answer: FCI, FCP, FMD or nothing
//	    b2-b1  occurrence: first, last, next, previous
//
// A UICC answers SELECT with the FCP (P2 '04') or with no data (P2 '0C'). When data is
// sent no Le is added: under T=0 the card replies '61XX' and the Client fetches the answer.

// SelectionMethod is the P1 of SELECT.
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

var selectionMethodNames = map[SelectionMethod]string{
	SelectByFileID:          "Select by File ID",
	SelectChildDF:           "Select Child DF",
	SelectEFUnderCurrentDF:  "Select EF under current DF",
	SelectParentDF:          "Select Parent DF",
	SelectByDFName:          "Select by DF Name (AID)",
	SelectPathFromMF:        "Select Path from MF",
	SelectPathFromCurrentDF: "Select Path from Current DF",
}

func (s SelectionMethod) String() string {
	if name, ok := selectionMethodNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
}

// FileOccurrence is carried in bits 2-1 of P2.
type FileOccurrence byte

const (
	FirstOrOnlyOccurrence FileOccurrence = 0b00
	LastOccurrence        FileOccurrence = 0b01
	NextOccurrence        FileOccurrence = 0b10
	PreviousOccurrence    FileOccurrence = 0b11
)

func (f FileOccurrence) String() string {
	return [...]string{"First/Only", "Last", "Next", "Previous"}[f&0b11]
}

// SelectionControl is carried in bits 4-3 of P2.
type SelectionControl byte

const (
	ReturnFCI    SelectionControl = 0b0000
	ReturnFCP    SelectionControl = 0b0100
	ReturnFMD    SelectionControl = 0b1000
	ReturnNoData SelectionControl = 0b1100
)

func (s SelectionControl) String() string {
	return [...]string{"Return FCI", "Return FCP", "Return FMD", "No Response Data"}[s>>2&0b11]
}

// terminateSession is bit 7 of P2.
const terminateSession = 0x40

// SelectP2 is the decoded P2 of SELECT.
type SelectP2 struct {
	Occurrence FileOccurrence
	Control    SelectionControl
	Terminate  bool
}

// ParseSelectP2 splits a SELECT P2 into its fields.
func ParseSelectP2(p2 byte) SelectP2 {
	return SelectP2{
		Occurrence: FileOccurrence(p2 & 0x03),
		Control:    SelectionControl(p2 & 0x0C),
		Terminate:  p2&terminateSession != 0,
	}
}

// Byte packs p back into a P2.
func (p SelectP2) Byte() byte {
	b := byte(p.Control) | byte(p.Occurrence)
	if p.Terminate {
		b |= terminateSession
	}
	return b
}

func (p SelectP2) String() string {
	s := fmt.Sprintf("%s | %s", p.Occurrence, p.Control)
	if p.Terminate {
		s += " | Terminate session"
	}
	return s
}

// NewSelectCommand builds a SELECT. Le is only requested when no data is sent and an
// answer is expected.
func NewSelectCommand(cla Class, method SelectionMethod, p2 SelectP2, data []byte) *CommandAPDU {
	ins, _ := NewInstruction(INS_SELECT)

	ne := 0
	if len(data) == 0 && p2.Control != ReturnNoData {
		ne = MaxShortLe
	}
	return NewCommandAPDU(cla, ins, byte(method), p2.Byte(), data, ne)
}

// SelectFID selects a file by identifier and asks for its FCP.
func SelectFID(cla Class, fid uint16) *CommandAPDU {
	return NewSelectCommand(cla, SelectByFileID, SelectP2{Control: ReturnFCP}, []byte{byte(fid >> 8), byte(fid)})
}

// SelectApplication activates the ADF named aid and asks for its FCP. A partial AID
// selects the first application starting with it.
func SelectApplication(cla Class, aid []byte) *CommandAPDU {
	return NewSelectCommand(cla, SelectByDFName, SelectP2{Control: ReturnFCP}, aid)
}

// TerminateApplication ends the session of the application named aid.
func TerminateApplication(cla Class, aid []byte) *CommandAPDU {
	return NewSelectCommand(cla, SelectByDFName, SelectP2{Control: ReturnNoData, Terminate: true}, aid)
}

// SelectByPath selects by path and asks for the FCP. The path starts below the MF
// ('3F00' omitted) or below the current DF.
func SelectByPath(cla Class, fromMF bool, path []uint16) (*CommandAPDU, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty selection path")
	}

	method := SelectPathFromCurrentDF
	if fromMF {
		method = SelectPathFromMF
	}

	data := make([]byte, 0, 2*len(path))
	for _, fid := range path {
		data = append(data, byte(fid>>8), byte(fid))
	}
	return NewSelectCommand(cla, method, SelectP2{Control: ReturnFCP}, data), nil
}

// StatusCommand builds the TS 102.221 STATUS command returning the FCP of the current DF.
// It reports the selection state without changing it.
func StatusCommand(cla Class) *CommandAPDU {
	ins, _ := NewInstruction(INS_STATUS)
	return NewCommandAPDU(cla, ins, 0x00, 0x00, nil, MaxShortLe)
}
