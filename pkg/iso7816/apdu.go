package iso7816

import (
	"bytes"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures and encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
// A command consists of a mandatory Header (4 bytes) and an optional Body.
//
// 1. Header:
//   - CLA (Class): Security, Chaining, Logical Channel.
//   - INS (Instruction): The specific command to execute.
//   - P1, P2 (Parameters): Command modifiers.
//
// 2. Body:
//   - Lc (Length Command): Number of bytes in the data field.
//   - Data: The command payload.
//   - Le (Length Expected): Maximum number of bytes expected in the response.
//
// ENCODING CASES (ISO 7816-3 12.1.3):
// - Case 1:  No Data, No Response (Header only, P3 = 00 on T=0).
// - Case 2:  No Data, Response Expected (Header + Le).
// - Case 3:  Data Present, No Response (Header + Lc + Data).
// - Case 4:  Data Present, Response Expected (Header + Lc + Data + Le).
// - Cases 2E, 3E and 4E are the extended variants of 2, 3 and 4.
//
// LENGTH MODES:
//   - Short Length: Lc/Le encoded on 1 byte (Max 255/256, Le '00' means 256).
//   - Extended Length: Lc = '00' XX XX, Le = '00' XX XX in Case 2E and XX XX after
//     the data in Case 4E (Max 65535/65536, Le '0000' means 65536).
//     Extended mode is triggered if Lc > 255, Le > 256, or when the command forces it.
//     A command never mixes a short Lc with an extended Le.
//
// P3:
// The fifth header byte of a T=0 command. It carries Lc in cases 3/4, Le in case 2 and 00 otherwise.
//
// RESPONSE APDU (R-APDU):
// A response sent by the card consists of an optional Body and a mandatory Trailer.
//
// 1. Body (Data Field):
//   - Variable length sequence of bytes containing the response data.
//
// 2. Trailer (Status Word):
//   - SW1 (1 byte): Command processing status (High byte).
//   - SW2 (1 byte): Command processing qualification (Low byte).
//   - Example: 0x9000 indicates success.
//
// TRANSACTION:
// A logical exchange consisting of sending one Command APDU and receiving one Response APDU.

// APDU Limits and Constants according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode (1 byte).
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne) encodable in Short Length mode.
	// In Short mode, 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the theoretical limit for Lc in Extended mode (16-bit unsigned).
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in Extended Length mode.
	// In Extended mode, 0x0000 encodes 65536.
	MaxExtendedLe = 65536

	// MaxAPDUBufferSize defines a safe buffer limit for Extended APDUs.
	// Calculation: Header(4) + ExtLc(3) + MaxData(65535) + ExtLe(2) + Safety Margin(1).
	MaxAPDUBufferSize = 4 + 3 + MaxExtendedLc + 2 + 1
)

// Case identifies one of the ISO 7816-3 command shapes.
type Case int

const (
	Case1 Case = iota + 1
	Case2
	Case2Extended
	Case3
	Case3Extended
	Case4
	Case4Extended
)

// IsExtended reports whether the case uses extended length fields.
func (c Case) IsExtended() bool {
	return c == Case2Extended || c == Case3Extended || c == Case4Extended
}

// HasData reports whether the case carries Lc and a data field.
func (c Case) HasData() bool {
	return c == Case3 || c == Case3Extended || c == Case4 || c == Case4Extended
}

// HasResponse reports whether the case carries an Le field.
func (c Case) HasResponse() bool {
	return c == Case2 || c == Case2Extended || c == Case4 || c == Case4Extended
}

func (c Case) extended() Case {
	switch c {
	case Case2:
		return Case2Extended
	case Case3:
		return Case3Extended
	case Case4:
		return Case4Extended
	}
	return c
}

func (c Case) String() string {
	switch c {
	case Case1:
		return "Case 1"
	case Case2:
		return "Case 2"
	case Case2Extended:
		return "Case 2E"
	case Case3:
		return "Case 3"
	case Case3Extended:
		return "Case 3E"
	case Case4:
		return "Case 4"
	case Case4Extended:
		return "Case 4E"
	default:
		return fmt.Sprintf("Case(%d)", int(c))
	}
}

// ClassifyCase determines the case of a command from its length fields.
// responseLen is the value carried by Le, where 0 requests the maximum.
// The result is extended when either length exceeds the single byte range.
func ClassifyCase(hasData bool, dataLen int, hasResponse bool, responseLen int) (Case, error) {
	switch {
	case dataLen < 0 || responseLen < 0:
		return 0, fmt.Errorf("negative length (Lc %d, Le %d): %w", dataLen, responseLen, ErrMalformedLength)
	case dataLen > MaxExtendedLc:
		return 0, fmt.Errorf("Lc %d exceeds %d: %w", dataLen, MaxExtendedLc, ErrMalformedLength)
	case responseLen > MaxExtendedLc:
		return 0, fmt.Errorf("Le %d exceeds %d: %w", responseLen, MaxExtendedLc, ErrMalformedLength)
	case hasData && dataLen == 0:
		return 0, fmt.Errorf("data announced with zero length: %w", ErrMalformedLength)
	case !hasData && dataLen != 0:
		return 0, fmt.Errorf("Lc %d without data: %w", dataLen, ErrMalformedLength)
	case !hasResponse && responseLen != 0:
		return 0, fmt.Errorf("Le %d without expected response: %w", responseLen, ErrMalformedLength)
	}

	extended := dataLen > MaxShortLc || responseLen > MaxShortLc

	var c Case
	switch {
	case !hasData && !hasResponse:
		return Case1, nil
	case !hasData:
		c = Case2
	case !hasResponse:
		c = Case3
	default:
		c = Case4
	}

	if extended {
		c = c.extended()
	}
	return c, nil
}

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int  // Expected response length (0 means none)
	Extended    bool // Forces extended length fields
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Case returns the encoding case selected for the command.
func (c *CommandAPDU) Case() (Case, error) {
	if c.Ne < 0 || c.Ne > MaxExtendedLe {
		return 0, fmt.Errorf("Ne %d out of range: %w", c.Ne, ErrMalformedLength)
	}

	// Le carries 0 for the maximum of each mode; 65536 is only reachable in extended mode.
	le, forced := c.Ne, c.Extended
	switch c.Ne {
	case MaxShortLe:
		le = 0
	case MaxExtendedLe:
		le, forced = 0, true
	}

	cs, err := ClassifyCase(len(c.Data) > 0, len(c.Data), c.Ne > 0, le)
	if err != nil {
		return 0, err
	}

	if forced {
		cs = cs.extended()
	}
	return cs, nil
}

// P3 returns the fifth header byte used by T=0: Lc, Le or 00.
// Extended commands start their length field with 00, so P3 is 00 for them too.
func (c *CommandAPDU) P3() (byte, error) {
	cs, err := c.Case()
	if err != nil {
		return 0, err
	}

	switch cs {
	case Case2:
		return byte(c.Ne), nil
	case Case3, Case4:
		return byte(len(c.Data)), nil
	default:
		return 0x00, nil
	}
}

// Header returns CLA INS P1 P2 P3.
func (c *CommandAPDU) Header() ([]byte, error) {
	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	p3, err := c.P3()
	if err != nil {
		return nil, err
	}

	return []byte{class, byte(c.Instruction.Raw), c.P1, c.P2, p3}, nil
}

// Bytes encodes the CommandAPDU into its byte representation (C-APDU).
// It selects between Short and Extended encoding from the case of the command.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	cs, err := c.Case()
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)

	// 1. Encode Header
	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}
	buf.WriteByte(class)
	buf.WriteByte(byte(c.Instruction.Raw))
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	nc := len(c.Data)

	// 2. Encode Lc Field & Data Field
	if cs.HasData() {
		if !cs.IsExtended() {
			// Case 3/4 Short: Lc (1 byte) + Data
			buf.WriteByte(byte(nc))
		} else {
			// Case 3/4 Extended: 00 + Lc (2 bytes) + Data
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	// 3. Encode Le Field
	if cs.HasResponse() {
		switch cs {
		case Case2, Case4:
			// 0x00 represents 256
			buf.WriteByte(byte(c.Ne))
		case Case2Extended:
			// Lc is absent, a leading 00 distinguishes Le from Lc.
			buf.WriteByte(0x00)
			fallthrough
		case Case4Extended:
			// 0x0000 represents 65536
			buf.WriteByte(byte(c.Ne >> 8))
			buf.WriteByte(byte(c.Ne))
		}
	}

	return buf.Bytes(), nil
}

// ParseCommandAPDU decodes a raw command, short or extended. It is the inverse of Bytes.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("command of %d bytes: %w", len(raw), ErrMalformedLength)
	}

	cla, err := NewClass(raw[0])
	if err != nil {
		return nil, err
	}
	ins, err := NewInstruction(InsCode(raw[1]))
	if err != nil {
		return nil, err
	}
	cmd := NewCommandAPDU(cla, ins, raw[2], raw[3], nil, 0)

	body := raw[4:]
	switch {
	case len(body) == 0:
		return cmd, nil

	case len(body) == 1:
		cmd.Ne = expectedLength(body, MaxShortLe)
		return cmd, nil

	case body[0] != 0x00:
		nc := int(body[0])
		switch len(body) {
		case 1 + nc:
		case 2 + nc:
			cmd.Ne = expectedLength(body[1+nc:], MaxShortLe)
		default:
			return nil, fmt.Errorf("Lc %d does not match a body of %d bytes: %w", nc, len(body), ErrMalformedLength)
		}
		cmd.Data = body[1 : 1+nc]
		return cmd, nil
	}

	if len(body) < 3 {
		return nil, fmt.Errorf("extended length field of %d bytes: %w", len(body), ErrMalformedLength)
	}
	cmd.Extended = true
	if len(body) == 3 {
		cmd.Ne = expectedLength(body[1:], MaxExtendedLe)
		return cmd, nil
	}

	nc := int(body[1])<<8 | int(body[2])
	switch {
	case nc == 0:
		return nil, fmt.Errorf("extended Lc of 0: %w", ErrMalformedLength)
	case len(body) == 3+nc:
	case len(body) == 5+nc:
		cmd.Ne = expectedLength(body[3+nc:], MaxExtendedLe)
	default:
		return nil, fmt.Errorf("extended Lc %d does not match a body of %d bytes: %w", nc, len(body), ErrMalformedLength)
	}
	cmd.Data = body[3 : 3+nc]
	return cmd, nil
}

// expectedLength reads a big-endian Le field where all zeroes stand for max.
func expectedLength(le []byte, max int) int {
	n := 0
	for _, b := range le {
		n = n<<8 | int(b)
	}
	if n == 0 {
		return max
	}
	return n
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// NewResponseAPDU builds a response from a body and a status word.
func NewResponseAPDU(data []byte, sw StatusWord) *ResponseAPDU {
	return &ResponseAPDU{Data: data, Status: sw}
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response length %d: %w", len(raw), ErrTruncatedResponse)
	}

	indexSW1 := len(raw) - 2
	data := raw[:indexSW1]
	sw1 := raw[indexSW1]
	sw2 := raw[indexSW1+1]

	return &ResponseAPDU{
		Data:   data,
		Status: NewStatusWord(sw1, sw2),
	}, nil
}

// Bytes encodes the response as sent by the card: body followed by SW1 SW2.
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
