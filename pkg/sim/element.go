package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/bits"
)

// DECODED ELEMENTS:
//
// A parse hook turns the raw content of a file (or record) into a list of Elements.
// Element is a closed sum type: one struct per kind of value, each carrying a Meta with
// the field name, the preferred representation and the encoded length in bytes.
// Group is the only recursive case.
//
// Encoded lengths:
//   - Bool, U8: 1 byte. U16: 2 bytes. U32: 4 bytes (big-endian).
//   - String, BCD: Length bytes, padded with 'FF'. Length 0 means "as long as the value".
//   - Bytes: exactly the value (Length, when set, must match it).
//   - None: Length bytes of 'FF' filler (RFU areas).

// ErrInvalidElement reports an element whose value does not fit its declared length.
var ErrInvalidElement = errors.New("invalid decoded element")

// Representation is the preferred display base of a numeric value.
type Representation int

const (
	ReprNone Representation = iota
	ReprDecimal
	ReprHex
)

// Kind identifies the case of an Element.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindString
	KindBCD
	KindBytes
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindString:
		return "string"
	case KindBCD:
		return "bcd"
	case KindBytes:
		return "bytes"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Meta is shared by every element.
type Meta struct {
	Name   string
	Repr   Representation
	Length int
}

// Info returns the metadata of the element.
func (m Meta) Info() Meta { return m }

func (Meta) sealed() {}

// Element is one decoded field.
type Element interface {
	Info() Meta
	Kind() Kind
	sealed()
}

type (
	None struct{ Meta }

	Bool struct {
		Meta
		Value bool
	}

	U8 struct {
		Meta
		Value uint8
	}

	U16 struct {
		Meta
		Value uint16
	}

	U32 struct {
		Meta
		Value uint32
	}

	String struct {
		Meta
		Value string
	}

	// BCD holds packed decimal digits, most significant first.
	BCD struct {
		Meta
		Digits string
	}

	Bytes struct {
		Meta
		Value []byte
	}

	Group struct {
		Meta
		Elements []Element
	}
)

func (None) Kind() Kind   { return KindNone }
func (Bool) Kind() Kind   { return KindBool }
func (U8) Kind() Kind     { return KindU8 }
func (U16) Kind() Kind    { return KindU16 }
func (U32) Kind() Kind    { return KindU32 }
func (String) Kind() Kind { return KindString }
func (BCD) Kind() Kind    { return KindBCD }
func (Bytes) Kind() Kind  { return KindBytes }
func (Group) Kind() Kind  { return KindGroup }

// Validate checks the declared lengths of e and, for groups, of every descendant.
// Numeric elements accept Length 0 or their fixed width.
func Validate(e Element) error {
	m := e.Info()

	fixed := func(want int) error {
		if m.Length != 0 && m.Length != want {
			return fmt.Errorf("%s: %s of length %d, want %d: %w", m.Name, e.Kind(), m.Length, want, ErrInvalidElement)
		}
		return nil
	}

	switch v := e.(type) {
	case None:
		if m.Length < 0 {
			return fmt.Errorf("%s: negative length: %w", m.Name, ErrInvalidElement)
		}
	case Bool, U8:
		return fixed(1)
	case U16:
		return fixed(2)
	case U32:
		return fixed(4)
	case String:
		if m.Length != 0 && len(v.Value) > m.Length {
			return fmt.Errorf("%s: %d characters exceed %d bytes: %w", m.Name, len(v.Value), m.Length, ErrInvalidElement)
		}
	case BCD:
		if _, err := EncodeBCD(v.Digits, m.Length); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
	case Bytes:
		if m.Length != 0 && m.Length != len(v.Value) {
			return fmt.Errorf("%s: %d bytes declared, %d held: %w", m.Name, m.Length, len(v.Value), ErrInvalidElement)
		}
	case Group:
		for _, child := range v.Elements {
			if err := Validate(child); err != nil {
				return fmt.Errorf("%s: %w", m.Name, err)
			}
		}
	}
	return nil
}

// EncodeElements serialises elements in order, descending into groups.
func EncodeElements(elements []Element) ([]byte, error) {
	var out []byte
	for _, e := range elements {
		if err := Validate(e); err != nil {
			return nil, err
		}

		switch v := e.(type) {
		case None:
			out = append(out, filler(v.Length)...)
		case Bool:
			if v.Value {
				out = append(out, 0x01)
			} else {
				out = append(out, 0x00)
			}
		case U8:
			out = append(out, v.Value)
		case U16:
			out = binary.BigEndian.AppendUint16(out, v.Value)
		case U32:
			out = binary.BigEndian.AppendUint32(out, v.Value)
		case String:
			out = append(out, v.Value...)
			if v.Length > len(v.Value) {
				out = append(out, filler(v.Length-len(v.Value))...)
			}
		case BCD:
			b, _ := EncodeBCD(v.Digits, v.Length)
			out = append(out, b...)
		case Bytes:
			out = append(out, v.Value...)
		case Group:
			b, err := EncodeElements(v.Elements)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

func filler(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}

const hexDigits = "0123456789ABCDEF"

// DecodeBCD unpacks swapped-nibble BCD (low nibble first) as used by EF.ICCID and EF.IMSI.
// Decoding stops at the first 'F' nibble.
func DecodeBCD(b []byte) string {
	var sb strings.Builder
	for _, octet := range b {
		for _, n := range [2]byte{bits.LowNibble(octet), bits.HighNibble(octet)} {
			if n == 0x0F {
				return sb.String()
			}
			sb.WriteByte(hexDigits[n])
		}
	}
	return sb.String()
}

// EncodeBCD is the inverse of DecodeBCD. The result is padded with 'F' nibbles up to
// length bytes; length 0 uses the smallest size that holds the digits.
func EncodeBCD(digits string, length int) ([]byte, error) {
	need := (len(digits) + 1) / 2
	if length == 0 {
		length = need
	}
	if need > length {
		return nil, fmt.Errorf("%d digits do not fit %d bytes: %w", len(digits), length, ErrInvalidElement)
	}

	out := filler(length)
	for i := 0; i < len(digits); i++ {
		n := strings.IndexByte(hexDigits, digits[i])
		if n < 0 || n == 0x0F {
			return nil, fmt.Errorf("digit %q is not BCD: %w", digits[i], ErrInvalidElement)
		}
		if i%2 == 0 {
			out[i/2] = out[i/2]&0xF0 | byte(n)
		} else {
			out[i/2] = out[i/2]&0x0F | byte(n)<<4
		}
	}
	return out, nil
}

// Format renders a leaf element according to its representation.
func Format(e Element) string {
	switch v := e.(type) {
	case None:
		return "-"
	case Bool:
		return fmt.Sprintf("%t", v.Value)
	case U8:
		return formatUint(uint64(v.Value), v.Repr, 2)
	case U16:
		return formatUint(uint64(v.Value), v.Repr, 4)
	case U32:
		return formatUint(uint64(v.Value), v.Repr, 8)
	case String:
		return fmt.Sprintf("%q", v.Value)
	case BCD:
		return v.Digits
	case Bytes:
		return fmt.Sprintf("%X", v.Value)
	case Group:
		return fmt.Sprintf("{%d elements}", len(v.Elements))
	default:
		return fmt.Sprintf("%v", e)
	}
}

func formatUint(n uint64, repr Representation, width int) string {
	if repr == ReprHex {
		return fmt.Sprintf("0x%0*X", width, n)
	}
	return fmt.Sprintf("%d", n)
}
