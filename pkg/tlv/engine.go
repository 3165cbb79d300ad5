package tlv

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gregLibert/sim-card/pkg/bits"
	"github.com/moov-io/bertlv"
)

// TAG TABLE DRIVEN DECODING:
//
// Cards answer with flat sequences of BER-TLV data objects whose meaning depends on
// the enclosing structure (FCP template '62', EF.DIR application template '61', ...).
// The engine walks one level of such a sequence and annotates every object with the
// entry of a declarative Table. Templates are not entered automatically: the caller
// decodes a template's value with the table that belongs to it (see DecodeTemplate).
//
// Tag field (ISO 7816-4 5.2.2.1):
//   - 1 byte, unless bits 5-1 of the first byte are all set ('1F' pattern),
//     in which case the tag spans 2 bytes.
//
// Length field:
//   - '00'..'7F': the length itself.
//   - '81' XX, '82' XX XX, '83' XX XX XX: the low 7 bits count the length bytes that follow.
//
// Bytes '00' and 'FF' found where a tag is expected are padding and are skipped.

var (
	// ErrTruncatedTLV reports a buffer ending inside a tag, a length or a value.
	ErrTruncatedTLV = errors.New("truncated TLV")

	// ErrInvalidLength reports a length field this engine cannot represent. Decode wraps it
	// together with ErrTruncatedTLV for indefinite ('80') and oversized ('84'+) lengths.
	ErrInvalidLength = errors.New("invalid TLV length field")

	// ErrInvalidTag reports a tag that cannot be encoded (0, padding bytes, or wider than 2 bytes).
	ErrInvalidTag = errors.New("invalid TLV tag")
)

// maxLengthBytes is the longest long-form length accepted ('83' XX XX XX).
const maxLengthBytes = 3

// Tag is a one or two byte BER-TLV tag. Two-byte tags keep their first byte in the high half.
type Tag uint16

// Bytes returns the on-wire form of the tag.
func (t Tag) Bytes() []byte {
	if t > 0xFF {
		return []byte{byte(t >> 8), byte(t)}
	}
	return []byte{byte(t)}
}

// String returns the tag in the upper-case hex notation used by bertlv.
func (t Tag) String() string {
	if t > 0xFF {
		return fmt.Sprintf("%04X", uint16(t))
	}
	return fmt.Sprintf("%02X", uint16(t))
}

// IsConstructed reports whether bit 6 of the first tag byte is set.
func (t Tag) IsConstructed() bool {
	return bits.IsSet(t.first(), 6)
}

func (t Tag) first() byte {
	if t > 0xFF {
		return byte(t >> 8)
	}
	return byte(t)
}

// Shape tells consumers how a value is meant to be read. It never changes how bytes are walked.
type Shape int

const (
	ShapeBytes Shape = iota
	ShapeUint
	ShapeASCII
	ShapeTemplate
)

func (s Shape) String() string {
	switch s {
	case ShapeBytes:
		return "bytes"
	case ShapeUint:
		return "uint"
	case ShapeASCII:
		return "ascii"
	case ShapeTemplate:
		return "template"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Definition describes one tag of a Table.
type Definition struct {
	Tag   Tag
	Name  string
	Shape Shape
}

// Table is an ordered, read-only list of tag definitions.
type Table []Definition

// Lookup returns the definition registered for tag.
func (t Table) Lookup(tag Tag) (Definition, bool) {
	for _, d := range t {
		if d.Tag == tag {
			return d, true
		}
	}
	return Definition{}, false
}

// Element is one decoded data object. Known is false for tags absent from the table;
// such elements are kept verbatim so that unknown card extensions survive a decode.
type Element struct {
	Tag   Tag
	Name  string
	Shape Shape
	Known bool
	Value []byte
}

// Uint reads the value as a big-endian unsigned integer of at most 8 bytes.
func (e Element) Uint() (uint64, error) {
	if len(e.Value) > 8 {
		return 0, fmt.Errorf("tag %s: %d bytes do not fit an integer", e.Tag, len(e.Value))
	}
	var n uint64
	for _, b := range e.Value {
		n = n<<8 | uint64(b)
	}
	return n, nil
}

// String renders the element on one line, formatted according to its shape.
func (e Element) String() string {
	name := e.Name
	if !e.Known {
		name = "Unknown"
	}

	switch e.Shape {
	case ShapeUint:
		if n, err := e.Uint(); err == nil {
			return fmt.Sprintf("%s (%s): %X (Dec: %d)", name, e.Tag, e.Value, n)
		}
	case ShapeASCII:
		return fmt.Sprintf("%s (%s): %X (%q)", name, e.Tag, e.Value, MakeSafeASCII(e.Value))
	}
	return fmt.Sprintf("%s (%s): %X", name, e.Tag, e.Value)
}

// Elements is an ordered sequence of decoded data objects.
type Elements []Element

// Find returns the first element carrying tag.
func (es Elements) Find(tag Tag) (Element, bool) {
	for _, e := range es {
		if e.Tag == tag {
			return e, true
		}
	}
	return Element{}, false
}

// Unknown returns the elements whose tag is not part of the decoding table.
func (es Elements) Unknown() Elements {
	var out Elements
	for _, e := range es {
		if !e.Known {
			out = append(out, e)
		}
	}
	return out
}

// Decode walks buf and returns every top-level data object, annotated with table.
func Decode(table Table, buf []byte) (Elements, error) {
	var out Elements

	for pos := 0; pos < len(buf); {
		if buf[pos] == 0x00 || buf[pos] == 0xFF {
			pos++
			continue
		}

		tag, n, err := readTag(buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("tag at offset %d: %w", pos, err)
		}
		pos += n

		length, n, err := readLength(buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("length of tag %s at offset %d: %w", tag, pos, err)
		}
		pos += n

		if length > len(buf)-pos {
			return nil, fmt.Errorf("value of tag %s needs %d bytes, %d left: %w",
				tag, length, len(buf)-pos, ErrTruncatedTLV)
		}

		e := Element{Tag: tag, Value: buf[pos : pos+length : pos+length]}
		if def, ok := table.Lookup(tag); ok {
			e.Name = def.Name
			e.Shape = def.Shape
			e.Known = true
		}
		out = append(out, e)
		pos += length
	}

	return out, nil
}

// DecodeTemplate decodes buf, locates the template outer and decodes its value with inner.
func DecodeTemplate(outer Tag, inner Table, buf []byte) (Elements, error) {
	top, err := Decode(Table{{Tag: outer, Shape: ShapeTemplate}}, buf)
	if err != nil {
		return nil, err
	}

	tpl, ok := top.Find(outer)
	if !ok {
		return nil, fmt.Errorf("mandatory template '%s' not found", outer)
	}

	return Decode(inner, tpl.Value)
}

// Encode serialises elements with minimal BER length fields. It is the inverse of Decode.
func Encode(elements []Element) ([]byte, error) {
	var buf bytes.Buffer

	for _, e := range elements {
		if e.Tag == 0 || e.Tag.first() == 0xFF {
			return nil, fmt.Errorf("tag %s: %w", e.Tag, ErrInvalidTag)
		}
		if e.Tag > 0xFF && bits.GetRange(e.Tag.first(), 5, 1) != 0x1F {
			return nil, fmt.Errorf("tag %s: first byte does not announce a second one: %w", e.Tag, ErrInvalidTag)
		}
		if e.Tag <= 0xFF && bits.GetRange(byte(e.Tag), 5, 1) == 0x1F {
			return nil, fmt.Errorf("tag %s: one-byte tag uses the extension pattern: %w", e.Tag, ErrInvalidTag)
		}

		length, err := encodeLength(len(e.Value))
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", e.Tag, err)
		}

		buf.Write(e.Tag.Bytes())
		buf.Write(length)
		buf.Write(e.Value)
	}

	return buf.Bytes(), nil
}

// ToBER converts engine output into bertlv packets so that struct-tag templates can be
// filled with UnmarshalFromPackets.
func ToBER(elements []Element) []bertlv.TLV {
	packets := make([]bertlv.TLV, 0, len(elements))
	for _, e := range elements {
		packets = append(packets, bertlv.TLV{Tag: e.Tag.String(), Value: e.Value})
	}
	return packets
}

func readTag(buf []byte) (Tag, int, error) {
	if len(buf) == 0 {
		return 0, 0, ErrTruncatedTLV
	}

	first := buf[0]
	if bits.GetRange(first, 5, 1) != 0x1F {
		return Tag(first), 1, nil
	}

	if len(buf) < 2 {
		return 0, 0, ErrTruncatedTLV
	}
	return Tag(uint16(first)<<8 | uint16(buf[1])), 2, nil
}

func readLength(buf []byte) (int, int, error) {
	if len(buf) == 0 {
		return 0, 0, ErrTruncatedTLV
	}

	first := buf[0]
	if !bits.IsSet(first, 8) {
		return int(first), 1, nil
	}

	count := int(bits.Clear(first, 8))
	if count == 0 || count > maxLengthBytes {
		return 0, 0, fmt.Errorf("length byte %02X: %w: %w", first, ErrTruncatedTLV, ErrInvalidLength)
	}
	if len(buf) < 1+count {
		return 0, 0, ErrTruncatedTLV
	}

	length := 0
	for _, b := range buf[1 : 1+count] {
		length = length<<8 | int(b)
	}
	return length, 1 + count, nil
}

func encodeLength(n int) ([]byte, error) {
	switch {
	case n < 0x80:
		return []byte{byte(n)}, nil
	case n <= 0xFF:
		return []byte{0x81, byte(n)}, nil
	case n <= 0xFFFF:
		return []byte{0x82, byte(n >> 8), byte(n)}, nil
	case n <= 0xFFFFFF:
		return []byte{0x83, byte(n >> 16), byte(n >> 8), byte(n)}, nil
	default:
		return nil, fmt.Errorf("value of %d bytes: %w", n, ErrInvalidLength)
	}
}
