package ts102221

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gregLibert/sim-card/pkg/sim"
)

// ErrNotCanonical reports content that a hook can read but could not write back byte for byte.
var ErrNotCanonical = errors.New("content has no canonical encoding")

// decoded checks that elements serialise back to data before handing them out.
func decoded(desc *sim.FileDescriptor, data []byte, elements ...sim.Element) (*sim.DecodedData, error) {
	back, err := sim.EncodeElements(elements)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(back, data) {
		return nil, fmt.Errorf("%X would be written back as %X: %w", data, back, ErrNotCanonical)
	}
	return &sim.DecodedData{File: desc, Elements: elements}, nil
}

// encodeElements is the encode hook of every file whose layout is fully described by its elements.
func encodeElements(_ *sim.File, dd *sim.DecodedData) ([]byte, error) {
	if dd == nil {
		return nil, errors.New("nothing to encode")
	}
	return sim.EncodeElements(dd.Elements)
}

func trimFiller(b []byte) []byte {
	return bytes.TrimRight(b, "\xFF")
}

// ICCID

const iccidLength = 10

func decodeICCID(desc *sim.FileDescriptor, data []byte) (*sim.DecodedData, error) {
	if len(data) != iccidLength {
		return nil, fmt.Errorf("ICCID is %d bytes long, got %d", iccidLength, len(data))
	}

	return decoded(desc, data, sim.Group{
		Meta: sim.Meta{Name: "ICCID", Length: len(data)},
		Elements: []sim.Element{
			sim.BCD{Meta: sim.Meta{Name: "identification number", Repr: sim.ReprDecimal, Length: len(data)}, Digits: sim.DecodeBCD(data)},
		},
	})
}

// ICCID returns the identification number held by decoded EF.ICCID content.
func ICCID(dd *sim.DecodedData) (string, bool) {
	e, ok := dd.Find("ICCID")
	if !ok {
		return "", false
	}
	g, ok := e.(sim.Group)
	if !ok || len(g.Elements) != 1 {
		return "", false
	}
	n, ok := g.Elements[0].(sim.BCD)
	return n.Digits, ok
}

// EF.PL

const languageCodeLength = 2

func decodePL(desc *sim.FileDescriptor, data []byte) (*sim.DecodedData, error) {
	if len(data)%languageCodeLength != 0 {
		return nil, fmt.Errorf("language list of %d bytes is not a sequence of %d-byte codes", len(data), languageCodeLength)
	}

	var elements []sim.Element
	for i := 0; i < len(data); i += languageCodeLength {
		code := data[i : i+languageCodeLength]
		meta := sim.Meta{Name: "language", Length: languageCodeLength}
		if bytes.Equal(code, []byte{0xFF, 0xFF}) {
			meta.Name = "unused"
			elements = append(elements, sim.None{Meta: meta})
			continue
		}
		elements = append(elements, sim.String{Meta: meta, Value: string(trimFiller(code))})
	}

	return decoded(desc, data, elements...)
}

// EF.IMSI (TS 31.102 4.2.2)

const imsiLength = 9

func decodeIMSI(desc *sim.FileDescriptor, data []byte) (*sim.DecodedData, error) {
	if len(data) != imsiLength {
		return nil, fmt.Errorf("IMSI is %d bytes long, got %d", imsiLength, len(data))
	}

	// The first nibble after the length byte is the parity indicator, kept with the digits.
	return decoded(desc, data,
		sim.U8{Meta: sim.Meta{Name: "length", Repr: sim.ReprDecimal, Length: 1}, Value: data[0]},
		sim.BCD{Meta: sim.Meta{Name: "digits", Repr: sim.ReprDecimal, Length: imsiLength - 1}, Digits: sim.DecodeBCD(data[1:])},
	)
}

// IMSI returns the subscriber identity of decoded EF.IMSI content, without its parity nibble.
func IMSI(dd *sim.DecodedData) (string, bool) {
	e, ok := dd.Find("digits")
	if !ok {
		return "", false
	}
	d, ok := e.(sim.BCD)
	if !ok || len(d.Digits) < 2 {
		return "", false
	}
	return d.Digits[1:], true
}

// EF.SPN (TS 31.102 4.2.12)

const spnLength = 17

func decodeSPN(desc *sim.FileDescriptor, data []byte) (*sim.DecodedData, error) {
	if len(data) != spnLength {
		return nil, fmt.Errorf("service provider name is %d bytes long, got %d", spnLength, len(data))
	}

	return decoded(desc, data,
		sim.U8{Meta: sim.Meta{Name: "display condition", Repr: sim.ReprHex, Length: 1}, Value: data[0]},
		sim.String{Meta: sim.Meta{Name: "service provider name", Length: spnLength - 1}, Value: string(trimFiller(data[1:]))},
	)
}
