package sim

import (
	"bytes"
	"errors"
	"fmt"
)

// FILE HOOKS:
//
// Each FileDescriptor carries a pair of hooks. Parse turns raw content into DecodedData,
// Encode is its exact inverse: for any content accepted by Parse, Encode(Parse(raw)) == raw.
// Files without a dedicated codec use DefaultDecode, which keeps the payload as one opaque
// "raw" Bytes element, and DefaultEncode, which writes it back unchanged.

// DecodedData is the structured content of a file or of one record.
type DecodedData struct {
	File     *FileDescriptor
	Elements []Element
}

// Find returns the first top-level element called name.
func (d *DecodedData) Find(name string) (Element, bool) {
	for _, e := range d.Elements {
		if e.Info().Name == name {
			return e, true
		}
	}
	return nil, false
}

// ParseFunc decodes the raw content of desc.
type ParseFunc func(desc *FileDescriptor, data []byte) (*DecodedData, error)

// EncodeFunc serialises decoded back to raw content.
type EncodeFunc func(file *File, decoded *DecodedData) ([]byte, error)

// FileOps groups the hooks of a file. A nil Parse falls back to DefaultDecode and a nil
// Encode to DefaultEncode.
type FileOps struct {
	Parse  ParseFunc
	Encode EncodeFunc
}

// RawElementName names the single element produced by DefaultDecode.
const RawElementName = "raw"

// DefaultDecode wraps data, whatever its length, in a single Bytes element.
func DefaultDecode(desc *FileDescriptor, data []byte) (*DecodedData, error) {
	return &DecodedData{
		File: desc,
		Elements: []Element{
			Bytes{Meta: Meta{Name: RawElementName, Repr: ReprHex, Length: len(data)}, Value: bytes.Clone(data)},
		},
	}, nil
}

// DefaultEncode returns the payload of data produced by DefaultDecode.
func DefaultEncode(_ *File, decoded *DecodedData) ([]byte, error) {
	if decoded == nil || len(decoded.Elements) != 1 {
		return nil, errors.New("default encoder expects a single raw element")
	}
	raw, ok := decoded.Elements[0].(Bytes)
	if !ok {
		return nil, fmt.Errorf("default encoder expects bytes, got %s", decoded.Elements[0].Kind())
	}
	return bytes.Clone(raw.Value), nil
}

// File is the content of one file read from (or to be written to) a card.
// Record is the record number for record EFs and 0 for transparent content.
type File struct {
	Desc    *FileDescriptor
	Record  uint8
	Encoded []byte
	Decoded *DecodedData
}

// NewFile wraps raw content of desc.
func NewFile(desc *FileDescriptor, encoded []byte) *File {
	return &File{Desc: desc, Encoded: encoded}
}

// Decode runs the parse hook once and caches the result.
func (f *File) Decode() (*DecodedData, error) {
	if f.Decoded != nil {
		return f.Decoded, nil
	}

	dd, err := f.parse(f.Encoded)
	if err != nil {
		return nil, err
	}
	f.Decoded = dd
	return dd, nil
}

func (f *File) parse(raw []byte) (*DecodedData, error) {
	parse := f.Desc.Ops.Parse
	if parse == nil {
		parse = DefaultDecode
	}

	dd, err := parse(f.Desc, raw)
	if err != nil {
		return nil, &ParseError{File: f.Desc, Err: err}
	}
	if dd.File == nil {
		dd.File = f.Desc
	}
	return dd, nil
}

// Encode serialises f.Decoded through the encode hook and stores the result in f.Encoded.
func (f *File) Encode() ([]byte, error) {
	if f.Decoded == nil {
		return nil, &EncodeError{File: f.Desc, Err: errors.New("no decoded data")}
	}

	encode := f.Desc.Ops.Encode
	if encode == nil {
		encode = DefaultEncode
	}

	raw, err := encode(f, f.Decoded)
	if err != nil {
		return nil, &EncodeError{File: f.Desc, Err: err}
	}
	f.Encoded = raw
	return raw, nil
}

// RoundTrip decodes f.Encoded afresh, encodes the result and reports any difference.
// f is left untouched.
func (f *File) RoundTrip() error {
	dd, err := f.parse(f.Encoded)
	if err != nil {
		return err
	}

	clone := &File{Desc: f.Desc, Record: f.Record, Decoded: dd}
	raw, err := clone.Encode()
	if err != nil {
		return err
	}

	if !bytes.Equal(raw, f.Encoded) {
		return &EncodeError{File: f.Desc, Err: fmt.Errorf("round trip changed content: %X became %X", f.Encoded, raw)}
	}
	return nil
}
