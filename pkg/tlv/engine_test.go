package tlv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moov-io/bertlv"
)

var testTable = Table{
	{Tag: 0x82, Name: "File Descriptor", Shape: ShapeBytes},
	{Tag: 0x83, Name: "File Identifier", Shape: ShapeUint},
	{Tag: 0x84, Name: "DF Name", Shape: ShapeBytes},
	{Tag: 0x50, Name: "Label", Shape: ShapeASCII},
	{Tag: 0xA5, Name: "Proprietary", Shape: ShapeTemplate},
	{Tag: 0x9F02, Name: "Amount", Shape: ShapeUint},
}

func TestDecode(t *testing.T) {
	long := bytes.Repeat([]byte{0x5A}, 0x80)

	tests := []struct {
		name  string
		input []byte
		want  Elements
	}{
		{
			name:  "Empty input",
			input: nil,
			want:  nil,
		},
		{
			name:  "One byte tags",
			input: Hex("82 02 4121", "83 02 2F00"),
			want: Elements{
				{Tag: 0x82, Name: "File Descriptor", Shape: ShapeBytes, Known: true, Value: Hex("4121")},
				{Tag: 0x83, Name: "File Identifier", Shape: ShapeUint, Known: true, Value: Hex("2F00")},
			},
		},
		{
			name:  "Two byte tag",
			input: Hex("9F02 03 000100"),
			want: Elements{
				{Tag: 0x9F02, Name: "Amount", Shape: ShapeUint, Known: true, Value: Hex("000100")},
			},
		},
		{
			name:  "Padding is skipped",
			input: Hex("00 FF 83 02 6F07 FF FF"),
			want: Elements{
				{Tag: 0x83, Name: "File Identifier", Shape: ShapeUint, Known: true, Value: Hex("6F07")},
			},
		},
		{
			name:  "Unknown tag is preserved",
			input: Hex("DF01 01 AA", "C0 00"),
			want: Elements{
				{Tag: 0xDF01, Value: Hex("AA")},
				{Tag: 0xC0, Value: []byte{}},
			},
		},
		{
			name:  "Long form length",
			input: append(Hex("84 81 80"), long...),
			want: Elements{
				{Tag: 0x84, Name: "DF Name", Shape: ShapeBytes, Known: true, Value: long},
			},
		},
		{
			name:  "Template is not entered",
			input: Hex("A5 03 8001FF"),
			want: Elements{
				{Tag: 0xA5, Name: "Proprietary", Shape: ShapeTemplate, Known: true, Value: Hex("8001FF")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(testTable, tt.input)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
		invalid bool
	}{
		{"Value shorter than length", Hex("82 05 01"), ErrTruncatedTLV, false},
		{"Missing length", Hex("82"), ErrTruncatedTLV, false},
		{"Missing second tag byte", Hex("9F"), ErrTruncatedTLV, false},
		{"Missing long length bytes", Hex("84 82 01"), ErrTruncatedTLV, false},
		{"Indefinite length", Hex("84 80 00"), ErrTruncatedTLV, true},
		{"Four length bytes", Hex("84 84 00 00 00 01 AA"), ErrTruncatedTLV, true},
		{"Truncation after a good element", Hex("83 02 2F00 84 03 A0"), ErrTruncatedTLV, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(testTable, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrInvalidLength) != tt.invalid {
				t.Errorf("Decode() error = %v, ErrInvalidLength match = %v", err, !tt.invalid)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	inputs := [][]byte{
		Hex("82 02 4121 83 02 2F00"),
		Hex("9F02 03 000100 DF01 01 AA"),
		append(Hex("84 81 80"), bytes.Repeat([]byte{0x01}, 0x80)...),
		append(Hex("84 82 0100"), bytes.Repeat([]byte{0x02}, 0x100)...),
		append(Hex("84 83 010000"), bytes.Repeat([]byte{0x03}, 0x10000)...),
	}

	for _, in := range inputs {
		elements, err := Decode(testTable, in)
		if err != nil {
			t.Fatalf("Decode(%X...) error = %v", in[:4], err)
		}
		out, err := Encode(elements)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if !bytes.Equal(in, out) {
			t.Errorf("round trip of %X... changed the encoding", in[:4])
		}
	}
}

func TestEncodeInvalidTags(t *testing.T) {
	for _, tag := range []Tag{0x00, 0xFF, 0x1F, 0x8201, 0xFF01} {
		_, err := Encode([]Element{{Tag: tag, Value: []byte{0x01}}})
		if !errors.Is(err, ErrInvalidTag) {
			t.Errorf("Encode(tag %s) error = %v, want ErrInvalidTag", tag, err)
		}
	}
}

func TestDecodeTemplate(t *testing.T) {
	input := Hex("62 08", "82 02 4121", "83 02 2F00", "90 00")

	// The trailing 9000 is outside the template and decodes as an unknown top-level tag.
	got, err := DecodeTemplate(0x62, testTable, input)
	if err != nil {
		t.Fatalf("DecodeTemplate() error = %v", err)
	}
	if len(got) != 2 || got[1].Tag != 0x83 {
		t.Errorf("DecodeTemplate() = %v", got)
	}

	if _, err := DecodeTemplate(0x6F, testTable, input); err == nil {
		t.Error("expected an error for a missing template")
	}
}

func TestElementAccessors(t *testing.T) {
	e := Element{Tag: 0x83, Name: "File Identifier", Shape: ShapeUint, Known: true, Value: Hex("2FE2")}

	n, err := e.Uint()
	if err != nil || n != 0x2FE2 {
		t.Errorf("Uint() = %X, %v", n, err)
	}
	if got, want := e.String(), "File Identifier (83): 2FE2 (Dec: 12258)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	label := Element{Tag: 0x50, Name: "Label", Shape: ShapeASCII, Known: true, Value: []byte("USIM")}
	if got, want := label.String(), `Label (50): 5553494D ("USIM")`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	unknown := Element{Tag: 0xDF01, Value: Hex("AA")}
	if got, want := unknown.String(), "Unknown (DF01): AA"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	wide := Element{Tag: 0x80, Value: make([]byte, 9)}
	if _, err := wide.Uint(); err == nil {
		t.Error("expected an error for a 9 byte integer")
	}
}

func TestElementsHelpers(t *testing.T) {
	es, err := Decode(testTable, Hex("83 02 6F07 C6 01 90 83 02 6F08"))
	if err != nil {
		t.Fatal(err)
	}

	first, ok := es.Find(0x83)
	if !ok || !bytes.Equal(first.Value, Hex("6F07")) {
		t.Errorf("Find() = %v, %v", first, ok)
	}
	if _, ok := es.Find(0x8A); ok {
		t.Error("Find() reported an absent tag")
	}

	unknown := es.Unknown()
	if len(unknown) != 1 || unknown[0].Tag != 0xC6 {
		t.Errorf("Unknown() = %v", unknown)
	}
}

func TestBERBridge(t *testing.T) {
	raw := Hex("84 02 A000", "50 03 414243", "A5 03 8201FF", "9F02 01 AA")

	packets, err := bertlv.Decode(raw)
	if err != nil {
		t.Fatalf("bertlv.Decode() error = %v", err)
	}

	fromEngine, err := Decode(testTable, raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	back := ToBER(fromEngine)
	if len(back) != len(packets) {
		t.Fatalf("ToBER() gave %d packets, bertlv %d", len(back), len(packets))
	}
	for i, p := range packets {
		if back[i].Tag != p.Tag {
			t.Errorf("packet %d: tag %s, bertlv %s", i, back[i].Tag, p.Tag)
		}
	}
	if back[3].Tag != "9F02" || !bytes.Equal(back[3].Value, Hex("AA")) {
		t.Errorf("ToBER() = %+v", back[3])
	}
}
