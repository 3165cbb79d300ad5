package sim

import (
	"testing"

	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBCD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "ICCID_With_Filler", input: tlv.Hex("98 10 14 30 12 11 81 15 32 F7"), want: "8901410321111851237"},
		{name: "Even_Digits", input: tlv.Hex("21 43"), want: "1234"},
		{name: "Stops_At_First_Filler", input: tlv.Hex("F1 23"), want: "1"},
		{name: "Empty", input: nil, want: ""},
		{name: "All_Filler", input: tlv.Hex("FF FF"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DecodeBCD(tt.input))
		})
	}
}

func TestEncodeBCD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		digits      string
		length      int
		want        []byte
		expectError bool
	}{
		{name: "ICCID", digits: "8901410321111851237", length: 10, want: tlv.Hex("98 10 14 30 12 11 81 15 32 F7")},
		{name: "Natural_Length", digits: "123", want: tlv.Hex("21 F3")},
		{name: "Padded", digits: "12", length: 3, want: tlv.Hex("21 FF FF")},
		{name: "Empty_Padded", digits: "", length: 2, want: tlv.Hex("FF FF")},
		{name: "Too_Long", digits: "12345", length: 2, expectError: true},
		{name: "Not_A_Digit", digits: "12x4", expectError: true},
		{name: "Filler_Digit", digits: "1F", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := EncodeBCD(tt.digits, tt.length)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidElement)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.digits, DecodeBCD(got))
		})
	}
}

func TestEncodeElements(t *testing.T) {
	t.Parallel()

	elements := []Element{
		U8{Meta: Meta{Name: "tag", Repr: ReprHex, Length: 1}, Value: 0x01},
		Group{
			Meta: Meta{Name: "numbers"},
			Elements: []Element{
				U16{Meta: Meta{Name: "u16", Length: 2}, Value: 0x0203},
				U32{Meta: Meta{Name: "u32"}, Value: 0x04050607},
				Bool{Meta: Meta{Name: "flag", Length: 1}, Value: true},
			},
		},
		String{Meta: Meta{Name: "label", Length: 4}, Value: "ab"},
		BCD{Meta: Meta{Name: "digits"}, Digits: "123"},
		Bytes{Meta: Meta{Name: "raw", Length: 2}, Value: tlv.Hex("AABB")},
		None{Meta: Meta{Name: "rfu", Length: 2}},
	}

	got, err := EncodeElements(elements)
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("01", "0203 04050607 01", "6162FFFF", "21F3", "AABB", "FFFF"), got)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		element Element
	}{
		{name: "U8_Wrong_Width", element: U8{Meta: Meta{Name: "x", Length: 2}}},
		{name: "U16_Wrong_Width", element: U16{Meta: Meta{Name: "x", Length: 3}}},
		{name: "U32_Wrong_Width", element: U32{Meta: Meta{Name: "x", Length: 2}}},
		{name: "Bool_Wrong_Width", element: Bool{Meta: Meta{Name: "x", Length: 4}}},
		{name: "String_Too_Long", element: String{Meta: Meta{Name: "x", Length: 1}, Value: "ab"}},
		{name: "Bytes_Length_Mismatch", element: Bytes{Meta: Meta{Name: "x", Length: 3}, Value: []byte{1}}},
		{name: "BCD_Not_Decimal", element: BCD{Meta: Meta{Name: "x"}, Digits: "1-2"}},
		{name: "None_Negative", element: None{Meta: Meta{Name: "x", Length: -1}}},
		{
			name: "Nested_In_Group",
			element: Group{
				Meta:     Meta{Name: "outer"},
				Elements: []Element{Group{Meta: Meta{Name: "inner"}, Elements: []Element{U16{Meta: Meta{Length: 1}}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, Validate(tt.element), ErrInvalidElement)

			_, err := EncodeElements([]Element{tt.element})
			assert.ErrorIs(t, err, ErrInvalidElement)
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		element Element
		want    string
	}{
		{element: U8{Meta: Meta{Repr: ReprHex}, Value: 0x0A}, want: "0x0A"},
		{element: U16{Meta: Meta{Repr: ReprDecimal}, Value: 515}, want: "515"},
		{element: U32{Meta: Meta{Repr: ReprHex}, Value: 1}, want: "0x00000001"},
		{element: Bool{Value: true}, want: "true"},
		{element: String{Value: "en"}, want: `"en"`},
		{element: BCD{Digits: "0123"}, want: "0123"},
		{element: Bytes{Value: tlv.Hex("CAFE")}, want: "CAFE"},
		{element: None{}, want: "-"},
		{element: Group{Elements: []Element{None{}, None{}}}, want: "{2 elements}"},
	}

	for _, tt := range tests {
		t.Run(tt.element.Kind().String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Format(tt.element))
		})
	}
}
