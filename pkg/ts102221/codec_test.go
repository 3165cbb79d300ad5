package ts102221

import (
	"testing"

	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileOf returns a File of the UICC profile holding raw.
func fileOf(t *testing.T, path []uint16, raw []byte) *sim.File {
	t.Helper()

	profile, err := Profile()
	require.NoError(t, err)

	d := profile.Tree.Root()
	for _, fid := range path {
		d = sim.FindByID(d, fid)
		require.NotNil(t, d, "no file %04X", fid)
	}
	return sim.NewFile(d, raw)
}

func TestICCID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		want        string
		expectError bool
	}{
		{name: "Odd_Digit_Count", raw: "98 10 14 30 12 11 81 15 32 F7", want: "8901410321111851237"},
		{name: "Even_Digit_Count", raw: "98 10 14 30 12 11 81 15 32 47", want: "89014103211118512374"},
		{name: "Erased", raw: "FF FF FF FF FF FF FF FF FF FF", want: ""},
		{name: "Filler_Inside_Number", raw: "98 F0 14 30 12 11 81 15 32 F7", expectError: true},
		{name: "Too_Short", raw: "98 10 14 30 12 11 81 15 32", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := fileOf(t, []uint16{0x2FE2}, tlv.Hex(tt.raw))
			dd, err := f.Decode()
			if tt.expectError {
				var pe *sim.ParseError
				assert.ErrorAs(t, err, &pe)
				return
			}
			require.NoError(t, err)

			got, ok := ICCID(dd)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, f.RoundTrip())
		})
	}
}

func TestICCID_NotCanonical(t *testing.T) {
	t.Parallel()

	f := fileOf(t, []uint16{0x2FE2}, tlv.Hex("98 F0 14 30 12 11 81 15 32 F7"))
	_, err := f.Decode()
	assert.ErrorIs(t, err, ErrNotCanonical)
}

func TestICCID_Edit(t *testing.T) {
	t.Parallel()

	f := fileOf(t, []uint16{0x2FE2}, tlv.Hex("98 10 14 30 12 11 81 15 32 F7"))
	dd, err := f.Decode()
	require.NoError(t, err)

	g := dd.Elements[0].(sim.Group)
	number := g.Elements[0].(sim.BCD)
	number.Digits = "8933150000000000001"
	g.Elements[0] = number
	dd.Elements[0] = g

	raw, err := f.Encode()
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("98 33 51 00 00 00 00 00 00 F1"), raw)
}

func TestPL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		want        []string
		unused      int
		expectError bool
	}{
		{name: "Two_Languages", raw: "656E 6672 FFFF FFFF", want: []string{"en", "fr"}, unused: 2},
		{name: "Single_Letter_Code", raw: "64FF 656E", want: []string{"d", "en"}},
		{name: "Gap_Is_Kept", raw: "656E FFFF 6672", want: []string{"en", "fr"}, unused: 1},
		{name: "Empty", raw: "", want: nil},
		{name: "Odd_Length", raw: "656E66", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := fileOf(t, []uint16{0x2F05}, tlv.Hex(tt.raw))
			dd, err := f.Decode()
			if tt.expectError {
				var pe *sim.ParseError
				assert.ErrorAs(t, err, &pe)
				return
			}
			require.NoError(t, err)

			var langs []string
			unused := 0
			for _, e := range dd.Elements {
				if s, ok := e.(sim.String); ok {
					langs = append(langs, s.Value)
				}
				if e.Kind() == sim.KindNone {
					unused++
					assert.Equal(t, "unused", e.Info().Name)
				}
			}
			assert.Equal(t, tt.want, langs)
			assert.Equal(t, tt.unused, unused)
			assert.NoError(t, f.RoundTrip())
		})
	}
}

func TestPL_AddLanguage(t *testing.T) {
	t.Parallel()

	f := fileOf(t, []uint16{0x2F05}, tlv.Hex("656E FFFF"))
	dd, err := f.Decode()
	require.NoError(t, err)

	dd.Elements[1] = sim.String{Meta: sim.Meta{Name: "language", Length: 2}, Value: "de"}
	raw, err := f.Encode()
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("656E 6465"), raw)
}

func TestIMSI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		want        string
		present     bool
		expectError bool
	}{
		{name: "Fifteen_Digits", raw: "08 29 80 03 10 32 54 76 98", want: "208300123456789", present: true},
		{name: "Fourteen_Digits", raw: "08 21 80 03 10 32 54 76 F8", want: "20830012345678", present: true},
		{name: "Erased", raw: "FF FF FF FF FF FF FF FF FF"},
		{name: "Wrong_Size", raw: "08 29 80 03", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := fileOf(t, []uint16{sim.FIDCurrentADF, 0x6F07}, tlv.Hex(tt.raw))
			dd, err := f.Decode()
			if tt.expectError {
				var pe *sim.ParseError
				assert.ErrorAs(t, err, &pe)
				return
			}
			require.NoError(t, err)

			got, ok := IMSI(dd)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, f.RoundTrip())
		})
	}
}

func TestSPN(t *testing.T) {
	t.Parallel()

	f := fileOf(t, []uint16{sim.FIDCurrentADF, 0x6F46}, tlv.Hex("01 4F72616E6765 FFFFFFFFFFFFFFFFFFFF"))
	dd, err := f.Decode()
	require.NoError(t, err)

	cond, ok := dd.Find("display condition")
	require.True(t, ok)
	assert.Equal(t, "0x01", sim.Format(cond))

	name, ok := dd.Find("service provider name")
	require.True(t, ok)
	assert.Equal(t, "Orange", name.(sim.String).Value)

	assert.NoError(t, f.RoundTrip())

	short := fileOf(t, []uint16{sim.FIDCurrentADF, 0x6F46}, tlv.Hex("01 4F72"))
	_, err = short.Decode()
	var pe *sim.ParseError
	assert.ErrorAs(t, err, &pe)
}
