package iso7816

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

func TestNewSelectCommand(t *testing.T) {
	cls, _ := NewClass(0x00)

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name:     "DF name returning FCI",
			cmd:      NewSelectCommand(cls, SelectByDFName, SelectP2{Control: ReturnFCI}, tlv.Hex("A0000000871002")),
			expected: tlv.Hex("00 A4 04 00 07 A0 00 00 00 87 10 02"),
		},
		{
			name:     "Current file without data",
			cmd:      NewSelectCommand(cls, SelectByFileID, SelectP2{Control: ReturnFCP}, nil),
			expected: tlv.Hex("00 A4 00 04 00"),
		},
		{
			name:     "Next occurrence",
			cmd:      NewSelectCommand(cls, SelectByDFName, SelectP2{Occurrence: NextOccurrence, Control: ReturnFCP}, tlv.Hex("A000000087")),
			expected: tlv.Hex("00 A4 04 06 05 A0 00 00 00 87"),
		},
		{
			name:     "No answer",
			cmd:      NewSelectCommand(cls, SelectByFileID, SelectP2{Control: ReturnNoData}, tlv.Hex("3F00")),
			expected: tlv.Hex("00 A4 00 0C 02 3F 00"),
		},
		{
			name:     "EF.ICCID by FID",
			cmd:      SelectFID(cls, 0x2FE2),
			expected: tlv.Hex("00 A4 00 04 02 2F E2"),
		},
		{
			name:     "ADF.USIM by AID",
			cmd:      SelectApplication(cls, tlv.Hex("A0000000871002")),
			expected: tlv.Hex("00 A4 04 04 07 A0 00 00 00 87 10 02"),
		},
		{
			name:     "Terminate ADF.USIM",
			cmd:      TerminateApplication(cls, tlv.Hex("A0000000871002")),
			expected: tlv.Hex("00 A4 04 4C 07 A0 00 00 00 87 10 02"),
		},
		{
			name:     "STATUS",
			cmd:      StatusCommand(cls),
			expected: tlv.Hex("00 F2 00 00 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Bytes() = %s, want %s", hex.EncodeToString(got), hex.EncodeToString(tt.expected))
			}
		})
	}
}

func TestParseSelectP2(t *testing.T) {
	tests := []struct {
		p2   byte
		want string
	}{
		{p2: 0x04, want: "First/Only | Return FCP"},
		{p2: 0x0C, want: "First/Only | No Response Data"},
		{p2: 0x02, want: "Next | Return FCI"},
		{p2: 0x4C, want: "First/Only | No Response Data | Terminate session"},
	}

	for _, tt := range tests {
		p := ParseSelectP2(tt.p2)
		if got := p.String(); got != tt.want {
			t.Errorf("ParseSelectP2(%02X) = %q, want %q", tt.p2, got, tt.want)
		}
		if p.Byte() != tt.p2 {
			t.Errorf("ParseSelectP2(%02X).Byte() = %02X", tt.p2, p.Byte())
		}
	}
}

func TestSelectByPath(t *testing.T) {
	cls, _ := NewClass(0x00)

	cmd, err := SelectByPath(cls, true, []uint16{0x7F10, 0x5F50, 0x4F20})
	if err != nil {
		t.Fatalf("SelectByPath() error = %v", err)
	}
	got, _ := cmd.Bytes()
	want := tlv.Hex("00 A4 08 04 06 7F10 5F50 4F20")
	if !bytes.Equal(got, want) {
		t.Errorf("SelectByPath() = %X, want %X", got, want)
	}

	cmd, _ = SelectByPath(cls, false, []uint16{0x6F07})
	if cmd.P1 != byte(SelectPathFromCurrentDF) {
		t.Errorf("relative path P1 = %02X", cmd.P1)
	}

	if _, err := SelectByPath(cls, true, nil); err == nil {
		t.Error("expected an error for an empty path")
	}
}
