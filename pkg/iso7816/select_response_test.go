package iso7816

import (
	"fmt"
	"testing"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

func TestParseSelectResponse(t *testing.T) {
	const (
		p2FCI    = byte(ReturnFCI)
		p2FCP    = byte(ReturnFCP)
		p2FMD    = byte(ReturnFMD)
		p2NoData = byte(ReturnNoData)
	)

	tests := []struct {
		name      string
		data      []byte
		p2        byte
		wantAID   string
		wantLabel string
		wantFCP   bool
		wantErr   bool
	}{
		{
			name:    "UICC ADF answer",
			data:    tlv.Hex("62 0D", "82 02 7821", "84 07 A0000000871002"),
			p2:      p2FCP,
			wantAID: "A0000000871002",
			wantFCP: true,
		},
		{
			name:    "FCP wrapped in FCI",
			data:    tlv.Hex("6F 0F", "62 0D", "82 02 7821", "84 07 A0000000871002"),
			p2:      p2FCI,
			wantAID: "A0000000871002",
			wantFCP: true,
		},
		{
			name:      "FMD wrapped in FCI",
			data:      tlv.Hex("6F 0F", "64 0D", "84 05 A000000001", "50 04 54455354"),
			p2:        p2FCI,
			wantAID:   "A000000001",
			wantLabel: "TEST",
		},
		{
			name:      "Flat FCI",
			data:      tlv.Hex("6F 0D", "84 05 A000000001", "50 04 54455354"),
			p2:        p2FCI,
			wantAID:   "A000000001",
			wantLabel: "TEST",
		},
		{
			name:    "FMD requested",
			data:    tlv.Hex("64 07", "84 05 A000000001"),
			p2:      p2FMD,
			wantAID: "A000000001",
		},
		{
			name: "Proprietary",
			data: tlv.Hex("C0 01 02"),
			p2:   p2FCI,
		},
		{
			name: "Nothing returned",
			p2:   p2NoData,
		},
		{
			name:    "Data although none was asked",
			data:    tlv.Hex("62 00"),
			p2:      p2NoData,
			wantErr: true,
		},
		{
			name:    "FCP missing",
			data:    tlv.Hex("64 07", "84 05 A000000001"),
			p2:      p2FCP,
			wantErr: true,
		},
		{
			name:    "FCP without descriptor",
			data:    tlv.Hex("62 04", "83 02 2FE2"),
			p2:      p2FCP,
			wantErr: true,
		},
		{
			name:    "Truncated",
			data:    tlv.Hex("62 0D", "82 02"),
			p2:      p2FCP,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelectResponse(tt.data, tt.p2)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSelectResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if aid := fmt.Sprintf("%X", got.AID()); aid != tt.wantAID {
				t.Errorf("AID() = %s, want %s", aid, tt.wantAID)
			}
			if label := string(got.Label()); label != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", label, tt.wantLabel)
			}
			if (got.FCP != nil) != tt.wantFCP {
				t.Errorf("FCP = %v, want present=%v", got.FCP, tt.wantFCP)
			}
			if tt.name == "Proprietary" && len(got.Proprietary) != 3 {
				t.Errorf("Proprietary = %X", got.Proprietary)
			}
		})
	}
}
