package iso7816

import (
	"errors"
	"testing"
)

func TestStatusWordTable_FirstMatch(t *testing.T) {
	table := StatusWordTable{
		{Code: 0x9000, Mask: 0xFFFF, Class: SWClassOK},
		{Code: 0x9000, Mask: 0xF000, Class: SWClassPostponed},
		SWTerminator,
	}

	tests := []struct {
		name        string
		sw          StatusWord
		wantClass   SWClass
		wantUnknown bool
	}{
		{"Exact match wins", 0x9000, SWClassOK, false},
		{"Masked range", 0x9123, SWClassPostponed, false},
		{"Unmatched", 0x6A82, SWClassError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Classify(tt.sw)
			if got.Class != tt.wantClass || got.Unknown != tt.wantUnknown {
				t.Errorf("Classify(%04X) = %s, want class %s unknown %v", uint16(tt.sw), got, tt.wantClass, tt.wantUnknown)
			}
			if tt.wantUnknown {
				if got.Rule != nil {
					t.Errorf("unmatched word returned rule %+v", *got.Rule)
				}
				if !errors.Is(got.Err(), ErrUnknownStatusWord) {
					t.Errorf("Err() = %v, want ErrUnknownStatusWord", got.Err())
				}
			} else if got.Err() != nil {
				t.Errorf("Err() = %v, want nil", got.Err())
			}
		})
	}
}

func TestStatusWordTable_TerminatorEndsTable(t *testing.T) {
	table := StatusWordTable{
		{Code: 0x9000, Mask: 0xFFFF, Class: SWClassOK},
		SWTerminator,
		{Code: 0x6A82, Mask: 0xFFFF, Class: SWClassError},
	}

	if got := table.Classify(0x6A82); !got.Unknown {
		t.Errorf("rule after terminator was evaluated: %s", got)
	}

	var empty StatusWordTable
	if got := empty.Classify(0x9000); !got.Unknown || got.Class != SWClassError {
		t.Errorf("empty table Classify = %s", got)
	}
}

func TestStatusWordTable_DetailIsDescriptive(t *testing.T) {
	table := StatusWordTable{
		{Code: 0x6A82, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "File not found"},
		{Code: 0x6A00, Mask: 0xFF00, Type: SWTypeNone, Class: SWClassError, Detail: "ignored"},
		SWTerminator,
	}

	got := table.Classify(0x6A82)
	if got.Detail != "File not found" {
		t.Errorf("Detail = %q", got.Detail)
	}
	if got.String() != "6A82: Error (File not found)" {
		t.Errorf("String() = %q", got.String())
	}

	got = table.Classify(0x6A86)
	if got.Detail != "" {
		t.Errorf("Detail of a non-string rule = %q, want empty", got.Detail)
	}
}

func TestConcat(t *testing.T) {
	card := StatusWordTable{
		{Code: 0x9100, Mask: 0xFF00, Class: SWClassOK},
		{Code: 0x6A82, Mask: 0xFFFF, Class: SWClassWarning},
		SWTerminator,
	}
	table := Concat(card, ISO7816StatusWords)

	if last := table[len(table)-1]; !last.IsTerminator() {
		t.Errorf("Concat() does not end with a terminator")
	}
	for _, r := range table[:len(table)-1] {
		if r.IsTerminator() {
			t.Fatalf("Concat() kept an inner terminator")
		}
	}

	tests := []struct {
		sw   StatusWord
		want SWClass
	}{
		{0x9110, SWClassOK},
		{0x6A82, SWClassWarning}, // card table overrides the generic rule
		{0x6A83, SWClassError},
		{0x9000, SWClassOK},
	}
	for _, tt := range tests {
		if got := table.Classify(tt.sw); got.Class != tt.want {
			t.Errorf("Classify(%04X) = %s, want %s", uint16(tt.sw), got.Class, tt.want)
		}
	}
}

func TestISO7816StatusWords(t *testing.T) {
	tests := []struct {
		sw   StatusWord
		want SWClass
	}{
		{SW_NO_ERROR, SWClassOK},
		{NewStatusWord(0x61, 0x20), SWClassOK},
		{SW_WARN_EOF_REACHED, SWClassWarning},
		{NewStatusWord(0x63, 0xC2), SWClassWarning},
		{SW_ERR_WRONG_LENGTH, SWClassError},
		{SW_ERR_FILE_NOT_FOUND, SWClassError},
		{SW_ERR_INS_INVALID, SWClassError},
		{NewStatusWord(0x6F, 0x12), SWClassError},
	}

	for _, tt := range tests {
		got := ISO7816StatusWords.Classify(tt.sw)
		if got.Class != tt.want || got.Unknown {
			t.Errorf("Classify(%04X) = %s, want %s", uint16(tt.sw), got, tt.want)
		}
	}

	if got := ISO7816StatusWords.Classify(0x9300); !got.Unknown {
		t.Errorf("9300 is not an ISO 7816-4 code, got %s", got)
	}
}
