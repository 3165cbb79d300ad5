package iso7816

import (
	"testing"
)

func TestStatusWord_Values(t *testing.T) {
	tests := []struct {
		name string
		get  func(StatusWord) (int, bool)
		sw   StatusWord
		want int
		ok   bool
	}{
		{"Available_61", StatusWord.Available, 0x6110, 16, true},
		{"Available_61_256", StatusWord.Available, 0x6100, 256, true},
		{"Available_9F", StatusWord.Available, 0x9F22, 34, true},
		{"Available_None", StatusWord.Available, 0x9000, 0, false},
		{"Expected_6C", StatusWord.ExpectedLength, 0x6C05, 5, true},
		{"Expected_None", StatusWord.ExpectedLength, 0x6700, 0, false},
		{"Counter_0", StatusWord.Counter, 0x63C0, 0, true},
		{"Counter_15", StatusWord.Counter, 0x63CF, 15, true},
		{"Counter_File_Filled", StatusWord.Counter, 0x6381, 0, false},
		{"Counter_Wrong_SW1", StatusWord.Counter, 0x62C2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.get(tt.sw)
			if got != tt.want || ok != tt.ok {
				t.Errorf("%04X: got (%d, %v), want (%d, %v)", uint16(tt.sw), got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestStatusWord_Classification(t *testing.T) {
	tests := []struct {
		sw        StatusWord
		isSuccess bool
		isWarning bool
		isError   bool
	}{
		{SW_NO_ERROR, true, false, false},
		{NewStatusWord(0x61, 0x10), true, false, false}, // Bytes Available
		{SW_WARN_EOF_REACHED, false, true, false},
		{NewStatusWord(0x63, 0xC2), false, true, false}, // Counter
		{SW_ERR_WRONG_LENGTH, false, false, true},
		{SW_ERR_FILE_NOT_FOUND, false, false, true},
		{NewStatusWord(0x91, 0x1A), true, false, false}, // Proactive command pending
		{NewStatusWord(0x9F, 0x22), true, false, false}, // GSM response available
		{NewStatusWord(0x98, 0x62), false, false, true}, // Authentication error
	}

	for _, tt := range tests {
		if got := tt.sw.IsSuccess(); got != tt.isSuccess {
			t.Errorf("SW %X IsSuccess = %v, want %v", tt.sw, got, tt.isSuccess)
		}
		if got := tt.sw.IsWarning(); got != tt.isWarning {
			t.Errorf("SW %X IsWarning = %v, want %v", tt.sw, got, tt.isWarning)
		}
		if got := tt.sw.IsError(); got != tt.isError {
			t.Errorf("SW %X IsError = %v, want %v", tt.sw, got, tt.isError)
		}
	}
}

func TestStatusWord_Verbose(t *testing.T) {
	tests := []struct {
		sw   StatusWord
		want string
	}{
		{NewStatusWord(0x61, 0x20), "6120: OK (Response bytes still available), 32 bytes available"},
		{NewStatusWord(0x6C, 0x05), "6C05: Error (Wrong Le field), card expects Le 5"},
		{NewStatusWord(0x63, 0xC3), "63C3: Warning (Counter provided by X), counter 3"},
		{SW_ERR_RECORD_NOT_FOUND, "6A83: Error (Record not found)"},
	}

	for _, tt := range tests {
		if got := tt.sw.Verbose(); got != tt.want {
			t.Errorf("Verbose(%04X) = %q, want %q", uint16(tt.sw), got, tt.want)
		}
	}
}

func TestStatusWord_String(t *testing.T) {
	tests := []struct {
		sw   StatusWord
		want string
	}{
		{SW_NO_ERROR, "SW_NO_ERROR"},
		{SW_ERR_RECORD_NOT_FOUND, "SW_ERR_RECORD_NOT_FOUND"},
		{NewStatusWord(0x91, 0x10), "StatusWord(0x9110)"},
	}

	for _, tt := range tests {
		if got := tt.sw.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
