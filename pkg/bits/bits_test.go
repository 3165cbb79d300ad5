package bits

import "testing"

func TestBit(t *testing.T) {
	tests := []struct {
		n        uint
		expected byte
	}{
		{1, 0x01}, {5, 0x10}, {8, 0x80}, {0, 0x00},
		{9, 0x00}, // out of range, silently ignored
	}

	for _, tt := range tests {
		if res := Bit(tt.n); res != tt.expected {
			t.Errorf("Bit(%d) = 0x%02X; want 0x%02X", tt.n, res, tt.expected)
		}
	}
}

func TestIsSet(t *testing.T) {
	val := byte(0b10100101)
	if !IsSet(val, 8) {
		t.Error("Bit 8 should be set")
	}
	if IsSet(val, 7) {
		t.Error("Bit 7 should NOT be set")
	}
	if !IsSet(val, 1) {
		t.Error("Bit 1 should be set")
	}
}

func TestGetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		expected byte
	}{
		{"Bits 4-3 of 0x0C", 0b0000_1100, 4, 3, 3},
		{"Bits 2-1 of 0x03", 0b0000_0011, 2, 1, 3},
		{"Bits 3-1 of FCP descriptor 0x42", 0x42, 3, 1, 2},
		{"Bits 6-4 of FCP descriptor 0x38", 0x38, 6, 4, 7},
		{"Full Byte", 0xAA, 8, 1, 0xAA},
		{"Inverted range", 0xFF, 1, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := GetRange(tt.input, tt.high, tt.low); res != tt.expected {
				t.Errorf("GetRange(0x%02X, %d, %d) = %d; want %d", tt.input, tt.high, tt.low, res, tt.expected)
			}
		})
	}
}

func TestSetClear(t *testing.T) {
	b := Set(0, 5)
	if b != 0x10 {
		t.Errorf("Set(5) = 0b%08b; want 0b%08b", b, 0x10)
	}
	if got := Clear(0xFF, 8); got != 0x7F {
		t.Errorf("Clear(0xFF, 8) = 0x%02X; want 0x7F", got)
	}
}

func TestNibbles(t *testing.T) {
	if got := HighNibble(0x98); got != 0x9 {
		t.Errorf("HighNibble(0x98) = %X", got)
	}
	if got := LowNibble(0x98); got != 0x8 {
		t.Errorf("LowNibble(0x98) = %X", got)
	}
	if got := SwapNibbles(0x98); got != 0x89 {
		t.Errorf("SwapNibbles(0x98) = %02X; want 89", got)
	}
}
