package iso7816

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

func TestBinaryCommands(t *testing.T) {
	cls, _ := NewClass(0x00)

	tests := []struct {
		name     string
		build    func() (*CommandAPDU, error)
		expected []byte
	}{
		{
			name:     "Read 10 bytes at 0",
			build:    func() (*CommandAPDU, error) { return ReadBinary(cls, 0, 10) },
			expected: tlv.Hex("00 B0 00 00 0A"),
		},
		{
			name:     "Read 256 bytes at 0x0100",
			build:    func() (*CommandAPDU, error) { return ReadBinary(cls, 0x0100, 256) },
			expected: tlv.Hex("00 B0 01 00 00"),
		},
		{
			name:     "Update 2 bytes at 0x7FFF",
			build:    func() (*CommandAPDU, error) { return UpdateBinary(cls, 0x7FFF, []byte{0xDE, 0xAD}) },
			expected: tlv.Hex("00 D6 7F FF 02 DE AD"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.build()
			if err != nil {
				t.Fatalf("build error = %v", err)
			}
			got, err := cmd.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Bytes() = %X, want %X", got, tt.expected)
			}
		})
	}
}

func TestBinaryCommandErrors(t *testing.T) {
	cls, _ := NewClass(0x00)

	if _, err := ReadBinary(cls, 0x8000, 1); err == nil {
		t.Error("ReadBinary accepted an offset above 7FFF")
	}
	if _, err := ReadBinary(cls, 0, 0); !errors.Is(err, ErrMalformedLength) {
		t.Errorf("ReadBinary(ne 0) error = %v", err)
	}
	if _, err := UpdateBinary(cls, 0, nil); !errors.Is(err, ErrMalformedLength) {
		t.Errorf("UpdateBinary(no data) error = %v", err)
	}
}

func TestUpdateRecord(t *testing.T) {
	cls, _ := NewClass(0x00)

	cmd, err := UpdateRecord(cls, 0, 3, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	got, _ := cmd.Bytes()
	if want := tlv.Hex("00 DC 03 04 02 01 02"); !bytes.Equal(got, want) {
		t.Errorf("UpdateRecord() = %X, want %X", got, want)
	}

	if _, err := UpdateRecord(cls, 0, 0, []byte{0x01}); err == nil {
		t.Error("UpdateRecord accepted record 0")
	}
	if _, err := UpdateRecord(cls, 0, 1, make([]byte, 256)); !errors.Is(err, ErrMalformedLength) {
		t.Errorf("UpdateRecord(256 bytes) error = %v", err)
	}
}

func TestManageChannel(t *testing.T) {
	cls, _ := NewClass(0x00)

	got, _ := OpenChannel(cls).Bytes()
	if want := tlv.Hex("00 70 00 00 01"); !bytes.Equal(got, want) {
		t.Errorf("OpenChannel() = %X, want %X", got, want)
	}

	onOne, _ := cls.WithChannel(1)
	cmd, err := CloseChannel(onOne, 1)
	if err != nil {
		t.Fatalf("CloseChannel() error = %v", err)
	}
	got, _ = cmd.Bytes()
	if want := tlv.Hex("01 70 80 01"); !bytes.Equal(got, want) {
		t.Errorf("CloseChannel() = %X, want %X", got, want)
	}

	if _, err := CloseChannel(cls, 0); err == nil {
		t.Error("CloseChannel accepted the basic channel")
	}

	ch, err := ParseOpenChannel(&ResponseAPDU{Data: []byte{0x02}, Status: SW_NO_ERROR})
	if err != nil || ch != 2 {
		t.Errorf("ParseOpenChannel() = %d, %v", ch, err)
	}
	if _, err := ParseOpenChannel(&ResponseAPDU{Data: nil, Status: SW_NO_ERROR}); err == nil {
		t.Error("ParseOpenChannel accepted an empty answer")
	}
}
