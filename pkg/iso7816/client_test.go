package iso7816

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/sim-card/pkg/tlv"
)

// scriptedCard answers each Transmit with the next scripted response and records commands.
type scriptedCard struct {
	responses [][]byte
	err       error
	sent      []string
}

func (s *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	s.sent = append(s.sent, strings.ToUpper(tlv.Spaced(cmd)))
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func TestClient_Send(t *testing.T) {
	cls, _ := NewClass(0x00)
	gsm, _ := NewClass(0xA0)

	tests := []struct {
		name      string
		cmd       *CommandAPDU
		responses [][]byte
		wantSent  []string
		wantSW    StatusWord
		wantData  []byte
	}{
		{
			name:      "Direct answer",
			cmd:       StatusCommand(cls),
			responses: [][]byte{tlv.Hex("62 00 90 00")},
			wantSent:  []string{"00 F2 00 00 00"},
			wantSW:    SW_NO_ERROR,
			wantData:  tlv.Hex("6200"),
		},
		{
			name:      "61XX triggers GET RESPONSE",
			cmd:       SelectFID(cls, 0x2FE2),
			responses: [][]byte{tlv.Hex("61 04"), tlv.Hex("62 02 8A 01 90 00")},
			wantSent:  []string{"00 A4 00 04 02 2F E2", "00 C0 00 00 04"},
			wantSW:    SW_NO_ERROR,
			wantData:  tlv.Hex("6202 8A01"),
		},
		{
			name:      "9FXX triggers GET RESPONSE on the GSM class",
			cmd:       SelectFID(gsm, 0x3F00),
			responses: [][]byte{tlv.Hex("9F 02"), tlv.Hex("AA BB 90 00")},
			wantSent:  []string{"A0 A4 00 04 02 3F 00", "A0 C0 00 00 02"},
			wantSW:    SW_NO_ERROR,
			wantData:  tlv.Hex("AABB"),
		},
		{
			name:      "6CXX re-issues with the corrected Le",
			cmd:       ReadRecord(cls, 0, 1),
			responses: [][]byte{tlv.Hex("6C 1C"), append(make([]byte, 0x1C), 0x90, 0x00)},
			wantSent:  []string{"00 B2 01 04 00", "00 B2 01 04 1C"},
			wantSW:    SW_NO_ERROR,
			wantData:  make([]byte, 0x1C),
		},
		{
			name:      "6100 means 256 bytes",
			cmd:       StatusCommand(cls),
			responses: [][]byte{tlv.Hex("61 00"), tlv.Hex("90 00")},
			wantSent:  []string{"00 F2 00 00 00", "00 C0 00 00 00"},
			wantSW:    SW_NO_ERROR,
			wantData:  []byte{},
		},
		{
			name:      "Error status is data, not an error",
			cmd:       SelectFID(cls, 0x6F99),
			responses: [][]byte{tlv.Hex("6A 82")},
			wantSent:  []string{"00 A4 00 04 02 6F 99"},
			wantSW:    SW_ERR_FILE_NOT_FOUND,
			wantData:  []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &scriptedCard{responses: tt.responses}
			trace, err := NewClient(card).Send(tt.cmd)
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}

			if diff := cmp.Diff(tt.wantSent, card.sent); diff != "" {
				t.Errorf("Sent commands mismatch (-want +got):\n%s", diff)
			}

			last := trace.Last()
			if last.Response.Status != tt.wantSW {
				t.Errorf("final SW = %04X, want %04X", uint16(last.Response.Status), uint16(tt.wantSW))
			}
			if diff := cmp.Diff(tt.wantData, last.Response.Data); diff != "" {
				t.Errorf("final data mismatch (-want +got):\n%s", diff)
			}
			if len(trace) != len(tt.responses) {
				t.Errorf("trace has %d steps, want %d", len(trace), len(tt.responses))
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	cause := errors.New("reader removed")
	card := &scriptedCard{err: cause}
	cls, _ := NewClass(0x00)

	_, err := NewClient(card).Send(StatusCommand(cls))

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Send() error = %v, want *TransportError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("TransportError does not unwrap to the cause")
	}
	if len(card.sent) != 1 {
		t.Errorf("transport failure was retried: %d transmissions", len(card.sent))
	}
}

func TestClient_TruncatedResponse(t *testing.T) {
	card := &scriptedCard{responses: [][]byte{{0x90}}}
	cls, _ := NewClass(0x00)

	_, err := NewClient(card).Send(StatusCommand(cls))
	if !errors.Is(err, ErrTruncatedResponse) {
		t.Errorf("Send() error = %v, want ErrTruncatedResponse", err)
	}
}

func TestClient_EndlessChainIsBounded(t *testing.T) {
	responses := make([][]byte, maxProtocolSteps+1)
	for i := range responses {
		responses[i] = tlv.Hex("61 01")
	}
	card := &scriptedCard{responses: responses}
	cls, _ := NewClass(0x00)

	trace, err := NewClient(card).Send(StatusCommand(cls))
	if err == nil {
		t.Fatal("Send() did not stop an endless GET RESPONSE chain")
	}
	if len(trace) != maxProtocolSteps {
		t.Errorf("trace has %d steps, want %d", len(trace), maxProtocolSteps)
	}
}
