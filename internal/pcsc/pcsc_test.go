package pcsc

import (
	"errors"
	"testing"
)

func TestOpen_UnknownBackend(t *testing.T) {
	drv, err := Open("winscard2")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Open: got %v, want ErrUnknownBackend", err)
	}
	if drv != nil {
		t.Errorf("Open returned a driver alongside an error")
	}
}

func TestBackends(t *testing.T) {
	got := Backends()
	if len(got) != 2 || got[0] != BackendSCard || got[1] != BackendPCSCLite {
		t.Errorf("Backends() = %v", got)
	}
}
