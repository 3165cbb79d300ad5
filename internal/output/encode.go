package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Emit writes v in the machine readable format selected by opts: CBOR takes precedence
// over JSON. It reports false when opts asks for the human readable form.
func Emit(w io.Writer, v any, opts Options) (bool, error) {
	switch {
	case opts.CBOR:
		return true, writeCBOR(w, v)
	case opts.JSON:
		return true, writeJSON(w, v)
	default:
		return false, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON encoding error: %w", err)
	}
	return nil
}

func writeCBOR(w io.Writer, v any) error {
	b, err := cborEncMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("CBOR encoding error: %w", err)
	}
	_, err = w.Write(b)
	return err
}
