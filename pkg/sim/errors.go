package sim

import (
	"errors"
	"fmt"

	"github.com/gregLibert/sim-card/pkg/iso7816"
)

var (
	// ErrNoFileSelected reports a file access on a channel that has not selected anything yet.
	ErrNoFileSelected = errors.New("no file selected")

	// ErrNotEF reports a data access while the current file is a DF.
	ErrNotEF = errors.New("current file is not an EF")

	// ErrWrongStructure reports a record command on a transparent EF or the reverse.
	ErrWrongStructure = errors.New("command incompatible with file structure")

	// ErrFileNotFound reports a name or FID that the profile cannot resolve.
	ErrFileNotFound = errors.New("file not found in profile")

	// ErrReaderNotFound reports a reader name or index absent from the driver listing.
	ErrReaderNotFound = errors.New("reader not found")

	// ErrChannelClosed reports a use of a logical channel after Close.
	ErrChannelClosed = errors.New("channel closed")

	// ErrTooManyRecords reports a record EF whose FCP announces more records than P1 can address.
	ErrTooManyRecords = errors.New("record count out of range")
)

// ParseError is returned when a parse hook rejects the content of a file.
type ParseError struct {
	File *FileDescriptor
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EncodeError is returned when an encode hook cannot serialise decoded data.
type EncodeError struct {
	File *FileDescriptor
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.File, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// StatusError carries a response whose status word the profile classifies as an error.
// The card answered: this is not a transport failure.
type StatusError struct {
	Op             string
	SW             iso7816.StatusWord
	Classification iso7816.Classification
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Classification)
}

// Unwrap exposes iso7816.ErrUnknownStatusWord for words missing from the table.
func (e *StatusError) Unwrap() error {
	return e.Classification.Err()
}
