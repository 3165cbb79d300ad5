package sim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/tlv"
)

// SESSION MODEL:
//
// Driver (PC/SC context) ──OpenReader──> Reader ──OpenCard──> Card ──> Channel 0..19
//
// A Card owns the connection and serialises every exchange with a mutex: only one APDU
// can be in flight toward a card, whatever the channel. Each Channel tracks its own
// selection state:
//
//	Unselected ──SELECT ok──> Selected(file) ──SELECT ok──> Selected(other)
//
// A SELECT whose status word is classified as an error leaves the state unchanged.
// READ / UPDATE operate on the selected EF and fail with ErrNoFileSelected otherwise.
//
// Transceive is the only place where bytes reach the driver. A driver failure surfaces as
// *iso7816.TransportError; a card answering with an error status word is a *StatusError.
// Nothing is retried.

const (
	// Largest READ BINARY and UPDATE BINARY payloads that fit short APDUs.
	maxReadChunk   = 256
	maxUpdateChunk = 255

	// maxRecords is the highest record number P1 can address.
	maxRecords = 254
)

// Conn is an open connection to a card.
type Conn interface {
	iso7816.Transmitter
	Close() error
}

// Driver enumerates readers and connects to the card they hold.
type Driver interface {
	ListReaders() ([]string, error)
	Connect(reader string) (Conn, error)
	Release() error
}

// Reader is a reader picked from a driver.
type Reader struct {
	Name   string
	Index  int
	driver Driver
}

// OpenReader picks a reader by name or, when name is empty, by position in the listing.
func OpenReader(driver Driver, idx int, name string) (*Reader, error) {
	readers, err := driver.ListReaders()
	if err != nil {
		return nil, &iso7816.TransportError{Op: "list readers", Err: err}
	}

	if name != "" {
		for i, r := range readers {
			if r == name {
				return &Reader{Name: r, Index: i, driver: driver}, nil
			}
		}
		return nil, fmt.Errorf("%q: %w", name, ErrReaderNotFound)
	}

	if idx < 0 || idx >= len(readers) {
		return nil, fmt.Errorf("index %d of %d readers: %w", idx, len(readers), ErrReaderNotFound)
	}
	return &Reader{Name: readers[idx], Index: idx, driver: driver}, nil
}

// Close releases the driver.
func (r *Reader) Close() error {
	if err := r.driver.Release(); err != nil {
		return &iso7816.TransportError{Op: "release", Reader: r.Name, Err: err}
	}
	return nil
}

// Option configures a Card.
type Option func(*Card) error

// WithLogger sends one debug record per APDU exchange to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Card) error {
		if logger == nil {
			return errors.New("nil logger")
		}
		c.logger = logger
		return nil
	}
}

// WithClass sets the CLA used on the basic channel, e.g. 'A0' for GSM 11.11 SIMs.
func WithClass(cla iso7816.Class) Option {
	return func(c *Card) error {
		if cla.Channel != 0 {
			return fmt.Errorf("class 0x%02X addresses channel %d, want the basic channel", cla.Raw, cla.Channel)
		}
		c.class = cla
		return nil
	}
}

// Card is a card session bound to a profile.
type Card struct {
	Reader  *Reader
	Profile *Profile

	// mu serialises exchanges across all channels.
	mu     sync.Mutex
	conn   Conn
	client *iso7816.Client

	class  iso7816.Class
	logger *slog.Logger

	chMu     sync.Mutex
	channels map[uint8]*Channel
}

// OpenCard connects to the card in r and binds it to profile.
func (r *Reader) OpenCard(profile *Profile, opts ...Option) (*Card, error) {
	if profile == nil {
		return nil, errors.New("nil profile")
	}

	cla, _ := iso7816.NewClass(0x00)
	c := &Card{
		Reader:   r,
		Profile:  profile,
		class:    cla,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		channels: make(map[uint8]*Channel),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("card option: %w", err)
		}
	}

	conn, err := r.driver.Connect(r.Name)
	if err != nil {
		return nil, &iso7816.TransportError{Op: "connect", Reader: r.Name, Err: err}
	}
	c.conn = conn
	c.client = iso7816.NewClient(conn)
	c.channels[0] = &Channel{card: c, number: 0, class: c.class}

	return c, nil
}

// Channel returns an open logical channel. Channel 0 is always open.
func (c *Card) Channel(n uint8) (*Channel, bool) {
	c.chMu.Lock()
	defer c.chMu.Unlock()
	ch, ok := c.channels[n]
	return ch, ok
}

// OpenChannel asks the card for a new logical channel.
func (c *Card) OpenChannel() (*Channel, error) {
	basic, _ := c.Channel(0)

	resp, err := basic.exec("MANAGE CHANNEL", iso7816.OpenChannel(c.class))
	if err != nil {
		return nil, err
	}

	n, err := iso7816.ParseOpenChannel(resp)
	if err != nil {
		return nil, err
	}

	cla, err := c.class.WithChannel(n)
	if err != nil {
		return nil, err
	}

	ch := &Channel{card: c, number: n, class: cla}
	c.chMu.Lock()
	c.channels[n] = ch
	c.chMu.Unlock()
	return ch, nil
}

// Close disconnects from the card. Open logical channels are dropped with the connection.
func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chMu.Lock()
	for _, ch := range c.channels {
		ch.closed = true
	}
	c.chMu.Unlock()

	if err := c.conn.Close(); err != nil {
		return &iso7816.TransportError{Op: "disconnect", Reader: c.Reader.Name, Err: err}
	}
	return nil
}

// Channel is a logical channel of a card and its selection state.
// A Channel must not be used from several goroutines without external locking.
type Channel struct {
	card   *Card
	number uint8
	class  iso7816.Class
	closed bool // guarded by card.mu

	cwd *FileDescriptor
	adf *FileDescriptor
	fcp *iso7816.FileControlParameters
}

// Number returns the logical channel number.
func (ch *Channel) Number() uint8 {
	return ch.number
}

// Current returns the selected file, or nil while the channel is unselected.
func (ch *Channel) Current() *FileDescriptor {
	return ch.cwd
}

// FCP returns the parameters returned by the last successful SELECT, if any.
func (ch *Channel) FCP() *iso7816.FileControlParameters {
	return ch.fcp
}

// Close releases a logical channel. The basic channel cannot be closed.
func (ch *Channel) Close() error {
	if ch.number == 0 {
		return errors.New("the basic channel cannot be closed")
	}

	cmd, err := iso7816.CloseChannel(ch.card.class, ch.number)
	if err != nil {
		return err
	}

	basic, _ := ch.card.Channel(0)
	if _, err := basic.exec("MANAGE CHANNEL", cmd); err != nil {
		return err
	}

	ch.card.chMu.Lock()
	delete(ch.card.channels, ch.number)
	ch.card.chMu.Unlock()

	ch.card.mu.Lock()
	ch.closed = true
	ch.card.mu.Unlock()
	ch.cwd, ch.adf, ch.fcp = nil, nil, nil
	return nil
}

// Transceive sends cmd and returns the whole exchange, GET RESPONSE and re-issued
// commands included. Status words are returned as data, never as errors.
func (ch *Channel) Transceive(cmd *iso7816.CommandAPDU) (iso7816.Trace, error) {
	ch.card.mu.Lock()
	if ch.closed {
		ch.card.mu.Unlock()
		return nil, fmt.Errorf("channel %d: %w", ch.number, ErrChannelClosed)
	}
	trace, err := ch.card.client.Send(cmd)
	ch.card.mu.Unlock()

	for _, tx := range trace {
		raw, _ := tx.Command.Bytes()
		ch.card.logger.Debug("apdu",
			"reader", ch.card.Reader.Name,
			"channel", ch.number,
			"command", tlv.Spaced(raw),
			"sw", fmt.Sprintf("%04X", uint16(tx.Response.Status)))
	}

	var te *iso7816.TransportError
	if errors.As(err, &te) && te.Reader == "" {
		te.Reader = ch.card.Reader.Name
	}
	if err != nil {
		ch.card.logger.Debug("apdu failed", "channel", ch.number, "error", err)
	}
	return trace, err
}

// exec transceives cmd and turns error-class status words into *StatusError.
func (ch *Channel) exec(op string, cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	trace, err := ch.Transceive(cmd)
	if err != nil {
		return nil, err
	}

	cls := trace.Classify(ch.card.Profile.StatusWords)
	if cls.IsError() {
		return nil, &StatusError{Op: op, SW: trace.Status(), Classification: cls}
	}
	return trace.Last().Response, nil
}

// dir returns the DF the card considers current.
func (ch *Channel) dir() *FileDescriptor {
	switch {
	case ch.cwd == nil:
		return ch.card.Profile.Tree.Root()
	case ch.cwd.Type.IsEF():
		return ch.cwd.Parent()
	default:
		return ch.cwd
	}
}

// resolve looks a file up from base: base itself and its children, then its parent and
// siblings, then the MF and its children.
func (ch *Channel) resolve(base *FileDescriptor, match func(*FileDescriptor) *FileDescriptor) *FileDescriptor {
	root := ch.card.Profile.Tree.Root()
	for _, scope := range []*FileDescriptor{base, base.Parent(), root} {
		if scope == nil {
			continue
		}
		if d := match(scope); d != nil {
			return d
		}
	}
	return nil
}

func (ch *Channel) start() *FileDescriptor {
	if ch.cwd != nil {
		return ch.cwd
	}
	return ch.card.Profile.Tree.Root()
}

// Select selects a file by short or long name.
func (ch *Channel) Select(name string) (*iso7816.FileControlParameters, error) {
	d := ch.resolve(ch.start(), func(p *FileDescriptor) *FileDescriptor { return FindByName(p, name) })
	if d == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrFileNotFound)
	}
	return ch.SelectFile(d)
}

// SelectID selects a file by FID.
func (ch *Channel) SelectID(fid uint16) (*iso7816.FileControlParameters, error) {
	d := ch.resolve(ch.start(), func(p *FileDescriptor) *FileDescriptor { return FindByID(p, fid) })
	if d == nil {
		return nil, fmt.Errorf("%04X: %w", fid, ErrFileNotFound)
	}
	return ch.SelectFile(d)
}

// SelectPath resolves names one after the other, each relative to the previous one,
// and selects the last file.
func (ch *Channel) SelectPath(names ...string) (*iso7816.FileControlParameters, error) {
	if len(names) == 0 {
		return nil, errors.New("empty path")
	}

	d := ch.start()
	for _, name := range names {
		next := ch.resolve(d, func(p *FileDescriptor) *FileDescriptor { return FindByName(p, name) })
		if next == nil {
			return nil, fmt.Errorf("%q below %s: %w", name, d, ErrFileNotFound)
		}
		d = next
	}
	return ch.SelectFile(d)
}

// SelectFile selects a file of the profile tree.
//
// The MF and children, parent or self of the current DF are selected by FID, ADFs by AID,
// anything else by path from the MF. Files of an application that is not active require
// the ADF to be selected first; if the second step fails the channel stays on the ADF.
func (ch *Channel) SelectFile(d *FileDescriptor) (*iso7816.FileControlParameters, error) {
	if d == nil || d.Tree() != ch.card.Profile.Tree {
		return nil, fmt.Errorf("file outside profile %q: %w", ch.card.Profile.Name, ErrFileNotFound)
	}

	dir := ch.dir()
	switch {
	case d.Type == FileTypeADF:
		return ch.selectOne(d, iso7816.SelectApplication(ch.class, d.DFName))
	case d.Type == FileTypeMF, d == dir, d.Parent() == dir, d == dir.Parent():
		return ch.selectOne(d, iso7816.SelectFID(ch.class, d.FID))
	}

	if app := applicationOf(d); app != nil && app != ch.adf {
		if _, err := ch.selectOne(app, iso7816.SelectApplication(ch.class, app.DFName)); err != nil {
			return nil, err
		}
		if d.Parent() == app {
			return ch.selectOne(d, iso7816.SelectFID(ch.class, d.FID))
		}
	}

	cmd, err := iso7816.SelectByPath(ch.class, true, d.Path()[1:])
	if err != nil {
		return nil, err
	}
	return ch.selectOne(d, cmd)
}

func applicationOf(d *FileDescriptor) *FileDescriptor {
	for n := d; n != nil; n = n.Parent() {
		if n.Type == FileTypeADF {
			return n
		}
	}
	return nil
}

func (ch *Channel) selectOne(d *FileDescriptor, cmd *iso7816.CommandAPDU) (*iso7816.FileControlParameters, error) {
	resp, err := ch.exec("SELECT "+d.String(), cmd)
	if err != nil {
		return nil, err
	}

	var fcp *iso7816.FileControlParameters
	var perr error
	if len(resp.Data) > 0 && resp.Data[0] == byte(iso7816.FCPTag) {
		if fcp, perr = iso7816.ParseFCP(resp.Data); perr != nil {
			perr = &ParseError{File: d, Err: perr}
		}
	}

	// The card accepted the SELECT, so the state follows even if the FCP is unreadable.
	ch.cwd, ch.fcp = d, fcp
	if app := applicationOf(d); app != nil {
		ch.adf = app
	}
	return fcp, perr
}

// Status sends STATUS and returns the FCP of the current DF.
func (ch *Channel) Status() (*iso7816.FileControlParameters, error) {
	resp, err := ch.exec("STATUS", iso7816.StatusCommand(ch.class))
	if err != nil {
		return nil, err
	}
	return iso7816.ParseFCP(resp.Data)
}

// TerminateApplication ends the session of the active application. The MF becomes the
// current directory.
func (ch *Channel) TerminateApplication() error {
	if ch.adf == nil {
		return fmt.Errorf("no active application: %w", ErrNoFileSelected)
	}

	cmd := iso7816.TerminateApplication(ch.class, ch.adf.DFName)
	if _, err := ch.exec("TERMINATE "+ch.adf.String(), cmd); err != nil {
		return err
	}
	ch.cwd, ch.adf, ch.fcp = ch.card.Profile.Tree.Root(), nil, nil
	return nil
}

func (ch *Channel) requireEF(record bool) (*FileDescriptor, error) {
	d := ch.cwd
	switch {
	case d == nil:
		return nil, ErrNoFileSelected
	case !d.Type.IsEF():
		return nil, fmt.Errorf("%s: %w", d, ErrNotEF)
	case d.EFType.IsRecord() != record:
		return nil, fmt.Errorf("%s is %s: %w", d, d.EFType, ErrWrongStructure)
	}
	return d, nil
}

// ReadBinary reads n bytes of the selected transparent EF.
func (ch *Channel) ReadBinary(offset uint16, n int) ([]byte, error) {
	if _, err := ch.requireEF(false); err != nil {
		return nil, err
	}

	cmd, err := iso7816.ReadBinary(ch.class, offset, n)
	if err != nil {
		return nil, err
	}
	resp, err := ch.exec("READ BINARY", cmd)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateBinary writes data into the selected transparent EF.
func (ch *Channel) UpdateBinary(offset uint16, data []byte) error {
	if _, err := ch.requireEF(false); err != nil {
		return err
	}

	for pos := 0; pos < len(data); pos += maxUpdateChunk {
		end := min(pos+maxUpdateChunk, len(data))
		cmd, err := iso7816.UpdateBinary(ch.class, offset+uint16(pos), data[pos:end])
		if err != nil {
			return err
		}
		if _, err := ch.exec("UPDATE BINARY", cmd); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecord reads record rec of the selected record EF.
func (ch *Channel) ReadRecord(rec uint8) ([]byte, error) {
	if _, err := ch.requireEF(true); err != nil {
		return nil, err
	}

	var length int
	if ch.fcp != nil {
		length = int(ch.fcp.Descriptor.RecordLength)
	}
	cmd, err := iso7816.NewReadRecordCommand(ch.class, 0, rec, iso7816.RecordAbsolute, length)
	if err != nil {
		return nil, err
	}
	resp, err := ch.exec("READ RECORD", cmd)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateRecord overwrites record rec of the selected record EF.
func (ch *Channel) UpdateRecord(rec uint8, data []byte) error {
	if _, err := ch.requireEF(true); err != nil {
		return err
	}

	cmd, err := iso7816.UpdateRecord(ch.class, 0, rec, data)
	if err != nil {
		return err
	}
	_, err = ch.exec("UPDATE RECORD", cmd)
	return err
}

// ReadFile reads the whole selected transparent EF, using the file size of its FCP.
// Without a size, a single 256-byte read is attempted.
func (ch *Channel) ReadFile() (*File, error) {
	d, err := ch.requireEF(false)
	if err != nil {
		return nil, err
	}

	size := maxReadChunk
	if ch.fcp != nil && ch.fcp.FileSize > 0 {
		size = int(ch.fcp.FileSize)
	}

	data := make([]byte, 0, size)
	for len(data) < size {
		chunk, err := ch.ReadBinary(uint16(len(data)), min(maxReadChunk, size-len(data)))
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		data = append(data, chunk...)
	}

	return NewFile(d, data), nil
}

// ReadRecords reads every record of the selected record EF. When the FCP gives no record
// count, records are read until the card reports that the next one does not exist.
func (ch *Channel) ReadRecords() ([]*File, error) {
	d, err := ch.requireEF(true)
	if err != nil {
		return nil, err
	}

	count, known := maxRecords, false
	if ch.fcp != nil && ch.fcp.Descriptor.NumberOfRecords > 0 {
		count, known = int(ch.fcp.Descriptor.NumberOfRecords), true
	}
	if count > maxRecords {
		return nil, fmt.Errorf("%s announces %d records, at most %d are addressable: %w",
			d, count, maxRecords, ErrTooManyRecords)
	}

	var files []*File
	for rec := 1; rec <= count; rec++ {
		data, err := ch.ReadRecord(uint8(rec))
		var se *StatusError
		if !known && errors.As(err, &se) && se.SW == 0x6A83 {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec, err)
		}

		f := NewFile(d, data)
		f.Record = uint8(rec)
		files = append(files, f)
	}
	return files, nil
}

// WriteFile encodes f and writes it to its transparent EF, selecting it first if needed.
func (ch *Channel) WriteFile(f *File) error {
	if err := ch.ensureSelected(f.Desc); err != nil {
		return err
	}

	raw, err := f.Encode()
	if err != nil {
		return err
	}
	return ch.UpdateBinary(0, raw)
}

// WriteRecord encodes f and writes it to record rec of its EF, selecting it first if needed.
func (ch *Channel) WriteRecord(rec uint8, f *File) error {
	if err := ch.ensureSelected(f.Desc); err != nil {
		return err
	}

	raw, err := f.Encode()
	if err != nil {
		return err
	}
	if err := ch.UpdateRecord(rec, raw); err != nil {
		return err
	}
	f.Record = rec
	return nil
}

func (ch *Channel) ensureSelected(d *FileDescriptor) error {
	if d == nil {
		return ErrNoFileSelected
	}
	if ch.cwd == d {
		return nil
	}
	_, err := ch.SelectFile(d)
	return err
}
