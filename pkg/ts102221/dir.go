package ts102221

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// EF.DIR (TS 102 221 13.1) holds one application template per record,
// followed by 'FF' padding up to the record length.

// TagApplicationTemplate wraps every EF.DIR record.
const TagApplicationTemplate tlv.Tag = 0x61

// ApplicationTemplateTable names the data objects of an application template.
var ApplicationTemplateTable = tlv.Table{
	{Tag: 0x4F, Name: "Application identifier", Shape: tlv.ShapeBytes},
	{Tag: 0x50, Name: "Application label", Shape: tlv.ShapeASCII},
	{Tag: 0x51, Name: "Path", Shape: tlv.ShapeBytes},
	{Tag: 0x52, Name: "Command to perform", Shape: tlv.ShapeBytes},
	{Tag: 0x53, Name: "Discretionary data", Shape: tlv.ShapeBytes},
	{Tag: 0x73, Name: "Discretionary template", Shape: tlv.ShapeTemplate},
	{Tag: 0x5F50, Name: "URL", Shape: tlv.ShapeASCII},
}

// ApplicationTemplate is the typed view of a '61' template.
type ApplicationTemplate struct {
	AID                   []byte `tlv:"4F"`
	Label                 []byte `tlv:"50" fmt:"ascii"`
	Path                  []byte `tlv:"51"`
	CommandToPerform      []byte `tlv:"52"`
	DiscretionaryData     []byte `tlv:"53"`
	DiscretionaryTemplate []byte `tlv:"73"`
	URL                   []byte `tlv:"5F50" fmt:"ascii"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// DirRecord is the content of one EF.DIR record.
type DirRecord struct {
	Applications []ApplicationTemplate `tlv:"61"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseDirRecord maps a raw EF.DIR record onto DirRecord. Padding is ignored.
func ParseDirRecord(data []byte) (*DirRecord, error) {
	top, err := tlv.Decode(tlv.Table{{Tag: TagApplicationTemplate, Name: "Application template", Shape: tlv.ShapeTemplate}}, data)
	if err != nil {
		return nil, fmt.Errorf("decoding EF.DIR record: %w", err)
	}
	if _, ok := top.Find(TagApplicationTemplate); !ok {
		return nil, fmt.Errorf("missing mandatory application template (tag %s)", TagApplicationTemplate)
	}

	record := &DirRecord{}
	if err := tlv.UnmarshalElements(top, record); err != nil {
		return nil, fmt.Errorf("failed to map EF.DIR record: %w", err)
	}
	return record, nil
}

// Describe generates a report for all applications found in the record.
func (r *DirRecord) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EF.DIR RECORD ===")

	tlv.WriteStructFields(&sb, "Record", r)
	for i, app := range r.Applications {
		tlv.WriteStructFields(&sb, fmt.Sprintf("App[%d]", i+1), app)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Applications collects the application templates of every readable EF.DIR record.
// Empty records are skipped.
func Applications(records []*sim.File) ([]ApplicationTemplate, error) {
	var out []ApplicationTemplate
	for _, f := range records {
		if len(trimFiller(f.Encoded)) == 0 {
			continue
		}
		r, err := ParseDirRecord(f.Encoded)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", f.Record, err)
		}
		out = append(out, r.Applications...)
	}
	return out, nil
}

const (
	dirTemplateName = "application template"
	dirPaddingName  = "padding"
)

// decodeDir turns a record into an "application template" group holding one Bytes element
// per data object, named after ApplicationTemplateTable, followed by the padding.
// Objects absent from the table are named by their tag in hex.
func decodeDir(desc *sim.FileDescriptor, data []byte) (*sim.DecodedData, error) {
	top, err := tlv.Decode(tlv.Table{{Tag: TagApplicationTemplate, Shape: tlv.ShapeTemplate}}, data)
	if err != nil {
		return nil, err
	}
	if len(top) > 1 || (len(top) == 1 && top[0].Tag != TagApplicationTemplate) {
		return nil, fmt.Errorf("record holds %d data objects, want a single application template", len(top))
	}

	dd := &sim.DecodedData{File: desc}
	used := 0
	if len(top) == 1 {
		objects, err := tlv.Decode(ApplicationTemplateTable, top[0].Value)
		if err != nil {
			return nil, fmt.Errorf("application template: %w", err)
		}

		group := sim.Group{Meta: sim.Meta{Name: dirTemplateName}}
		for _, o := range objects {
			name := o.Name
			if !o.Known {
				name = o.Tag.String()
			}
			group.Elements = append(group.Elements, sim.Bytes{
				Meta:  sim.Meta{Name: name, Repr: sim.ReprHex, Length: len(o.Value)},
				Value: bytes.Clone(o.Value),
			})
		}

		tpl, err := encodeTemplate(group)
		if err != nil {
			return nil, err
		}
		used = len(tpl)
		dd.Elements = append(dd.Elements, group)
	}
	if used > len(data) {
		return nil, fmt.Errorf("%X: %w", data, ErrNotCanonical)
	}
	dd.Elements = append(dd.Elements, sim.None{Meta: sim.Meta{Name: dirPaddingName, Length: len(data) - used}})

	back, err := encodeDir(nil, dd)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(back, data) {
		return nil, fmt.Errorf("%X would be written back as %X: %w", data, back, ErrNotCanonical)
	}
	return dd, nil
}

func encodeDir(_ *sim.File, dd *sim.DecodedData) ([]byte, error) {
	if dd == nil {
		return nil, errors.New("nothing to encode")
	}

	var out []byte
	for _, e := range dd.Elements {
		switch v := e.(type) {
		case sim.Group:
			tpl, err := encodeTemplate(v)
			if err != nil {
				return nil, err
			}
			out = append(out, tpl...)
		case sim.None:
			pad, err := sim.EncodeElements([]sim.Element{v})
			if err != nil {
				return nil, err
			}
			out = append(out, pad...)
		default:
			return nil, fmt.Errorf("unexpected %s element %q in EF.DIR record", e.Kind(), e.Info().Name)
		}
	}
	return out, nil
}

func encodeTemplate(g sim.Group) ([]byte, error) {
	objects := make([]tlv.Element, 0, len(g.Elements))
	for _, e := range g.Elements {
		b, ok := e.(sim.Bytes)
		if !ok {
			return nil, fmt.Errorf("%s: %s element %q cannot be a data object", g.Name, e.Kind(), e.Info().Name)
		}
		tag, err := templateTag(b.Name)
		if err != nil {
			return nil, err
		}
		objects = append(objects, tlv.Element{Tag: tag, Value: b.Value})
	}

	inner, err := tlv.Encode(objects)
	if err != nil {
		return nil, err
	}
	return tlv.Encode([]tlv.Element{{Tag: TagApplicationTemplate, Value: inner}})
}

func templateTag(name string) (tlv.Tag, error) {
	for _, d := range ApplicationTemplateTable {
		if d.Name == name {
			return d.Tag, nil
		}
	}
	raw, err := strconv.ParseUint(name, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("no tag for data object %q", name)
	}
	return tlv.Tag(raw), nil
}
