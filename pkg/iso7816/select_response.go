package iso7816

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// SELECT RESPONSE DATA (ISO/IEC 7816-4 §7.4.1):
// What a card returns to SELECT depends on the selection control of P2 (bits 4-3).
//   - Return FCI: an optional '6F' template holding '62' and/or '64', or their objects flat.
//   - Return FCP: a '62' template. This is what UICCs are asked for.
//   - Return FMD: a '64' template.
//   - No data.
// A first byte of 'C0' or above is not a BER-TLV tag: the answer is proprietary.

// FCPTemplate maps the data objects of an FCP by tag.
type FCPTemplate struct {
	FileSize               uint32 `tlv:"80"`
	TotalFileSize          uint32 `tlv:"81"`
	FileDescriptor         []byte `tlv:"82"`
	FileIdentifier         []byte `tlv:"83"`
	DFName                 []byte `tlv:"84" fmt:"ascii"`
	ProprietaryInfo        []byte `tlv:"85"`
	ShortFileIdentifier    []byte `tlv:"88"`
	LifeCycleStatus        []byte `tlv:"8A"`
	SecurityAttrReferenced []byte `tlv:"8B"`
	SecurityAttrCompact    []byte `tlv:"8C"`
	ProprietaryTemplate    []byte `tlv:"A5"`
	SecurityAttrExpanded   []byte `tlv:"AB"`
	PINStatusTemplate      []byte `tlv:"C6"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FMDTemplate maps the file management data objects.
type FMDTemplate struct {
	ApplicationIdentifier []byte `tlv:"84" fmt:"ascii"`
	ApplicationLabel      []byte `tlv:"50" fmt:"ascii"`
	DiscretionaryData     []byte `tlv:"53"`
	DiscretionaryTemplate []byte `tlv:"73"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

const (
	fciTag tlv.Tag = 0x6F
	fmdTag tlv.Tag = 0x64
)

var selectTemplates = tlv.Table{
	{Tag: fciTag, Name: "File Control Information", Shape: tlv.ShapeTemplate},
	{Tag: FCPTag, Name: "File Control Parameters", Shape: tlv.ShapeTemplate},
	{Tag: fmdTag, Name: "File Management Data", Shape: tlv.ShapeTemplate},
}

// FMDTable names the objects of an FMD template.
var FMDTable = tlv.Table{
	{Tag: 0x84, Name: "Application Identifier", Shape: tlv.ShapeBytes},
	{Tag: 0x50, Name: "Application Label", Shape: tlv.ShapeASCII},
	{Tag: 0x53, Name: "Discretionary Data", Shape: tlv.ShapeBytes},
	{Tag: 0x73, Name: "Discretionary Template", Shape: tlv.ShapeTemplate},
}

// SelectResponse is the data field of a SELECT answer.
type SelectResponse struct {
	Control SelectionControl

	FCP         *FileControlParameters
	FMD         *FMDTemplate
	Proprietary []byte
}

// AID returns the DF name from the FCP, or the application identifier of the FMD.
func (r *SelectResponse) AID() []byte {
	if r.FCP != nil && len(r.FCP.Template.DFName) > 0 {
		return r.FCP.Template.DFName
	}
	if r.FMD != nil {
		return r.FMD.ApplicationIdentifier
	}
	return nil
}

// Label returns the application label of the FMD, if any.
func (r *SelectResponse) Label() []byte {
	if r.FMD != nil {
		return r.FMD.ApplicationLabel
	}
	return nil
}

// ParseSelectResponse interprets data as the answer to a SELECT sent with p2.
func ParseSelectResponse(data []byte, p2 byte) (*SelectResponse, error) {
	r := &SelectResponse{Control: ParseSelectP2(p2).Control}
	if len(data) == 0 {
		return r, nil
	}
	if r.Control == ReturnNoData {
		return nil, fmt.Errorf("%d bytes returned to a SELECT asking for none", len(data))
	}
	if data[0] >= 0xC0 {
		r.Proprietary = data
		return r, nil
	}

	top, err := tlv.Decode(selectTemplates, data)
	if err != nil {
		return nil, fmt.Errorf("SELECT response: %w", err)
	}

	switch r.Control {
	case ReturnFCP:
		return r, r.parseFCP(top, true)
	case ReturnFMD:
		return r, r.parseFMD(top, true)
	}

	if fci, ok := top.Find(fciTag); ok {
		if top, err = tlv.Decode(selectTemplates, fci.Value); err != nil {
			return nil, fmt.Errorf("FCI template: %w", err)
		}
	}
	if err := r.parseFCP(top, false); err != nil {
		return nil, err
	}
	if err := r.parseFMD(top, false); err != nil {
		return nil, err
	}
	if r.FCP == nil && r.FMD == nil {
		// Flat FCI: the objects sit directly in '6F'.
		r.FMD = &FMDTemplate{}
		if err := tlv.UnmarshalElements(top, r.FMD); err != nil {
			return nil, fmt.Errorf("FCI objects: %w", err)
		}
	}
	return r, nil
}

func (r *SelectResponse) parseFCP(top tlv.Elements, mandatory bool) error {
	e, ok := top.Find(FCPTag)
	if !ok {
		if mandatory {
			return fmt.Errorf("mandatory template '%s' not found", FCPTag)
		}
		return nil
	}

	raw, err := tlv.Encode([]tlv.Element{e})
	if err != nil {
		return err
	}
	r.FCP, err = ParseFCP(raw)
	return err
}

func (r *SelectResponse) parseFMD(top tlv.Elements, mandatory bool) error {
	e, ok := top.Find(fmdTag)
	if !ok {
		if mandatory {
			return fmt.Errorf("mandatory template '%s' not found", fmdTag)
		}
		return nil
	}

	objects, err := tlv.Decode(FMDTable, e.Value)
	if err != nil {
		return fmt.Errorf("FMD template: %w", err)
	}
	r.FMD = &FMDTemplate{}
	return tlv.UnmarshalElements(objects, r.FMD)
}
