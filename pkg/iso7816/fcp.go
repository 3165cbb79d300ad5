package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/bits"
	"github.com/gregLibert/sim-card/pkg/tlv"
)

// FILE CONTROL PARAMETERS (FCP) according to ISO/IEC 7816-4 and ETSI TS 102.221 11.1.1.3.
//
// UICCs answer SELECT (P2 '04') and STATUS with an FCP template '62' whose data objects
// are decoded with FCPTable. The mandatory objects are:
//   - '82' File Descriptor: descriptor byte, data coding byte and, for record EFs,
//     the record length (2 bytes) and the number of records (1 byte).
//   - '83' File Identifier (absent for ADFs selected by name).
//   - '8A' Life Cycle Status Integer.
//
// FILE DESCRIPTOR BYTE (Table 12):
// Bit 7:    Shareable file.
// Bits 6-4: 000 working EF, 001 internal EF, 111 DF (with bits 3-1 = 000).
// Bits 3-1: EF structure, 001 transparent, 010 linear fixed, 110 cyclic.
// '39' (bits 6-1 = 111001) is a BER-TLV structured EF.

// FCPTable names the data objects of an FCP template.
var FCPTable = tlv.Table{
	{Tag: 0x80, Name: "File Size", Shape: tlv.ShapeUint},
	{Tag: 0x81, Name: "Total File Size", Shape: tlv.ShapeUint},
	{Tag: 0x82, Name: "File Descriptor", Shape: tlv.ShapeBytes},
	{Tag: 0x83, Name: "File Identifier", Shape: tlv.ShapeUint},
	{Tag: 0x84, Name: "DF Name (AID)", Shape: tlv.ShapeBytes},
	{Tag: 0x85, Name: "Proprietary Information", Shape: tlv.ShapeBytes},
	{Tag: 0x88, Name: "Short File Identifier", Shape: tlv.ShapeUint},
	{Tag: 0x8A, Name: "Life Cycle Status", Shape: tlv.ShapeUint},
	{Tag: 0x8B, Name: "Security Attributes (Referenced)", Shape: tlv.ShapeBytes},
	{Tag: 0x8C, Name: "Security Attributes (Compact)", Shape: tlv.ShapeBytes},
	{Tag: 0xA5, Name: "Proprietary Information", Shape: tlv.ShapeTemplate},
	{Tag: 0xAB, Name: "Security Attributes (Expanded)", Shape: tlv.ShapeTemplate},
	{Tag: 0xC6, Name: "PIN Status Template", Shape: tlv.ShapeTemplate},
}

// FCPTag is the outer template tag of File Control Parameters.
const FCPTag tlv.Tag = 0x62

// FileCategory is the kind of file given by bits 6-4 of the descriptor byte.
type FileCategory int

const (
	CategoryWorkingEF FileCategory = iota
	CategoryInternalEF
	CategoryDF
	CategoryProprietaryEF
)

func (c FileCategory) String() string {
	switch c {
	case CategoryWorkingEF:
		return "Working EF"
	case CategoryInternalEF:
		return "Internal EF"
	case CategoryDF:
		return "DF"
	case CategoryProprietaryEF:
		return "Proprietary EF"
	default:
		return fmt.Sprintf("FileCategory(%d)", int(c))
	}
}

// FileStructure is the EF structure given by bits 3-1 of the descriptor byte.
type FileStructure int

const (
	StructureNone FileStructure = iota
	StructureTransparent
	StructureLinearFixed
	StructureLinearVariable
	StructureCyclic
	StructureBERTLV
)

func (s FileStructure) String() string {
	switch s {
	case StructureNone:
		return "No structure"
	case StructureTransparent:
		return "Transparent"
	case StructureLinearFixed:
		return "Linear fixed"
	case StructureLinearVariable:
		return "Linear variable"
	case StructureCyclic:
		return "Cyclic"
	case StructureBERTLV:
		return "BER-TLV"
	default:
		return fmt.Sprintf("FileStructure(%d)", int(s))
	}
}

// IsRecord reports whether the structure is addressed with READ/UPDATE RECORD.
func (s FileStructure) IsRecord() bool {
	return s == StructureLinearFixed || s == StructureLinearVariable || s == StructureCyclic
}

// FileDescriptorInfo is the decoded content of tag '82'.
type FileDescriptorInfo struct {
	Raw             byte
	Shareable       bool
	Category        FileCategory
	Structure       FileStructure
	DataCoding      byte
	RecordLength    uint16
	NumberOfRecords uint16
}

// ParseFileDescriptor decodes the value of a '82' data object.
func ParseFileDescriptor(value []byte) (FileDescriptorInfo, error) {
	if len(value) == 0 || len(value) > 6 {
		return FileDescriptorInfo{}, fmt.Errorf("file descriptor of %d bytes", len(value))
	}

	b := value[0]
	if bits.IsSet(b, 8) {
		return FileDescriptorInfo{}, fmt.Errorf("file descriptor byte %02X is RFU", b)
	}

	d := FileDescriptorInfo{Raw: b, Shareable: bits.IsSet(b, 7)}

	switch {
	case bits.GetRange(b, 6, 1) == 0b111_000:
		d.Category = CategoryDF
	case bits.GetRange(b, 6, 1) == 0b111_001:
		d.Category = CategoryWorkingEF
		d.Structure = StructureBERTLV
	default:
		switch bits.GetRange(b, 6, 4) {
		case 0b000:
			d.Category = CategoryWorkingEF
		case 0b001:
			d.Category = CategoryInternalEF
		default:
			d.Category = CategoryProprietaryEF
		}

		switch bits.GetRange(b, 3, 1) {
		case 0b000:
			d.Structure = StructureNone
		case 0b001:
			d.Structure = StructureTransparent
		case 0b010, 0b011:
			d.Structure = StructureLinearFixed
		case 0b100, 0b101:
			d.Structure = StructureLinearVariable
		default:
			d.Structure = StructureCyclic
		}
	}

	if len(value) >= 2 {
		d.DataCoding = value[1]
	}

	// Record EFs: 1 or 2 bytes of record length, then 1 or 2 bytes of record count.
	switch len(value) {
	case 3:
		d.RecordLength = uint16(value[2])
	case 4:
		d.RecordLength = uint16(value[2])<<8 | uint16(value[3])
	case 5:
		d.RecordLength = uint16(value[2])<<8 | uint16(value[3])
		d.NumberOfRecords = uint16(value[4])
	case 6:
		d.RecordLength = uint16(value[2])<<8 | uint16(value[3])
		d.NumberOfRecords = uint16(value[4])<<8 | uint16(value[5])
	}

	return d, nil
}

func (d FileDescriptorInfo) String() string {
	var parts []string
	parts = append(parts, d.Category.String())
	if d.Category != CategoryDF {
		parts = append(parts, d.Structure.String())
	}
	if d.Structure.IsRecord() {
		parts = append(parts, fmt.Sprintf("%d records of %d bytes", d.NumberOfRecords, d.RecordLength))
	}
	if d.Shareable {
		parts = append(parts, "shareable")
	}
	return strings.Join(parts, ", ")
}

// LifeCycleStatus is the Life Cycle Status Integer of tag '8A' (ISO 7816-4 Table 15).
type LifeCycleStatus byte

func (l LifeCycleStatus) String() string {
	b := byte(l)
	switch {
	case b == 0x00:
		return "No information given"
	case b == 0x01:
		return "Creation state"
	case b == 0x03:
		return "Initialisation state"
	case b&0xFD == 0x05:
		return "Operational state (activated)"
	case b&0xFD == 0x04:
		return "Operational state (deactivated)"
	case b&0xFC == 0x0C:
		return "Termination state"
	case b >= 0x10:
		return fmt.Sprintf("Proprietary (%02X)", b)
	default:
		return fmt.Sprintf("RFU (%02X)", b)
	}
}

// FileControlParameters is the decoded FCP of a file.
type FileControlParameters struct {
	// Template holds every data object through the struct-tag mapper, unknown ones included.
	Template FCPTemplate
	// Elements is the raw decoder output in card order.
	Elements tlv.Elements

	Descriptor    FileDescriptorInfo
	FileID        uint16
	HasFileID     bool
	SFI           uint8
	HasSFI        bool
	FileSize      uint32
	TotalFileSize uint32
	LifeCycle     LifeCycleStatus
}

// ParseFCP decodes a '62' template as returned by SELECT with P2 '04' or STATUS.
func ParseFCP(data []byte) (*FileControlParameters, error) {
	elements, err := tlv.DecodeTemplate(FCPTag, FCPTable, data)
	if err != nil {
		return nil, fmt.Errorf("FCP decode failed: %w", err)
	}

	fcp := &FileControlParameters{Elements: elements}
	if err := tlv.UnmarshalElements(elements, &fcp.Template); err != nil {
		return nil, fmt.Errorf("FCP mapping failed: %w", err)
	}

	desc, ok := elements.Find(0x82)
	if !ok {
		return nil, fmt.Errorf("mandatory file descriptor '82' not found")
	}
	if fcp.Descriptor, err = ParseFileDescriptor(desc.Value); err != nil {
		return nil, err
	}

	if e, ok := elements.Find(0x83); ok {
		if len(e.Value) != 2 {
			return nil, fmt.Errorf("file identifier of %d bytes", len(e.Value))
		}
		fcp.FileID = uint16(e.Value[0])<<8 | uint16(e.Value[1])
		fcp.HasFileID = true
	}

	// An empty '88' means the file has no SFI; otherwise bits 8-4 carry it.
	if e, ok := elements.Find(0x88); ok && len(e.Value) == 1 {
		fcp.SFI = e.Value[0] >> 3
		fcp.HasSFI = true
	}

	fcp.FileSize, fcp.TotalFileSize = fcp.Template.FileSize, fcp.Template.TotalFileSize

	if e, ok := elements.Find(0x8A); ok && len(e.Value) == 1 {
		fcp.LifeCycle = LifeCycleStatus(e.Value[0])
	}

	return fcp, nil
}

// IsDF reports whether the FCP describes an MF, DF or ADF.
func (f *FileControlParameters) IsDF() bool {
	return f.Descriptor.Category == CategoryDF
}

// Describe generates a human-readable report of the parameters.
func (f *FileControlParameters) Describe() string {
	var sb strings.Builder

	sb.WriteString("=== FILE CONTROL PARAMETERS ===\n")
	if f.HasFileID {
		sb.WriteString(fmt.Sprintf("    + File ID:    %04X\n", f.FileID))
	}
	if aid := f.Template.DFName; len(aid) > 0 {
		sb.WriteString(fmt.Sprintf("    + DF Name:    %X\n", aid))
	}
	sb.WriteString(fmt.Sprintf("    + Type:       %s\n", f.Descriptor))
	if !f.IsDF() {
		sb.WriteString(fmt.Sprintf("    + Size:       %d bytes\n", f.FileSize))
	}
	if f.HasSFI {
		sb.WriteString(fmt.Sprintf("    + SFI:        %02X\n", f.SFI))
	}
	sb.WriteString(fmt.Sprintf("    + Life Cycle: %s\n", f.LifeCycle))

	sb.WriteString("[=] DATA OBJECTS:\n")
	for _, e := range f.Elements {
		sb.WriteString(fmt.Sprintf("    - %s\n", e))
	}

	return strings.TrimRight(sb.String(), "\n")
}
