package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/iso7816"
)

// FILE DESCRIPTOR TREE:
//
// A card profile describes the file system of a card type as a static tree:
//
//	MF '3F00'
//	 ├── EF.DIR '2F00'
//	 ├── DF.TELECOM '7F10'
//	 │    └── EF.ARR '6F06'
//	 └── ADF.USIM (selected by AID)
//
// The tree is declared with FileSpec literals (see the MF/DF/EF builders) and frozen by
// BuildTree into an arena: nodes live in one slice and refer to their parent and children
// by NodeID. Nothing in the tree changes after construction, so one Tree can be shared by
// any number of sessions.
//
// Invariants checked by BuildTree:
//   - the root is the MF and no other node is an MF,
//   - EFs have no children,
//   - FIDs are unique among siblings (ADFs are told apart by DF name instead),
//   - ADFs carry a DF name of 1 to 16 bytes.

// ErrInvalidTree reports a FileSpec that breaks one of the tree invariants.
var ErrInvalidTree = errors.New("invalid file tree")

// Well-known file identifiers (TS 102.221 section 8.4).
const (
	FIDMF         uint16 = 0x3F00
	FIDCurrentADF uint16 = 0x7FFF
)

// maxDFNameLength is the longest AID allowed by ISO 7816-4.
const maxDFNameLength = 16

// FileType is the kind of a node in the file system.
type FileType int

const (
	FileTypeNone FileType = iota
	FileTypeMF
	FileTypeDF
	FileTypeADF
	FileTypeEF
	FileTypeEFInternal
)

func (t FileType) String() string {
	switch t {
	case FileTypeNone:
		return "None"
	case FileTypeMF:
		return "MF"
	case FileTypeDF:
		return "DF"
	case FileTypeADF:
		return "ADF"
	case FileTypeEF:
		return "EF"
	case FileTypeEFInternal:
		return "EF (internal)"
	default:
		return fmt.Sprintf("FileType(%d)", int(t))
	}
}

// IsDF reports whether files of this type can hold children.
func (t FileType) IsDF() bool {
	return t == FileTypeMF || t == FileTypeDF || t == FileTypeADF
}

// IsEF reports whether files of this type hold data.
func (t FileType) IsEF() bool {
	return t == FileTypeEF || t == FileTypeEFInternal
}

// EFType is the structure of an elementary file.
type EFType int

const (
	Transparent EFType = iota
	LinearFixed
	Cyclic
)

func (t EFType) String() string {
	switch t {
	case Transparent:
		return "Transparent"
	case LinearFixed:
		return "Linear Fixed"
	case Cyclic:
		return "Cyclic"
	default:
		return fmt.Sprintf("EFType(%d)", int(t))
	}
}

// IsRecord reports whether the EF is accessed with record commands.
func (t EFType) IsRecord() bool {
	return t == LinearFixed || t == Cyclic
}

// FileFlags qualify a file of the catalog.
type FileFlags uint

const (
	// FlagOptional marks files that a compliant card may omit.
	FlagOptional FileFlags = 1 << iota
)

// FileSpec is the declarative form of a file, used to assemble a profile.
type FileSpec struct {
	Type      FileType
	EFType    EFType
	FID       uint16
	SFID      uint8
	DFName    []byte
	ShortName string
	LongName  string
	Flags     FileFlags
	Ops       FileOps
	Children  []FileSpec
}

// MF declares the master file.
func MF(children ...FileSpec) FileSpec {
	return FileSpec{
		Type:      FileTypeMF,
		FID:       FIDMF,
		ShortName: "MF",
		LongName:  "Master File",
		Children:  children,
	}
}

// DF declares a dedicated file.
func DF(fid uint16, shortName, longName string, children ...FileSpec) FileSpec {
	return FileSpec{
		Type:      FileTypeDF,
		FID:       fid,
		ShortName: shortName,
		LongName:  longName,
		Children:  children,
	}
}

// ADF declares an application DF. Once selected it answers to FID '7FFF'.
func ADF(dfName []byte, shortName, longName string, children ...FileSpec) FileSpec {
	return FileSpec{
		Type:      FileTypeADF,
		FID:       FIDCurrentADF,
		DFName:    dfName,
		ShortName: shortName,
		LongName:  longName,
		Children:  children,
	}
}

// EF declares an elementary file with explicit hooks.
func EF(fid uint16, shortName string, flags FileFlags, longName string, efType EFType, parse ParseFunc, encode EncodeFunc) FileSpec {
	return FileSpec{
		Type:      FileTypeEF,
		EFType:    efType,
		FID:       fid,
		ShortName: shortName,
		LongName:  longName,
		Flags:     flags,
		Ops:       FileOps{Parse: parse, Encode: encode},
	}
}

// EFTransparent declares a transparent EF.
func EFTransparent(fid uint16, shortName string, flags FileFlags, longName string, parse ParseFunc, encode EncodeFunc) FileSpec {
	return EF(fid, shortName, flags, longName, Transparent, parse, encode)
}

// EFTransparentN declares a transparent EF without a dedicated codec.
func EFTransparentN(fid uint16, shortName string, flags FileFlags, longName string) FileSpec {
	return EFTransparent(fid, shortName, flags, longName, DefaultDecode, nil)
}

// EFLinearFixed declares a linear fixed EF.
func EFLinearFixed(fid uint16, shortName string, flags FileFlags, longName string, parse ParseFunc, encode EncodeFunc) FileSpec {
	return EF(fid, shortName, flags, longName, LinearFixed, parse, encode)
}

// EFLinearFixedN declares a linear fixed EF without a dedicated codec.
func EFLinearFixedN(fid uint16, shortName string, flags FileFlags, longName string) FileSpec {
	return EFLinearFixed(fid, shortName, flags, longName, DefaultDecode, nil)
}

// EFCyclic declares a cyclic EF.
func EFCyclic(fid uint16, shortName string, flags FileFlags, longName string, parse ParseFunc, encode EncodeFunc) FileSpec {
	return EF(fid, shortName, flags, longName, Cyclic, parse, encode)
}

// EFCyclicN declares a cyclic EF without a dedicated codec.
func EFCyclicN(fid uint16, shortName string, flags FileFlags, longName string) FileSpec {
	return EFCyclic(fid, shortName, flags, longName, DefaultDecode, nil)
}

// WithSFI returns a copy of the spec carrying a short file identifier.
func (s FileSpec) WithSFI(sfi uint8) FileSpec {
	s.SFID = sfi
	return s
}

// NodeID addresses a node of a Tree.
type NodeID int

// NoNode is the parent of the MF.
const NoNode NodeID = -1

// FileDescriptor is a node of a Tree. It must be treated as read-only.
type FileDescriptor struct {
	Type      FileType
	EFType    EFType
	FID       uint16
	SFID      uint8
	DFName    []byte
	ShortName string
	LongName  string
	Flags     FileFlags
	Ops       FileOps

	tree     *Tree
	id       NodeID
	parent   NodeID
	children []NodeID
}

// ID returns the position of the node in its tree.
func (d *FileDescriptor) ID() NodeID {
	return d.id
}

// Tree returns the tree the node belongs to.
func (d *FileDescriptor) Tree() *Tree {
	return d.tree
}

// Parent returns the enclosing DF, or nil for the MF.
func (d *FileDescriptor) Parent() *FileDescriptor {
	if d.parent == NoNode {
		return nil
	}
	return &d.tree.nodes[d.parent]
}

// Children returns the direct children in declaration order.
func (d *FileDescriptor) Children() []*FileDescriptor {
	out := make([]*FileDescriptor, 0, len(d.children))
	for _, id := range d.children {
		out = append(out, &d.tree.nodes[id])
	}
	return out
}

// Path returns the FIDs leading from the MF to the node, both included.
func (d *FileDescriptor) Path() []uint16 {
	var path []uint16
	for n := d; n != nil; n = n.Parent() {
		path = append(path, n.FID)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Name returns the short name, or the long name when no short one is set.
func (d *FileDescriptor) Name() string {
	if d.ShortName != "" {
		return d.ShortName
	}
	return d.LongName
}

// IsOptional reports whether the file may be absent from a card.
func (d *FileDescriptor) IsOptional() bool {
	return d.Flags&FlagOptional != 0
}

func (d *FileDescriptor) String() string {
	if d.Type == FileTypeADF {
		return fmt.Sprintf("%s (AID %X)", d.Name(), d.DFName)
	}
	return fmt.Sprintf("%s (%04X)", d.Name(), d.FID)
}

// Tree is an immutable file hierarchy rooted at the MF.
type Tree struct {
	nodes []FileDescriptor
}

// BuildTree validates spec and freezes it into a Tree.
func BuildTree(spec FileSpec) (*Tree, error) {
	if spec.Type != FileTypeMF {
		return nil, fmt.Errorf("root is %s, want MF: %w", spec.Type, ErrInvalidTree)
	}

	t := &Tree{}
	if _, err := t.add(spec, NoNode); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) add(spec FileSpec, parent NodeID) (NodeID, error) {
	if err := checkSpec(spec, parent); err != nil {
		return NoNode, err
	}

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, FileDescriptor{
		Type:      spec.Type,
		EFType:    spec.EFType,
		FID:       spec.FID,
		SFID:      spec.SFID,
		DFName:    append([]byte(nil), spec.DFName...),
		ShortName: spec.ShortName,
		LongName:  spec.LongName,
		Flags:     spec.Flags,
		Ops:       spec.Ops,
		tree:      t,
		id:        id,
		parent:    parent,
	})

	fids := make(map[uint16]string)
	names := make(map[string]string)
	children := make([]NodeID, 0, len(spec.Children))

	for _, child := range spec.Children {
		if child.Type == FileTypeADF {
			key := fmt.Sprintf("%X", child.DFName)
			if prev, dup := names[key]; dup {
				return NoNode, fmt.Errorf("%s and %s share DF name %s: %w", prev, child.ShortName, key, ErrInvalidTree)
			}
			names[key] = child.ShortName
		} else {
			if prev, dup := fids[child.FID]; dup {
				return NoNode, fmt.Errorf("%s and %s share FID %04X under %s: %w",
					prev, child.ShortName, child.FID, spec.ShortName, ErrInvalidTree)
			}
			fids[child.FID] = child.ShortName
		}

		cid, err := t.add(child, id)
		if err != nil {
			return NoNode, err
		}
		children = append(children, cid)
	}

	// The slice may have moved while children were appended.
	t.nodes[id].children = children
	return id, nil
}

func checkSpec(spec FileSpec, parent NodeID) error {
	switch {
	case spec.Type == FileTypeNone:
		return fmt.Errorf("%q has no file type: %w", spec.ShortName, ErrInvalidTree)
	case spec.Type == FileTypeMF && parent != NoNode:
		return fmt.Errorf("MF nested below another file: %w", ErrInvalidTree)
	case spec.Type.IsEF() && len(spec.Children) > 0:
		return fmt.Errorf("%s (%04X) is an EF with children: %w", spec.ShortName, spec.FID, ErrInvalidTree)
	case spec.Type == FileTypeADF && (len(spec.DFName) == 0 || len(spec.DFName) > maxDFNameLength):
		return fmt.Errorf("%s has a DF name of %d bytes: %w", spec.ShortName, len(spec.DFName), ErrInvalidTree)
	case spec.Type != FileTypeADF && spec.FID == 0:
		return fmt.Errorf("%q has no file identifier: %w", spec.ShortName, ErrInvalidTree)
	case spec.SFID > iso7816.MaxSFI:
		return fmt.Errorf("%s has SFI %d: %w", spec.ShortName, spec.SFID, ErrInvalidTree)
	}
	return nil
}

// Root returns the MF.
func (t *Tree) Root() *FileDescriptor {
	return &t.nodes[0]
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) (*FileDescriptor, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return &t.nodes[id], true
}

// Len returns the number of files in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Walk visits the tree depth-first, parents before children. A non-nil error from fn
// stops the walk and is returned.
func (t *Tree) Walk(fn func(d *FileDescriptor, depth int) error) error {
	return t.walk(t.Root(), 0, fn)
}

func (t *Tree) walk(d *FileDescriptor, depth int, fn func(*FileDescriptor, int) error) error {
	if err := fn(d, depth); err != nil {
		return err
	}
	for _, id := range d.children {
		if err := t.walk(&t.nodes[id], depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// String renders the tree as an indented listing.
func (t *Tree) String() string {
	var sb strings.Builder
	_ = t.Walk(func(d *FileDescriptor, depth int) error {
		fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("  ", depth), d)
		return nil
	})
	return sb.String()
}

// FindByName looks name up in parent itself and its direct children, matching
// ShortName or LongName exactly. Grandchildren are never considered.
func FindByName(parent *FileDescriptor, name string) *FileDescriptor {
	if parent == nil {
		return nil
	}
	if parent.ShortName == name || parent.LongName == name {
		return parent
	}
	for _, id := range parent.children {
		c := &parent.tree.nodes[id]
		if c.ShortName == name || c.LongName == name {
			return c
		}
	}
	return nil
}

// FindByID looks fid up in parent itself and its direct children.
func FindByID(parent *FileDescriptor, fid uint16) *FileDescriptor {
	if parent == nil {
		return nil
	}
	if parent.FID == fid {
		return parent
	}
	for _, id := range parent.children {
		if c := &parent.tree.nodes[id]; c.FID == fid {
			return c
		}
	}
	return nil
}
