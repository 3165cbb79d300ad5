package iso7816

import (
	"fmt"
)

// STATUS WORD TABLES:
//
// The meaning of a status word depends on the card personality: TS 102.221 reuses ISO 7816-4
// codes but adds its own (91XX proactive command pending, 9300 toolkit busy, 98XX security).
// A StatusWordTable is an ordered list of rules, evaluated top to bottom:
//
//   - A rule matches when (sw & Mask) == (Code & Mask). The first match wins, so specific
//     codes must precede the ranges that contain them.
//   - The rule {Code: 0, Mask: 0, Class: SWClassNone} terminates the table. It would match
//     every word, so it is treated as an end marker instead.
//   - A word that reaches the end of the table is classified as an unknown error.
//
// Tables are plain values. Several card profiles can hold their own tables side by side.

// SWClass is the semantic outcome of a command.
type SWClass int

const (
	SWClassNone SWClass = iota
	SWClassOK
	SWClassPostponed
	SWClassWarning
	SWClassError
)

func (c SWClass) String() string {
	switch c {
	case SWClassNone:
		return "None"
	case SWClassOK:
		return "OK"
	case SWClassPostponed:
		return "Postponed"
	case SWClassWarning:
		return "Warning"
	case SWClassError:
		return "Error"
	default:
		return fmt.Sprintf("SWClass(%d)", int(c))
	}
}

// SWType tells whether a rule carries a diagnostic text.
type SWType int

const (
	SWTypeNone SWType = iota
	SWTypeString
)

// StatusWordRule maps a family of status words to a class.
type StatusWordRule struct {
	Code   uint16
	Mask   uint16
	Type   SWType
	Class  SWClass
	Detail string
}

// SWTerminator ends a table.
var SWTerminator = StatusWordRule{}

// IsTerminator reports whether r is the end-of-table marker.
func (r StatusWordRule) IsTerminator() bool {
	return r.Code == 0 && r.Mask == 0 && r.Class == SWClassNone
}

// Matches compares sw with the rule code under the rule mask. Detail never takes part.
func (r StatusWordRule) Matches(sw StatusWord) bool {
	return uint16(sw)&r.Mask == r.Code&r.Mask
}

// Classification is the result of looking a status word up in a table.
type Classification struct {
	SW      StatusWord
	Class   SWClass
	Rule    *StatusWordRule // nil when Unknown
	Detail  string
	Unknown bool
}

// Err returns ErrUnknownStatusWord for unmatched words and nil otherwise.
// Matched error classes are data, the caller decides what to do with them.
func (c Classification) Err() error {
	if c.Unknown {
		return fmt.Errorf("%04X: %w", uint16(c.SW), ErrUnknownStatusWord)
	}
	return nil
}

// IsError reports whether the word must be treated as a failure of the command.
func (c Classification) IsError() bool {
	return c.Class == SWClassError
}

func (c Classification) String() string {
	switch {
	case c.Unknown:
		return fmt.Sprintf("%04X: %s (unknown)", uint16(c.SW), c.Class)
	case c.Detail != "":
		return fmt.Sprintf("%04X: %s (%s)", uint16(c.SW), c.Class, c.Detail)
	default:
		return fmt.Sprintf("%04X: %s", uint16(c.SW), c.Class)
	}
}

// StatusWordTable is an ordered rule list.
type StatusWordTable []StatusWordRule

// Classify returns the outcome of the first rule matching sw.
func (t StatusWordTable) Classify(sw StatusWord) Classification {
	for i := range t {
		rule := &t[i]
		if rule.IsTerminator() {
			break
		}
		if !rule.Matches(sw) {
			continue
		}

		c := Classification{SW: sw, Class: rule.Class, Rule: rule}
		if rule.Type == SWTypeString {
			c.Detail = rule.Detail
		}
		return c
	}

	return Classification{SW: sw, Class: SWClassError, Unknown: true}
}

// Concat stacks tables so that rules of the first table take precedence.
// Terminators inside the inputs are dropped and a single one closes the result.
func Concat(tables ...StatusWordTable) StatusWordTable {
	var out StatusWordTable
	for _, t := range tables {
		for _, r := range t {
			if r.IsTerminator() {
				break
			}
			out = append(out, r)
		}
	}
	return append(out, SWTerminator)
}

// ISO7816StatusWords classifies the interindustry codes of ISO/IEC 7816-4 section 5.1.3.
var ISO7816StatusWords = StatusWordTable{
	{Code: 0x9000, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassOK, Detail: "Normal processing"},
	{Code: 0x6100, Mask: 0xFF00, Type: SWTypeString, Class: SWClassOK, Detail: "Response bytes still available"},
	{Code: 0x6282, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassWarning, Detail: "End of file or record reached before reading Ne bytes"},
	{Code: 0x6283, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassWarning, Detail: "Selected file deactivated"},
	{Code: 0x6200, Mask: 0xFF00, Type: SWTypeString, Class: SWClassWarning, Detail: "State of non-volatile memory unchanged"},
	{Code: 0x63C0, Mask: 0xFFF0, Type: SWTypeString, Class: SWClassWarning, Detail: "Counter provided by X"},
	{Code: 0x6300, Mask: 0xFF00, Type: SWTypeString, Class: SWClassWarning, Detail: "State of non-volatile memory changed"},
	{Code: 0x6400, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Execution error, memory unchanged"},
	{Code: 0x6500, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Execution error, memory changed"},
	{Code: 0x6600, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Security-related issue"},
	{Code: 0x6700, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Wrong length"},
	{Code: 0x6800, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Functions in CLA not supported"},
	{Code: 0x6982, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Security status not satisfied"},
	{Code: 0x6986, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Command not allowed (no current EF)"},
	{Code: 0x6900, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Command not allowed"},
	{Code: 0x6A82, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "File or application not found"},
	{Code: 0x6A83, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Record not found"},
	{Code: 0x6A00, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Wrong parameters P1-P2"},
	{Code: 0x6B00, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Wrong parameters P1-P2"},
	{Code: 0x6C00, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "Wrong Le field"},
	{Code: 0x6D00, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Instruction code not supported or invalid"},
	{Code: 0x6E00, Mask: 0xFFFF, Type: SWTypeString, Class: SWClassError, Detail: "Class not supported"},
	{Code: 0x6F00, Mask: 0xFF00, Type: SWTypeString, Class: SWClassError, Detail: "No precise diagnosis"},
	SWTerminator,
}
