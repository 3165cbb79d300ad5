package iso7816

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

// Report explains an exchange: the command and its parameters, the follow-up
// commands the Client sent, and the final outcome classified with Table.
type Report struct {
	Trace Trace
	Table StatusWordTable
}

// NewReport checks that t holds at least one transaction. A nil table falls back to
// ISO7816StatusWords.
func NewReport(t Trace, table StatusWordTable) (*Report, error) {
	if len(t) == 0 || t[0].Command == nil || t[0].Response == nil {
		return nil, errors.New("cannot report on an empty trace")
	}
	if table == nil {
		table = ISO7816StatusWords
	}
	return &Report{Trace: t, Table: table}, nil
}

// Command returns the command the exchange was started with.
func (r *Report) Command() *CommandAPDU {
	return r.Trace[0].Command
}

// Select interprets the final data as the answer to the SELECT that started the exchange.
func (r *Report) Select() (*SelectResponse, error) {
	cmd := r.Command()
	if cmd.Instruction.Raw != INS_SELECT {
		return nil, fmt.Errorf("exchange started with %s, not SELECT", cmd.Instruction.Raw)
	}
	if !r.Trace.IsSuccess() {
		return nil, fmt.Errorf("selection failed with %04X", uint16(r.Trace.Status()))
	}
	return ParseSelectResponse(r.Trace.Data(), cmd.P2)
}

// Describe renders the exchange as an ASCII report.
func (r *Report) Describe() string {
	var sb strings.Builder

	cmd := r.Command()
	raw, _ := cmd.Bytes()
	fmt.Fprintf(&sb, "=== %s REPORT ===\n", commandName(cmd.Instruction.Raw))
	fmt.Fprintf(&sb, "[1] Command: %s\n", tlv.Spaced(raw))
	if cmd.Class.Raw != 0x00 {
		fmt.Fprintf(&sb, "    + Class:   %02X -> %s\n", cmd.Class.Raw, cmd.Class)
	}
	writeParameters(&sb, cmd)
	fmt.Fprintf(&sb, "    + Result:  [%s] %s\n", swSpaced(r.Trace[0].Response.Status), r.stepResult(&r.Trace[0]))

	if len(r.Trace) > 1 {
		fmt.Fprintf(&sb, "\n[2] Protocol: %d steps\n", len(r.Trace))
		for i := range r.Trace[1:] {
			tx := &r.Trace[i+1]
			fmt.Fprintf(&sb, "    + %-12s [%s] %s\n", commandName(tx.Command.Instruction.Raw),
				swSpaced(tx.Response.Status), r.stepResult(tx))
		}
	}

	fmt.Fprintf(&sb, "\n[=] OUTCOME: %s\n", r.Trace.Classify(r.Table))
	data := r.Trace.Data()
	if len(data) == 0 {
		sb.WriteString("    - No data received.\n")
		return strings.TrimRight(sb.String(), "\n")
	}
	fmt.Fprintf(&sb, "    + Length:  %d bytes\n", len(data))
	fmt.Fprintf(&sb, "    + Dump:    %X\n", data)
	fmt.Fprintf(&sb, "    + ASCII:   %q\n", tlv.MakeSafeASCII(data))

	switch cmd.Instruction.Raw {
	case INS_SELECT:
		r.writeSelect(&sb)
	case INS_STATUS:
		if fcp, err := ParseFCP(data); err == nil {
			sb.WriteString("\n" + fcp.Describe() + "\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (r *Report) stepResult(tx *Transaction) string {
	sw := tx.Response.Status
	if n, ok := sw.Available(); ok {
		return fmt.Sprintf("%d bytes available", n)
	}
	if n, ok := sw.ExpectedLength(); ok {
		return fmt.Sprintf("wrong Le, card expects %d", n)
	}

	c := r.Table.Classify(sw)
	if c.Detail != "" {
		return fmt.Sprintf("%s: %s", c.Class, c.Detail)
	}
	return c.Class.String()
}

func (r *Report) writeSelect(sb *strings.Builder) {
	resp, err := r.Select()
	if err != nil {
		fmt.Fprintf(sb, "    - Not a valid SELECT answer: %v\n", err)
		return
	}

	switch {
	case resp.FCP != nil:
		sb.WriteString("\n" + resp.FCP.Describe() + "\n")
	case len(resp.Proprietary) > 0:
		sb.WriteString("    - Proprietary answer\n")
	}
	if resp.FMD != nil {
		var fmd strings.Builder
		tlv.WriteStructFields(&fmd, "FMD", resp.FMD)
		if fmd.Len() > 0 {
			sb.WriteString(fmd.String() + "\n")
		}
	}
}

func writeParameters(sb *strings.Builder, cmd *CommandAPDU) {
	switch cmd.Instruction.Raw {
	case INS_SELECT:
		fmt.Fprintf(sb, "    + Method:  %02X -> %s\n", cmd.P1, SelectionMethod(cmd.P1))
		fmt.Fprintf(sb, "    + Control: %02X -> %s\n", cmd.P2, ParseSelectP2(cmd.P2))

	case INS_READ_RECORD, INS_UPDATE_RECORD:
		sfi := cmd.P2 >> 3
		target := "Current EF"
		if sfi > 0 {
			target = fmt.Sprintf("SFI %02X", sfi)
		}
		fmt.Fprintf(sb, "    + Target:  %s\n", target)
		fmt.Fprintf(sb, "    + Record:  %d\n", cmd.P1)
		fmt.Fprintf(sb, "    + Mode:    %s\n", ReadRecordMode(cmd.P2&0x07))

	case INS_READ_BINARY, INS_UPDATE_BINARY:
		if cmd.P1&0x80 != 0 {
			fmt.Fprintf(sb, "    + Target:  SFI %02X\n", cmd.P1&0x1F)
			fmt.Fprintf(sb, "    + Offset:  %d\n", cmd.P2)
		} else {
			fmt.Fprintf(sb, "    + Target:  Current EF\n")
			fmt.Fprintf(sb, "    + Offset:  %d\n", uint16(cmd.P1)<<8|uint16(cmd.P2))
		}

	default:
		fmt.Fprintf(sb, "    + P1 P2:   %02X %02X\n", cmd.P1, cmd.P2)
	}

	if len(cmd.Data) > 0 {
		fmt.Fprintf(sb, "    + Data:    %X (%q)\n", cmd.Data, tlv.MakeSafeASCII(cmd.Data))
	}
	if cmd.Ne > 0 {
		fmt.Fprintf(sb, "    + Le:      %d\n", cmd.Ne)
	}
}

// commandName turns INS_READ_RECORD into "READ RECORD".
func commandName(ins InsCode) string {
	name, ok := insCodeNames[ins]
	if !ok {
		return fmt.Sprintf("INS %02X", byte(ins))
	}
	return strings.ReplaceAll(strings.TrimPrefix(name, "INS_"), "_", " ")
}

func swSpaced(sw StatusWord) string {
	return fmt.Sprintf("%02X %02X", sw.SW1(), sw.SW2())
}
