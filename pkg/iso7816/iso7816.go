/*
Package iso7816 implements data structures and logic to interact with smart cards according to the ISO/IEC 7816 standard.

This package provides the fundamental building blocks for APDU (Application Protocol Data Unit) communication with SIM and UICC cards, including Command and Response structures with the ISO 7816-3 case taxonomy, table-driven Status Word (SW) classification, the file commands used on UICCs (SELECT, READ/UPDATE BINARY, READ/UPDATE RECORD, MANAGE CHANNEL, STATUS), parsers for File Control Parameters (FCP) and the other SELECT answers, and exchange reports.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success (OK).
  - 0x61XX: Success, but response data is still available (XX bytes).
  - 0x9FXX: GSM 11.11 equivalent of 61XX.
  - 0x6CXX: Error, wrong length expectation (XX is the correct length).
  - Other: Various error conditions.

The meaning of a status word depends on the card. A StatusWordTable maps families of words
to a class (OK, Postponed, Warning, Error); ISO7816StatusWords covers the interindustry codes
and card-specific tables are stacked in front of it with Concat.

# File Selection

The answer to SELECT (0xA4) depends on the selection control in P2. ParseSelectResponse
interprets it:

  - FCP (File Control Parameters) - Tag '62'
  - FMD (File Management Data) - Tag '64'
  - FCI (File Control Information) - Tag '6F', holding the two above or their objects flat
  - Proprietary Data - first byte 'C0' or above

UICCs are selected with P2 '04' and answer with a bare FCP template. ParseFCP decodes it
with the table-driven TLV walker and derives the file descriptor, identifier, size and
life cycle status.

# Reports

A Client returns a Trace for each command: the command, then any GET RESPONSE or
re-issued command. Report renders it for a human:

	trace, err := client.Send(iso7816.SelectFID(cla, 0x2FE2))
	if err != nil {
	    return err
	}

	report, err := iso7816.NewReport(trace, iso7816.ISO7816StatusWords)
	if err != nil {
	    return err
	}
	fmt.Println(report.Describe())

	if sel, err := report.Select(); err == nil && sel.FCP != nil {
	    fmt.Printf("File size: %d\n", sel.FCP.FileSize)
	}
*/
package iso7816
