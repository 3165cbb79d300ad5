package ts102221

import (
	"github.com/gregLibert/sim-card/pkg/iso7816"
)

func sw(code, mask uint16, class iso7816.SWClass, detail string) iso7816.StatusWordRule {
	return iso7816.StatusWordRule{Code: code, Mask: mask, Type: iso7816.SWTypeString, Class: class, Detail: detail}
}

const (
	ok        = iso7816.SWClassOK
	postponed = iso7816.SWClassPostponed
	warning   = iso7816.SWClassWarning
	failure   = iso7816.SWClassError
)

// StatusWords is the coding of SW1 SW2 of ETSI TS 102 221 section 10.2.1.
// Specific codes come before the ranges that contain them.
var StatusWords = iso7816.StatusWordTable{
	// 10.2.1.1 Normal processing
	sw(0x9000, 0xFFFF, ok, "Normal ending of the command"),
	sw(0x9100, 0xFF00, ok, "Normal ending of the command, with extra information from the proactive UICC"),
	sw(0x9200, 0xFF00, ok, "Normal ending of the command, with extra information concerning an ongoing data transfer session"),

	// 10.2.1.2 Postponed processing
	sw(0x9300, 0xFFFF, postponed, "SIM Application Toolkit is busy, command cannot be executed at present"),

	// 10.2.1.3 Warnings
	sw(0x6200, 0xFFFF, warning, "No information given, state of non-volatile memory unchanged"),
	sw(0x6281, 0xFFFF, warning, "Part of returned data may be corrupted"),
	sw(0x6282, 0xFFFF, warning, "End of file/record reached before reading Le bytes"),
	sw(0x6283, 0xFFFF, warning, "Selected file invalidated"),
	sw(0x6285, 0xFFFF, warning, "Selected file in termination state"),
	sw(0x62F1, 0xFFFF, warning, "More data available"),
	sw(0x62F2, 0xFFFF, warning, "More data available and proactive command pending"),
	sw(0x62F3, 0xFFFF, warning, "Response data available"),
	sw(0x63F1, 0xFFFF, warning, "More data expected"),
	sw(0x63F2, 0xFFFF, warning, "More data expected and proactive command pending"),
	sw(0x63C0, 0xFFF0, warning, "Command successful but after using an internal update retry routine, or verification failed (X retries left)"),

	// 10.2.1.4 Execution errors
	sw(0x6400, 0xFFFF, failure, "No information given, state of non-volatile memory unchanged"),
	sw(0x6500, 0xFFFF, failure, "No information given, state of non-volatile memory changed"),
	sw(0x6581, 0xFFFF, failure, "Memory problem"),

	// 10.2.1.5 Checking errors
	sw(0x6700, 0xFFFF, failure, "Wrong length"),
	sw(0x6700, 0xFF00, failure, "Wrong length (command dependent)"),
	sw(0x6B00, 0xFFFF, failure, "Wrong parameter(s) P1-P2"),
	sw(0x6D00, 0xFFFF, failure, "Instruction code not supported or invalid"),
	sw(0x6E00, 0xFFFF, failure, "Class not supported"),
	sw(0x6F00, 0xFFFF, failure, "Technical problem, no precise diagnosis"),
	sw(0x6F00, 0xFF00, failure, "Technical problem (command dependent)"),

	// 10.2.1.6 Functions in CLA not supported
	sw(0x6800, 0xFFFF, failure, "Functions in CLA not supported, no information given"),
	sw(0x6881, 0xFFFF, failure, "Logical channel not supported"),
	sw(0x6882, 0xFFFF, failure, "Secure messaging not supported"),

	// 10.2.1.7 Command not allowed
	sw(0x6900, 0xFFFF, failure, "Command not allowed, no information given"),
	sw(0x6981, 0xFFFF, failure, "Command incompatible with file structure"),
	sw(0x6982, 0xFFFF, failure, "Security status not satisfied"),
	sw(0x6983, 0xFFFF, failure, "Authentication/PIN method blocked"),
	sw(0x6984, 0xFFFF, failure, "Referenced data invalidated"),
	sw(0x6985, 0xFFFF, failure, "Conditions of use not satisfied"),
	sw(0x6986, 0xFFFF, failure, "Command not allowed (no EF selected)"),
	sw(0x6989, 0xFFFF, failure, "Command not allowed, secure channel security not satisfied"),

	// 10.2.1.8 Wrong parameters
	sw(0x6A80, 0xFFFF, failure, "Incorrect parameters in the data field"),
	sw(0x6A81, 0xFFFF, failure, "Function not supported"),
	sw(0x6A82, 0xFFFF, failure, "File not found"),
	sw(0x6A83, 0xFFFF, failure, "Record not found"),
	sw(0x6A84, 0xFFFF, failure, "Not enough memory space"),
	sw(0x6A86, 0xFFFF, failure, "Incorrect parameters P1 to P2"),
	sw(0x6A87, 0xFFFF, failure, "Lc inconsistent with P1 to P2"),
	sw(0x6A88, 0xFFFF, failure, "Referenced data not found"),

	// 10.2.1.9 Application errors
	sw(0x9850, 0xFFFF, failure, "INCREASE cannot be performed, max value reached"),
	sw(0x9862, 0xFFFF, failure, "Authentication error, application specific"),
	sw(0x9863, 0xFFFF, failure, "Security session or association expired"),
	sw(0x9864, 0xFFFF, failure, "Minimum UICC suspension time is too long"),

	// Transport level codes, normally consumed by the client.
	sw(0x6100, 0xFF00, ok, "Response bytes still available"),
	sw(0x9F00, 0xFF00, ok, "Response data available (GSM 11.11)"),
	sw(0x6C00, 0xFF00, failure, "Wrong Le field"),

	iso7816.SWTerminator,
}
