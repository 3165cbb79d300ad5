package iso7816

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/bits"
)

// CLASS BYTE (ISO 7816-4 §5.4.1, TS 102.221 §10.1.1):
//
//	0xxx xxxx  interindustry: b5 chaining, then
//	  00.c ssCC  first range, SM on b4-b3, channel 0-3 on b2-b1
//	  01.c sCCC  further range, SM on b6, channel 4-19 as b4-b1 plus 4
//	1xxx xxxx  proprietary, e.g. 'A0' of GSM 11.11 SIMs
//
// A UICC takes '0X' for channels 0-3 and '4X' for channels 4-19; 'A0' is only answered
// by cards that still run the GSM application.

// SecureMessaging defines the security level applied to the APDU.
type SecureMessaging int

const (
	// SMNone indicates no secure messaging or no indication given.
	SMNone SecureMessaging = 0
	// SMProprietary indicates a proprietary secure messaging format (First Interindustry only).
	SMProprietary SecureMessaging = 1
	// SMHeaderNoProc indicates SM according to ISO, where the header is not processed.
	SMHeaderNoProc SecureMessaging = 2
	// SMHeaderAuth indicates SM according to ISO, where the header is authenticated (First Interindustry only).
	SMHeaderAuth SecureMessaging = 3
)

// Class represents the parsed ISO 7816-4 Class byte (CLA).
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // Logical channel number (0-19)
}

// NewClass creates a Class object by decoding a raw CLA byte.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return Class{}, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}

	c := Class{Raw: cla}

	if bits.IsSet(cla, 8) {
		c.IsProprietary = true
		return c, nil
	}

	c.IsChained = bits.IsSet(cla, 5)

	if !bits.IsSet(cla, 7) {
		c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
		c.Channel = bits.GetRange(cla, 2, 1)
		return c, nil
	}

	if bits.IsSet(cla, 6) {
		c.SecureMessaging = SMHeaderNoProc
	}
	c.Channel = bits.GetRange(cla, 4, 1) + 4

	return c, nil
}

// NewInterindustryClass builds an interindustry class; channels 4-19 use the further range,
// which only signals whether ISO secure messaging is on.
func NewInterindustryClass(isChained bool, sm SecureMessaging, channel uint8) (Class, error) {
	if channel > 19 {
		return Class{}, fmt.Errorf("channel %d out of range (max 19)", channel)
	}

	if channel >= 4 && (sm == SMProprietary || sm == SMHeaderAuth) {
		return Class{}, fmt.Errorf("SM indicator %d not supported for further interindustry range (ch 4-19)", sm)
	}

	c := Class{
		IsProprietary:   false,
		IsChained:       isChained,
		SecureMessaging: sm,
		Channel:         channel,
	}

	raw, err := c.Encode()
	if err != nil {
		return Class{}, err
	}
	c.Raw = raw

	return c, nil
}

// Encode converts the Class object back to its byte representation.
func (c *Class) Encode() (byte, error) {
	if c.IsProprietary {
		return c.Raw, nil
	}

	var res byte
	if c.IsChained {
		res = bits.Set(res, 5)
	}

	if c.Channel <= 3 {
		return res | byte(c.SecureMessaging)<<2 | c.Channel, nil
	}

	res = bits.Set(res, 7)
	if c.SecureMessaging != SMNone {
		res = bits.Set(res, 6)
	}
	return res | (c.Channel - 4), nil
}

// WithChannel returns a copy of the class addressing logical channel ch.
// Proprietary classes such as GSM 11.11 'A0' only carry channels 0-3 in bits 2-1.
func (c Class) WithChannel(ch uint8) (Class, error) {
	if c.IsProprietary {
		if ch > 3 {
			return Class{}, fmt.Errorf("channel %d out of range for proprietary CLA 0x%02X", ch, c.Raw)
		}
		c.Raw = c.Raw&^0x03 | ch
		c.Channel = ch
		return c, nil
	}

	sm := c.SecureMessaging
	if ch >= 4 && sm != SMNone {
		sm = SMHeaderNoProc
	}
	return NewInterindustryClass(c.IsChained, sm, ch)
}

// String summarises the CLA byte on one line.
func (c Class) String() string {
	if c.IsProprietary {
		return fmt.Sprintf("Proprietary (%02X)", c.Raw)
	}

	sm := "no SM"
	switch c.SecureMessaging {
	case SMProprietary:
		sm = "proprietary SM"
	case SMHeaderNoProc:
		sm = "ISO SM, header not processed"
	case SMHeaderAuth:
		sm = "ISO SM, header authenticated"
	}

	s := fmt.Sprintf("Channel %d, %s", c.Channel, sm)
	if c.IsChained {
		s += ", chained"
	}
	return s
}
