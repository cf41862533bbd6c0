// Package tms decodes the Motorola short-data-message bearer carried on
// UDP port 4007 (C7): a length-prefixed header, an optional chain of
// continuation header bytes, an optional UTF-16BE address, and — when
// the ACK flag is clear — a UTF-16BE text body. Grounded on this
// module's ysf.payload UTF-16BE-adjacent text handling idiom (explicit
// byte-pair stepping with an alignment guard) generalized from YSF's
// fixed-width station text to TMS's variable-length, possibly
// misaligned text body.
package tms

import (
	"fmt"
	"unicode/utf16"
)

// Message is a decoded TMS short-data message.
type Message struct {
	Ack     bool
	Address string
	Text    string
}

// Header bit layout: low nibble is the ACK flag; bit 0x10 flags that an
// address block follows the continuation-header chain. Continuation
// bytes (if any) chain while their MSB (0x80) is set and terminate at
// the first byte whose MSB is 0.
const (
	headerAckMask     = 0x0F
	headerAddressFlag = 0x10
	continuationBit   = 0x80
)

// Decode parses a TMS PDU: a 2-byte big-endian length, then a 1-byte
// header (low nibble = ACK flag, 0x10 = address block present), an
// optional continuation-header chain, an optional address block, and —
// when ACK is 0 — a UTF-16BE text body.
func Decode(buf []byte) (Message, error) {
	if len(buf) < 3 {
		return Message{}, fmt.Errorf("tms: short pdu: %d bytes", len(buf))
	}
	length := int(buf[0])<<8 | int(buf[1])
	effective := length
	if effective > len(buf)-2 || effective <= 0 {
		effective = len(buf) - 2
	}
	body := buf[2 : 2+effective]
	if len(body) < 1 {
		return Message{}, fmt.Errorf("tms: empty body after length field")
	}

	header := body[0]
	msg := Message{Ack: header&headerAckMask != 0}
	idx := 1

	// Walk the continuation-header chain: each byte with its MSB set
	// extends the chain; the first byte with MSB clear ends it and is
	// consumed as the chain terminator. A lone non-chaining header (the
	// common case) has no continuation bytes to walk at all.
	for idx < len(body) && body[idx-1]&continuationBit != 0 {
		idx++
	}

	// An address-length byte, when the header's address flag is set,
	// introduces a UTF-16BE address with a fixed 4-octet trailer.
	if header&headerAddressFlag != 0 && idx < len(body) {
		addrLen := int(body[idx])
		idx++
		addrBytes := addrLen * 2
		if idx+addrBytes <= len(body) {
			msg.Address = decodeUTF16BE(body[idx : idx+addrBytes])
			idx += addrBytes
		}
		idx += 4 // fixed trailer
		if idx > len(body) {
			idx = len(body)
		}
	}

	if !msg.Ack && idx < len(body) {
		text := body[idx:]
		msg.Text = decodeUTF16BE(text)
	}
	return msg, nil
}

// decodeUTF16BE decodes a UTF-16BE byte run. An odd trailing byte (the
// stream was not an exact number of 2-byte units) is zero-padded so the
// final code unit still decodes instead of being silently dropped; the
// padding byte contributes nothing to the recovered rune since it only
// supplies the (otherwise absent) low byte of a high-ASCII-range code
// unit.
func decodeUTF16BE(b []byte) string {
	if len(b)%2 != 0 {
		padded := make([]byte, len(b)+1)
		copy(padded, b)
		b = padded
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}
