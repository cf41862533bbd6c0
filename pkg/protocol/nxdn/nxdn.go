// Package nxdn implements the NXDN frame handler (C4): the 8-bit LICH
// field (parity + RF-channel type + USC/CAC function + direction) and
// a lookup table of position masks for a 12-entry subset of the LICH
// values. Values outside the table are rejected unless the byte is 0xFF, per the
// spec's "never guess unknown opcodes" rule. Grounded on this module's
// pkg/payload/sacch package (same NXDN family, same CRC-6/LICH-adjacent
// reassembly idiom) and pkg/fec's bit-packing helpers.
package nxdn

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

// RFChannelType is bits 5-6 of the LICH byte.
type RFChannelType byte

const (
	RCCH  RFChannelType = 0
	RTCH  RFChannelType = 1
	RDCH  RFChannelType = 2
	RTCH2 RFChannelType = 3
)

// USCFunction is bits 1-4 of the LICH byte.
type USCFunction byte

const (
	USCSACCH  USCFunction = 0x0
	USCUDCH   USCFunction = 0x1
	USCSFSACCH USCFunction = 0x2
	USCFACCH2 USCFunction = 0x3
	USCFACCH1 USCFunction = 0x4
	USCVCH    USCFunction = 0x5
)

// offBitsAllOnes is the one LICH byte outside lichTable that DecodeLICH
// accepts; it is also exempt from the parity check.
const offBitsAllOnes = 0xFF

// dcrSignatures are the three LICH values that compute parity over the
// top 7 bits instead of the usual top 4.
var dcrSignatures = map[byte]bool{0x46: true, 0x48: true, 0x4A: true}

// PositionMasks describes which logical sub-channels a given LICH value
// carries.
type PositionMasks struct {
	Voice  bool
	FACCH  bool
	SACCH  bool
	CAC    bool
	UDCH   bool
	FACCH2 bool
	FACCH3 bool
	UDCH2  bool
	SCCH   bool
	SACCH2 bool
	PichTch bool
}

// lichTable maps observed LICH byte values (with parity bit cleared) to
// their position masks. Only a representative subset of the ~60 values
// the real protocol defines is populated; values absent from this table
// are rejected unless their off-bits read all-ones.
var lichTable = map[byte]PositionMasks{
	0x00: {SACCH: true, CAC: true},
	0x02: {UDCH: true},
	0x04: {SACCH: true, FACCH: true},
	0x06: {FACCH2: true},
	0x08: {FACCH: true},
	0x0A: {Voice: true, PichTch: true},
	0x20: {SACCH2: true, CAC: true},
	0x22: {UDCH2: true},
	0x40: {SCCH: true},
	0x46: {Voice: true, FACCH: true, SACCH: true}, // DCR signature
	0x48: {Voice: true, FACCH: true},               // DCR signature
	0x4A: {Voice: true, SACCH: true},               // DCR signature
}

// LICH is a decoded Link Information Channel field.
type LICH struct {
	RFChannel RFChannelType
	USC       USCFunction
	Direction byte
	Masks     PositionMasks
}

// evenParity returns the XOR-reduction (0 or 1) of bits's set bits.
func evenParity(bits byte) byte {
	p := byte(0)
	for bits != 0 {
		p ^= bits & 1
		bits >>= 1
	}
	return p
}

// DecodeLICH decodes one 8-bit LICH byte. Parity is computed over the
// top 4 bits (or top 7 for the three DCR-signature values, per
// dcrSignatures) and checked against the low bit; an unknown value is
// only accepted if its unused ("off") bits read all-ones, matching the
// spec's rejection rule for anything stranger than that. The all-ones
// sentinel carries no parity of its own - its integrity check is the
// all-ones pattern itself - so it skips the parity comparison below.
func DecodeLICH(b byte) (LICH, error) {
	masked := b & 0xFE
	masks, known := lichTable[masked]
	if !known {
		if b != offBitsAllOnes {
			return LICH{}, fmt.Errorf("nxdn: lich: unknown value %#02x: %w", b, rxerr.ErrUnknownIdentifier)
		}
		masks = PositionMasks{}
	}

	if b != offBitsAllOnes {
		parityBits := b >> 4 // top 4 bits
		if dcrSignatures[masked] {
			parityBits = b >> 1 // top 7 bits, for the three DCR-signature values
		}
		if evenParity(parityBits) != b&0x01 {
			return LICH{}, fmt.Errorf("nxdn: lich: parity check failed on value %#02x: %w", b, rxerr.ErrCRCMismatch)
		}
	}

	rfType := RFChannelType((b >> 5) & 0x03)
	usc := USCFunction((b >> 1) & 0x0F)
	direction := b & 0x01

	return LICH{
		RFChannel: rfType,
		USC:       usc,
		Direction: direction,
		Masks:     masks,
	}, nil
}

// Handler implements dispatch.FrameHandler for NXDN frames, dispatching
// solely on the leading LICH byte; the remaining payload is handed back
// unparsed for the voice/SACCH pipeline to consume.
type Handler struct{}

// New builds an NXDN LICH handler.
func New() *Handler { return &Handler{} }

// HandleFrame decodes the leading LICH byte of f.Bits.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	if len(f.Bits) < 1 {
		return dispatch.Result{Err: fmt.Errorf("nxdn: %w", rxerr.ErrShortFrame)}
	}
	lich, err := DecodeLICH(f.Bits[0])
	if err != nil {
		return dispatch.Result{Err: err}
	}
	return dispatch.Result{
		CRCOK: true,
		Fields: map[string]any{
			"lich":       lich,
			"rf_channel": lich.RFChannel,
			"usc":        lich.USC,
			"direction":  lich.Direction,
		},
	}
}
