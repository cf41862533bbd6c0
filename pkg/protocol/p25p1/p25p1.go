// Package p25p1 implements the P25 Phase 1 frame handler (C4): NID
// decode (NAC/DUID under BCH(63,16) plus an overall parity bit) and the
// DUID-keyed field extractors for TSBK/MPDU control signalling.
// Grounded on this module's pkg/fec.BCH6316 codec and the CSBK-style
// opcode/FID layout pkg/protocol/dmrd.go already used for the DMR slot
// byte, generalized here to P25's NAC+DUID NID and TSBK opcode fields.
package p25p1

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

// DUID values select which frame body follows the NID.
type DUID byte

const (
	DUIDHDU   DUID = 0x0
	DUIDTDU   DUID = 0x3
	DUIDLDU1  DUID = 0x5
	DUIDTSBK  DUID = 0x7
	DUIDLDU2  DUID = 0xA
	DUIDMPDU  DUID = 0xC // also used as PDU header in some deployments
	DUIDTDULC DUID = 0xF
)

// NID is the decoded Network Identifier field.
type NID struct {
	NAC           uint16
	DUID          DUID
	CorrectedBits int
	ParityOK      bool
}

// DecodeNID extracts NAC/DUID from a 64-bit NID field: bits [63:1] are the
// BCH(63,16)-protected NAC(12)+DUID(4), bit 0 is an overall parity check.
func DecodeNID(nid uint64) (NID, error) {
	code := (nid >> 1) & ((1 << 63) - 1)
	parityBit := nid & 1

	data, corrected, ok := fec.BCH6316Decode(code)
	if !ok {
		return NID{}, fmt.Errorf("p25p1: nid: %w", rxerr.ErrFECUncorrectable)
	}

	parity := popcount64(code) & 1
	return NID{
		NAC:           data >> 4,
		DUID:          DUID(data & 0xF),
		CorrectedBits: corrected,
		ParityOK:      uint64(parity) == parityBit,
	}, nil
}

func popcount64(x uint64) int {
	n := 0
	for x != 0 {
		n++
		x &= x - 1
	}
	return n
}

// TSBK is a decoded Trunking Signalling Block.
type TSBK struct {
	LastBlock bool
	Opcode    byte
	Mfid      byte
	Channel   uint16
	Source    uint32
	Target    uint32
	SvcOpts   byte
}

// DecodeTSBK parses a TSBK's fixed header (LB/opcode/MFID) and the
// channel-grant-shaped fields that follow. Real TSBK opcodes diverge in
// field layout past the header; this decodes the subset needed to drive
// the trunk state machine's channel-grant events.
func DecodeTSBK(payload []byte) (TSBK, error) {
	if len(payload) < 10 {
		return TSBK{}, fmt.Errorf("p25p1: tsbk: %w", rxerr.ErrShortFrame)
	}
	t := TSBK{
		LastBlock: payload[0]&0x80 != 0,
		Opcode:    payload[0] & 0x3F,
		Mfid:      payload[1],
		Channel:   uint16(payload[2])<<8 | uint16(payload[3]),
		Source:    uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6]),
		Target:    uint32(payload[7])<<16 | uint32(payload[8])<<8 | uint32(payload[9]),
	}
	if len(payload) >= 11 {
		t.SvcOpts = payload[10]
	}
	return t, nil
}

// Handler implements dispatch.FrameHandler for P25 Phase 1 frames. It
// dispatches on the decoded DUID after NID verification.
type Handler struct{}

// New builds a P25 Phase 1 frame handler.
func New() *Handler { return &Handler{} }

// HandleFrame expects f.Bits to hold a 64-bit NID packed MSB-first as 8
// bytes, optionally followed by a TSBK/MPDU payload.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	if len(f.Bits) < 8 {
		return dispatch.Result{Err: fmt.Errorf("p25p1: %w", rxerr.ErrShortFrame)}
	}
	var nidVal uint64
	for i := 0; i < 8; i++ {
		nidVal = (nidVal << 8) | uint64(f.Bits[i])
	}

	nid, err := DecodeNID(nidVal)
	if err != nil {
		return dispatch.Result{Err: fmt.Errorf("p25p1: %w", err)}
	}

	fields := map[string]any{
		"nac":            nid.NAC,
		"duid":           nid.DUID,
		"corrected_bits": nid.CorrectedBits,
	}

	switch nid.DUID {
	case DUIDTSBK:
		if len(f.Bits) >= 8+10 {
			tsbk, err := DecodeTSBK(f.Bits[8:])
			if err != nil {
				return dispatch.Result{Fields: fields, Err: fmt.Errorf("p25p1: %w", err)}
			}
			fields["tsbk"] = tsbk
		}
	case DUIDHDU, DUIDTDU, DUIDLDU1, DUIDLDU2, DUIDTDULC, DUIDMPDU:
		// Voice/link-control frame types: field extraction beyond the
		// NID is handled by the LC/voice pipeline, not this dispatcher.
	}

	return dispatch.Result{CRCOK: true, Fields: fields}
}
