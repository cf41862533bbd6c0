// Package x2tdma implements the X2-TDMA frame handler (C4): a DMR-Tier-I
// lineage protocol whose voice/data slot header follows the same
// LB/PF/opcode shape DMR CSBKs use, generalized here to X2-TDMA's burst
// layout. Grounded on this module's pkg/protocol/dmr package (same
// header bit positions) and pkg/fec.CRC16CAC for the trailing checksum.
package x2tdma

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
	"github.com/dbehnke/dsd-nexus/pkg/syncdet"
)

// BurstType distinguishes the two X2-TDMA sync families.
type BurstType int

const (
	BurstData BurstType = iota
	BurstVoice
)

// SlotHeader is a decoded X2-TDMA burst header.
type SlotHeader struct {
	Burst   BurstType
	LCO     byte
	Target  uint32
	Source  uint32
}

// DecodeSlotHeader parses the burst header.
func DecodeSlotHeader(burst BurstType, payload []byte) (SlotHeader, error) {
	if len(payload) < 7 {
		return SlotHeader{}, fmt.Errorf("x2tdma: slot header: %w", rxerr.ErrShortFrame)
	}
	return SlotHeader{
		Burst:  burst,
		LCO:    payload[0] & 0x3F,
		Target: uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]),
		Source: uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6]),
	}, nil
}

// Handler implements dispatch.FrameHandler for X2-TDMA frames.
type Handler struct{}

// New builds an X2-TDMA frame handler.
func New() *Handler { return &Handler{} }

// HandleFrame decodes the burst header and checks the trailing CRC-16-CAC.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	burst := BurstData
	if f.SyncType == syncdet.SyncX2TDMAVoice {
		burst = BurstVoice
	}

	hdr, err := DecodeSlotHeader(burst, f.Bits)
	if err != nil {
		return dispatch.Result{Err: fmt.Errorf("x2tdma: %w", err)}
	}

	ok := fec.CRC16CAC.Verify(f.Bits)
	result := dispatch.Result{
		CRCOK:  ok,
		CRCBad: !ok,
		Fields: map[string]any{
			"burst":  hdr.Burst,
			"lco":    hdr.LCO,
			"target": hdr.Target,
			"source": hdr.Source,
		},
	}
	if !ok {
		result.Err = fmt.Errorf("x2tdma: %w", rxerr.ErrCRCMismatch)
	}
	return result
}
