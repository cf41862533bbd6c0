// Package dpmr implements the dPMR frame handler (C4): the FS{1..4}
// frame-sync-selected slot header plus a CRC-7 payload check. Grounded
// on this module's pkg/fec.CRC7 and the DMR CSBK header's bitfield
// layout, generalized to dPMR's narrower (6.25kHz) slot format.
package dpmr

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
	"github.com/dbehnke/dsd-nexus/pkg/syncdet"
)

// FrameSync identifies which of the four dPMR frame-sync patterns
// preceded this frame.
type FrameSync int

const (
	FS1 FrameSync = iota + 1
	FS2
	FS3
	FS4
)

func frameSyncFor(st syncdet.SyncType) FrameSync {
	switch st {
	case syncdet.SyncDPMRFS1Plus, syncdet.SyncDPMRFS1Minus:
		return FS1
	case syncdet.SyncDPMRFS2Plus, syncdet.SyncDPMRFS2Minus:
		return FS2
	case syncdet.SyncDPMRFS3Plus, syncdet.SyncDPMRFS3Minus:
		return FS3
	default:
		return FS4
	}
}

// SlotHeader is a decoded dPMR slot header.
type SlotHeader struct {
	FS      FrameSync
	Colour  byte
	Target  uint16
	Source  uint16
}

// DecodeSlotHeader parses the slot header bytes.
func DecodeSlotHeader(fs FrameSync, payload []byte) (SlotHeader, error) {
	if len(payload) < 5 {
		return SlotHeader{}, fmt.Errorf("dpmr: slot header: %w", rxerr.ErrShortFrame)
	}
	return SlotHeader{
		FS:     fs,
		Colour: payload[0] & 0x3F,
		Target: uint16(payload[1])<<8 | uint16(payload[2]),
		Source: uint16(payload[3])<<8 | uint16(payload[4]),
	}, nil
}

// Handler implements dispatch.FrameHandler for dPMR frames.
type Handler struct{}

// New builds a dPMR frame handler.
func New() *Handler { return &Handler{} }

// HandleFrame decodes the slot header named by the sync type and checks
// the trailing CRC-7.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	fs := frameSyncFor(f.SyncType)
	hdr, err := DecodeSlotHeader(fs, f.Bits)
	if err != nil {
		return dispatch.Result{Err: fmt.Errorf("dpmr: %w", err)}
	}

	ok := fec.CRC7.Verify(f.Bits)
	result := dispatch.Result{
		CRCOK:  ok,
		CRCBad: !ok,
		Fields: map[string]any{
			"fs":     hdr.FS,
			"colour": hdr.Colour,
			"target": hdr.Target,
			"source": hdr.Source,
		},
	}
	if !ok {
		result.Err = fmt.Errorf("dpmr: %w", rxerr.ErrCRCMismatch)
	}
	return result
}
