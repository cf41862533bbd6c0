// Package edacs implements the EDACS/ProVoice frame handler (C4): the
// LCC (logical channel control) header carried on the control channel,
// plus a CRC-16/X.25 payload check. Grounded on this module's
// pkg/fec.CRC16X25 (already used for D-STAR's header) and the P25p1
// TSBK decoder's opcode/channel/target field layout, generalized to
// EDACS's narrower analog-control-channel word format.
package edacs

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

// LCW is a decoded Logical Channel Word.
type LCW struct {
	Opcode  byte
	Channel uint16
	GroupID uint16
}

// DecodeLCW parses a 5-byte Logical Channel Word.
func DecodeLCW(payload []byte) (LCW, error) {
	if len(payload) < 5 {
		return LCW{}, fmt.Errorf("edacs: lcw: %w", rxerr.ErrShortFrame)
	}
	return LCW{
		Opcode:  payload[0] & 0x1F,
		Channel: uint16(payload[1])<<8 | uint16(payload[2]),
		GroupID: uint16(payload[3])<<8 | uint16(payload[4]),
	}, nil
}

// Handler implements dispatch.FrameHandler for EDACS/ProVoice frames.
type Handler struct{}

// New builds an EDACS/ProVoice frame handler.
func New() *Handler { return &Handler{} }

// HandleFrame decodes the LCW and checks the trailing CRC-16/X.25.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	lcw, err := DecodeLCW(f.Bits)
	if err != nil {
		return dispatch.Result{Err: fmt.Errorf("edacs: %w", err)}
	}

	ok := fec.CRC16X25.Verify(f.Bits)
	result := dispatch.Result{
		CRCOK:  ok,
		CRCBad: !ok,
		Fields: map[string]any{
			"opcode":   lcw.Opcode,
			"channel":  lcw.Channel,
			"group_id": lcw.GroupID,
		},
	}
	if !ok {
		result.Err = fmt.Errorf("edacs: %w", rxerr.ErrCRCMismatch)
	}
	return result
}
