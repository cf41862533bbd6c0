// Package dmr implements the DMR CSBK frame handler (C4): the
// LB/PF/opcode/FID header plus channel-grant field extraction for
// opcodes 48..56. Grounded on this module's pkg/protocol/constants.go
// slot-byte bit layout (reused here for the CSBK header's own bitfields)
// and pkg/fec.CRC16CAC for the trailing checksum.
package dmr

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

const (
	csbkOpcodeMask = 0x3F
	grantOpcodeLo  = 48
	grantOpcodeHi  = 56
)

// CSBK is a decoded Control Signalling Block header plus grant fields.
type CSBK struct {
	LastBlock bool
	Protect   bool
	Opcode    byte
	FID       byte
	IsGrant   bool
	LPCN      byte
	LCN       byte
	SvcType   byte
	Target    uint32
	Source    uint32
}

// Decode parses a CSBK's fixed header and, for grant opcodes (48..56),
// the channel-grant fields that follow it.
func Decode(payload []byte) (CSBK, error) {
	if len(payload) < 2 {
		return CSBK{}, fmt.Errorf("dmr: csbk: %w", rxerr.ErrShortFrame)
	}
	c := CSBK{
		LastBlock: payload[0]&0x80 != 0,
		Protect:   payload[0]&0x40 != 0,
		Opcode:    payload[0] & csbkOpcodeMask,
		FID:       payload[1],
	}
	c.IsGrant = c.Opcode >= grantOpcodeLo && c.Opcode <= grantOpcodeHi
	if c.IsGrant {
		if len(payload) < 9 {
			return CSBK{}, fmt.Errorf("dmr: csbk grant: %w", rxerr.ErrShortFrame)
		}
		c.LPCN = payload[2] >> 4
		c.LCN = payload[2] & 0x0F
		c.SvcType = payload[3]
		c.Target = uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6])
		c.Source = uint32(payload[7])<<16 | uint32(payload[8])<<8
		if len(payload) >= 10 {
			c.Source |= uint32(payload[9])
		}
	}
	return c, nil
}

// Handler implements dispatch.FrameHandler for DMR CSBK frames.
type Handler struct{}

// New builds a DMR CSBK frame handler.
func New() *Handler { return &Handler{} }

// HandleFrame decodes the CSBK and checks its trailing CRC-16-CAC.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	csbk, err := Decode(f.Bits)
	if err != nil {
		return dispatch.Result{Err: fmt.Errorf("dmr: %w", err)}
	}

	ok := fec.CRC16CAC.Verify(f.Bits)
	fields := map[string]any{
		"opcode":   csbk.Opcode,
		"fid":      csbk.FID,
		"is_grant": csbk.IsGrant,
	}
	if csbk.IsGrant {
		fields["lpcn"] = csbk.LPCN
		fields["lcn"] = csbk.LCN
		fields["svc_type"] = csbk.SvcType
		fields["target"] = csbk.Target
		fields["source"] = csbk.Source
	}

	result := dispatch.Result{CRCOK: ok, CRCBad: !ok, Fields: fields}
	if !ok {
		result.Err = fmt.Errorf("dmr: %w", rxerr.ErrCRCMismatch)
	}
	return result
}
