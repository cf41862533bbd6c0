// Package ysf wires this module's pkg/ysf (FICH Golay decode, VD Mode 2
// payload extraction) into the C4 dispatch.FrameHandler contract.
package ysf

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
	"github.com/dbehnke/dsd-nexus/pkg/ysf"
)

// Handler implements dispatch.FrameHandler for YSF frames.
type Handler struct {
	payload *ysf.YSFPayload
}

// New builds a YSF frame handler.
func New() *Handler {
	return &Handler{payload: ysf.NewYSFPayload()}
}

// HandleFrame decodes the FICH and, for header frames, the source/dest
// callsigns carried in the VD Mode 2 payload.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	if len(f.Bits) < ysf.YSFHeaderLength {
		return dispatch.Result{Err: fmt.Errorf("ysf: %w", rxerr.ErrShortFrame)}
	}

	fich := &ysf.YSFFICH{}
	valid, err := fich.Decode(f.Bits)
	if err != nil {
		return dispatch.Result{Err: fmt.Errorf("ysf: %w", err)}
	}
	if !valid {
		return dispatch.Result{CRCBad: true, Err: fmt.Errorf("ysf: fich: %w", rxerr.ErrFECUncorrectable)}
	}

	fields := map[string]any{
		"fi": fich.GetFI(),
		"dt": fich.GetDT(),
		"fn": fich.GetFN(),
		"ft": fich.GetFT(),
	}

	if fich.GetFI() == ysf.YSFFIHeader {
		ok, err := h.payload.ProcessHeaderData(f.Bits)
		if err != nil {
			return dispatch.Result{CRCOK: true, Fields: fields, Err: fmt.Errorf("ysf: %w", err)}
		}
		if ok {
			fields["source"] = h.payload.GetSource()
			fields["dest"] = h.payload.GetDest()
		}
	}

	return dispatch.Result{CRCOK: true, Fields: fields}
}
