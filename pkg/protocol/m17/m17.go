// Package m17 implements the M17 frame handler (C4). The sync type
// selects the frame layout (LSF/STR/PKT/BRT/PRE); only LSF carries a
// parseable call setup (DST/SRC/TYPE) and its own CRC-16, so it's the
// only layout this handler extracts fields from — the others pass their
// payload through for the voice/data codec stage. Grounded on this
// module's pkg/fec.CRC16CAC (CRC-CCITT family, the variant M17 uses for
// its Link Setup Frame) and the DMR CSBK header's field-extraction style.
package m17

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
	"github.com/dbehnke/dsd-nexus/pkg/syncdet"
)

const lsfLength = 30 // DST(6) + SRC(6) + TYPE(2) + META(14) + CRC(2)

// LSF is a decoded Link Setup Frame.
type LSF struct {
	CAN  byte // channel access number, carried in the low nibble of TYPE
	Dst  [6]byte
	Src  [6]byte
	Type uint16
}

// DecodeLSF parses the 30-byte Link Setup Frame.
func DecodeLSF(buf []byte) (LSF, error) {
	if len(buf) < lsfLength {
		return LSF{}, fmt.Errorf("m17: lsf: %w", rxerr.ErrShortFrame)
	}
	var lsf LSF
	copy(lsf.Dst[:], buf[0:6])
	copy(lsf.Src[:], buf[6:12])
	lsf.Type = uint16(buf[12])<<8 | uint16(buf[13])
	lsf.CAN = byte(lsf.Type & 0x0F)
	return lsf, nil
}

// Handler implements dispatch.FrameHandler for M17 frames.
type Handler struct{}

// New builds an M17 frame handler.
func New() *Handler { return &Handler{} }

// HandleFrame extracts LSF fields for M17_LSF sync types; other M17
// layouts (STR/PKT/BRT/PRE) carry their payload through unparsed.
func (h *Handler) HandleFrame(f dispatch.Frame) dispatch.Result {
	switch f.SyncType {
	case syncdet.SyncM17Lsf:
		lsf, err := DecodeLSF(f.Bits)
		if err != nil {
			return dispatch.Result{Err: fmt.Errorf("m17: %w", err)}
		}
		ok := fec.CRC16CAC.Verify(f.Bits[:lsfLength])
		result := dispatch.Result{
			CRCOK:  ok,
			CRCBad: !ok,
			Fields: map[string]any{
				"can":  lsf.CAN,
				"dst":  lsf.Dst,
				"src":  lsf.Src,
				"type": lsf.Type,
			},
		}
		if !ok {
			result.Err = fmt.Errorf("m17: %w", rxerr.ErrCRCMismatch)
		}
		return result
	default:
		return dispatch.Result{CRCOK: true, Fields: map[string]any{"payload": f.Bits}}
	}
}
