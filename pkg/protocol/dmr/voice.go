package dmr

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/codec"
	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

const superframeBytes = 33

// VoiceHandler implements dispatch.FrameHandler for DMR voice
// superframes. It does not decode AMBE to PCM (out of scope); it
// extracts the three vocoder codewords per superframe via pkg/codec and
// hands them back as a passthrough payload for runtime.IOHooks.EmitAudio.
type VoiceHandler struct{}

// NewVoiceHandler builds a DMR voice superframe handler.
func NewVoiceHandler() *VoiceHandler { return &VoiceHandler{} }

// HandleFrame extracts the superframe's three AMBE codewords and packs
// them into a single passthrough payload under the "ambe_payload" field.
func (h *VoiceHandler) HandleFrame(f dispatch.Frame) dispatch.Result {
	if len(f.Bits) < superframeBytes {
		return dispatch.Result{Err: fmt.Errorf("dmr: voice: %w", rxerr.ErrShortFrame)}
	}

	frames := codec.ExtractDMRSuperframe(f.Bits[:superframeBytes])
	payload := make([]byte, 0, 36)
	for _, vf := range frames {
		payload = append(payload, vf.Pack()...)
	}

	return dispatch.Result{
		CRCOK: true,
		Fields: map[string]any{
			"ambe_payload": payload,
			"frame_count":  len(frames),
		},
	}
}
