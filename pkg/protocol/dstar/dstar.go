// Package dstar implements the D-STAR header frame handler (C4): 660
// coded bits descrambled by a 7-bit PN generator, deinterleaved through a
// 24-column diagonal permutation, decoded by a K=3 rate-1/2 Viterbi
// decoder, and checked against a trailing CRC-16/X.25. Grounded on this
// module's pkg/fec (Viterbi, CRC16X25) and pkg/keyring.LFSRState, reused
// here as the PN sequence generator rather than introducing a second
// shift-register implementation.
package dstar

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/keyring"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

const (
	codedBits        = 660
	infoBits         = 330
	infoBytes        = (infoBits + 7) / 8 // 42, last 6 bits zero-padded
	deinterleaveCols = 24

	pnSeed  uint64 = 0b0000111
	pnTaps  uint64 = 1<<6 | 1<<3 // x^7 + x^4
	pnWidth uint   = 7
)

// Handler implements dispatch.FrameHandler for D-STAR header frames.
type Handler struct{}

// New builds a D-STAR header handler.
func New() *Handler { return &Handler{} }

// pnSequence draws n bits (0/1) from the spec's 7-bit PN generator,
// wrapping at its 127-bit period.
func pnSequence(n int) []byte {
	lfsr := keyring.NewLFSR(pnSeed, pnTaps, pnWidth)
	out := make([]byte, n)
	for i := range out {
		lfsr.Advance(1)
		out[i] = byte(lfsr.Current & 1)
	}
	return out
}

// descramble XORs bits against the PN sequence; the same operation
// scrambles, since XOR is its own inverse.
func descramble(bits []byte) []byte {
	pn := pnSequence(len(bits))
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = b ^ pn[i]
	}
	return out
}

// diagonalPermute builds the index permutation for the 24-column
// diagonal (de)interleaver: column c, row (r+c) mod rows. Grid positions
// at or past n (the unfilled tail of the last row) are skipped, so the
// result is a permutation of 0..n-1. Applying it once interleaves;
// applying the same table's inverse deinterleaves.
func diagonalPermute(n, cols int) []int {
	rows := (n + cols - 1) / cols
	perm := make([]int, 0, n)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			srcRow := (r + c) % rows
			if src := srcRow*cols + c; src < n {
				perm = append(perm, src)
			}
		}
	}
	return perm
}

// interleave applies the diagonal permutation forward (used only to build
// test fixtures; the receive path only ever deinterleaves).
func interleave(bits []byte) []byte {
	perm := diagonalPermute(len(bits), deinterleaveCols)
	padded := make([]byte, len(perm))
	copy(padded, bits)
	out := make([]byte, len(perm))
	for i, src := range perm {
		out[i] = padded[src]
	}
	return out[:len(bits)]
}

// deinterleave inverts interleave: perm[i] tells us which output
// position an interleaved bit at position i came from, so scatter
// instead of gather.
func deinterleave(bits []byte) []byte {
	perm := diagonalPermute(len(bits), deinterleaveCols)
	padded := make([]byte, len(perm))
	copy(padded, bits)
	out := make([]byte, len(perm))
	for i, src := range perm {
		out[src] = padded[i]
	}
	return out[:len(bits)]
}

// packBitsMSB packs a 0/1-per-byte bit array into bytes, MSB first,
// zero-padding the final byte if bits isn't a multiple of 8.
func packBitsMSB(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

// HandleFrame runs the six-stage D-STAR header contract. It expects
// exactly codedBits hard-decision bits (0/1, one per byte) in f.Bits.
func (h *Handler) HandleFrame(f Frame) dispatch.Result {
	if len(f.Bits) < codedBits {
		return dispatch.Result{Err: fmt.Errorf("dstar: %w", rxerr.ErrShortFrame)}
	}
	raw := f.Bits[:codedBits]

	descrambled := descramble(raw)
	deinterleaved := deinterleave(descrambled)

	vit := fec.NewViterbi(3)
	vit.Start()
	for i := 0; i+1 < len(deinterleaved); i += 2 {
		vit.Decode(deinterleaved[i], deinterleaved[i+1])
	}
	decoded := make([]byte, infoBytes)
	vit.Chainback(decoded, infoBits)

	ok := fec.CRC16X25.Verify(decoded)
	result := dispatch.Result{
		CRCOK:  ok,
		CRCBad: !ok,
		Fields: map[string]any{
			"info_bits": decoded,
		},
	}
	if !ok {
		result.Err = fmt.Errorf("dstar: header: %w", rxerr.ErrCRCMismatch)
	}
	return result
}

// Frame is a local alias for the frame type every handler receives.
type Frame = dispatch.Frame
