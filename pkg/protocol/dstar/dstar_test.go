package dstar

import (
	"testing"

	"github.com/dbehnke/dsd-nexus/pkg/fec"
)

func TestDescrambleIsSelfInverse(t *testing.T) {
	bits := make([]byte, codedBits)
	for i := range bits {
		bits[i] = byte(i % 2)
	}
	scrambled := descramble(bits)
	restored := descramble(scrambled)
	for i := range bits {
		if restored[i] != bits[i] {
			t.Fatalf("byte %d: expected %d got %d", i, bits[i], restored[i])
		}
	}
}

func TestDeinterleaveInvertsInterleave(t *testing.T) {
	bits := make([]byte, codedBits)
	for i := range bits {
		bits[i] = byte((i * 7) % 2)
	}
	out := deinterleave(interleave(bits))
	for i := range bits {
		if out[i] != bits[i] {
			t.Fatalf("position %d: expected %d got %d", i, bits[i], out[i])
		}
	}
}

// TestHandleFrameAllZeroRoundTrip exercises the full pipeline with an
// all-zero coded stream scrambled onto the wire. descramble(pnSequence)
// yields all-zero bits, deinterleaving an all-zero array is a no-op, and
// an all-zero input keeps the Viterbi trellis's zero-state path at the
// minimum metric throughout, so chainback recovers all-zero info bits.
func TestHandleFrameAllZeroRoundTrip(t *testing.T) {
	raw := pnSequence(codedBits)
	h := New()
	res := h.HandleFrame(Frame{Bits: raw})
	if res.Err != nil && !res.CRCBad {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	decoded, ok := res.Fields["info_bits"].([]byte)
	if !ok {
		t.Fatal("expected info_bits field")
	}
	for i, b := range decoded {
		if b != 0 {
			t.Fatalf("byte %d: expected 0, got %d", i, b)
		}
	}
	// CRCOK must agree with calling the same verifier directly.
	if res.CRCOK != fec.CRC16X25.Verify(decoded) {
		t.Fatal("CRCOK disagrees with direct CRC16X25.Verify")
	}
}

func TestHandleFrameRejectsShortFrame(t *testing.T) {
	h := New()
	res := h.HandleFrame(Frame{Bits: make([]byte, 10)})
	if res.Err == nil {
		t.Fatal("expected short-frame rejection")
	}
}

func TestPackBitsMSB(t *testing.T) {
	bits := []byte{1, 0, 1, 1, 0, 0, 0, 0, 1}
	packed := packBitsMSB(bits)
	if len(packed) != 2 {
		t.Fatalf("expected 2 bytes, got %d", len(packed))
	}
	if packed[0] != 0xB0 {
		t.Fatalf("expected 0xB0, got %#02x", packed[0])
	}
	if packed[1] != 0x80 {
		t.Fatalf("expected 0x80, got %#02x", packed[1])
	}
}
