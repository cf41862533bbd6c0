// Package sacch reassembles the NXDN SACCH superframe (C7): 4 segments
// of 18 bits each, each carrying its own CRC-6, published only once all
// four segments validate. The descrambler LFSR must be reset on segment
// 1 and advanced by 4*seg_index pseudo-frames on later segments to stay
// phase-aligned with per-slot voice descrambling. Grounded on this
// module's pkg/fec (CRC engine, MSB-first bit packing) and pkg/keyring's
// LFSRState for the phase-alignment advance.
package sacch

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/fec"
	"github.com/dbehnke/dsd-nexus/pkg/keyring"
)

const (
	numSegments     = 4
	segmentBits     = 18
	pseudoFrameStep = 4
)

// sfToIndex maps the 2-bit "sf" field to a 0-based segment index: sf
// counts down from the first segment (3) to the final one (0).
var sfToIndex = map[int]int{3: 0, 2: 1, 1: 2, 0: 3}

// Assembler reassembles one SACCH superframe.
type Assembler struct {
	segments [numSegments]uint32 // low 18 bits valid
	ok       [numSegments]bool
	lfsr     *keyring.LFSRState
}

// NewAssembler builds a SACCH assembler bound to an LFSR that will be
// reset/advanced in lock-step with incoming segments.
func NewAssembler(lfsr *keyring.LFSRState) *Assembler {
	return &Assembler{lfsr: lfsr}
}

// packBits18 left-justifies the low 18 bits of v into 3 bytes, MSB
// first, for the CRC-6 computation.
func packBits18(v uint32) []byte {
	buf := make([]byte, 3)
	for i := uint(0); i < segmentBits; i++ {
		bit := (v>>(segmentBits-1-i))&1 != 0
		fec.WriteBit(buf, i, bit)
	}
	return buf
}

// AddSegment processes one SACCH segment: sf is the 2-bit field value,
// payload18 holds the segment's 18 data bits (low bits valid), crc6 is
// the 6-bit checksum stored alongside it. Returns the reassembled
// 72-bit superframe (as 4 uint32 18-bit words) and true once all four
// segments have validated.
func (a *Assembler) AddSegment(sf int, payload18 uint32, crc6 uint8) ([numSegments]uint32, bool, error) {
	idx, known := sfToIndex[sf]
	if !known {
		return [numSegments]uint32{}, false, fmt.Errorf("sacch: unknown sf field value %d", sf)
	}

	got := fec.CRC6ITU.Compute(packBits18(payload18 & (1<<segmentBits - 1)))
	if got != uint32(crc6&0x3F) {
		return [numSegments]uint32{}, false, fmt.Errorf("sacch: segment %d CRC-6 mismatch", idx)
	}

	a.segments[idx] = payload18 & (1<<segmentBits - 1)
	a.ok[idx] = true

	if a.lfsr != nil {
		if idx == 0 {
			a.lfsr.Reset()
		} else {
			a.lfsr.Advance(pseudoFrameStep * idx)
		}
	}

	for i := 0; i < numSegments; i++ {
		if !a.ok[i] {
			return [numSegments]uint32{}, false, nil
		}
	}
	out := a.segments
	a.ok = [numSegments]bool{}
	return out, true, nil
}
