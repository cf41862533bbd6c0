// Package alias reassembles talker-alias embedded data (C7): a
// proprietary 4x4-byte ASCII scheme, and an ARIB/Shift-JIS-like 4x6-byte
// scheme with a trailing CRC-32. Grounded on this module's pkg/fec.CRC32
// for the checksum and on the former ysf payload package's segment-mask
// reassembly idiom (accumulate fixed-size chunks, publish once every
// expected segment has arrived).
package alias

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/fec"
)

// maxSegments bounds both talker-alias schemes to 4 blocks.
const maxSegments = 4

// ProprietaryAssembler reassembles the 4-segment x 4-ASCII-byte scheme.
type ProprietaryAssembler struct {
	segments    [maxSegments][4]byte
	seen        [maxSegments]bool
	totalBlocks int
}

// NewProprietaryAssembler builds an empty proprietary alias assembler.
func NewProprietaryAssembler() *ProprietaryAssembler {
	return &ProprietaryAssembler{}
}

// AddSegment stores segment segIdx (1-based) of totalBlocks. Only
// segIdx in [1, totalBlocks] with totalBlocks in [1,4] is accepted.
// Returns the assembled alias and true once every segment up to
// totalBlocks has arrived.
func (a *ProprietaryAssembler) AddSegment(segIdx, totalBlocks int, data [4]byte) (string, bool, error) {
	if totalBlocks < 1 || totalBlocks > maxSegments {
		return "", false, fmt.Errorf("alias: invalid total_blocks %d", totalBlocks)
	}
	if segIdx < 1 || segIdx > totalBlocks {
		return "", false, fmt.Errorf("alias: segment index %d out of range [1,%d]", segIdx, totalBlocks)
	}
	a.totalBlocks = totalBlocks
	a.segments[segIdx-1] = data
	a.seen[segIdx-1] = true

	for i := 0; i < totalBlocks; i++ {
		if !a.seen[i] {
			return "", false, nil
		}
	}
	var out []byte
	for i := 0; i < totalBlocks; i++ {
		out = append(out, a.segments[i][:]...)
	}
	return string(out), true, nil
}

// Reset clears all accumulated segments, used after a publish or a
// detected resync.
func (a *ProprietaryAssembler) Reset() {
	*a = ProprietaryAssembler{}
}

// ARIBAssembler reassembles the 4-segment x 6-byte ARIB/Shift-JIS-like
// scheme, validating the CRC-32 in the last 4 of the 24 bytes against
// the first 20 before publishing.
type ARIBAssembler struct {
	segments [maxSegments][6]byte
	mask     uint8
}

// NewARIBAssembler builds an empty ARIB-scheme alias assembler.
func NewARIBAssembler() *ARIBAssembler {
	return &ARIBAssembler{}
}

const aribFullMask = 0x0F // 4 segments, one bit each

// AddSegment stores 0-based segment segIdx's 6 data bytes. Once all 4
// segments are present, it validates the trailing 4-byte CRC-32 appended
// to the concatenation of all segments against fec.CRC32; on mismatch
// the assembly resets and an error is returned so a stale partial
// assembly is never published.
func (a *ARIBAssembler) AddSegment(segIdx int, data [6]byte) (string, bool, error) {
	if segIdx < 0 || segIdx >= maxSegments {
		return "", false, fmt.Errorf("alias: arib segment index %d out of range", segIdx)
	}
	a.segments[segIdx] = data
	a.mask |= 1 << uint(segIdx)

	if a.mask != aribFullMask {
		return "", false, nil
	}

	var all []byte
	for i := 0; i < maxSegments; i++ {
		all = append(all, a.segments[i][:]...)
	}
	// The trailing CRC-32 is carried in the last 4 bytes of the final
	// segment; treat the full 24-byte run as payload+trailer for Verify.
	if !fec.CRC32.Verify(all) {
		a.mask = 0
		return "", false, fmt.Errorf("alias: arib CRC-32 mismatch, assembly discarded")
	}
	a.mask = 0
	payload := all[:len(all)-4]
	return DecodeShiftJISLike(payload), true, nil
}

// DecodeShiftJISLike tolerantly decodes a byte run that may mix ASCII,
// half-width katakana, and Shift-JIS lead/trail byte pairs. Bytes in
// 0xA1..0xDF map to half-width katakana (U+FF61 + offset). A byte >=
// 0x81 that isn't in the katakana range is treated as a Shift-JIS lead
// byte; since no full Shift-JIS table is available, the lead+trail pair
// decodes to U+FFFD (replacement character) rather than being guessed.
func DecodeShiftJISLike(b []byte) string {
	var out []rune
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c < 0x80:
			out = append(out, rune(c))
		case c >= 0xA1 && c <= 0xDF:
			out = append(out, rune(0xFF61+int(c)-0xA1))
		default:
			out = append(out, 0xFFFD)
			if i+1 < len(b) {
				i++ // consume the trail byte of the (unrepresentable) pair
			}
		}
	}
	return string(out)
}
