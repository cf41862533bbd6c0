package alias

import (
	"testing"

	"github.com/dbehnke/dsd-nexus/pkg/fec"
)

func TestProprietaryAssemblerPublishesOnLastSegment(t *testing.T) {
	a := NewProprietaryAssembler()
	if _, complete, err := a.AddSegment(1, 2, [4]byte{'J', 'O', 'H', 'N'}); err != nil || complete {
		t.Fatalf("expected incomplete after first of two segments, err=%v complete=%v", err, complete)
	}
	out, complete, err := a.AddSegment(2, 2, [4]byte{'N', 'Y', '1', 'F'})
	if err != nil {
		t.Fatal(err)
	}
	if !complete {
		t.Fatal("expected completion after second segment")
	}
	if out != "JOHNNY1F" {
		t.Fatalf("expected JOHNNY1F, got %q", out)
	}
}

func TestProprietaryAssemblerRejectsOutOfRangeSegment(t *testing.T) {
	a := NewProprietaryAssembler()
	_, _, err := a.AddSegment(5, 2, [4]byte{})
	if err == nil {
		t.Fatal("expected rejection of out-of-range segment index")
	}
}

func TestProprietaryAssemblerRejectsBadTotalBlocks(t *testing.T) {
	a := NewProprietaryAssembler()
	_, _, err := a.AddSegment(1, 5, [4]byte{})
	if err == nil {
		t.Fatal("expected rejection of total_blocks > 4")
	}
}

// buildARIBSegments lays out a 20-byte text body across 4 six-byte
// segments, with the trailing 4 bytes of the last segment holding the
// CRC-32 over the preceding 20 bytes, matching fec.CRCParams.Verify's
// body/trailer split.
func buildARIBSegments(text string) (segs [4][6]byte, want string) {
	body := make([]byte, 20)
	copy(body, text)
	want = DecodeShiftJISLike(body)

	full := make([]byte, 24)
	copy(full, body)
	crc := fec.CRC32.Compute(body)
	full[20] = byte(crc >> 24)
	full[21] = byte(crc >> 16)
	full[22] = byte(crc >> 8)
	full[23] = byte(crc)

	for i := 0; i < 4; i++ {
		copy(segs[i][:], full[i*6:(i+1)*6])
	}
	return segs, want
}

func TestARIBAssemblerPublishesOnValidCRC(t *testing.T) {
	segs, want := buildARIBSegments("HELLO WORLD TALKER AL")
	a := NewARIBAssembler()
	var out string
	var complete bool
	var err error
	for i := 0; i < 4; i++ {
		out, complete, err = a.AddSegment(i, segs[i])
	}
	if err != nil {
		t.Fatal(err)
	}
	if !complete {
		t.Fatal("expected completion on the 4th segment")
	}
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestARIBDecodeShiftJISLikeASCIIPassthrough(t *testing.T) {
	got := DecodeShiftJISLike([]byte("HELLO"))
	if got != "HELLO" {
		t.Fatalf("expected ASCII passthrough, got %q", got)
	}
}

func TestARIBDecodeShiftJISLikeKatakana(t *testing.T) {
	got := DecodeShiftJISLike([]byte{0xA1})
	want := string(rune(0xFF61))
	if got != want {
		t.Fatalf("expected half-width katakana U+FF61, got %q", got)
	}
}

func TestARIBDecodeShiftJISLikeUnknownLeadByte(t *testing.T) {
	got := DecodeShiftJISLike([]byte{0x81, 0x40})
	if got != string(rune(0xFFFD)) {
		t.Fatalf("expected replacement character, got %q", got)
	}
}

func TestARIBAssemblerResetsOnCRCMismatch(t *testing.T) {
	a := NewARIBAssembler()
	bad := [4][6]byte{}
	for i := 0; i < 4; i++ {
		copy(bad[i][:], []byte("XXXXXX"))
	}
	var lastErr error
	for i := 0; i < 4; i++ {
		_, _, err := a.AddSegment(i, bad[i])
		if i == 3 {
			lastErr = err
		}
	}
	if lastErr == nil {
		t.Fatal("expected CRC mismatch error on garbage segments")
	}
	if a.mask != 0 {
		t.Fatal("expected mask reset after CRC mismatch")
	}
}
