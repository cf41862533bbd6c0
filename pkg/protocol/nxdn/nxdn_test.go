package nxdn

import (
	"testing"

	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
)

func TestDecodeLICHKnownValue(t *testing.T) {
	lich, err := DecodeLICH(0x00)
	if err != nil {
		t.Fatal(err)
	}
	if !lich.Masks.SACCH || !lich.Masks.CAC {
		t.Fatalf("expected SACCH+CAC masks, got %+v", lich.Masks)
	}
}

func TestDecodeLICHDCRSignature(t *testing.T) {
	// 0x47: masked value 0x46 is a DCR signature, so parity covers the
	// top 7 bits (0x23, three set bits -> odd parity, low bit 1).
	lich, err := DecodeLICH(0x47)
	if err != nil {
		t.Fatal(err)
	}
	if !lich.Masks.Voice || !lich.Masks.FACCH || !lich.Masks.SACCH {
		t.Fatalf("expected voice+facch+sacch masks, got %+v", lich.Masks)
	}
}

func TestDecodeLICHRejectsBadParity(t *testing.T) {
	// 0x46 carries the DCR-signature masked value but the wrong low bit
	// for its top-7-bit parity (0x47 is the parity-valid byte).
	if _, err := DecodeLICH(0x46); err == nil {
		t.Fatal("expected rejection of a table-present LICH value with a corrupted parity bit")
	}
}

func TestDecodeLICHAllOnesAccepted(t *testing.T) {
	lich, err := DecodeLICH(0xFF)
	if err != nil {
		t.Fatalf("expected all-ones value to be accepted, got error: %v", err)
	}
	if lich.Masks != (PositionMasks{}) {
		t.Fatalf("expected zero-value masks for all-ones sentinel, got %+v", lich.Masks)
	}
}

func TestDecodeLICHRejectsUnknownValue(t *testing.T) {
	_, err := DecodeLICH(0x99)
	if err == nil {
		t.Fatal("expected rejection of unknown LICH value with off-bits != 0xFF")
	}
}

func TestDecodeLICHFieldExtraction(t *testing.T) {
	lich, err := DecodeLICH(0x0A) // rf=0b000, usc=0b0101(VCH), direction=0
	if err != nil {
		t.Fatal(err)
	}
	if lich.RFChannel != RCCH {
		t.Fatalf("expected RCCH, got %v", lich.RFChannel)
	}
	if lich.USC != USCVCH {
		t.Fatalf("expected USCVCH, got %v", lich.USC)
	}
	if lich.Direction != 0 {
		t.Fatalf("expected direction 0, got %d", lich.Direction)
	}
}

func TestHandleFrameRejectsEmptyFrame(t *testing.T) {
	h := New()
	res := h.HandleFrame(dispatch.Frame{})
	if res.Err == nil {
		t.Fatal("expected short-frame rejection")
	}
}
