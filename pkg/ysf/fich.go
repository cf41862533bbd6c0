package ysf

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/fec"
)

// FICH decoding, based on YSFFICH.cpp from MMDVM_CM. Golay(20,8) table
// generation and codeword search now live in pkg/fec so the same search
// routine serves every protocol that leans on a Golay code, not just YSF;
// this file only maps FICH fields in and out of the 8-bit Golay payload
// and handles bit placement in the raw frame bytes.

// Encode encodes FICH data into the payload. Kept for test fixtures that
// build a synthetic frame to exercise Decode; not reachable from the
// receive-only dispatch path.
func (f *YSFFICH) Encode(payload []byte) error {
	if len(payload) < 48 {
		return fmt.Errorf("payload too short for FICH encoding: %d", len(payload))
	}

	var fich uint32
	fich |= uint32(f.FI & 0x03)
	fich |= uint32(f.CS&0x03) << 2
	fich |= uint32(f.CM&0x03) << 4
	fich |= uint32(f.BN&0x01) << 6
	fich |= uint32(f.BT&0x01) << 7

	encoded := fec.Golay2012Encode(uint8(fich))
	writeFICHBits(payload, encoded)
	return nil
}

// Decode decodes FICH data from the payload.
func (f *YSFFICH) Decode(payload []byte) (bool, error) {
	if len(payload) < 48 {
		return false, fmt.Errorf("payload too short for FICH decoding: %d", len(payload))
	}

	encoded := readFICHBits(payload)
	decoded, valid := fec.Golay2012Decode(encoded)
	if !valid {
		return false, nil
	}

	f.FI = decoded & 0x03
	f.CS = (decoded >> 2) & 0x03
	f.CM = (decoded >> 4) & 0x03
	f.BN = (decoded >> 6) & 0x01
	f.BT = (decoded >> 7) & 0x01

	return true, nil
}

// SetFI sets the Frame Information field
func (f *YSFFICH) SetFI(fi byte) { f.FI = fi }

// SetCS sets the Communication Type / Channel ID field
func (f *YSFFICH) SetCS(cs byte) { f.CS = cs }

// SetCM sets the Call Mode field
func (f *YSFFICH) SetCM(cm byte) { f.CM = cm }

// SetBN sets the Block Number field
func (f *YSFFICH) SetBN(bn byte) { f.BN = bn }

// SetBT sets the Block Type field
func (f *YSFFICH) SetBT(bt byte) { f.BT = bt }

// SetFN sets the Frame Number field
func (f *YSFFICH) SetFN(fn byte) { f.FN = fn }

// SetFT sets the Frame Total field
func (f *YSFFICH) SetFT(ft byte) { f.FT = ft }

// SetDev sets the Device Type field
func (f *YSFFICH) SetDev(dev byte) { f.Dev = dev }

// SetMR sets the Message Route field
func (f *YSFFICH) SetMR(mr byte) { f.MR = mr }

// SetVoIP sets the VoIP flag
func (f *YSFFICH) SetVoIP(voip byte) { f.VoIP = voip }

// SetDT sets the Data Type field
func (f *YSFFICH) SetDT(dt byte) { f.DT = dt }

// SetSQL sets the SQL Type field
func (f *YSFFICH) SetSQL(sql byte) { f.SQL = sql }

// SetSQ sets the SQL Code field
func (f *YSFFICH) SetSQ(sq byte) { f.SQ = sq }

// GetFI gets the Frame Information field
func (f *YSFFICH) GetFI() byte { return f.FI }

// GetDT gets the Data Type field
func (f *YSFFICH) GetDT() byte { return f.DT }

// GetFN gets the Frame Number field
func (f *YSFFICH) GetFN() byte { return f.FN }

// GetFT gets the Frame Total field
func (f *YSFFICH) GetFT() byte { return f.FT }

// writeFICHBits writes FICH bits into the payload. Simplified placement,
// not the exact YSF spec bit layout.
func writeFICHBits(payload []byte, fich uint32) {
	payload[4] = byte((fich >> 12) & 0xFF)
	payload[5] = byte((fich >> 4) & 0xFF)
	payload[6] = byte((fich & 0x0F) << 4)
}

// readFICHBits reads FICH bits from the payload.
func readFICHBits(payload []byte) uint32 {
	var fich uint32
	fich = uint32(payload[4]) << 12
	fich |= uint32(payload[5]) << 4
	fich |= uint32(payload[6]) >> 4
	return fich & 0xFFFFF
}
