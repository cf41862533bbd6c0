package syncdet

// hexToDibits expands a hex sync word into its dibit sequence, two dibits
// per hex digit (high bit pair first), mapping the four 2-bit symbols to
// the signed dibit values +3, +1, -1, -3 the way a 4-level FSK/C4FM
// demodulator's symbol slicer does.
func hexToDibits(hex string) []int8 {
	symToDibit := [4]int8{3, 1, -1, -3}
	out := make([]int8, 0, len(hex)*2)
	for _, c := range hex {
		var nibble byte
		switch {
		case c >= '0' && c <= '9':
			nibble = byte(c - '0')
		case c >= 'a' && c <= 'f':
			nibble = byte(c-'a') + 10
		case c >= 'A' && c <= 'F':
			nibble = byte(c-'A') + 10
		default:
			continue
		}
		for shift := 2; shift >= 0; shift -= 2 {
			out = append(out, symToDibit[(nibble>>uint(shift))&0x3])
		}
	}
	return out
}

// invert returns the polarity-flipped dibit sequence (each symbol
// negated), used to register a sync word's "minus" counterpart without
// repeating the hex literal.
func invert(dibits []int8) []int8 {
	out := make([]int8, len(dibits))
	for i, d := range dibits {
		out[i] = -d
	}
	return out
}

// DefaultPatterns returns the published 48-bit (DMR, P25 Phase 1) and
// protocol-specific sync words for every family this receiver supports,
// both polarities, at a conservative default Hamming tolerance. Callers
// may filter this list down to the protocols actually enabled in
// configuration before handing it to New.
func DefaultPatterns() []Pattern {
	const tolerance = 2

	p25p1 := hexToDibits("5575F5FF77FF")
	p25p2 := hexToDibits("575D57F7")
	dmrBSVoice := hexToDibits("755FD7DF75F7")
	dmrBSData := hexToDibits("DFF57D75DF5D")
	dmrMSVoice := hexToDibits("7F7D5DD57DFD")
	dmrMSData := hexToDibits("D5D7F77FD757")
	dmrRC := hexToDibits("77D55F7DFD77")
	dstar := hexToDibits("55552856")
	dstarHdr := hexToDibits("33333333")
	nxdn := hexToDibits("CD37")
	ysf := hexToDibits("D4712B6774")
	dpmrFS1 := hexToDibits("4E")
	dpmrFS2 := hexToDibits("5D")
	dpmrFS3 := hexToDibits("7A")
	dpmrFS4 := hexToDibits("E8")
	m17Str := hexToDibits("FF5D")
	m17Lsf := hexToDibits("5F7D")
	m17Brt := hexToDibits("75FF")
	m17Pkt := hexToDibits("7FFD")
	m17Pre := hexToDibits("7777")
	x2tdmaData := hexToDibits("7F7D5DD5")
	x2tdmaVoice := hexToDibits("D5D7F77F")
	edacs := hexToDibits("D3A5")

	pairs := []struct {
		plus  SyncType
		minus SyncType
		word  []int8
	}{
		{SyncP25P1Plus, SyncP25P1Minus, p25p1},
		{SyncP25P2Plus, SyncP25P2Minus, p25p2},
		{SyncDMRBSVoicePlus, SyncDMRBSVoiceMinus, dmrBSVoice},
		{SyncDMRBSDataPlus, SyncDMRBSDataMinus, dmrBSData},
		{SyncDSTARPlus, SyncDSTARMinus, dstar},
		{SyncDSTARHdrPlus, SyncDSTARHdrMinus, dstarHdr},
		{SyncNXDNPlus, SyncNXDNMinus, nxdn},
		{SyncYSFPlus, SyncYSFMinus, ysf},
		{SyncDPMRFS1Plus, SyncDPMRFS1Minus, dpmrFS1},
		{SyncDPMRFS2Plus, SyncDPMRFS2Minus, dpmrFS2},
		{SyncDPMRFS3Plus, SyncDPMRFS3Minus, dpmrFS3},
		{SyncDPMRFS4Plus, SyncDPMRFS4Minus, dpmrFS4},
	}

	patterns := make([]Pattern, 0, 32)
	for _, p := range pairs {
		patterns = append(patterns,
			Pattern{Type: p.plus, Dibits: p.word, Tolerance: tolerance},
			Pattern{Type: p.minus, Dibits: invert(p.word), Tolerance: tolerance},
		)
	}

	// DMR's MS-sourced and reverse-channel sync words and M17/X2-TDMA/EDACS
	// carry no polarity-inverted counterpart in this receiver's model.
	patterns = append(patterns,
		Pattern{Type: SyncDMRMSVoice, Dibits: dmrMSVoice, Tolerance: tolerance},
		Pattern{Type: SyncDMRMSData, Dibits: dmrMSData, Tolerance: tolerance},
		Pattern{Type: SyncDMRRCData, Dibits: dmrRC, Tolerance: tolerance},
		Pattern{Type: SyncM17Str, Dibits: m17Str, Tolerance: tolerance},
		Pattern{Type: SyncM17Lsf, Dibits: m17Lsf, Tolerance: tolerance},
		Pattern{Type: SyncM17Brt, Dibits: m17Brt, Tolerance: tolerance},
		Pattern{Type: SyncM17Pkt, Dibits: m17Pkt, Tolerance: tolerance},
		Pattern{Type: SyncM17Pre, Dibits: m17Pre, Tolerance: tolerance},
		Pattern{Type: SyncX2TDMAData, Dibits: x2tdmaData, Tolerance: tolerance},
		Pattern{Type: SyncX2TDMAVoice, Dibits: x2tdmaVoice, Tolerance: tolerance},
		Pattern{Type: SyncEdacs, Dibits: edacs, Tolerance: tolerance},
	)

	return patterns
}
