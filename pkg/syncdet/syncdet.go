// Package syncdet implements the C2 sync detector: a sliding-window
// correlator that scans the dibit stream for each enabled protocol's known
// sync pattern (both polarities), tolerating a protocol-specific Hamming
// distance, and requires the first post-sync field to pass an integrity
// check before committing to a detection.
package syncdet

import "github.com/dbehnke/dsd-nexus/pkg/dibit"

// SyncType is the closed enum of frame sync tags a detector can publish.
type SyncType int

const (
	SyncNone SyncType = iota
	SyncP25P1Plus
	SyncP25P1Minus
	SyncP25P2Plus
	SyncP25P2Minus
	SyncDMRBSDataPlus
	SyncDMRBSDataMinus
	SyncDMRBSVoicePlus
	SyncDMRBSVoiceMinus
	SyncDMRMSVoice
	SyncDMRMSData
	SyncDMRRCData
	SyncDSTARPlus
	SyncDSTARMinus
	SyncDSTARHdrPlus
	SyncDSTARHdrMinus
	SyncNXDNPlus
	SyncNXDNMinus
	SyncYSFPlus
	SyncYSFMinus
	SyncDPMRFS1Plus
	SyncDPMRFS2Plus
	SyncDPMRFS3Plus
	SyncDPMRFS4Plus
	SyncDPMRFS1Minus
	SyncDPMRFS2Minus
	SyncDPMRFS3Minus
	SyncDPMRFS4Minus
	SyncM17Str
	SyncM17Lsf
	SyncM17Brt
	SyncM17Pkt
	SyncM17Pre
	SyncX2TDMAData
	SyncX2TDMAVoice
	SyncEdacs
	SyncAnalog
	SyncDigital
)

// Pattern describes one protocol's expected sync sequence for correlation.
type Pattern struct {
	Type      SyncType
	Dibits    []int8 // expected signed dibit values, positive polarity
	Tolerance int    // max Hamming distance (in dibit positions) accepted
}

// Confirmer validates the first post-sync field for a SyncType; returning
// false tells the detector the match was a false positive.
type Confirmer func(window []dibit.Dibit) bool

// Detector is the sliding-window correlator. It holds a ring of the most
// recently seen dibits and tests every registered pattern (positive and
// inverted polarity) on each new symbol.
type Detector struct {
	patterns   []Pattern
	confirmers map[SyncType]Confirmer
	window     []dibit.Dibit
	maxLen     int
	current    SyncType
}

// New builds a detector with a sliding window sized to the longest
// registered pattern (clamped to the spec's 24-48 dibit range).
func New(patterns []Pattern) *Detector {
	maxLen := 24
	for _, p := range patterns {
		if len(p.Dibits) > maxLen {
			maxLen = len(p.Dibits)
		}
	}
	if maxLen > 48 {
		maxLen = 48
	}
	return &Detector{
		patterns:   patterns,
		confirmers: make(map[SyncType]Confirmer),
		maxLen:     maxLen,
		current:    SyncNone,
	}
}

// RegisterConfirmer attaches the post-sync integrity check for a SyncType.
func (d *Detector) RegisterConfirmer(t SyncType, c Confirmer) {
	d.confirmers[t] = c
}

// Current returns the currently published sync type.
func (d *Detector) Current() SyncType { return d.current }

// Feed advances the detector by one dibit. It returns the SyncType
// detected at this step (SyncNone if nothing matched or a match failed
// confirmation).
func (d *Detector) Feed(sym dibit.Dibit) SyncType {
	d.window = append(d.window, sym)
	if len(d.window) > d.maxLen {
		d.window = d.window[len(d.window)-d.maxLen:]
	}

	for _, p := range d.patterns {
		if matched, inverted := correlate(d.window, p); matched {
			_ = inverted
			if c, ok := d.confirmers[p.Type]; ok && !c(d.window) {
				d.current = SyncNone
				continue
			}
			d.current = p.Type
			return p.Type
		}
	}
	return SyncNone
}

// correlate tests the tail of window against p in both polarities within
// tolerance, returning (matched, invertedPolarity).
func correlate(window []dibit.Dibit, p Pattern) (bool, bool) {
	n := len(p.Dibits)
	if len(window) < n {
		return false, false
	}
	tail := window[len(window)-n:]

	posDist := 0
	negDist := 0
	for i, want := range p.Dibits {
		got := tail[i].Value
		if got != want {
			posDist++
		}
		if got != -want {
			negDist++
		}
	}

	if posDist <= p.Tolerance {
		return true, false
	}
	if negDist <= p.Tolerance {
		return true, true
	}
	return false, false
}
