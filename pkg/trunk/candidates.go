package trunk

// maxCandidates bounds the control-channel hunt ring.
const maxCandidates = 16

// candidateRing is a deduplicated, bounded FIFO of alternate control
// channel frequencies to try when the primary CC goes stale, grounded on
// the teacher's StreamTracker map-plus-slice bookkeeping style.
type candidateRing struct {
	freqs []uint64
}

func newCandidateRing() *candidateRing {
	return &candidateRing{freqs: make([]uint64, 0, maxCandidates)}
}

// Add appends freqHz to the ring if not already present, dropping the
// oldest entry when the ring is full.
func (cr *candidateRing) Add(freqHz uint64) {
	for _, f := range cr.freqs {
		if f == freqHz {
			return
		}
	}
	if len(cr.freqs) >= maxCandidates {
		cr.freqs = cr.freqs[1:]
	}
	cr.freqs = append(cr.freqs, freqHz)
}

// Pop removes and returns the next candidate, FIFO order. ok is false if
// the ring is empty.
func (cr *candidateRing) Pop() (freqHz uint64, ok bool) {
	if len(cr.freqs) == 0 {
		return 0, false
	}
	freqHz = cr.freqs[0]
	cr.freqs = cr.freqs[1:]
	return freqHz, true
}

// Len reports the number of candidates currently queued.
func (cr *candidateRing) Len() int {
	return len(cr.freqs)
}
