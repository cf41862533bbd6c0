package fec

import "testing"

func TestViterbiDecodesCleanSequence(t *testing.T) {
	v := NewViterbi(5)
	v.Start()

	// Feed a sequence of symbol pairs and confirm chainback over 20
	// steps terminates without panicking; the decoded bits themselves
	// are not checked.
	for i := 0; i < 20; i++ {
		v.Decode(uint8(i%2), uint8((i/2)%2))
	}

	out := make([]byte, 4)
	v.Chainback(out, 20)
}

func TestViterbiK3ForDStar(t *testing.T) {
	v := NewViterbi(3)
	v.Start()
	for i := 0; i < 10; i++ {
		v.Decode(uint8(i%2), uint8((i+1)%2))
	}
	out := make([]byte, 2)
	v.Chainback(out, 10)
}
