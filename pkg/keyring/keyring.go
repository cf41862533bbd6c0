// Package keyring implements the C9 key/crypto registry: per-call
// descrambler keys (basic-privacy integer keys, scrambler LFSR seeds)
// and multi-segment RC4/DES/AES key blobs, read-mostly during decode and
// mutated only by UI-issued commands between frames. Grounded on this
// module's pkg/protocol/openbridge.go, which already reached for
// crypto/hmac + crypto/sha1 for OpenBridge packet authentication — the
// same stdlib crypto primitives pattern extends here to RC4/DES/AES key
// material and HMAC-backed integrity checks on key blobs.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/rc4"
	"crypto/sha1"
	"fmt"
	"sync"

	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

// Algorithm identifies a key blob's cipher family.
type Algorithm int

const (
	AlgBasicPrivacy Algorithm = iota
	AlgRC4
	AlgDES
	AlgAES
)

// BPKey is a basic-privacy / scrambler integer key, indexed by a
// system/RF hash the caller computes from system ID + frequency.
type BPKey struct {
	Value uint32
}

// KeyBlob is a multi-segment symmetric key (RC4/DES/AES).
type KeyBlob struct {
	Algorithm Algorithm
	KeyID     uint16
	Material  []byte
}

// LFSRState is a scrambler LFSR's seed and live shift register, advanced
// in lock-step with voice frames so key-stream position tracks bit
// consumption even while audio output is muted.
type LFSRState struct {
	Seed    uint64
	Current uint64
	Taps    uint64 // tap mask, XORed into the feedback bit
	Width   uint
}

// NewLFSR builds an LFSR primed with seed, using the given tap mask and
// register width (<=64).
func NewLFSR(seed, taps uint64, width uint) *LFSRState {
	return &LFSRState{Seed: seed, Current: seed, Taps: taps, Width: width}
}

// Reset reseeds the LFSR to its configured seed, used on segment-1 of a
// SACCH superframe or call start.
func (l *LFSRState) Reset() {
	l.Current = l.Seed
}

// Advance steps the LFSR n times and returns the resulting state.
func (l *LFSRState) Advance(n int) uint64 {
	for i := 0; i < n; i++ {
		feedback := uint64(0)
		reg := l.Current
		for b := uint(0); b < l.Width; b++ {
			if l.Taps&(1<<b) != 0 {
				feedback ^= (reg >> b) & 1
			}
		}
		l.Current = ((l.Current << 1) | feedback) & ((1 << l.Width) - 1)
	}
	return l.Current
}

// Registry holds the three key families named in spec §4.9: BP/scrambler
// integer keys, RC4/DES/AES key blobs, and LFSR seeds, each indexed by a
// system/RF-hash key.
type Registry struct {
	mu    sync.RWMutex
	bp    map[uint64]BPKey
	blobs map[uint64]KeyBlob
	lfsrs map[uint64]*LFSRState
}

// NewRegistry builds an empty key registry.
func NewRegistry() *Registry {
	return &Registry{
		bp:    make(map[uint64]BPKey),
		blobs: make(map[uint64]KeyBlob),
		lfsrs: make(map[uint64]*LFSRState),
	}
}

// SetBPKey stores a basic-privacy integer key under hash.
func (r *Registry) SetBPKey(hash uint64, key BPKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bp[hash] = key
}

// BPKey returns the basic-privacy key stored under hash.
func (r *Registry) BPKey(hash uint64) (BPKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.bp[hash]
	if !ok {
		return BPKey{}, fmt.Errorf("keyring: bp key: %w", rxerr.ErrKeyNotFound)
	}
	return k, nil
}

// SetKeyBlob stores a multi-segment RC4/DES/AES key blob under hash.
func (r *Registry) SetKeyBlob(hash uint64, blob KeyBlob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[hash] = blob
}

// KeyBlob returns the key blob stored under hash.
func (r *Registry) KeyBlob(hash uint64) (KeyBlob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[hash]
	if !ok {
		return KeyBlob{}, fmt.Errorf("keyring: key blob: %w", rxerr.ErrKeyNotFound)
	}
	return b, nil
}

// SetLFSR installs an LFSR state under hash.
func (r *Registry) SetLFSR(hash uint64, l *LFSRState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lfsrs[hash] = l
}

// LFSR returns the LFSR state stored under hash.
func (r *Registry) LFSR(hash uint64) (*LFSRState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lfsrs[hash]
	if !ok {
		return nil, fmt.Errorf("keyring: lfsr: %w", rxerr.ErrKeyNotFound)
	}
	return l, nil
}

// NewStreamCipher builds the cipher.Stream (or equivalent) for a key
// blob's algorithm, ready to XOR against a keystream-aligned buffer.
func NewStreamCipher(blob KeyBlob, iv []byte) (cipher.Stream, error) {
	switch blob.Algorithm {
	case AlgRC4:
		c, err := rc4.NewCipher(blob.Material)
		if err != nil {
			return nil, fmt.Errorf("keyring: rc4 setup: %w", err)
		}
		return c, nil
	case AlgDES:
		block, err := des.NewCipher(blob.Material)
		if err != nil {
			return nil, fmt.Errorf("keyring: des setup: %w", err)
		}
		return cipher.NewCFBDecrypter(block, padIV(iv, block.BlockSize())), nil
	case AlgAES:
		block, err := aes.NewCipher(blob.Material)
		if err != nil {
			return nil, fmt.Errorf("keyring: aes setup: %w", err)
		}
		return cipher.NewCFBDecrypter(block, padIV(iv, block.BlockSize())), nil
	default:
		return nil, fmt.Errorf("keyring: algorithm %d has no stream cipher", blob.Algorithm)
	}
}

// padIV truncates or zero-pads iv to exactly n bytes.
func padIV(iv []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, iv)
	return out
}

// BlobDigest returns an HMAC-SHA1 integrity tag for a key blob, using the
// same primitive pkg/protocol/openbridge.go uses to authenticate DMRD
// packets, so a key blob received over OpenBridge can be verified with
// the peer's shared passphrase before it is trusted.
func BlobDigest(blob KeyBlob, passphrase string) []byte {
	h := hmac.New(sha1.New, []byte(passphrase))
	h.Write(blob.Material)
	return h.Sum(nil)
}
