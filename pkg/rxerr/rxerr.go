// Package rxerr defines the sentinel error taxonomy shared across the
// receiver pipeline. Stage functions wrap these with fmt.Errorf("...: %w")
// so callers can still match with errors.Is while getting a stage-specific
// message.
package rxerr

import "errors"

var (
	// ErrSyncNotFound means no sync pattern matched within tolerance.
	ErrSyncNotFound = errors.New("sync pattern not found")

	// ErrShortFrame means fewer dibits were available than the frame needs.
	ErrShortFrame = errors.New("short frame")

	// ErrDescramble means a descrambler (LFSR/scrambler) state was invalid
	// or the descrambled frame failed a structural sanity check.
	ErrDescramble = errors.New("descramble failed")

	// ErrDeinterleave means the deinterleaver was given a frame whose
	// length does not match its fixed permutation table.
	ErrDeinterleave = errors.New("deinterleave failed")

	// ErrDepuncture means a punctured code's erasure pattern was malformed.
	ErrDepuncture = errors.New("depuncture failed")

	// ErrFECUncorrectable means Viterbi/trellis/Golay/BCH decoding could
	// not produce a codeword within the distance the code guarantees.
	ErrFECUncorrectable = errors.New("FEC uncorrectable")

	// ErrCRCMismatch means the payload's checksum did not validate.
	ErrCRCMismatch = errors.New("CRC mismatch")

	// ErrUnknownSyncType means a dispatch table had no handler registered
	// for the sync type the correlator reported.
	ErrUnknownSyncType = errors.New("unknown sync type")

	// ErrNoHandler means a protocol module did not implement a required
	// stage of the frame handler contract.
	ErrNoHandler = errors.New("no handler registered")

	// ErrEncryptedLockout means the trunk state machine refused to grant
	// or follow a call because the encryption bit was set and the
	// lockout policy forbids it.
	ErrEncryptedLockout = errors.New("call is encrypted, lockout active")

	// ErrNoCandidates means the control-channel hunter exhausted its
	// candidate ring without finding a valid control channel.
	ErrNoCandidates = errors.New("no control channel candidates remain")

	// ErrPatchTableFull means the 8x8 patch/regroup table had no free
	// slot and LRU eviction still could not admit a new entry.
	ErrPatchTableFull = errors.New("patch table full")

	// ErrUnknownIdentifier means a site/frequency identifier referenced
	// a band-plan entry that is not present in the IDEN table.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrReassemblyTimeout means a multi-fragment payload (LRRP, TMS,
	// talker alias, SACCH superframe) was abandoned before completion.
	ErrReassemblyTimeout = errors.New("fragment reassembly timed out")

	// ErrKeyNotFound means the keyring had no entry for a requested key
	// ID / algorithm pair.
	ErrKeyNotFound = errors.New("key not found")
)
