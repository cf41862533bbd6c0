// Package dispatch implements the C3 frame dispatcher: pure routing from a
// detected sync-type to the matching protocol frame handler. It owns no
// protocol state; all mutable state lives in the handler or the trunk
// state machine. Grounded on the since-deleted pkg/bridge.Router, which routed
// inbound DMR packets to peer/bridge targets via a map keyed by system
// name — generalized here from peer-system routing to sync-type routing.
package dispatch

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
	"github.com/dbehnke/dsd-nexus/pkg/syncdet"
)

// Frame is the raw dibit-derived bit buffer handed to a handler, plus the
// per-bit reliability the soft-decision FEC stages need.
type Frame struct {
	SyncType    syncdet.SyncType
	Bits        []byte
	Reliability []uint8
}

// Result is what a handler hands back to the caller after running its
// six-stage contract to completion (or aborting partway through).
type Result struct {
	CRCOK  bool
	CRCBad bool // relaxed-CRC policy accepted despite a failed check
	Fields map[string]any
	Err    error
}

// FrameHandler is the six-stage contract every protocol/* subpackage
// implements: descramble, deinterleave, depuncture, FEC-decode, verify
// CRC, extract fields.
type FrameHandler interface {
	HandleFrame(f Frame) Result
}

// Table is a map[SyncType]FrameHandler dispatch table.
type Table struct {
	handlers map[syncdet.SyncType]FrameHandler
}

// NewTable builds an empty dispatch table.
func NewTable() *Table {
	return &Table{handlers: make(map[syncdet.SyncType]FrameHandler)}
}

// Register binds a handler to a sync type. Re-registering overwrites.
func (t *Table) Register(st syncdet.SyncType, h FrameHandler) {
	t.handlers[st] = h
}

// Dispatch routes a frame to its handler. Unknown sync types and frames
// tagged SyncNone are rejected without invoking any handler.
func (t *Table) Dispatch(f Frame) (Result, error) {
	if f.SyncType == syncdet.SyncNone {
		return Result{}, fmt.Errorf("dispatch: %w", rxerr.ErrUnknownSyncType)
	}
	h, ok := t.handlers[f.SyncType]
	if !ok {
		return Result{}, fmt.Errorf("dispatch: sync type %d: %w", f.SyncType, rxerr.ErrUnknownSyncType)
	}
	return h.HandleFrame(f), nil
}
