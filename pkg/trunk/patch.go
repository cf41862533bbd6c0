package trunk

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

// maxSupergroups and maxWorkgroupsPerSG bound the 8x8 patch/regroup table.
const (
	maxSupergroups     = 8
	maxWorkgroupsPerSG = 8
)

// patchEntry is one supergroup's regroup/patch record.
type patchEntry struct {
	sg        uint32
	wgids     []uint32
	isPatch   bool
	active    bool
	lastTouch uint64 // monotonic tick counter, used for LRU eviction
}

// PatchTable tracks up to 8 supergroups, each patching up to 8 workgroup
// IDs, per spec §4.5. AddWGID is idempotent; RemoveWGID shrinks the list
// without deleting the SG record; ClearSG marks inactive but preserves
// the record so a later AddWGID on the same SG doesn't look "new".
type PatchTable struct {
	entries []*patchEntry
	clock   uint64
}

// NewPatchTable builds an empty patch/regroup table.
func NewPatchTable() *PatchTable {
	return &PatchTable{entries: make([]*patchEntry, 0, maxSupergroups)}
}

func (pt *PatchTable) find(sg uint32) *patchEntry {
	for _, e := range pt.entries {
		if e.sg == sg {
			return e
		}
	}
	return nil
}

// AddWGID adds wgid to sg's patch list, evicting the oldest inactive
// entry if the table is full and sg is not already present.
func (pt *PatchTable) AddWGID(sg, wgid uint32) error {
	pt.clock++
	e := pt.find(sg)
	if e == nil {
		if len(pt.entries) >= maxSupergroups {
			if !pt.evictOldestInactive() {
				return fmt.Errorf("trunk: add supergroup %d: %w", sg, rxerr.ErrPatchTableFull)
			}
		}
		e = &patchEntry{sg: sg, wgids: make([]uint32, 0, maxWorkgroupsPerSG)}
		pt.entries = append(pt.entries, e)
	}
	e.active = true
	e.lastTouch = pt.clock
	for _, w := range e.wgids {
		if w == wgid {
			return nil // idempotent
		}
	}
	if len(e.wgids) >= maxWorkgroupsPerSG {
		return fmt.Errorf("trunk: supergroup %d: %w", sg, rxerr.ErrPatchTableFull)
	}
	e.wgids = append(e.wgids, wgid)
	return nil
}

// RemoveWGID drops wgid from sg's list. The SG record itself is kept
// even if the list becomes empty.
func (pt *PatchTable) RemoveWGID(sg, wgid uint32) {
	pt.clock++
	e := pt.find(sg)
	if e == nil {
		return
	}
	e.lastTouch = pt.clock
	for i, w := range e.wgids {
		if w == wgid {
			e.wgids = append(e.wgids[:i], e.wgids[i+1:]...)
			return
		}
	}
}

// ClearSG marks sg inactive without deleting its record or member list.
func (pt *PatchTable) ClearSG(sg uint32) {
	pt.clock++
	e := pt.find(sg)
	if e == nil {
		return
	}
	e.active = false
	e.lastTouch = pt.clock
}

// evictOldestInactive removes the least-recently-touched inactive entry.
// Returns false if no inactive entry exists to evict.
func (pt *PatchTable) evictOldestInactive() bool {
	oldestIdx := -1
	var oldestTouch uint64
	for i, e := range pt.entries {
		if e.active {
			continue
		}
		if oldestIdx == -1 || e.lastTouch < oldestTouch {
			oldestIdx = i
			oldestTouch = e.lastTouch
		}
	}
	if oldestIdx == -1 {
		return false
	}
	pt.entries = append(pt.entries[:oldestIdx], pt.entries[oldestIdx+1:]...)
	return true
}

// Members returns the workgroup IDs currently patched under sg, or nil
// if sg has no record.
func (pt *PatchTable) Members(sg uint32) []uint32 {
	e := pt.find(sg)
	if e == nil {
		return nil
	}
	out := make([]uint32, len(e.wgids))
	copy(out, e.wgids)
	return out
}

// IsActive reports whether sg currently has an active patch/regroup.
func (pt *PatchTable) IsActive(sg uint32) bool {
	e := pt.find(sg)
	return e != nil && e.active
}

// SGSnapshot is one supergroup record as exposed to the UI snapshot.
type SGSnapshot struct {
	SG      uint32
	Members []uint32
	Active  bool
}

// Snapshot returns every supergroup record currently held, for the web
// UI's read-only double-buffered view of the patch table.
func (pt *PatchTable) Snapshot() []SGSnapshot {
	out := make([]SGSnapshot, 0, len(pt.entries))
	for _, e := range pt.entries {
		members := make([]uint32, len(e.wgids))
		copy(members, e.wgids)
		out = append(out, SGSnapshot{SG: e.sg, Members: members, Active: e.active})
	}
	return out
}
