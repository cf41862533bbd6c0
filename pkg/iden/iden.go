// Package iden implements the C6 identifier/band-plan tables: a
// per-protocol channel-number -> frequency mapping with a trust level,
// plus the frequency math of spec §6.3. Grounded on this module's
// pkg/radioid syncer (a pull+cache+trust importer) adapted from an HTTP pull
// of subscriber IDs to a local-file import of band-plan entries, since an
// outbound radioid.net sync has no analog in a receiver core.
package iden

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Trust is the confidence level of a stored Identifier Entry.
type Trust int

const (
	TrustUntrusted Trust = iota
	TrustProvisional
	TrustConfirmed
)

// ChannelType distinguishes FDMA from TDMA identifier entries.
type ChannelType int

const (
	ChannelFDMA ChannelType = 1
	ChannelTDMA ChannelType = 3
)

// Entry is one Identifier Entry: a protocol's band-plan row.
type Entry struct {
	Type             ChannelType
	BaseFreqUnits    uint64 // units of 5 kHz
	SpacingUnits     uint32 // units of 125 Hz
	Bandwidth        uint32
	TxOffset         int64
	TDMADenom        int // 1 or 2
	Trust            Trust
}

// Table holds one protocol instance's 16 identifier slots (4-bit index).
type Table struct {
	entries [16]*Entry
}

// NewTable builds an empty identifier table.
func NewTable() *Table {
	return &Table{}
}

// Update stores entry at idx, honoring spec §4.6: an update with lower
// trust than the stored entry is ignored; equal-trust updates overwrite.
func (t *Table) Update(idx int, e Entry) error {
	if idx < 0 || idx > 15 {
		return fmt.Errorf("iden: identifier index %d out of range", idx)
	}
	existing := t.entries[idx]
	if existing != nil && e.Trust < existing.Trust {
		return nil
	}
	cp := e
	t.entries[idx] = &cp
	return nil
}

// Get returns the stored entry for idx, or nil if unset.
func (t *Table) Get(idx int) *Entry {
	if idx < 0 || idx > 15 {
		return nil
	}
	return t.entries[idx]
}

// ErrUntrusted means a channel lookup hit an untrusted identifier.
var ErrUntrusted = fmt.Errorf("iden: identifier is untrusted")

// Frequency computes the RF frequency and TDMA slot for a 16-bit channel
// identifier field per spec §3/§6.3: high 4 bits select the identifier
// entry, low 12 bits are the channel number.
func (t *Table) Frequency(channelID uint16) (freqHz uint64, slot int, err error) {
	idx := int((channelID >> 12) & 0x0F)
	chanNum := uint32(channelID & 0x0FFF)

	e := t.Get(idx)
	if e == nil {
		return 0, 0, fmt.Errorf("iden: %w for index %d", ErrUntrusted, idx)
	}
	if e.Trust == TrustUntrusted {
		return 0, 0, ErrUntrusted
	}

	denom := e.TDMADenom
	if denom == 0 {
		denom = 1
	}
	freqHz = e.BaseFreqUnits*5000 + uint64(chanNum/uint32(denom))*uint64(e.SpacingUnits)*125
	slot = int(chanNum) % denom
	return freqHz, slot, nil
}

// NXDNDCRFrequency computes frequency for NXDN's fixed 6.25 kHz DCR grid,
// which uses no IDEN PDU at all.
func NXDNDCRFrequency(baseFreqUnits uint64, channelNumber uint32) uint64 {
	return baseFreqUnits*5000 + uint64(channelNumber)*6250
}

// ImportFromReader loads band-plan rows from a CSV stream with columns
// index,type,base_freq_units,spacing_units,bandwidth,tx_offset,tdma_denom,trust.
// This is the decode-core analog of the teacher's radioid.net syncer: a
// pull+cache+trust importer repointed at a static local file instead of a
// network fetch.
func (t *Table) ImportFromReader(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 8
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("iden: parse band-plan csv: %w", err)
	}
	for _, rec := range records {
		idx, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		typ, _ := strconv.Atoi(rec[1])
		base, _ := strconv.ParseUint(rec[2], 10, 64)
		spacing, _ := strconv.ParseUint(rec[3], 10, 32)
		bw, _ := strconv.ParseUint(rec[4], 10, 32)
		txOff, _ := strconv.ParseInt(rec[5], 10, 64)
		denom, _ := strconv.Atoi(rec[6])
		trust, _ := strconv.Atoi(rec[7])

		if err := t.Update(idx, Entry{
			Type:          ChannelType(typ),
			BaseFreqUnits: base,
			SpacingUnits:  uint32(spacing),
			Bandwidth:     uint32(bw),
			TxOffset:      txOff,
			TDMADenom:     denom,
			Trust:         Trust(trust),
		}); err != nil {
			return err
		}
	}
	return nil
}

// ImportFromFile is a convenience wrapper around ImportFromReader for a
// band-plan file on disk.
func ImportFromFile(t *Table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("iden: open band-plan file: %w", err)
	}
	defer f.Close()
	return t.ImportFromReader(f)
}
