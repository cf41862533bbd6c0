// Package runtime supervises the receiver's three-goroutine concurrency
// model: an ingest goroutine that pulls dibits off a pkg/dibit.Source into
// sync, a decode goroutine that drives the sync detector through the
// dispatch table and trunk state machine, and a UI goroutine that serves
// the double-buffered snapshot. Grounded on cmd/dsdrx/main.go's
// signal.NotifyContext + manual-goroutine-join shutdown, upgraded to
// golang.org/x/sync/errgroup because a third concurrent subsystem (the web
// snapshot server) needs the same cancellation-on-first-error semantics
// the teacher's two-subsystem shutdown didn't have to coordinate.
package runtime

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dbehnke/dsd-nexus/pkg/dibit"
	"github.com/dbehnke/dsd-nexus/pkg/logger"
	"github.com/dbehnke/dsd-nexus/pkg/syncdet"
)

// IOHooks is the vtable spec.md §6.2 describes for the three external
// collaborators this repository does not implement itself: the IQ/tuner
// front end, the audio sink, and the IP-tunnel egress. cmd/dsdrx installs
// a concrete implementation at startup; tests use NopIOHooks.
type IOHooks interface {
	// TuneToFreq asks the front end to retune to freqHz for the given slot.
	TuneToFreq(freqHz uint64, slot int)
	// EmitAudio hands decoded voice-frame PCM (or a passthrough codec
	// payload, since AMBE decode is out of scope) to the audio sink.
	EmitAudio(slot int, payload []byte)
	// EmitIPPacket hands a reassembled IP-tunnel datagram to egress.
	EmitIPPacket(payload []byte)
}

// NopIOHooks logs and no-ops every call. Used when no real front end is
// configured and in tests.
type NopIOHooks struct {
	Log *logger.Logger
}

func (h NopIOHooks) TuneToFreq(freqHz uint64, slot int) {
	if h.Log != nil {
		h.Log.Debug("tune requested", logger.Uint64("freq_hz", freqHz), logger.Int("slot", slot))
	}
}

func (h NopIOHooks) EmitAudio(slot int, payload []byte) {
	if h.Log != nil {
		h.Log.Debug("audio frame dropped (no audio sink configured)", logger.Int("slot", slot), logger.Int("bytes", len(payload)))
	}
}

func (h NopIOHooks) EmitIPPacket(payload []byte) {
	if h.Log != nil {
		h.Log.Debug("ip packet dropped (no egress configured)", logger.Int("bytes", len(payload)))
	}
}

// DecodeFunc drives one dibit through sync detection and, on a sync
// transition, the dispatch table. Supplied by cmd/dsdrx since it closes
// over the dispatch.Table, trunk.StateMachine, and event.Publisher that
// only the wiring layer constructs.
type DecodeFunc func(d dibit.Dibit, st syncdet.SyncType)

// UIFunc serves the UI/web subsystem until ctx is cancelled.
type UIFunc func(ctx context.Context) error

// Supervisor owns the three goroutines and their shared shutdown context.
type Supervisor struct {
	source  dibit.Source
	sync    *syncdet.Detector
	decode  DecodeFunc
	serveUI UIFunc
	log     *logger.Logger
}

// New builds a Supervisor. decode is called once per ingested dibit with
// the sync detector's post-feed state; serveUI blocks until ctx is done.
func New(source dibit.Source, det *syncdet.Detector, decode DecodeFunc, serveUI UIFunc, log *logger.Logger) *Supervisor {
	return &Supervisor{source: source, sync: det, decode: decode, serveUI: serveUI, log: log}
}

// Run starts all three goroutines and blocks until one returns an error or
// ctx is cancelled, at which point the remaining two are cancelled too.
// The first non-nil, non-context.Canceled error is returned.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.runIngest(gctx) })
	g.Go(func() error {
		if s.serveUI == nil {
			<-gctx.Done()
			return nil
		}
		return s.serveUI(gctx)
	})

	// A live source's NextDibit blocks on I/O and has no context
	// parameter of its own, so cancellation alone cannot unblock it:
	// closing the source is what makes a pending read return an error.
	go func() {
		<-gctx.Done()
		_ = s.source.Close()
	}()

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("runtime: %w", err)
	}
	return nil
}

// runIngest pulls dibits from the source and drives them through the sync
// detector and decode callback until ctx is cancelled or the source is
// exhausted. A restartable source (FileSource) loops on EOF so a captured
// recording can be replayed indefinitely for soak testing.
func (s *Supervisor) runIngest(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		d, err := s.source.NextDibit()
		if err != nil {
			if !s.source.IsRestartable() {
				return fmt.Errorf("ingest: %w", err)
			}
			type restarter interface{ Restart() error }
			r, ok := s.source.(restarter)
			if !ok {
				return fmt.Errorf("ingest: restartable source missing Restart: %w", err)
			}
			if rerr := r.Restart(); rerr != nil {
				return fmt.Errorf("ingest: restart: %w", rerr)
			}
			continue
		}

		st := s.sync.Feed(d)
		if s.decode != nil {
			s.decode(d, st)
		}
	}
}
