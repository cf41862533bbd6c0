// Package metrics exposes the receiver's runtime counters through
// github.com/prometheus/client_golang, replacing this module's former
// hand-rolled text/plain serializer with the real client library the
// ecosystem uses for this concern. Grounded on this module's pkg/logger
// (same "wrap a well-known library, expose a thin domain API" shape) and
// on pkg/web, which already serves HTTP handlers the same way the
// Prometheus HTTP handler below is mounted.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every Prometheus metric the receiver pipeline updates.
// It owns a private registry rather than the global default so multiple
// Collectors (e.g. in tests) never collide.
type Collector struct {
	registry *prometheus.Registry

	syncHits   *prometheus.CounterVec
	syncMisses *prometheus.CounterVec
	tuneCount  *prometheus.CounterVec
	crcPass    *prometheus.CounterVec
	crcFail    *prometheus.CounterVec
	eventDepth *prometheus.GaugeVec
	grants     *prometheus.CounterVec
}

// NewCollector builds a Collector with all metrics registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		syncHits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dsdnexus_sync_hits_total",
			Help: "Sync patterns matched and confirmed, by protocol sync type.",
		}, []string{"sync_type"}),
		syncMisses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dsdnexus_sync_misses_total",
			Help: "Sync pattern matches that failed post-sync confirmation.",
		}, []string{"sync_type"}),
		tuneCount: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dsdnexus_tune_total",
			Help: "Tuner retune events, by target frequency in Hz.",
		}, []string{"freq_hz"}),
		crcPass: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dsdnexus_crc_pass_total",
			Help: "Frames whose payload CRC validated, by protocol.",
		}, []string{"protocol"}),
		crcFail: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dsdnexus_crc_fail_total",
			Help: "Frames whose payload CRC failed, by protocol.",
		}, []string{"protocol"}),
		eventDepth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "dsdnexus_event_ring_depth",
			Help: "Current occupancy of the event-history ring buffer, by slot.",
		}, []string{"slot"}),
		grants: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dsdnexus_grants_total",
			Help: "Trunk grants processed, by outcome (admitted/denied).",
		}, []string{"outcome"}),
	}
	return c
}

// SyncHit records a confirmed sync match for syncType.
func (c *Collector) SyncHit(syncType string) { c.syncHits.WithLabelValues(syncType).Inc() }

// SyncMiss records a sync match that failed confirmation.
func (c *Collector) SyncMiss(syncType string) { c.syncMisses.WithLabelValues(syncType).Inc() }

// Tune records a retune to freqHz.
func (c *Collector) Tune(freqHz string) { c.tuneCount.WithLabelValues(freqHz).Inc() }

// CRCResult records a pass/fail CRC outcome for protocol.
func (c *Collector) CRCResult(protocol string, ok bool) {
	if ok {
		c.crcPass.WithLabelValues(protocol).Inc()
	} else {
		c.crcFail.WithLabelValues(protocol).Inc()
	}
}

// EventRingDepth sets the current depth gauge for a ring slot.
func (c *Collector) EventRingDepth(slot string, depth int) {
	c.eventDepth.WithLabelValues(slot).Set(float64(depth))
}

// GrantOutcome records a trunk grant admission decision.
func (c *Collector) GrantOutcome(admitted bool) {
	outcome := "denied"
	if admitted {
		outcome = "admitted"
	}
	c.grants.WithLabelValues(outcome).Inc()
}

// Handler returns the promhttp handler serving this Collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
