// Package metrics exposes the decode pipeline's counters as Prometheus
// collectors: spec.md §4.10's "counts, not content" observability
// requirement.
//
// Grounded on prometheus.go's NewPrometheusMetrics constructor: one
// struct field per collector, label vectors keyed by the dimension
// that varies. Each Metrics owns a private registry (via
// promauto.With) rather than registering against the global default,
// so a process can build more than one Metrics — e.g. one per test —
// without a duplicate-registration panic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the pipeline updates.
type Metrics struct {
	registry *prometheus.Registry

	framesSeen      *prometheus.CounterVec // by direction
	burstsDecoded   *prometheus.CounterVec // by direction
	burstsRejected  *prometheus.CounterVec // by direction
	bchErrorsFixed  prometheus.Counter
	crcFailures     prometheus.Counter
	reassemblyEvict prometheus.Counter
	sbdPackets      *prometheus.CounterVec // by direction
	acarsRecords    *prometheus.CounterVec // by direction
	acarsCRCErrors  prometheus.Counter
	pipelineLag     prometheus.Histogram
}

// New registers and returns every pipeline collector against a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		framesSeen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iridium_frames_seen_total",
				Help: "Demodulated frames handed to the decode core, by direction.",
			},
			[]string{"direction"},
		),
		burstsDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iridium_ida_bursts_decoded_total",
				Help: "IDA bursts that decoded past LCW and descramble, by direction.",
			},
			[]string{"direction"},
		),
		burstsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iridium_ida_bursts_rejected_total",
				Help: "Frames rejected before producing a burst, by direction.",
			},
			[]string{"direction"},
		),
		bchErrorsFixed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "iridium_bch_errors_fixed_total",
				Help: "Payload BCH(31,20) codewords that needed a correction (table or Chase).",
			},
		),
		crcFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "iridium_ida_crc_failures_total",
				Help: "IDA bursts whose payload CRC did not verify.",
			},
		),
		reassemblyEvict: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "iridium_reassembly_evictions_total",
				Help: "IDA reassembly slots evicted by LRU pressure or timeout.",
			},
		),
		sbdPackets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iridium_sbd_packets_total",
				Help: "SBD packets extracted from reassembled IDA messages, by direction.",
			},
			[]string{"direction"},
		),
		acarsRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iridium_acars_records_total",
				Help: "ACARS records parsed out of SBD payloads, by direction.",
			},
			[]string{"direction"},
		),
		acarsCRCErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "iridium_acars_crc_errors_total",
				Help: "ACARS records with a failing or missing CRC.",
			},
		),
		pipelineLag: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iridium_pipeline_stage_seconds",
				Help:    "Wall-clock time a value spends between one pipeline stage and the next.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) FrameSeen(direction string)     { m.framesSeen.WithLabelValues(direction).Inc() }
func (m *Metrics) BurstDecoded(direction string)  { m.burstsDecoded.WithLabelValues(direction).Inc() }
func (m *Metrics) BurstRejected(direction string) { m.burstsRejected.WithLabelValues(direction).Inc() }
func (m *Metrics) BCHErrorsFixed(n int)           { m.bchErrorsFixed.Add(float64(n)) }
func (m *Metrics) CRCFailure()                    { m.crcFailures.Inc() }
func (m *Metrics) ReassemblyEviction()            { m.reassemblyEvict.Inc() }
func (m *Metrics) SBDPacket(direction string)     { m.sbdPackets.WithLabelValues(direction).Inc() }
func (m *Metrics) ACARSRecord(direction string)   { m.acarsRecords.WithLabelValues(direction).Inc() }
func (m *Metrics) ACARSCRCError()                 { m.acarsCRCErrors.Inc() }
func (m *Metrics) StageLatency(seconds float64)   { m.pipelineLag.Observe(seconds) }

// Handler returns a promhttp handler scoped to this Metrics' registry,
// for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
