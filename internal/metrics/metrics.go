// Package metrics exposes decoder and capture counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "funkthermometer"

// Metrics holds the collectors of one process. Every method is safe to
// call on a nil *Metrics, which is how tests and tools run without them.
type Metrics struct {
	Registry *prometheus.Registry

	EdgesTotal        prometheus.Counter
	EdgesDropped      prometheus.Counter
	BurstsTotal       prometheus.Counter
	AcceptedTotal     *prometheus.CounterVec
	RejectedTotal     *prometheus.CounterVec
	ConsensusSupport  prometheus.Histogram
	PulseJitter       prometheus.Gauge
	LatestTemperature *prometheus.GaugeVec
	LatestHumidity    *prometheus.GaugeVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		EdgesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_total",
			Help:      "Total number of edge events consumed by the decoder",
		}),
		EdgesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_dropped_total",
			Help:      "Edge events dropped because the capture queue was full",
		}),
		BurstsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bursts_total",
			Help:      "Bursts finalized by the decoder",
		}),
		AcceptedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_accepted_total",
			Help:      "Measurements that passed every plausibility gate",
		}, []string{"station"}),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bursts_rejected_total",
			Help:      "Bursts discarded by the decoder, by reason",
		}, []string{"reason"}),
		ConsensusSupport: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consensus_support",
			Help:      "Number of identical repetitions backing each consensus frame",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		PulseJitter: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pulse_jitter_microseconds",
			Help:      "Mean deviation of bit pulses from the nominal width in the last burst",
		}),
		LatestTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last accepted temperature",
		}, []string{"station", "channel"}),
		LatestHumidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Last accepted relative humidity",
		}, []string{"station", "channel"}),
	}

	m.Registry.MustRegister(
		m.EdgesTotal,
		m.EdgesDropped,
		m.BurstsTotal,
		m.AcceptedTotal,
		m.RejectedTotal,
		m.ConsensusSupport,
		m.PulseJitter,
		m.LatestTemperature,
		m.LatestHumidity,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveEdge() {
	if m != nil {
		m.EdgesTotal.Inc()
	}
}

func (m *Metrics) ObserveDropped() {
	if m != nil {
		m.EdgesDropped.Inc()
	}
}

// ObserveBurst records a finalized burst and its bit-pulse jitter.
func (m *Metrics) ObserveBurst(jitterMean float64) {
	if m == nil {
		return
	}
	m.BurstsTotal.Inc()
	m.PulseJitter.Set(jitterMean)
}

func (m *Metrics) ObserveSupport(support int) {
	if m != nil {
		m.ConsensusSupport.Observe(float64(support))
	}
}

// ObserveAccepted counts a measurement and publishes its latest values.
func (m *Metrics) ObserveAccepted(station string, channel uint8, temperature, humidity float64) {
	if m == nil {
		return
	}
	ch := strconv.Itoa(int(channel))
	m.AcceptedTotal.WithLabelValues(station).Inc()
	m.LatestTemperature.WithLabelValues(station, ch).Set(temperature)
	m.LatestHumidity.WithLabelValues(station, ch).Set(humidity)
}

func (m *Metrics) ObserveRejected(reason string) {
	if m != nil {
		m.RejectedTotal.WithLabelValues(reason).Inc()
	}
}
