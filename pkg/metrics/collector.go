// Package metrics exposes the Discipline Loop's published status as
// Prometheus metrics using the Describe/Collect interface, sourcing every
// value by pull from a single snapshot rather than by push from a
// separate per-sample collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/khronos/khronos/internal/discipline"
)

// Snapshotter is satisfied by *khronos.Handle. Defining it here rather than
// importing the top-level package keeps pkg/metrics free of a dependency on
// process wiring.
type Snapshotter interface {
	Snapshot() discipline.Status
}

// Collector implements prometheus.Collector by reading a fresh
// discipline.Status on every scrape. Because the Discipline Loop is the
// sole writer of that status and already publishes it atomically, there is
// no separate bookkeeping layer to keep in sync: Collect just reads through.
type Collector struct {
	snap Snapshotter

	offsetSeconds       *prometheus.Desc
	driftPPM            *prometheus.Desc
	nisEMA              *prometheus.Desc
	qScale              *prometheus.Desc
	lastRTTSeconds      *prometheus.Desc
	lastSyncAgoSeconds  *prometheus.Desc
	epochCounter        *prometheus.Desc
	sampleSuccessTotal  *prometheus.Desc
	sampleFailureTotal  *prometheus.Desc
	sampleRejectedTotal *prometheus.Desc
}

// NewCollector builds a Collector that reports the given Snapshotter's
// status under the configured metric namespace (e.g. "khronos").
func NewCollector(namespace string, snap Snapshotter) *Collector {
	return &Collector{
		snap: snap,
		offsetSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "offset_seconds"),
			"Current filtered offset between the Program Clock and true time, in seconds",
			nil, nil,
		),
		driftPPM: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "drift_ppm"),
			"Current estimated clock drift rate in parts per million",
			nil, nil,
		),
		nisEMA: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "nis_ema"),
			"Exponential moving average of the normalized innovation squared",
			nil, nil,
		),
		qScale: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "q_scale"),
			"Current adaptive process-noise scale factor",
			nil, nil,
		),
		lastRTTSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_rtt_seconds"),
			"Round-trip time of the most recently accepted sample, in seconds",
			[]string{"server"}, nil,
		),
		lastSyncAgoSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_sync_ago_seconds"),
			"Seconds elapsed since the last successful sample was applied",
			[]string{"server"}, nil,
		),
		epochCounter: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "epoch_counter"),
			"Number of times the Program Clock has been re-anchored by a hard re-sync or reset",
			nil, nil,
		),
		sampleSuccessTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sample_success_total"),
			"Total number of NTP samples accepted by the filter",
			nil, nil,
		),
		sampleFailureTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sample_failure_total"),
			"Total number of sampling cycles where every configured server failed",
			nil, nil,
		),
		sampleRejectedTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sample_rejected_total"),
			"Total number of samples rejected by the outlier gate",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offsetSeconds
	ch <- c.driftPPM
	ch <- c.nisEMA
	ch <- c.qScale
	ch <- c.lastRTTSeconds
	ch <- c.lastSyncAgoSeconds
	ch <- c.epochCounter
	ch <- c.sampleSuccessTotal
	ch <- c.sampleFailureTotal
	ch <- c.sampleRejectedTotal
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snap.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.offsetSeconds, prometheus.GaugeValue, s.Offset)
	ch <- prometheus.MustNewConstMetric(c.driftPPM, prometheus.GaugeValue, s.DriftPPM)
	ch <- prometheus.MustNewConstMetric(c.nisEMA, prometheus.GaugeValue, s.NISEMA)
	ch <- prometheus.MustNewConstMetric(c.qScale, prometheus.GaugeValue, s.QScale)
	ch <- prometheus.MustNewConstMetric(c.lastRTTSeconds, prometheus.GaugeValue, s.LastRTT.Seconds(), s.LastServer)
	ch <- prometheus.MustNewConstMetric(c.lastSyncAgoSeconds, prometheus.GaugeValue, s.LastSyncAgo.Seconds(), s.LastServer)
	ch <- prometheus.MustNewConstMetric(c.epochCounter, prometheus.GaugeValue, float64(s.EpochCounter))
	ch <- prometheus.MustNewConstMetric(c.sampleSuccessTotal, prometheus.CounterValue, float64(s.SampleSuccessTotal))
	ch <- prometheus.MustNewConstMetric(c.sampleFailureTotal, prometheus.CounterValue, float64(s.SampleFailureTotal))
	ch <- prometheus.MustNewConstMetric(c.sampleRejectedTotal, prometheus.CounterValue, float64(s.SampleRejectedTotal))
}
