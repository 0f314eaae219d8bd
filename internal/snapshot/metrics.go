package snapshot

import (
	"bytes"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"uplink-status-monitor/internal/channel"
)

const (
	MetricNamespace = "uplink"

	// ContentType is the media type of the text exposition format.
	ContentType = "text/plain; version=0.0.4; charset=utf-8"
)

// absent is exported for telemetry values that were not available.
const absent = -1

// Metrics is the gauge state of one cycle. Each cycle builds its own
// registry, so series of sites that disappeared are not carried over.
type Metrics struct {
	reg *prometheus.Registry

	ChannelState   *prometheus.GaugeVec
	Loss           *prometheus.GaugeVec
	Response       *prometheus.GaugeVec
	Reserve        *prometheus.GaugeVec
	Sites          prometheus.Gauge
	CycleTimestamp prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ChannelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Name:      "channel_state",
			Help:      "Active uplink per site (1: main, 0: backup, -1: unknown)",
		}, []string{"site"}),
		Loss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Name:      "icmp_loss_15m_percent",
			Help:      "ICMP packet loss over 15 minutes in percent (-1: no data)",
		}, []string{"site"}),
		Response: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Name:      "icmp_response_1m_ms",
			Help:      "Average ICMP response time over 1 minute in milliseconds (-1: no data)",
		}, []string{"site"}),
		Reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Name:      "site_reserve",
			Help:      "Whether the site is a reserve-only site (1) or a primary site (0)",
		}, []string{"site"}),
		Sites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Name:      "cycle_sites",
			Help:      "Number of sites in the last completed cycle",
		}),
		CycleTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Name:      "cycle_timestamp_seconds",
			Help:      "Unix time the last completed cycle finished",
		}),
	}
	m.reg.MustRegister(m.ChannelState, m.Loss, m.Response, m.Reserve, m.Sites, m.CycleTimestamp)
	return m
}

// Observe sets the gauges for one record.
func (m *Metrics) Observe(r Record) {
	m.ChannelState.WithLabelValues(r.Name).Set(channel.GaugeValue(r.Channel))
	m.Loss.WithLabelValues(r.Name).Set(valueOr(r.Telemetry.LossPercent15m))
	m.Response.WithLabelValues(r.Name).Set(valueOr(r.Telemetry.AvgResponseMs1m))
	reserve := 0.0
	if r.Reserve {
		reserve = 1
	}
	m.Reserve.WithLabelValues(r.Name).Set(reserve)
}

// Render encodes the registry in the text exposition format.
func (m *Metrics) Render() ([]byte, error) {
	families, err := m.reg.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// RenderRecords builds and encodes the gauges of one cycle.
func RenderRecords(records []Record, at time.Time) ([]byte, error) {
	m := NewMetrics()
	for _, r := range records {
		m.Observe(r)
	}
	m.Sites.Set(float64(len(records)))
	m.CycleTimestamp.Set(float64(at.Unix()))
	return m.Render()
}

func valueOr(v *float64) float64 {
	if v == nil {
		return absent
	}
	return *v
}
