package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics are the protocol engine counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	FramesTotal     *prometheus.CounterVec // labels: result=ok|invalid
	DiscardedBytes  *prometheus.CounterVec // labels: reason
	BytesReceived   prometheus.Counter
	BytesSent       prometheus.Counter
	RequestsTotal   *prometheus.CounterVec // labels: command
	TimeoutsTotal   *prometheus.CounterVec // labels: phase
	RowsUpdated     prometheus.Counter
	ChannelsSkipped prometheus.Counter
	SelectedChannel prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcr_frames_total",
			Help: "Frames cut out of the receive stream.",
		}, []string{"result"}),
		DiscardedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcr_discarded_bytes_total",
			Help: "Bytes dropped while resynchronising on the start marker.",
		}, []string{"reason"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcr_bytes_received_total",
			Help: "Bytes read from the transport.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcr_bytes_sent_total",
			Help: "Bytes written to the transport.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcr_requests_total",
			Help: "Commands sent by name.",
		}, []string{"command"}),
		TimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcr_timeouts_total",
			Help: "Response timeouts by session phase.",
		}, []string{"phase"}),
		RowsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcr_rows_updated_total",
			Help: "Channel rows refreshed.",
		}),
		ChannelsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcr_channels_skipped_total",
			Help: "Channel-info replies judged not to be a real channel.",
		}),
		SelectedChannel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pcr_selected_channel",
			Help: "Currently selected channel.",
		}),
	}
	reg.MustRegister(m.FramesTotal, m.DiscardedBytes, m.BytesReceived, m.BytesSent, m.RequestsTotal,
		m.TimeoutsTotal, m.RowsUpdated, m.ChannelsSkipped, m.SelectedChannel)
	return m
}

func (m *Metrics) Frame(result string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Discarded(n int, reason string) {
	if m == nil {
		return
	}
	m.DiscardedBytes.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) Received(n int) {
	if m == nil {
		return
	}
	m.BytesReceived.Add(float64(n))
}

func (m *Metrics) Sent(command string, n int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(command).Inc()
	m.BytesSent.Add(float64(n))
}

func (m *Metrics) Timeout(phase string) {
	if m == nil {
		return
	}
	m.TimeoutsTotal.WithLabelValues(phase).Inc()
}

func (m *Metrics) Row() {
	if m == nil {
		return
	}
	m.RowsUpdated.Inc()
}

func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.ChannelsSkipped.Inc()
}

func (m *Metrics) Selected(ch int) {
	if m == nil {
		return
	}
	m.SelectedChannel.Set(float64(ch))
}
