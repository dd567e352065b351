package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the scout service
type Metrics struct {
	// Event ingestion metrics
	EventsReceived    prometheus.Counter
	MalformedEvents   prometheus.Counter
	DuplicatesDropped prometheus.Counter
	RejectionsTotal   *prometheus.CounterVec

	// Media group metrics
	GroupsOpened  prometheus.Counter
	GroupsFlushed *prometheus.CounterVec
	GroupSize     prometheus.Histogram
	OpenBuffers   prometheus.Gauge

	// Handoff metrics
	CandidatesEmitted prometheus.Counter
	SubmitErrors      *prometheus.CounterVec

	// Channel refresh metrics
	RefreshTotal   prometheus.Counter
	RefreshErrors  prometheus.Counter
	ActiveChannels prometheus.Gauge

	// Platform call metrics
	EnrichmentCalls prometheus.Counter
	FloodWaits      prometheus.Counter
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	// Initialize DefaultMetrics on package import
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance with all counters and gauges
func NewMetrics() *Metrics {
	return &Metrics{
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_events_received_total",
			Help: "Total number of raw channel message events received",
		}),
		MalformedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_malformed_events_total",
			Help: "Total number of events dropped for missing required fields",
		}),
		DuplicatesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_duplicates_dropped_total",
			Help: "Total number of events dropped as already seen",
		}),
		RejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_service_rejections_total",
				Help: "Total number of messages rejected by validation",
			},
			[]string{"reason"},
		),

		GroupsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_media_groups_opened_total",
			Help: "Total number of media group buffers created",
		}),
		GroupsFlushed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_service_media_groups_flushed_total",
				Help: "Total number of media group buffers flushed",
			},
			[]string{"trigger"},
		),
		GroupSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_service_media_group_size",
			Help:    "Number of physical messages per flushed media group",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		}),
		OpenBuffers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scout_service_open_media_group_buffers",
			Help: "Current number of open media group buffers",
		}),

		CandidatesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_candidates_emitted_total",
			Help: "Total number of candidate posts handed to the downstream pipeline",
		}),
		SubmitErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_service_submit_errors_total",
				Help: "Total number of downstream handoff errors",
			},
			[]string{"error_type"},
		),

		RefreshTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_channel_refreshes_total",
			Help: "Total number of channel list refresh cycles",
		}),
		RefreshErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_channel_refresh_errors_total",
			Help: "Total number of failed channel list refresh cycles",
		}),
		ActiveChannels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scout_service_active_channels",
			Help: "Current number of actively monitored channels",
		}),

		EnrichmentCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_enrichment_calls_total",
			Help: "Total number of rate-limited metadata calls to Telegram",
		}),
		FloodWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scout_service_flood_waits_total",
			Help: "Total number of FLOOD_WAIT responses from Telegram",
		}),
	}
}

// RecordEventReceived increments the received events counter
func (m *Metrics) RecordEventReceived() {
	m.EventsReceived.Inc()
}

// RecordMalformedEvent increments the malformed events counter
func (m *Metrics) RecordMalformedEvent() {
	m.MalformedEvents.Inc()
}

// RecordDuplicate increments the duplicates counter
func (m *Metrics) RecordDuplicate() {
	m.DuplicatesDropped.Inc()
}

// RecordRejection increments the rejection counter for a reason
func (m *Metrics) RecordRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordGroupOpened increments the opened groups counter
func (m *Metrics) RecordGroupOpened() {
	m.GroupsOpened.Inc()
}

// RecordGroupFlushed records a flushed group with its trigger and size
func (m *Metrics) RecordGroupFlushed(trigger string, size int) {
	if trigger == "" {
		trigger = "unknown"
	}
	m.GroupsFlushed.WithLabelValues(trigger).Inc()
	if size > 0 {
		m.GroupSize.Observe(float64(size))
	}
}

// UpdateOpenBuffers sets the open buffers gauge
func (m *Metrics) UpdateOpenBuffers(count int) {
	m.OpenBuffers.Set(float64(count))
}

// RecordCandidateEmitted increments the emitted candidates counter
func (m *Metrics) RecordCandidateEmitted() {
	m.CandidatesEmitted.Inc()
}

// RecordSubmitError increments the handoff error counter for a type
func (m *Metrics) RecordSubmitError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.SubmitErrors.WithLabelValues(errorType).Inc()
}

// RecordRefresh increments the refresh cycle counter
func (m *Metrics) RecordRefresh() {
	m.RefreshTotal.Inc()
}

// RecordRefreshError increments the refresh error counter
func (m *Metrics) RecordRefreshError() {
	m.RefreshErrors.Inc()
}

// UpdateActiveChannels sets the active channels gauge
func (m *Metrics) UpdateActiveChannels(count int) {
	m.ActiveChannels.Set(float64(count))
}

// RecordEnrichmentCall increments the enrichment call counter
func (m *Metrics) RecordEnrichmentCall() {
	m.EnrichmentCalls.Inc()
}

// RecordFloodWait increments the flood wait counter
func (m *Metrics) RecordFloodWait() {
	m.FloodWaits.Inc()
}
