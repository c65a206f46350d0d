package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/usecase"
)

// Metrics holds all Prometheus metrics of the ledger engine.
type Metrics struct {
	// Journal metrics
	EntriesCreated   *prometheus.CounterVec
	EntriesPosted    *prometheus.CounterVec
	EntriesCancelled prometheus.Counter
	EntriesRejected  *prometheus.CounterVec

	// Depreciation metrics
	DepreciationPosted *prometheus.CounterVec
	DepreciationAmount *prometheus.HistogramVec

	// Closing metrics
	PeriodsClosed *prometheus.CounterVec

	// Report metrics
	ReportDuration *prometheus.HistogramVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
	OutboxPurges    prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

var _ usecase.Metrics = (*Metrics)(nil)

// New creates the ledger metrics and registers them on reg.
// The gatherer used by Handler is reg when it also implements prometheus.Gatherer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		EntriesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgledger_journal_entries_created_total",
				Help: "Total journal entries created, by number prefix",
			},
			[]string{"prefix"},
		),
		EntriesPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgledger_journal_entries_posted_total",
				Help: "Total journal entries posted, by number prefix",
			},
			[]string{"prefix"},
		),
		EntriesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgledger_journal_entries_cancelled_total",
			Help: "Total journal entries cancelled",
		}),
		EntriesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgledger_journal_entries_rejected_total",
				Help: "Total rejected journal operations, by error category",
			},
			[]string{"category"},
		),

		DepreciationPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgledger_depreciation_posted_total",
				Help: "Total depreciation schedules posted, by method",
			},
			[]string{"method"},
		),
		DepreciationAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgledger_depreciation_amount",
				Help:    "Posted depreciation amounts",
				Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method"},
		),

		PeriodsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgledger_periods_closed_total",
				Help: "Total period closings, by kind",
			},
			[]string{"kind"},
		),

		ReportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgledger_report_duration_seconds",
				Help:    "Duration of balance and report queries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),

		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgledger_outbox_events_published_total",
			Help: "Total outbox events published",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgledger_outbox_publish_failures_total",
			Help: "Total outbox events that failed to publish",
		}),
		OutboxPurges: factory.NewCounter(prometheus.CounterOpts{
			Name: "orgledger_outbox_purges_total",
			Help: "Total retention purges of published outbox events",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) EntryCreated(prefix string) {
	m.EntriesCreated.WithLabelValues(prefix).Inc()
}

func (m *Metrics) EntryPosted(prefix string) {
	m.EntriesPosted.WithLabelValues(prefix).Inc()
}

func (m *Metrics) EntryCancelled() {
	m.EntriesCancelled.Inc()
}

func (m *Metrics) EntryRejected(category string) {
	m.EntriesRejected.WithLabelValues(category).Inc()
}

func (m *Metrics) DepreciationPosted(method string, amount decimal.Decimal) {
	m.DepreciationPosted.WithLabelValues(method).Inc()
	m.DepreciationAmount.WithLabelValues(method).Observe(amount.InexactFloat64())
}

func (m *Metrics) PeriodClosed(kind string) {
	m.PeriodsClosed.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveReport(report string, elapsed time.Duration) {
	m.ReportDuration.WithLabelValues(report).Observe(elapsed.Seconds())
}

// EventPublished, EventFailed and EventsPurged feed the outbox publisher counters.
func (m *Metrics) EventPublished() { m.OutboxPublished.Inc() }

func (m *Metrics) EventFailed() { m.OutboxFailures.Inc() }

func (m *Metrics) EventsPurged() { m.OutboxPurges.Inc() }
