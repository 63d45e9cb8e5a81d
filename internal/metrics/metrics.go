package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives sync pipeline measurements.
type Collector interface {
	RecordSync(organizationID string, newTransactions, matched int, duration time.Duration)
	RecordTransaction(status string)
	RecordDuplicate()
	RecordProviderError()
	RecordPersistenceError()
	RecordRuleFired()
}

// NoOpCollector discards everything.
type NoOpCollector struct{}

func (NoOpCollector) RecordSync(string, int, int, time.Duration) {}
func (NoOpCollector) RecordTransaction(string)                   {}
func (NoOpCollector) RecordDuplicate()                           {}
func (NoOpCollector) RecordProviderError()                       {}
func (NoOpCollector) RecordPersistenceError()                    {}
func (NoOpCollector) RecordRuleFired()                           {}

// PrometheusCollector implements Collector with prometheus counters.
type PrometheusCollector struct {
	syncs             prometheus.Counter
	syncDuration      prometheus.Histogram
	transactions      *prometheus.CounterVec
	duplicates        prometheus.Counter
	providerErrors    prometheus.Counter
	persistenceErrors prometheus.Counter
	rulesFired        prometheus.Counter
}

// NewPrometheusCollector creates the collector and registers it with reg.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	pc := &PrometheusCollector{
		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_syncs_total",
			Help:      "Total number of completed bank sync runs",
		}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bank_sync_duration_seconds",
			Help:      "Duration of bank sync runs",
			Buckets:   prometheus.DefBuckets,
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_transactions_ingested_total",
			Help:      "New bank transactions stored, by match status",
		}, []string{"status"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_transactions_duplicate_total",
			Help:      "Feed transactions skipped because they were already stored",
		}),
		providerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_provider_errors_total",
			Help:      "Accounts whose feed fetch failed",
		}),
		persistenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_persistence_errors_total",
			Help:      "Transactions that failed to persist",
		}),
		rulesFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_rules_fired_total",
			Help:      "Transactions classified by a user rule",
		}),
	}
	for _, c := range []prometheus.Collector{
		pc.syncs, pc.syncDuration, pc.transactions, pc.duplicates, pc.providerErrors, pc.persistenceErrors, pc.rulesFired,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func (p *PrometheusCollector) RecordSync(_ string, _, _ int, duration time.Duration) {
	p.syncs.Inc()
	p.syncDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordTransaction(status string) {
	p.transactions.WithLabelValues(status).Inc()
}

func (p *PrometheusCollector) RecordDuplicate()        { p.duplicates.Inc() }
func (p *PrometheusCollector) RecordProviderError()    { p.providerErrors.Inc() }
func (p *PrometheusCollector) RecordPersistenceError() { p.persistenceErrors.Inc() }
func (p *PrometheusCollector) RecordRuleFired()        { p.rulesFired.Inc() }
