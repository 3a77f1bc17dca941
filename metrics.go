package librarian

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts index reads and writes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Writes       prometheus.Counter
	IndexEntries *prometheus.CounterVec
	Reads        *prometheus.CounterVec
	Scanned      prometheus.Counter
	Resolved     prometheus.Counter
	Stale        prometheus.Counter
	StoreErrors  *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "documents_total",
			Help:      "Documents written together with their index entries",
		}),
		IndexEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "index_entries_total",
			Help:      "Index entries written",
		}, []string{"index"}),
		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "queries_total",
			Help:      "Queries started",
		}, []string{"index", "mode"}),
		Scanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "entries_scanned_total",
			Help:      "Index entries read from the store",
		}),
		Resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "documents_resolved_total",
			Help:      "Documents emitted by readers",
		}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "stale_entries_total",
			Help:      "Index entries whose document no longer exists",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store operations",
		}, []string{"op"}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Writes, m.IndexEntries, m.Reads, m.Scanned, m.Resolved, m.Stale, m.StoreErrors}
}

func (m *Metrics) wrote(defs []Definition) {
	if m == nil {
		return
	}
	m.Writes.Inc()
	for _, d := range defs {
		m.IndexEntries.WithLabelValues(d.ID()).Inc()
	}
}

func (m *Metrics) read(defID string, mode string) {
	if m == nil {
		return
	}
	m.Reads.WithLabelValues(defID, mode).Inc()
}

func (m *Metrics) scanned() {
	if m != nil {
		m.Scanned.Inc()
	}
}

func (m *Metrics) resolved() {
	if m != nil {
		m.Resolved.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.Stale.Inc()
	}
}

// storeError records err if it is a *StoreError and returns it unchanged.
func (m *Metrics) storeError(err error) error {
	if m == nil || err == nil {
		return err
	}
	if se, ok := err.(*StoreError); ok {
		m.StoreErrors.WithLabelValues(se.Op).Inc()
	}
	return err
}
