package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry engine.
type Metrics struct {
	CitizensRegistered  prometheus.Counter
	CertificatesIssued  *prometheus.CounterVec
	TransactionsAborted *prometheus.CounterVec
	EnrollmentsSkipped  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CitizensRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civreg_citizens_registered_total",
			Help: "Total number of citizens registered",
		}),
		CertificatesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_certificates_issued_total",
			Help: "Total certificates issued, by kind (birth, death)",
		}, []string{"kind"}),
		TransactionsAborted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_transactions_aborted_total",
			Help: "Total aborted engine transactions, by error code",
		}, []string{"code"}),
		EnrollmentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civreg_newborn_enrollments_skipped_total",
			Help: "Newborn household enrollments skipped best-effort",
		}),
	}
}

// IncCitizensRegistered increments the citizens registered counter by 1.
func (m *Metrics) IncCitizensRegistered() {
	if m == nil {
		return
	}
	m.CitizensRegistered.Inc()
}

// IncCertificatesIssued increments the issued counter for a certificate kind.
func (m *Metrics) IncCertificatesIssued(kind string) {
	if m == nil {
		return
	}
	m.CertificatesIssued.WithLabelValues(kind).Inc()
}

// IncTransactionsAborted increments the aborted counter for an error code.
func (m *Metrics) IncTransactionsAborted(code string) {
	if m == nil {
		return
	}
	m.TransactionsAborted.WithLabelValues(code).Inc()
}

// IncEnrollmentsSkipped counts a best-effort newborn enrollment that did not
// go through.
func (m *Metrics) IncEnrollmentsSkipped() {
	if m == nil {
		return
	}
	m.EnrollmentsSkipped.Inc()
}
