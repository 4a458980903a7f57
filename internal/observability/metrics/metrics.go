package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking form flow.
type BookingMetrics struct {
	submissionsTotal *prometheus.CounterVec
	sinkWrites       *prometheus.CounterVec
	sinkLatency      *prometheus.HistogramVec
	notifyTotal      *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightbounty",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking form submissions by outcome",
		}, []string{"outcome"}),
		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightbounty",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Remote sink row inserts by driver and status",
		}, []string{"driver", "status"}),
		sinkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lightbounty",
			Subsystem: "sink",
			Name:      "write_latency_seconds",
			Help:      "Latency of remote sink row inserts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver"}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightbounty",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Owner notification e-mails by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.sinkWrites, m.sinkLatency, m.notifyTotal)
	return m
}

// ObserveSubmission counts a settled or skipped submission. Outcomes are
// "succeeded", "failed", "invalid", "duplicate" and "recovered".
func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveSinkWrite(driver string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sinkWrites.WithLabelValues(driver, status).Inc()
	m.sinkLatency.WithLabelValues(driver).Observe(seconds)
}

func (m *BookingMetrics) ObserveNotify(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "error"
	}
	m.notifyTotal.WithLabelValues(status).Inc()
}
