package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics exposes counters/histograms for the voicemail pipeline.
type NotificationMetrics struct {
	inboundTotal    *prometheus.CounterVec
	deliveryTotal   *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicemail_notifier",
			Name:      "inbound_total",
			Help:      "Inbound call events by payload source and outcome",
		}, []string{"source", "status"}),
		deliveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicemail_notifier",
			Name:      "delivery_total",
			Help:      "Notification send attempts by transport and outcome",
		}, []string{"transport", "status"}),
		deliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voicemail_notifier",
			Name:      "delivery_latency_seconds",
			Help:      "Latency of a single notification send",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.deliveryTotal, m.deliveryLatency)
	return m
}

func (m *NotificationMetrics) ObserveInbound(source, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(source, status).Inc()
}

func (m *NotificationMetrics) ObserveDelivery(transport, status string, seconds float64) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(transport, status).Inc()
	m.deliveryLatency.WithLabelValues(transport).Observe(seconds)
}
