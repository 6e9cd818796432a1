package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 決済結果のラベル値
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// Metrics はアプリで使うPrometheusメトリクス一式。
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OrdersCreated       prometheus.Counter
	Payments            *prometheus.CounterVec
	GatewayErrors       *prometheus.CounterVec
}

// New はメトリクスを作ってregに登録する。
// テストではprometheus.NewRegistry()を渡す。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted in PENDING state.",
		}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment confirmations and cancellations by result.",
		}, []string{"result"}),
		GatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Failed payment gateway calls by operation.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(m.HTTPRequests, m.HTTPRequestDuration, m.OrdersCreated, m.Payments, m.GatewayErrors)
	}
	return m
}

// nilのMetricsでも呼べるようにしておく（usecaseのテスト用）

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) Payment(result string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(result).Inc()
}

func (m *Metrics) GatewayError(op string) {
	if m == nil {
		return
	}
	m.GatewayErrors.WithLabelValues(op).Inc()
}
