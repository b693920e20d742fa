package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服務的 Prometheus 指標
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	GenerationTotal    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	StrictRetryTotal   *prometheus.CounterVec
	ViolationsTotal    prometheus.Counter
	RateLimitedTotal   *prometheus.CounterVec
	TokensTotal        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics 建立並註冊所有指標；reg 為 nil 時使用預設 registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receitas_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"route", "method", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receitas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route"}),

		GenerationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receitas_generation_total",
			Help: "Upstream generation calls by outcome.",
		}, []string{"model", "outcome"}),

		GenerationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receitas_generation_duration_seconds",
			Help:    "Upstream generation latency in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"model"}),

		StrictRetryTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receitas_strict_retry_total",
			Help: "Strict-mode regenerations by final outcome.",
		}, []string{"outcome"}),

		ViolationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "receitas_strict_violations_total",
			Help: "Strict-mode violations detected across all passes.",
		}),

		RateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receitas_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"backend"}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receitas_generation_tokens_total",
			Help: "Tokens reported by the upstream model, by direction.",
		}, []string{"model", "direction"}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// RecordRequest 記錄一筆 HTTP 請求
func (m *Metrics) RecordRequest(route, method, status string, d time.Duration) {
	m.RequestTotal.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveGeneration 記錄一次上游生成
func (m *Metrics) ObserveGeneration(model, outcome string, d time.Duration) {
	m.GenerationTotal.WithLabelValues(model, outcome).Inc()
	m.GenerationDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveStrictRetry 記錄嚴格模式重試結果
func (m *Metrics) ObserveStrictRetry(outcome string) {
	m.StrictRetryTotal.WithLabelValues(outcome).Inc()
}

// ObserveViolations 累計違規數
func (m *Metrics) ObserveViolations(n int) {
	m.ViolationsTotal.Add(float64(n))
}

// ObserveTokens 累計上游回報的 token 用量
func (m *Metrics) ObserveTokens(model string, input, output int) {
	if input > 0 {
		m.TokensTotal.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		m.TokensTotal.WithLabelValues(model, "output").Add(float64(output))
	}
}

// RecordRateLimited 記錄被限流的請求
func (m *Metrics) RecordRateLimited(backend string) {
	m.RateLimitedTotal.WithLabelValues(backend).Inc()
}

// Handler 指標輸出端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
