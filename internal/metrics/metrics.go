// Package metrics — Prometheus-метрики жизненного цикла токенов и HTTP.
// Все методы безопасны для nil-получателя: тесты и утилиты могут работать без метрик.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tenant_auth"

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	tokensIssued      *prometheus.CounterVec
	validationFailed  *prometheus.CounterVec
	tokensRevoked     *prometheus.CounterVec
	dispatchTotal     *prometheus.CounterVec
	blacklistSize     prometheus.Gauge
	staleTokensPurged prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New регистрирует коллекторы в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		tokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Issued tokens by kind.",
		}, []string{"kind"}),
		validationFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validation_failures_total",
			Help:      "Token validation failures by kind and reason.",
		}, []string{"kind", "reason"}),
		tokensRevoked: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_revoked_total",
			Help:      "Revoked tokens by kind.",
		}, []string{"kind"}),
		dispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_dispatch_total",
			Help:      "Email dispatch attempts by family and outcome.",
		}, []string{"family", "outcome"}),
		blacklistSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "access_blacklist_size",
			Help:      "Access tokens currently held in the in-memory blacklist.",
		}),
		staleTokensPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_tokens_purged_total",
			Help:      "Durable tokens removed by the cleanup janitor.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) ValidationFailed(kind, reason string) {
	if m == nil {
		return
	}
	m.validationFailed.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) TokensRevoked(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensRevoked.WithLabelValues(kind).Add(float64(n))
}

// Dispatch учитывает попытку отправки письма; ok=false — отказ или таймаут провайдера.
func (m *Metrics) Dispatch(family string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.dispatchTotal.WithLabelValues(family, outcome).Inc()
}

func (m *Metrics) SetBlacklistSize(n int) {
	if m == nil {
		return
	}
	m.blacklistSize.Set(float64(n))
}

func (m *Metrics) StaleTokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.staleTokensPurged.Add(float64(n))
}

func (m *Metrics) HTTPRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(seconds)
}
