package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.TokenIssued("access")
	m.TokenIssued("access")
	m.ValidationFailed("reset_password", "expired")
	m.TokensRevoked("reset_password", 3)
	m.TokensRevoked("reset_password", 0)
	m.Dispatch("reset_password", false)
	m.SetBlacklistSize(7)
	m.StaleTokensPurged(5)
	m.HTTPRequest("/v1/auth/login", "POST", "200", 0.01)

	require.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("access")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.validationFailed.WithLabelValues("reset_password", "expired")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.tokensRevoked.WithLabelValues("reset_password")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("reset_password", "failed")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("reset_password", "ok")))
	require.Equal(t, 7.0, testutil.ToFloat64(m.blacklistSize))
	require.Equal(t, 5.0, testutil.ToFloat64(m.staleTokensPurged))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/v1/auth/login", "POST", "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.TokenIssued("access")
		m.ValidationFailed("access", "invalid")
		m.TokensRevoked("access", 1)
		m.Dispatch("x", true)
		m.SetBlacklistSize(1)
		m.StaleTokensPurged(1)
		m.HTTPRequest("/", "GET", "200", 0)
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_ = New(reg)
	require.Panics(t, func() { _ = New(reg) })
}
