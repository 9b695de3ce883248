package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/models"
)

func TestSendVerification_PostsJSONToFamilyEndpoint(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotBody map[string]string
		gotCT   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewHTTP(config.MailConfig{
		EmailVerificationURL:   srv.URL + "/email",
		AccountVerificationURL: srv.URL + "/account",
		Timeout:                time.Second,
	}, nil)

	err := d.SendVerification(context.Background(), models.TokenAccountVerification, VerificationMessage{
		VerificationID: "rec-1",
		Email:          "corp@example.com",
		ExpiresAt:      "2025-05-01T12:00:00+05:00",
	})
	require.NoError(t, err)

	require.Equal(t, "/account", gotPath)
	require.Equal(t, "application/json", gotCT)
	require.Equal(t, map[string]string{
		"verificationId": "rec-1",
		"email":          "corp@example.com",
		"expiresAt":      "2025-05-01T12:00:00+05:00",
	}, gotBody)
}

func TestSendPasswordReset_PayloadShape(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTP(config.MailConfig{ResetPasswordURL: srv.URL}, nil)

	err := d.SendPasswordReset(context.Background(), ResetMessage{
		Token:       "rec-2",
		Email:       "user@example.com",
		RedirectURL: "https://app/reset-password?token=rec-2",
		ExpiresAt:   "2025-05-01T10:30:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "rec-2", gotBody["token"])
	require.Equal(t, "https://app/reset-password?token=rec-2", gotBody["redirectUrl"])
}

func TestSend_Non2xx_Fails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewHTTP(config.MailConfig{ResetPasswordURL: srv.URL}, nil)

	err := d.SendPasswordReset(context.Background(), ResetMessage{Email: "u@example.com"})
	require.ErrorIs(t, err, ErrSendFailed)
	require.Contains(t, err.Error(), "502")
}

func TestSend_NoRetry(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewHTTP(config.MailConfig{EmailVerificationURL: srv.URL}, nil)
	err := d.SendVerification(context.Background(), models.TokenEmailVerification, VerificationMessage{})
	require.ErrorIs(t, err, ErrSendFailed)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSend_Timeout_Fails(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := NewHTTP(config.MailConfig{EmailVerificationURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	err := d.SendVerification(context.Background(), models.TokenEmailVerification, VerificationMessage{})
	require.ErrorIs(t, err, ErrSendFailed)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSend_MissingEndpointOrWrongKind(t *testing.T) {
	t.Parallel()

	d := NewHTTP(config.MailConfig{}, nil)

	err := d.SendVerification(context.Background(), models.TokenEmailVerification, VerificationMessage{})
	require.ErrorIs(t, err, ErrSendFailed)

	err = d.SendVerification(context.Background(), models.TokenResetPassword, VerificationMessage{})
	require.ErrorIs(t, err, ErrSendFailed)
}

func TestSend_RecordsMetrics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := NewHTTP(config.MailConfig{ResetPasswordURL: srv.URL}, m)

	require.NoError(t, d.SendPasswordReset(context.Background(), ResetMessage{}))

	n, err := testutil.GatherAndCount(reg, "tenant_auth_mail_dispatch_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLogDispatcher_NeverFails(t *testing.T) {
	t.Parallel()

	d := NewLog(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, d.SendVerification(context.Background(), models.TokenEmailVerification, VerificationMessage{Email: "a@b.c"}))
	require.NoError(t, d.SendPasswordReset(context.Background(), ResetMessage{Email: "a@b.c"}))
}

func TestLogDispatcher_MasksLinksUnlessRevealed(t *testing.T) {
	t.Parallel()

	const id = "5b0f4c0e-8c43-4d4e-9a55-3f1a2b7c9d10"
	link := "http://front.test/reset-password?token=" + id

	var masked bytes.Buffer
	d := NewLog(slog.New(slog.NewTextHandler(&masked, nil)), false)
	require.NoError(t, d.SendVerification(context.Background(), models.TokenEmailVerification, VerificationMessage{VerificationID: id, Email: "user@example.com"}))
	require.NoError(t, d.SendPasswordReset(context.Background(), ResetMessage{Token: id, Email: "user@example.com", RedirectURL: link}))
	require.NotContains(t, masked.String(), id)
	require.NotContains(t, masked.String(), "user@example.com")
	require.Contains(t, masked.String(), "[REDACTED_TOKEN]")

	var shown bytes.Buffer
	d = NewLog(slog.New(slog.NewTextHandler(&shown, nil)), true)
	require.NoError(t, d.SendVerification(context.Background(), models.TokenEmailVerification, VerificationMessage{VerificationID: id, Email: "user@example.com"}))
	require.NoError(t, d.SendPasswordReset(context.Background(), ResetMessage{Token: id, Email: "user@example.com", RedirectURL: link}))
	require.Contains(t, shown.String(), "verification_id="+id)
	require.Contains(t, shown.String(), link)
}
