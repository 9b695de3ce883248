package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-tenant-auth/internal/http/apierrors"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/pkg/log"
)

// capSink — общее хранилище записей для capHandler и его производных.
type capSink struct {
	mu      sync.Mutex
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   int
}

// capHandler — тестовый slog.Handler, который собирает attrs последней записи
// вместе с базовыми attrs из Logger.With(...).
type capHandler struct {
	sink *capSink
	base []slog.Attr
}

func newCap() (*capHandler, *capSink) {
	s := &capSink{}
	return &capHandler{sink: s}, s
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.count++
	h.sink.lastMsg = r.Message
	h.sink.lastLvl = r.Level
	h.sink.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	base := append(append([]slog.Attr(nil), h.base...), attrs...)
	return &capHandler{sink: h.sink, base: base}
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

func TestChain_Order(t *testing.T) {
	order := []string{}

	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m1-end")
		})
	}

	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m2-end")
		})
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, m1, m2).ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenHeader, seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(HeaderRequestID)
		seenCtx = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get(HeaderRequestID)
	require.Len(t, respID, 32) // 16 байт → 32 hex-символа
	require.Equal(t, respID, seenHeader)
	require.Equal(t, respID, seenCtx)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtx = RequestIDFrom(r.Context())
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set(HeaderRequestID, given)
	Chain(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get(HeaderRequestID))
	require.Equal(t, given, seenCtx)
}

func TestLogging_RequestScopedLoggerAndRecord(t *testing.T) {
	handler, sink := newCap()
	var inner *slog.Logger

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = log.From(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	rr := httptest.NewRecorder()
	req := makeReq("/logged")
	req.Header.Set(HeaderRequestID, "rid-42")
	Chain(h, Logging(slog.New(handler))).ServeHTTP(rr, req)

	require.NotNil(t, inner)
	require.Equal(t, 1, sink.count)
	require.Equal(t, "http", sink.lastMsg)
	require.Equal(t, slog.LevelInfo, sink.lastLvl)
	require.Equal(t, "rid-42", sink.attrs["request_id"])
	require.Equal(t, int64(http.StatusCreated), sink.attrs["status"])
	require.Equal(t, int64(5), sink.attrs["bytes"])
	require.Equal(t, "/logged", sink.attrs["path"])
}

func TestRecover_PanicToInternalEnvelope(t *testing.T) {
	handler, sink := newCap()

	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom: secret detail")
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID(), Logging(slog.New(handler)), Recover()).ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "internal", body.Error.Code)
	require.NotContains(t, rr.Body.String(), "secret detail")
	require.Equal(t, rr.Header().Get(HeaderRequestID), body.Error.RequestID)

	// Запись уровня http после panic — с ошибочным статусом.
	require.Equal(t, "http", sink.lastMsg)
	require.Equal(t, slog.LevelError, sink.lastLvl)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var left time.Duration
	var has bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var dl time.Time
		dl, has = r.Context().Deadline()
		left = time.Until(dl)
	})

	Chain(h, Timeout(2*time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/t"))

	require.True(t, has)
	require.Greater(t, left, time.Second)
	require.LessOrEqual(t, left, 2*time.Second)
}

func TestTimeout_RespectsExistingDeadlineAndNoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	want, _ := ctx.Deadline()

	var got time.Time
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Deadline()
	})

	Chain(h, Timeout(time.Hour)).ServeHTTP(httptest.NewRecorder(), makeReq("/t").WithContext(ctx))
	require.Equal(t, want, got)

	var has bool
	h2 := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has = r.Context().Deadline()
	})
	Chain(h2, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/t"))
	require.False(t, has)
}

func TestCookieAuth_ExtractsToken(t *testing.T) {
	var token string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = AccessTokenFrom(r.Context())
	})
	chain := Chain(h, CookieAuth("AccessToken"))

	req := makeReq("/me")
	req.AddCookie(&http.Cookie{Name: "AccessToken", Value: " tok-1 "})
	chain.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "tok-1", token)

	req = makeReq("/me")
	req.AddCookie(&http.Cookie{Name: "Other", Value: "x"})
	chain.ServeHTTP(httptest.NewRecorder(), req)
	require.Empty(t, token)
}

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/owners/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), makeReq("/owners/1"))
	r.ServeHTTP(httptest.NewRecorder(), makeReq("/owners/2"))
	r.ServeHTTP(httptest.NewRecorder(), makeReq("/nowhere"))

	n, err := testutil.GatherAndCount(reg, "tenant_auth_http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, n) // две серии: шаблон маршрута и unmatched
}
