package httpapi

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warikan-app/warikan-api/internal/platform/metrics"
)

func TestRouter_MetricsUseRoutePattern(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewHTTP(prometheus.NewRegistry())
	require.NoError(t, err)
	f := newAPI(t, nil, RouterOptions{Metrics: m})

	g := f.createGroup(t, "alice", "Trip")
	rec := f.do(t, call{method: http.MethodGet, path: "/groups/" + g.ID, subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	rec = f.do(t, call{method: http.MethodGet, path: "/groups/" + g.ID, subject: "bob"})
	requireStatus(t, rec, http.StatusUnauthorized)

	rec = f.do(t, call{method: http.MethodGet, path: "/metrics"})
	requireStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/groups/{groupId}",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/groups/{groupId}",status="401"} 1`)
	assert.NotContains(t, body, g.ID)
}

func TestRouter_AccessLogCarriesRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	f := newAPI(t, nil, RouterOptions{Logger: zap.New(core)})

	rec := f.do(t, call{method: http.MethodGet, path: "/groups", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, []any{"/groups", "/groups/"}, fields["route"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRateLimit_PerSubject(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{RateLimit: RateLimitOptions{RPS: 0.001, Burst: 2}})

	for i := 0; i < 2; i++ {
		rec := f.do(t, call{method: http.MethodGet, path: "/groups", subject: "alice"})
		requireStatus(t, rec, http.StatusOK)
	}
	rec := f.do(t, call{method: http.MethodGet, path: "/groups", subject: "alice"})
	requireErrorCode(t, rec, http.StatusTooManyRequests, codeRateLimited)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other callers have their own bucket.
	rec = f.do(t, call{method: http.MethodGet, path: "/groups", subject: "bob"})
	requireStatus(t, rec, http.StatusOK)

	// Probes are not limited.
	for i := 0; i < 5; i++ {
		rec = f.do(t, call{method: http.MethodGet, path: "/healthz"})
		requireStatus(t, rec, http.StatusOK)
	}
}

func TestRateLimit_DisabledWhenRPSZero(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	for i := 0; i < 50; i++ {
		rec := f.do(t, call{method: http.MethodGet, path: "/groups", subject: "alice"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitKey(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "ip:10.0.0.1", rateLimitKey(req))

	req.RemoteAddr = "10.0.0.2"
	assert.Equal(t, "ip:10.0.0.2", rateLimitKey(req))
}
