package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/warikan-app/warikan-api/internal/adapters/httpapi"
	memidempotency "github.com/warikan-app/warikan-api/internal/adapters/memory/idempotency"
	memrepo "github.com/warikan-app/warikan-api/internal/adapters/memory/warikanrepo"
	pgidempotency "github.com/warikan-app/warikan-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/warikan-app/warikan-api/internal/adapters/postgres/testutil"
	pgrepo "github.com/warikan-app/warikan-api/internal/adapters/postgres/warikanrepo"
	redisrepo "github.com/warikan-app/warikan-api/internal/adapters/redis/warikanrepo"
	"github.com/warikan-app/warikan-api/internal/app/warikan"
	"github.com/warikan-app/warikan-api/internal/platform/clock"
	idempotencyport "github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
	repoport "github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendRedis    backend = "redis"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "":
		return []backend{backendMemory, backendRedis}
	case "memory":
		return []backend{backendMemory}
	case "redis":
		return []backend{backendRedis}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendRedis, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|redis|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	// ns keeps subjects unique when a backend outlives the test (postgres).
	ns string
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := clock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		r         repoport.Repository
		idemStore idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		r = pgrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, time.Hour)
	case backendRedis:
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			_ = rdb.Close()
			mr.Close()
		})
		r = redisrepo.NewRepo(rdb, "itest")
		idemStore = memidempotency.NewStore(time.Hour)
	case backendMemory:
		r = memrepo.NewRepo()
		idemStore = memidempotency.NewStore(time.Hour)
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	svc := warikan.NewService(r, &tickingClock{c: clk})
	api := httpapi.NewServer(svc, idemStore, clk)

	// Empty default subject: requests without X-Debug-Subject are Unauthorized.
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: httpapi.NewDevAuthMiddleware("")})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		ns:      uuid.NewString()[:8],
	}
}

// tickingClock advances one second per read so creation order is strict.
type tickingClock struct{ c *clock.ManualClock }

func (t *tickingClock) Now() time.Time {
	t.c.Advance(time.Second)
	return t.c.Now()
}

// subject returns a namespaced subject for name.
func (s *testServer) subject(name string) string { return name + "-" + s.ns }

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.baseURL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[httpapi.ErrorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
