package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func limitedRouter(rps, burst int) *mux.Router {
	r := mux.NewRouter()
	r.Use(NewRateLimiter(rps, burst).Middleware())
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	router := limitedRouter(1, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	require.Equal(t, http.StatusOK, codes[0])
	require.Equal(t, http.StatusOK, codes[1])
	require.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRateLimiterIsPerClient(t *testing.T) {
	router := limitedRouter(1, 1)

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodGet, "/ping", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterCleanupEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.limiter("10.0.0.1:1234")
	rl.limiter("10.0.0.2:1234")

	rl.mu.Lock()
	rl.clients["10.0.0.1:1234"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.Cleanup(30 * time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.Len(t, rl.clients, 1)
	require.Contains(t, rl.clients, "10.0.0.2:1234")
}

func TestRequestLoggingSetsRequestID(t *testing.T) {
	r := mux.NewRouter()
	r.Use(RequestLogging())
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	r := mux.NewRouter()
	r.Use(CORS())
	r.HandleFunc("/game", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost, http.MethodOptions)

	req := httptest.NewRequest(http.MethodOptions, "/game", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
