package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/passes", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"remaining":3}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/passes", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/passes", "200")); v < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/passes/use", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/api/proximity", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFailedDependency)
	})

	tests := []struct {
		method, path, status string
	}{
		{"POST", "/api/passes/use", "409"},
		{"GET", "/api/proximity", "424"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status)); v < 1 {
				t.Errorf("expected requests_total for %s %s >= 1, got %f", tc.path, tc.status, v)
			}
		})
	}
}

func TestMiddleware_QueryNotInLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/passes/history", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/passes/history?month=2025-01", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/passes/history", "200")); v < 1 {
		t.Errorf("expected route pattern label, got %f", v)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404")); v < 1 {
		t.Errorf("expected unknown path label for 404, got %f", v)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/api/config/passes", "/api/config/passes"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestRegisterLedgerMetrics_Idempotent(t *testing.T) {
	RegisterLedgerMetrics()
	RegisterLedgerMetrics()

	PassesRemaining.Set(2)
	if v := testutil.ToFloat64(PassesRemaining); v != 2 {
		t.Errorf("passes_remaining = %f", v)
	}
}
