package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	v1 "github.com/kadeface/valueaddforteacher/internal/api/v1"
	"github.com/kadeface/valueaddforteacher/internal/importer"
	"github.com/kadeface/valueaddforteacher/internal/jobs"
	"github.com/kadeface/valueaddforteacher/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "valueadd.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	reg := prometheus.NewRegistry()
	metrics := jobs.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	manager := jobs.NewManager(context.Background(), jobs.Config{OutputRoot: dir},
		importer.NewCoordinator(importer.Settings{}, nil), st, metrics, nil)

	return NewServer(st, manager, Options{
		DevMode:  true,
		API:      v1.Options{UploadDir: dir},
		Registry: reg,
	})
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("CORS header = %q", got)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/process", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "valueadd_runs_in_flight") {
		t.Fatalf("metrics body missing gauge:\n%s", w.Body.String())
	}
}
