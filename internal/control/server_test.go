package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/safely/internal/guard"
)

func TestServer_Health(t *testing.T) {
	s := NewServer(guard.New(guard.Config{Environment: "production"}), ":0", nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body["environment"] != "production" || body["raises"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := NewServer(guard.New(guard.Config{Environment: "production"}), "127.0.0.1:0", nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "safely_reports_total") {
		t.Error("metrics output is missing safely_reports_total")
	}
}

func TestServer_HealthChecks(t *testing.T) {
	s := NewServer(guard.New(guard.Config{Environment: "production"}), ":0", map[string]HealthCheck{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Status != "degraded" || body.Checks["redis"] != "ok" || body.Checks["postgres"] != "connection refused" {
		t.Errorf("body = %+v", body)
	}
}
