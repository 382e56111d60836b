package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adapthttp "bmicalc/internal/adapter/http"
	"bmicalc/internal/adapter/memory"
	"bmicalc/internal/app"
	"bmicalc/internal/domain"
	"bmicalc/internal/metrics"
)

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type failingHistory struct{ *memory.DB }

func (f failingHistory) ListHistory(ctx context.Context, sessionID string) ([]domain.Record, error) {
	return nil, errors.New("db down")
}

func newTestServer(t *testing.T, history domain.HistoryRepository) (*httptest.Server, *http.Client) {
	t.Helper()

	db := memory.New()
	if history == nil {
		history = db
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewBMIMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bs := app.NewBMIService(history, logger, m)
	ss := app.NewSessionService(db, time.Hour, logger, m)

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(webDir, "style.css"), []byte("body{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(bs, ss, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger, webDir)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return ts, &http.Client{Jar: jar}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func postBMI(t *testing.T, c *http.Client, url string, body map[string]string) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := c.Post(url+"/api/bmi", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	ts, c := newTestServer(t, nil)

	resp, err := c.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatal("expected no-store cache header")
	}
	body := decodeBody(t, resp)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
}

func TestCalculateAndHistory(t *testing.T) {
	ts, c := newTestServer(t, nil)

	resp := postBMI(t, c, ts.URL, map[string]string{"weight": "70", "height": "1.75", "date": "2024-10-13"})
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	display := body["display"].(map[string]any)
	if display["bmi"] != "22.86" || display["category"] != "Normal weight" || display["date"] != "Oct 13, 2024" {
		t.Fatalf("unexpected display: %v", display)
	}
	if _, ok := display["change"]; ok {
		t.Fatal("first record should have no change")
	}

	resp2 := postBMI(t, c, ts.URL, map[string]string{"weight": "80", "height": "1.75", "date": "2024-01-01"})
	defer resp2.Body.Close() //nolint:errcheck
	body = decodeBody(t, resp2)
	display = body["display"].(map[string]any)
	if display["category"] != "Overweight" || display["change"] != "14.29%" {
		t.Fatalf("unexpected display: %v", display)
	}

	resp3, err := c.Get(ts.URL + "/api/bmi/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp3.Body.Close() //nolint:errcheck
	body = decodeBody(t, resp3)
	items := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	newest := items[0].(map[string]any)
	if newest["bmi"] != "26.12" || newest["date"] != "Jan 1, 2024" {
		t.Fatalf("expected newest entry first, got %v", newest)
	}

	resp4, err := c.Get(ts.URL + "/api/bmi/history?limit=1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp4.Body.Close() //nolint:errcheck
	body = decodeBody(t, resp4)
	if n := len(body["items"].([]any)); n != 1 {
		t.Fatalf("expected 1 item, got %d", n)
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	ts, c := newTestServer(t, nil)

	tests := []map[string]string{
		{"weight": "abc", "height": "1.7"},
		{"weight": "70", "height": "0"},
		{"weight": "70", "height": "-1.7"},
	}
	for _, in := range tests {
		resp := postBMI(t, c, ts.URL, in)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%v: expected 422, got %d", in, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		_ = resp.Body.Close()
		alert := body["alert"].(map[string]any)
		if alert["message"] != "Please enter valid numeric values for weight and height." {
			t.Fatalf("unexpected alert: %v", alert)
		}
	}

	resp, err := c.Get(ts.URL + "/api/bmi/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if n := len(decodeBody(t, resp)["items"].([]any)); n != 0 {
		t.Fatalf("rejected inputs must not be recorded, got %d", n)
	}
}

func TestCalculate_BadRequests(t *testing.T) {
	ts, c := newTestServer(t, nil)

	future := time.Now().AddDate(0, 0, 3).Format(time.DateOnly)
	tests := []struct {
		name string
		body string
	}{
		{"future date", `{"weight":"70","height":"1.75","date":"` + future + `"}`},
		{"bad date", `{"weight":"70","height":"1.75","date":"13/10/2024"}`},
		{"numbers not strings", `{"weight":70,"height":1.75}`},
		{"unknown field", `{"weight":"70","height":"1.75","unit":"lb"}`},
		{"trailing data", `{"weight":"70","height":"1.75"}{"weight":"80"}`},
		{"oversized body", `{"weight":"70","height":"` + strings.Repeat("1", 8<<10) + `"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := c.Post(ts.URL+"/api/bmi", "application/json", bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, c := newTestServer(t, nil)

	resp, err := c.Get(ts.URL + "/api/bmi")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}

	resp, err = c.Post(ts.URL+"/api/session", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ts, c := newTestServer(t, nil)
	resp := postBMI(t, c, ts.URL, map[string]string{"weight": "70", "height": "1.75"})
	_ = resp.Body.Close()

	// A client without the cookie gets a fresh, empty session.
	jar, _ := cookiejar.New(nil)
	other := &http.Client{Jar: jar}
	resp, err := other.Get(ts.URL + "/api/bmi/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if n := len(decodeBody(t, resp)["items"].([]any)); n != 0 {
		t.Fatalf("expected empty history for new session, got %d", n)
	}
}

func TestEndSessionClearsHistory(t *testing.T) {
	ts, c := newTestServer(t, nil)
	resp := postBMI(t, c, ts.URL, map[string]string{"weight": "70", "height": "1.75"})
	_ = resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/session", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = c.Get(ts.URL + "/api/bmi/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if n := len(decodeBody(t, resp)["items"].([]any)); n != 0 {
		t.Fatalf("expected empty history after ending session, got %d", n)
	}
}

func TestHistory_Error(t *testing.T) {
	db := memory.New()
	ts, c := newTestServer(t, failingHistory{db})

	resp, err := c.Get(ts.URL + "/api/bmi/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, c := newTestServer(t, nil)
	resp := postBMI(t, c, ts.URL, map[string]string{"weight": "70", "height": "1.75"})
	_ = resp.Body.Close()

	resp, err := c.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	b, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(b, []byte(`bmi_calculations_total{outcome="ok"} 1`)) {
		t.Fatalf("missing calculation metric:\n%s", b)
	}
}

func TestSPAFallback(t *testing.T) {
	ts, c := newTestServer(t, nil)
	resp, err := c.Get(ts.URL + "/anything")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "<html></html>" {
		t.Fatalf("expected index.html, got %q", b)
	}
}

func TestCalculate_LocalTodayAccepted(t *testing.T) {
	ts, c := newTestServer(t, nil)

	today := time.Now().Format(time.DateOnly)
	resp := postBMI(t, c, ts.URL, map[string]string{"weight": "70", "height": "1.75", "date": today})
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for today (%s), got %d", today, resp.StatusCode)
	}
}

func TestPageHandler(t *testing.T) {
	ts, c := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"root", http.MethodGet, "/", http.StatusOK, "<html></html>"},
		{"static file", http.MethodGet, "/style.css", http.StatusOK, "body{}"},
		{"unknown path", http.MethodGet, "/records/42", http.StatusOK, "<html></html>"},
		{"escape attempt", http.MethodGet, "/../../etc/passwd", http.StatusOK, "<html></html>"},
		{"post", http.MethodPost, "/", http.StatusMethodNotAllowed, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := c.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			b, _ := io.ReadAll(resp.Body)
			if string(b) != tc.body {
				t.Fatalf("expected %q, got %q", tc.body, b)
			}
		})
	}
}
