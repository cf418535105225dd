package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordExchange("manager", "success")
	m.RecordExchange("manager", "success")
	m.RecordRetry("success")
	m.RecordComparison("error")
	m.RecordMatch("matched")

	if got := testutil.ToFloat64(m.exchanges.WithLabelValues("manager", "success")); got != 2 {
		t.Fatalf("exchanges = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.comparisons.WithLabelValues("error")); got != 1 {
		t.Fatalf("comparisons = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordExchange("admin", "failure")
	m.RecordRetry("failure")
	m.RecordComparison("ok")
	m.RecordMatch("unmatched")
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordError("/x", "GET", "NOT_FOUND")
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have nil registry")
	}
}

func TestMetricsHandlerExposesText(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/session/resolve", "POST", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `faceauth_http_requests_total{method="POST",path="/session/resolve",status="200"} 1`) {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}
