package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordReplacement("submitted")
	m.RecordOutcome("receipt", time.Second)
	m.RecordClassification("NO_NETWORK")
	m.RecordFeeOracleRequest("ok")
	m.RecordRedundantRead("success", 2)
	m.RecordTransientRetry()
	m.RecordPrompt("accepted")
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordReplacement("submitted")
	m.RecordReplacement("submitted")
	m.RecordOutcome("receipt", 3*time.Second)

	if got := testutil.ToFloat64(m.replacementsTotal.WithLabelValues("submitted")); got != 2 {
		t.Errorf("expected 2 replacements, got %v", got)
	}
	if got := testutil.ToFloat64(m.outcomesTotal.WithLabelValues("receipt")); got != 1 {
		t.Errorf("expected 1 outcome, got %v", got)
	}
}

func TestServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordTransientRetry()

	srv := httptest.NewServer(NewServer(0, reg).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(buf.String(), "txguard_transient_retries_total 1") {
		t.Errorf("expected retry counter in output, got:\n%s", buf.String())
	}
}
