package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.ObserveRequest("polygon", "200", 20*time.Millisecond)
	r.ObserveRequest("polygon", "200", 30*time.Millisecond)
	r.ObserveRequest("polygon", "429", time.Millisecond)
	r.RecordSnapshot("ok", time.Second)
	r.RecordWarning("insufficient_data")
	r.RecordDroppedOptions(3)
	r.RecordLastClose("SPY", 472.3)

	if got := testutil.ToFloat64(r.upstream.WithLabelValues("polygon", "200")); got != 2 {
		t.Errorf("expected 2 polygon 200s, got %v", got)
	}
	if got := testutil.ToFloat64(r.droppedOptions); got != 3 {
		t.Errorf("expected 3 dropped, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastClose.WithLabelValues("SPY")); got != 472.3 {
		t.Errorf("expected last close 472.3, got %v", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.RecordSnapshot("error", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `intraday_dashboard_snapshots_total{result="error"} 1`) {
		t.Errorf("snapshot counter missing from exposition:\n%s", body)
	}
}
