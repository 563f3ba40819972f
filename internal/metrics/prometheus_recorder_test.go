package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func gatheredValue(t *testing.T, reg *prom.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metric
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveBatchDuration("Doc", "full", 150*time.Millisecond)
	pr.IncBatchOutcome("Doc", OutcomeCommitted)
	pr.ObserveFileDuration("Doc", 2*time.Millisecond)
	pr.IncFileResult("Doc", ResultIndexed)
	pr.IncFileResult("Doc", ResultIndexed)
	pr.SetIndexRecords("Doc", 7)
	pr.AddWatchEvents("Doc", 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}
	if got := gatheredValue(t, reg, "contented_file_results_total", map[string]string{"pipeline": "Doc", "result": "indexed"}); got != 2 {
		t.Errorf("expected 2 indexed files, got %v", got)
	}
	if got := gatheredValue(t, reg, "contented_index_records", map[string]string{"pipeline": "Doc"}); got != 7 {
		t.Errorf("expected 7 records, got %v", got)
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncBatchOutcome("Doc", OutcomeAborted)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `contented_batch_outcomes_total{outcome="aborted",pipeline="Doc"} 1`) {
		t.Errorf("metric not exposed:\n%s", body)
	}
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncBatchOutcome("Doc", OutcomeCommitted)
	pr.SetIndexRecords("Doc", 1)
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
