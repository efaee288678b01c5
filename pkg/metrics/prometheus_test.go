package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"SignalForge/internal/domain/models"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSignal("macd_momentum", models.ActionBuy)
	r.RecordSignal("macd_momentum", models.ActionBuy)
	r.RecordEvaluatorFailure("golden_cross")
	r.RecordValidationDrop("hammer_reversal")
	r.RecordConfigLookup(models.SourceDefault, false)
	r.RecordConfigLookup(models.SourceDefault, true)
	r.RecordError("publish")
	r.RecordLatency("analyze_seconds", 0.002)

	if got := testutil.ToFloat64(r.signals.WithLabelValues("macd_momentum", "buy")); got != 2 {
		t.Fatalf("signals = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.evalFailures.WithLabelValues("golden_cross")); got != 1 {
		t.Fatalf("evaluator failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.configLookups.WithLabelValues("default", "hit")); got != 1 {
		t.Fatalf("config cache hits = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
}
