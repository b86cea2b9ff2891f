package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncSuccess()
	m.IncSuccess()
	m.IncFailure("CART_EMPTY")
	m.IncFailure("")
	m.ObserveDuration("success", 120*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	success := byName["checkout_success_total"]
	if success == nil || success.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("unexpected success counter: %v", success)
	}

	failure := byName["checkout_failure_total"]
	if failure == nil || len(failure.GetMetric()) != 2 {
		t.Fatalf("expected two failure reasons, got %v", failure)
	}
	for _, metric := range failure.GetMetric() {
		label := metric.GetLabel()[0].GetValue()
		if label != "CART_EMPTY" && label != "unknown" {
			t.Fatalf("unexpected failure label %q", label)
		}
	}

	if byName["checkout_duration_seconds"] == nil {
		t.Fatal("duration histogram not registered")
	}
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *CheckoutMetrics
	m.IncSuccess()
	m.IncFailure("x")
	m.ObserveDuration("y", time.Second)

	empty := NewCheckoutMetrics(nil)
	empty.IncSuccess()
}
