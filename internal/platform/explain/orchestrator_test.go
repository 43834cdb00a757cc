package explain

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

type stubExplainer struct {
	calls int64
	fn    func(ctx context.Context, m metric.HealthMetric) (string, error)
}

func (s *stubExplainer) Explain(ctx context.Context, _ i18n.Language, m metric.HealthMetric) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.fn(ctx, m)
}

func glucose(v float64) metric.HealthMetric {
	return metric.HealthMetric{
		Name: "Glucose", Value: v, Unit: "mmol/L",
		ReferenceRange: "3.9-6.1", Status: metric.StatusCritical,
	}
}

func TestExplainAllReturnsEntryPerMetric(t *testing.T) {
	stub := &stubExplainer{fn: func(_ context.Context, m metric.HealthMetric) (string, error) {
		return "about " + m.Name, nil
	}}
	o := NewOrchestrator(stub, Options{}, zerolog.Nop())

	metrics := []metric.HealthMetric{
		glucose(15.5),
		{Name: "ALT", Value: 66.19, Unit: "U/L", Status: metric.StatusHigh},
	}
	got := o.ExplainAll(context.Background(), i18n.English, metrics)
	if len(got) != 2 {
		t.Fatalf("expected 2 explanations, got %d", len(got))
	}
	if got["Glucose"] != "about Glucose" || got["ALT"] != "about ALT" {
		t.Fatalf("explanations = %v", got)
	}
}

func TestCacheHitIssuesOneCall(t *testing.T) {
	stub := &stubExplainer{fn: func(_ context.Context, m metric.HealthMetric) (string, error) {
		return "cached answer", nil
	}}
	o := NewOrchestrator(stub, Options{}, zerolog.Nop())

	in := []metric.HealthMetric{glucose(15.5)}
	o.ExplainAll(context.Background(), i18n.English, in)
	o.ExplainAll(context.Background(), i18n.English, in)

	if n := atomic.LoadInt64(&stub.calls); n != 1 {
		t.Fatalf("expected exactly 1 external call, got %d", n)
	}
}

func TestCacheKeyIncludesLanguage(t *testing.T) {
	stub := &stubExplainer{fn: func(_ context.Context, m metric.HealthMetric) (string, error) {
		return "answer", nil
	}}
	o := NewOrchestrator(stub, Options{}, zerolog.Nop())

	in := []metric.HealthMetric{glucose(15.5)}
	o.ExplainAll(context.Background(), i18n.English, in)
	o.ExplainAll(context.Background(), i18n.Russian, in)

	if n := atomic.LoadInt64(&stub.calls); n != 2 {
		t.Fatalf("expected one call per language, got %d", n)
	}
}

func TestTimeoutFallsBackWithinBudget(t *testing.T) {
	stub := &stubExplainer{fn: func(ctx context.Context, m metric.HealthMetric) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o := NewOrchestrator(stub, Options{
		Workers:      4,
		CallTimeout:  20 * time.Millisecond,
		BatchTimeout: 200 * time.Millisecond,
	}, zerolog.Nop())

	metrics := make([]metric.HealthMetric, 6)
	for i := range metrics {
		metrics[i] = metric.HealthMetric{
			Name: fmt.Sprintf("Metric %d", i), Value: float64(i), Unit: "U/L",
			Status: metric.StatusHigh,
		}
	}

	start := time.Now()
	got := o.ExplainAll(context.Background(), i18n.English, metrics)
	elapsed := time.Since(start)

	if len(got) != len(metrics) {
		t.Fatalf("expected %d fallback entries, got %d", len(metrics), len(got))
	}
	for name, text := range got {
		if !strings.Contains(text, name) || !strings.Contains(text, "above the normal range") {
			t.Fatalf("expected high-status fallback for %s, got %q", name, text)
		}
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("batch took %v, want bounded by budget", elapsed)
	}
}

func TestFailedCallNotCached(t *testing.T) {
	var fail int64 = 1
	stub := &stubExplainer{fn: func(_ context.Context, m metric.HealthMetric) (string, error) {
		if atomic.LoadInt64(&fail) == 1 {
			return "", fmt.Errorf("upstream unavailable")
		}
		return "recovered", nil
	}}
	o := NewOrchestrator(stub, Options{}, zerolog.Nop())

	in := []metric.HealthMetric{glucose(15.5)}
	got := o.ExplainAll(context.Background(), i18n.English, in)
	if !strings.Contains(got["Glucose"], "critically") {
		t.Fatalf("expected critical fallback, got %q", got["Glucose"])
	}

	atomic.StoreInt64(&fail, 0)
	got = o.ExplainAll(context.Background(), i18n.English, in)
	if got["Glucose"] != "recovered" {
		t.Fatalf("expected retry after failure, got %q", got["Glucose"])
	}
}

func TestFallbackByStatus(t *testing.T) {
	m := metric.HealthMetric{Name: "TSH", Value: 0.1, Unit: "mIU/L", Status: metric.StatusLow}
	if got := Fallback(i18n.English, m); !strings.Contains(got, "below the normal range") {
		t.Fatalf("low fallback = %q", got)
	}
	m.Status = ""
	if got := Fallback(i18n.English, m); !strings.Contains(got, "further evaluation") {
		t.Fatalf("unknown fallback = %q", got)
	}
	m.Status = metric.StatusCritical
	if got := Fallback(i18n.Russian, m); !strings.Contains(got, "критически") {
		t.Fatalf("russian fallback = %q", got)
	}
}
