package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tripfarm/internal/metrics"
)

func TestObserveSubmission(t *testing.T) {
	m := metrics.New()
	m.ObserveSubmission(metrics.OutcomeAccepted, "visitantes")
	m.ObserveSubmission(metrics.OutcomeAccepted, "visitantes")
	m.ObserveSubmission(metrics.OutcomeRejected, "")

	if got := testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeAccepted, "visitantes")); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeRejected, "unknown")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveSubmission(metrics.OutcomeFailed, "x")
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := metrics.New()
	m.ObserveSubmission(metrics.OutcomeAccepted, "produtores_digitais")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `tripfarm_submissions_total{form_type="produtores_digitais",outcome="accepted"} 1`) {
		t.Fatalf("expected submission counter in exposition:\n%s", body)
	}
}

func TestInstancesDoNotCollide(t *testing.T) {
	metrics.New()
	metrics.New()
}
