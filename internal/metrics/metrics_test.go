package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"shop-ledger/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := metrics.New()
	m.Payments.WithLabelValues("cash", "halfpay").Inc()
	m.Payments.WithLabelValues("cash", "halfpay").Inc()
	m.CacheLookups.WithLabelValues("invoices", "hit").Inc()

	if got := testutil.ToFloat64(m.Payments.WithLabelValues("cash", "halfpay")); got != 2 {
		t.Errorf("payments = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"shopledger_payments_total", "shopledger_cache_lookups_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := metrics.New(), metrics.New()
	a.PaymentAmount.Add(5)
	if got := testutil.ToFloat64(b.PaymentAmount); got != 0 {
		t.Errorf("second registry saw %v", got)
	}
}
