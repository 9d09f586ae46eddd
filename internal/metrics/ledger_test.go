package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedger(reg)

	m.IncApplied("credit")
	m.IncApplied("credit")
	m.IncRejected("debit", "insufficient_balance")
	m.IncConflict()
	m.IncDecision("approved")

	if got := testutil.ToFloat64(m.applied.WithLabelValues("credit")); got != 2 {
		t.Fatalf("expected 2 credits, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("debit", "insufficient_balance")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.conflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Ledger
	m.IncApplied("credit")
	NewLedger(nil).IncConflict()
}

func TestHTTPMetricsUseRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	app := fiber.New()
	app.Use(HTTP(reg))
	app.Get("/wallets/:accountId/balance", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/wallets/"+id+"/balance", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
	}

	expected := `
# HELP wallet_http_requests_total HTTP requests handled, by method, route and status.
# TYPE wallet_http_requests_total counter
wallet_http_requests_total{method="GET",route="/wallets/:accountId/balance",status="200"} 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "wallet_http_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
