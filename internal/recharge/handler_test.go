package recharge

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifa-care/shifa_wallet/internal/middleware"
)

func newHandlerApp(t *testing.T) (*fiber.App, fixture) {
	t.Helper()
	f := newFixture(t, nil, nil)
	h := NewHandler(f.svc)

	app := fiber.New()
	app.Post("/wallets/:accountId/recharges", h.Submit)
	app.Get("/wallets/:accountId/recharges", h.ListOwn)
	app.Get("/recharges/:id", h.Get)
	admin := app.Group("/admin", func(c *fiber.Ctx) error {
		c.Locals(middleware.AdminLocal, "ops")
		return c.Next()
	})
	admin.Get("/recharges", h.AdminList)
	admin.Patch("/recharges/:id", h.Decide)
	return app, f
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHandlerSubmitAndApprove(t *testing.T) {
	app, f := newHandlerApp(t)
	account := f.newWallet(t, "user-1")

	status, body := doJSON(t, app, fiber.MethodPost, "/wallets/"+account+"/recharges",
		`{"amount":"100.50","from_phone_number":"01012345678","proof_reference":"proof.png"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "100.50", body["amount"])
	assert.EqualValues(t, 10_050, body["amount_minor"])
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	status, body = doJSON(t, app, fiber.MethodPatch, "/admin/recharges/"+id, `{"decision":"approve"}`)
	require.Equal(t, fiber.StatusOK, status)
	rec, _ := body["recharge"].(map[string]any)
	assert.Equal(t, "approved", rec["status"])
	assert.Equal(t, "ops", rec["decided_by"])

	status, _ = doJSON(t, app, fiber.MethodPatch, "/admin/recharges/"+id, `{"decision":"reject"}`)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestHandlerSubmitErrors(t *testing.T) {
	app, f := newHandlerApp(t)
	account := f.newWallet(t, "user-1")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"negative amount", "/wallets/" + account + "/recharges", `{"amount":"-10","from_phone_number":"01012345678","proof_reference":"p"}`, fiber.StatusBadRequest},
		{"sub-piastre amount", "/wallets/" + account + "/recharges", `{"amount":"1.005","from_phone_number":"01012345678","proof_reference":"p"}`, fiber.StatusBadRequest},
		{"missing proof", "/wallets/" + account + "/recharges", `{"amount":"10","from_phone_number":"01012345678"}`, fiber.StatusBadRequest},
		{"unknown wallet", "/wallets/nope/recharges", `{"amount":"10","from_phone_number":"01012345678","proof_reference":"p"}`, fiber.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := doJSON(t, app, fiber.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestHandlerAdminListFilters(t *testing.T) {
	app, f := newHandlerApp(t)
	account := f.newWallet(t, "user-1")
	for i := 0; i < 3; i++ {
		status, _ := doJSON(t, app, fiber.MethodPost, "/wallets/"+account+"/recharges",
			`{"amount":25,"from_phone_number":"01012345678","proof_reference":"p"}`)
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := doJSON(t, app, fiber.MethodGet, "/admin/recharges?status=pending&limit=2", "")
	require.Equal(t, fiber.StatusOK, status)
	pagination, _ := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["total"])
	assert.EqualValues(t, 2, pagination["pages"])

	status, _ = doJSON(t, app, fiber.MethodGet, "/admin/recharges?status=bogus", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, fiber.MethodGet, "/recharges/unknown", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}
