package httpx

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"admin_note" validate:"max=5"`
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var req sample
		if err := Bind(c, &req); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"valid", `{"decision":"approve"}`, fiber.StatusNoContent, ""},
		{"missing", `{}`, fiber.StatusBadRequest, "decision is required"},
		{"enum", `{"decision":"maybe"}`, fiber.StatusBadRequest, "decision must be one of"},
		{"too long", `{"decision":"reject","admin_note":"abcdefg"}`, fiber.StatusBadRequest, "admin_note must be at most 5"},
		{"malformed", `{`, fiber.StatusBadRequest, "invalid request body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.want != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), tc.want)
			}
		})
	}
}
