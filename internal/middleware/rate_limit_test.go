package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shifa-care/shifa_wallet/internal/logging"
)

func TestAccountRateLimitPerWallet(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/wallets/:accountId/recharges", AccountRateLimit(cache, "recharge", 2, time.Hour, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	post := func(account string) int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/wallets/"+account+"/recharges", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if got := post("a"); got != fiber.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, got)
		}
	}
	if got := post("a"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := post("b"); got != fiber.StatusCreated {
		t.Fatalf("other wallet should not be limited, got %d", got)
	}

	mr.FastForward(time.Hour + time.Second)
	if got := post("a"); got != fiber.StatusCreated {
		t.Fatalf("expected window reset, got %d", got)
	}
}

func TestAccountRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/x/:accountId", AccountRateLimit(nil, "recharge", 1, time.Hour, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/x/a", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusNoContent {
			t.Fatalf("expected pass-through, got %d", resp.StatusCode)
		}
	}
}
