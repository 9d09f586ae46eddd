package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shifa-care/shifa_wallet/internal/config"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/metrics"
	"github.com/shifa-care/shifa_wallet/internal/middleware"
	"github.com/shifa-care/shifa_wallet/internal/notification"
	"github.com/shifa-care/shifa_wallet/internal/payments"
	"github.com/shifa-care/shifa_wallet/internal/rating"
	"github.com/shifa-care/shifa_wallet/internal/recharge"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Mongo    *mongo.Client
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(metrics.HTTP(d.Registry))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Registry)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := buildStores(ctx, d)
	if err != nil {
		return err
	}

	// Services and handlers
	ledgerMetrics := metrics.NewLedger(d.Registry)
	guard := ledger.NewGuard(st.ledger, ledger.WithMetrics(ledgerMetrics), ledger.WithLogger(d.Logger))
	walletSvc := wallet.NewService(st.wallets, st.ledger, d.Cfg.Currency)
	rechargeSvc := recharge.NewService(st.recharges, walletSvc, guard, d.Notifier, ledgerMetrics, d.Logger)
	paymentSvc := payments.NewService(guard, walletSvc, d.Notifier, d.Logger)
	ratingSvc := rating.NewService(st.ratings, guard, d.Notifier, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	rechargeHandler := recharge.NewHandler(rechargeSvc)
	paymentHandler := payments.NewHandler(paymentSvc)
	ratingHandler := rating.NewHandler(ratingSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	submitLimit := middleware.AccountRateLimit(d.Cache, "recharge", d.Cfg.RechargeLimit, time.Hour, d.Logger)

	RegisterWalletRoutes(api, walletHandler)
	RegisterRechargeRoutes(api, rechargeHandler, idempotent, submitLimit)
	RegisterPaymentRoutes(api, paymentHandler, idempotent)
	RegisterRatingRoutes(api, ratingHandler)

	admin := api.Group("/admin", middleware.AdminAuth(d.Cfg.AdminTokenHash))
	RegisterAdminRoutes(admin, rechargeHandler, walletSvc, guard.Projector(), idempotent)

	return nil
}
