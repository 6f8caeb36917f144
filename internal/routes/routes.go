package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/config"
	"github.com/uweb3bank/cardadmin/internal/funding"
	"github.com/uweb3bank/cardadmin/internal/issuing"
	"github.com/uweb3bank/cardadmin/internal/margin"
	"github.com/uweb3bank/cardadmin/internal/middleware"
	"github.com/uweb3bank/cardadmin/internal/notification"
	"github.com/uweb3bank/cardadmin/internal/reconcile"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Upstream upstream.Client
	Logger   *slog.Logger
}

// Services holds the wired domain services so the caller can share them with
// background jobs.
type Services struct {
	Issuing   *issuing.Service
	Funding   *funding.Service
	Reconcile *reconcile.Service
	Margins   *margin.Store
}

// Setup configures middlewares and all application routes, returning the
// wired services.
func Setup(app *fiber.App, d Deps) (Services, error) {
	// Enforce real backends outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Upstream == nil {
			return Services{}, fmt.Errorf("upstream client is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Backends
	var store cards.Store
	if d.DB != nil {
		store = cards.NewPostgresStore(d.DB)
	} else {
		store = cards.NewMemoryStore()
	}

	var marginRepo margin.Repository
	if d.DB != nil {
		marginRepo = margin.NewPostgresRepository(d.DB)
	} else {
		marginRepo = margin.NewMemoryRepository()
	}

	client := d.Upstream
	if client == nil {
		client = upstream.NewStatic()
	}

	// Services and handlers
	margins := margin.NewStore(marginRepo, d.Cfg.Margins, d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)
	issuingSvc := issuing.NewService(store, client, d.Logger)
	fundingSvc := funding.NewService(store, margins, client, notifier, d.Logger)
	reconcileSvc := reconcile.NewService(store, client, d.Logger)

	issuingHandler := issuing.NewHandler(issuingSvc)
	fundingHandler := funding.NewHandler(fundingSvc)
	reconcileHandler := reconcile.NewHandler(reconcileSvc)
	marginHandler := margin.NewHandler(margins)

	// Health
	RegisterHealthRoutes(app, d, client)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	api.Use(middleware.Audit(d.Logger))

	RegisterCardRoutes(api, issuingHandler, fundingHandler, reconcileHandler)
	RegisterSettingsRoutes(api, marginHandler)

	return Services{
		Issuing:   issuingSvc,
		Funding:   fundingSvc,
		Reconcile: reconcileSvc,
		Margins:   margins,
	}, nil
}
