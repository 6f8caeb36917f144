package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/uweb3bank/cardadmin/internal/upstream"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints covering the
// database, the cache, and the issuing platform.
func RegisterHealthRoutes(app *fiber.App, d Deps, client upstream.Client) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"
		upstreamStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if client != nil {
			if health := client.TestConnection(ctx); !health.Healthy {
				upstreamStatus = health.Detail
			}
		}

		status := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" || upstreamStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "card_api": upstreamStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
