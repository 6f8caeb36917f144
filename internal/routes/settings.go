package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uweb3bank/cardadmin/internal/margin"
)

// RegisterSettingsRoutes wires margin policy administration endpoints.
func RegisterSettingsRoutes(r fiber.Router, margins *margin.Handler) {
	r.Get("/settings/profit-margin", margins.GetAll)
	r.Put("/settings/profit-margin", margins.BulkUpdate)
}
