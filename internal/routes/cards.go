package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uweb3bank/cardadmin/internal/funding"
	"github.com/uweb3bank/cardadmin/internal/issuing"
	"github.com/uweb3bank/cardadmin/internal/reconcile"
)

// RegisterCardRoutes wires card lifecycle, funding, and sync endpoints.
func RegisterCardRoutes(r fiber.Router, cards *issuing.Handler, fund *funding.Handler, sync *reconcile.Handler) {
	r.Post("/cards", cards.Create)
	r.Get("/cards/:cardId", cards.Get)
	r.Patch("/cards/:cardId", cards.Update)
	r.Post("/cards/:cardId/fund", fund.Fund)
	r.Post("/cards/:cardId/sync", sync.Sync)
}
