package reconcile

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/issuing"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

// Handler exposes the HTTP endpoint for on-demand card sync.
type Handler struct {
	service *Service
}

// NewHandler constructs a reconciliation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Sync refreshes a card from the issuing platform.
func (h *Handler) Sync(c *fiber.Ctx) error {
	card, err := h.service.Sync(c.UserContext(), c.Params("cardId"))
	if err != nil {
		switch {
		case errors.Is(err, cards.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "card not found")
		case errors.Is(err, upstream.ErrUpstream):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(issuing.ToCardResponse(card))
}
