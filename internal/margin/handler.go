package margin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const actorHeader = "X-Actor-Id"

// Handler exposes HTTP endpoints for margin policy administration.
type Handler struct {
	store *Store
}

// NewHandler constructs a margin handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// GetAll returns the effective margin percentages, stored values merged over
// environment fallbacks.
func (h *Handler) GetAll(c *fiber.Ctx) error {
	effective := h.store.Effective(c.UserContext())

	out := make(map[string]string, len(effective))
	for key, value := range effective {
		out[key] = value.String()
	}
	return c.JSON(out)
}

// BulkUpdate applies a batch of margin values all-or-nothing.
func (h *Handler) BulkUpdate(c *fiber.Ctx) error {
	// decimal.Decimal accepts both quoted and raw JSON numbers.
	var values map[string]decimal.Decimal
	if err := json.Unmarshal(c.Body(), &values); err != nil {
		return fiber.NewError(http.StatusBadRequest, "margins must be numbers")
	}

	applied, err := h.store.SetMargins(c.UserContext(), values, c.Get(actorHeader))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make(map[string]string, len(applied))
	for _, setting := range applied {
		out[setting.Key] = setting.Value.String()
	}
	return c.JSON(fiber.Map{"applied": out})
}
