package issuing

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/funding"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

const actorHeader = "X-Actor-Id"

var validate = validator.New()

// CreateCardRequest captures the issuance payload.
type CreateCardRequest struct {
	HolderName    string   `json:"cardholder_name" validate:"required,min=1"`
	Currency      string   `json:"currency" validate:"omitempty,oneof=USD EUR GBP"`
	SpendingLimit string   `json:"spending_limit" validate:"omitempty"`
	Tags          []string `json:"tags"`
}

// UpdateCardRequest captures administrative card updates.
type UpdateCardRequest struct {
	Status *string  `json:"status" validate:"omitempty,oneof=active inactive blocked"`
	Tags   []string `json:"tags"`
}

// CardResponse is the API shape of a card. The CVV never leaves the service.
type CardResponse struct {
	CardID       string     `json:"card_id"`
	MaskedNumber string     `json:"masked_card_number"`
	HolderName   string     `json:"cardholder_name"`
	ExpiryDate   string     `json:"expiry_date"`
	Status       string     `json:"status"`
	Balance      string     `json:"balance"`
	Currency     string     `json:"currency"`
	Tags         []string   `json:"tags"`
	IssuedAt     time.Time  `json:"issued_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// Handler exposes HTTP endpoints for the card lifecycle.
type Handler struct {
	service *Service
}

// NewHandler constructs an issuing handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create issues a new virtual card.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	limit := decimal.Zero
	if req.SpendingLimit != "" {
		parsed, err := decimal.NewFromString(req.SpendingLimit)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "spending_limit must be a number")
		}
		limit = parsed
	}

	card, err := h.service.Create(c.UserContext(), CreateInput{
		HolderName:    req.HolderName,
		Currency:      req.Currency,
		SpendingLimit: limit,
		Tags:          req.Tags,
		Actor:         c.Get(actorHeader),
	})
	if err != nil {
		if errors.Is(err, upstream.ErrUpstream) {
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(ToCardResponse(card))
}

// Get returns a card with its recent transactions.
func (h *Handler) Get(c *fiber.Ctx) error {
	detail, err := h.service.Get(c.UserContext(), c.Params("cardId"))
	if err != nil {
		if errors.Is(err, cards.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "card not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	txns := make([]funding.TransactionResponse, 0, len(detail.RecentTransactions))
	for _, txn := range detail.RecentTransactions {
		txns = append(txns, funding.ToTransactionResponse(txn))
	}

	return c.JSON(fiber.Map{
		"card":                ToCardResponse(detail.Card),
		"recent_transactions": txns,
	})
}

// Update applies status/tag changes to a card.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req UpdateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	card, err := h.service.Update(c.UserContext(), c.Params("cardId"), UpdateInput{
		Status: req.Status,
		Tags:   req.Tags,
		Actor:  c.Get(actorHeader),
	})
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

	return c.JSON(ToCardResponse(card))
}

// ToCardResponse converts a card into its API shape.
func ToCardResponse(card cards.Card) CardResponse {
	return CardResponse{
		CardID:       card.CardID,
		MaskedNumber: card.MaskedNumber(),
		HolderName:   card.HolderName,
		ExpiryDate:   card.ExpiryDate,
		Status:       card.Status,
		Balance:      card.Balance.StringFixed(2),
		Currency:     card.Currency,
		Tags:         card.Tags,
		IssuedAt:     card.IssuedAt,
		LastUsed:     card.LastUsed,
	}
}
