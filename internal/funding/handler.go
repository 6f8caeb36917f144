package funding

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/pricing"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

const actorHeader = "X-Actor-Id"

var validate = validator.New()

// Handler exposes the HTTP endpoint for card funding.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Fund processes a funding request for the card in the path.
func (h *Handler) Fund(c *fiber.Ctx) error {
	cardID := c.Params("cardId")

	var req FundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount must be a number")
	}

	result, err := h.service.Fund(c.UserContext(), FundInput{
		CardID:   cardID,
		Amount:   amount,
		Currency: req.Currency,
		Actor:    c.Get(actorHeader),
	})
	if err != nil {
		switch {
		case errors.Is(err, cards.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "card not found")
		case errors.Is(err, pricing.ErrInvalidArgument):
			return fiber.NewError(http.StatusBadRequest, "amount must be non-negative and margin within 0-100")
		case errors.Is(err, ErrFundingFailed), errors.Is(err, upstream.ErrUpstream):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(FundResponse{
		Transaction: ToTransactionResponse(result.Transaction),
		NewBalance:  result.NewBalance.StringFixed(2),
	})
}

// ToTransactionResponse converts a stored transaction into its API shape.
func ToTransactionResponse(txn cards.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:         txn.TransactionID,
		CardID:                txn.CardID,
		Type:                  txn.Type,
		Currency:              txn.Currency,
		Description:           txn.Description,
		Status:                txn.Status,
		BaseAmount:            txn.BaseAmount.StringFixed(2),
		ProfitMargin:          txn.ProfitMargin.String(),
		ProfitAmount:          txn.ProfitAmount.StringFixed(2),
		TotalAmount:           txn.TotalAmount.StringFixed(2),
		ExternalTransactionID: txn.ExternalTransactionID,
		ProcessedBy:           txn.ProcessedBy,
		ProcessedAt:           txn.ProcessedAt,
	}
}
