package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const secretHeader = "X-API-Secret"

// HTTPClient talks JSON to the card issuing platform over bearer-token plus
// secret-header authentication with a fixed request timeout.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	logger    *slog.Logger
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewHTTPClient builds the platform client. Timeout defaults to 30s when unset.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		apiSecret: opts.APISecret,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}, nil
}

type createCardRequest struct {
	CardholderName   string            `json:"cardholder_name"`
	Currency         string            `json:"currency"`
	SpendingControls spendingControls  `json:"spending_controls"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type spendingControls struct {
	SpendingLimit         string `json:"spending_limit,omitempty"`
	SpendingLimitDuration string `json:"spending_limit_duration,omitempty"`
}

type createCardResponse struct {
	ID         string `json:"id"`
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
}

// CreateCard issues a new virtual card on the platform. Callers must not
// retry automatically: the remote side offers no idempotency key for issuance.
func (c *HTTPClient) CreateCard(ctx context.Context, input CreateCardInput) (CreatedCard, error) {
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	body := createCardRequest{
		CardholderName: input.HolderName,
		Currency:       currency,
		Metadata:       input.Metadata,
	}
	if input.SpendingLimit.IsPositive() {
		body.SpendingControls = spendingControls{
			SpendingLimit:         input.SpendingLimit.String(),
			SpendingLimitDuration: "per_transaction",
		}
	}

	var resp createCardResponse
	if err := c.do(ctx, "create_card", http.MethodPost, "/cards", body, &resp); err != nil {
		return CreatedCard{}, err
	}
	return CreatedCard{
		CardID:     resp.ID,
		CardNumber: resp.CardNumber,
		ExpiryDate: resp.ExpiryDate,
		CVV:        resp.CVV,
	}, nil
}

type cardStateResponse struct {
	Balance  string `json:"balance"`
	Status   string `json:"status"`
	LastUsed string `json:"last_used"`
}

// GetCard fetches the authoritative remote state for a card.
func (c *HTTPClient) GetCard(ctx context.Context, cardID string) (CardState, error) {
	var resp cardStateResponse
	if err := c.do(ctx, "get_card", http.MethodGet, "/cards/"+url.PathEscape(cardID), nil, &resp); err != nil {
		return CardState{}, err
	}

	state := CardState{Status: resp.Status}
	if resp.Balance != "" {
		balance, err := decimal.NewFromString(resp.Balance)
		if err != nil {
			return CardState{}, &Error{Op: "get_card", Message: fmt.Sprintf("malformed balance %q", resp.Balance)}
		}
		state.Balance = balance
	}
	if resp.LastUsed != "" {
		if ts, err := time.Parse(time.RFC3339, resp.LastUsed); err == nil {
			state.LastUsed = &ts
		}
	}
	return state, nil
}

// UpdateCard patches mutable remote card fields.
func (c *HTTPClient) UpdateCard(ctx context.Context, cardID string, input UpdateCardInput) error {
	body := map[string]string{"status": input.Status}
	return c.do(ctx, "update_card", http.MethodPatch, "/cards/"+url.PathEscape(cardID), body, nil)
}

// CancelCard requests remote cancellation of a card.
func (c *HTTPClient) CancelCard(ctx context.Context, cardID, reason string) error {
	if reason == "" {
		reason = "Admin request"
	}
	body := map[string]string{"reason": reason}
	return c.do(ctx, "cancel_card", http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/cancel", body, nil)
}

type fundCardRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type fundCardResponse struct {
	TransactionID string `json:"transaction_id"`
}

// FundCard submits a funding charge and returns the remote transaction
// reference. A timeout here is an indeterminate outcome: the charge may have
// been applied remotely.
func (c *HTTPClient) FundCard(ctx context.Context, cardID string, amount decimal.Decimal, currency string) (string, error) {
	if currency == "" {
		currency = "USD"
	}
	var resp fundCardResponse
	err := c.do(ctx, "fund_card", http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/fund", fundCardRequest{
		Amount:   amount.StringFixed(2),
		Currency: currency,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

// TestConnection probes the platform health endpoint. It never returns an
// error; any failure is reported in the Health detail.
func (c *HTTPClient) TestConnection(ctx context.Context) Health {
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil); err != nil {
		return Health{Healthy: false, Detail: err.Error()}
	}
	return Health{Healthy: true}
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.apiSecret != "" {
		req.Header.Set(secretHeader, c.apiSecret)
	}

	c.logger.Info("card api request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		indeterminate := isTimeout(err) && method != http.MethodGet
		c.logger.Error("card api transport failure", "op", op, "error", err, "indeterminate", indeterminate)
		return &Error{Op: op, Message: err.Error(), Indeterminate: indeterminate}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := upstreamMessage(raw)
		c.logger.Error("card api rejected request", "op", op, "status", resp.StatusCode, "message", message)
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: message}
	}

	c.logger.Info("card api response", "op", op, "status", resp.StatusCode)

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

func upstreamMessage(raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "request failed"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
