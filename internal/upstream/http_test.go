package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uweb3bank/cardadmin/internal/logging"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(Options{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		APISecret: "test-secret",
		Timeout:   timeout,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	return client, server
}

func TestFundCardSendsAuthAndParsesReference(t *testing.T) {
	var gotAuth, gotSecret string
	var gotBody map[string]string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSecret = r.Header.Get("X-API-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cards/card-1/fund", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "ext-42"})
	}), 5*time.Second)

	txID, err := client.FundCard(context.Background(), "card-1", decimal.RequireFromString("102.50"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "ext-42", txID)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-secret", gotSecret)
	assert.Equal(t, "102.50", gotBody["amount"])
	assert.Equal(t, "USD", gotBody["currency"])
}

func TestFundCardSurfacesUpstreamRejection(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"message": "insufficient issuer balance"})
	}), 5*time.Second)

	_, err := client.FundCard(context.Background(), "card-1", decimal.RequireFromString("10"), "USD")
	require.Error(t, err)

	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusPaymentRequired, ue.StatusCode)
	assert.Equal(t, "insufficient issuer balance", ue.Message)
	assert.False(t, ue.Indeterminate)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFundCardTimeoutIsIndeterminate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}), 20*time.Millisecond)

	_, err := client.FundCard(context.Background(), "card-1", decimal.RequireFromString("10"), "USD")
	require.Error(t, err)
	assert.True(t, IsIndeterminate(err), "timeout must be flagged indeterminate, got %v", err)
}

func TestGetCardParsesRemoteState(t *testing.T) {
	lastUsed := time.Now().UTC().Truncate(time.Second)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/card-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"balance":   "125.75",
			"status":    "inactive",
			"last_used": lastUsed.Format(time.RFC3339),
		})
	}), 5*time.Second)

	state, err := client.GetCard(context.Background(), "card-1")
	require.NoError(t, err)
	assert.True(t, state.Balance.Equal(decimal.RequireFromString("125.75")))
	assert.Equal(t, "inactive", state.Status)
	require.NotNil(t, state.LastUsed)
	assert.True(t, state.LastUsed.Equal(lastUsed))
}

func TestTestConnectionNeverErrors(t *testing.T) {
	healthy, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), time.Second)
	assert.True(t, healthy.TestConnection(context.Background()).Healthy)

	unhealthy, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), time.Second)
	health := unhealthy.TestConnection(context.Background())
	assert.False(t, health.Healthy)
	assert.NotEmpty(t, health.Detail)

	server.Close()
	health = unhealthy.TestConnection(context.Background())
	assert.False(t, health.Healthy)
}

func TestCreateCardMapsResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada Lovelace", body["cardholder_name"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"id":          "card-9",
			"card_number": "4000123412341234",
			"expiry_date": "12/29",
			"cvv":         "123",
		})
	}), 5*time.Second)

	created, err := client.CreateCard(context.Background(), CreateCardInput{HolderName: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "card-9", created.CardID)
	assert.Equal(t, "4000123412341234", created.CardNumber)
	assert.Equal(t, "12/29", created.ExpiryDate)
}
