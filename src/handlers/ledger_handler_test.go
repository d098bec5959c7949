package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/models"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuoteRouter(h *QuoteHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/quotes/search", h.HandleSearchSymbols)
	r.Get("/api/quotes/{symbol}", h.HandleGetQuote)
	return r
}

func init() {
	logger.InitLogger("error")
}

// stubLedgerService drives handler tests without real persistence.
type stubLedgerService struct {
	ledger  models.Ledger
	buyErr  error
	sellErr error
	initErr error
	resets  int
}

func (s *stubLedgerService) InitializeLedger() (models.Ledger, error) {
	return s.ledger, s.initErr
}

func (s *stubLedgerService) Buy(symbol, description string, quantity int64, price float64) error {
	return s.buyErr
}

func (s *stubLedgerService) Sell(symbol string, quantity int64, price float64) error {
	return s.sellErr
}

func (s *stubLedgerService) ResetLedger() error {
	s.resets++
	return nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestHandleGetLedger(t *testing.T) {
	stub := &stubLedgerService{ledger: models.Ledger{
		Cash: 98300,
		Positions: []models.Position{
			{Symbol: "AAPL", Description: "Apple Inc.", Quantity: 10, AverageCost: 170},
		},
	}}
	h := NewLedgerHandler(stub, &stubQuoteService{})

	req := httptest.NewRequest(http.MethodGet, "/api/ledger", nil)
	rr := httptest.NewRecorder()
	h.HandleGetLedger(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Ledger
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, stub.ledger, got)
}

func TestHandleBuySuccessReturnsLedger(t *testing.T) {
	stub := &stubLedgerService{ledger: models.Ledger{Cash: 98300, Positions: []models.Position{}}}
	h := NewLedgerHandler(stub, &stubQuoteService{})

	rr := postJSON(t, h.HandleBuy, BuyRequest{Symbol: "AAPL", Quantity: 10, Price: 170})

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Ledger
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 98300.0, got.Cash)
}

func TestHandleBuyErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid order", services.ErrInvalidOrder, http.StatusBadRequest},
		{"insufficient funds", services.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"storage down", services.ErrStorageUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(&stubLedgerService{buyErr: tt.err}, &stubQuoteService{})
			rr := postJSON(t, h.HandleBuy, BuyRequest{Symbol: "AAPL", Quantity: 1, Price: 1})
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestHandleSellErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"position not found", services.ErrPositionNotFound, http.StatusNotFound},
		{"insufficient shares", services.ErrInsufficientShares, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(&stubLedgerService{sellErr: tt.err}, &stubQuoteService{})
			rr := postJSON(t, h.HandleSell, SellRequest{Symbol: "AAPL", Quantity: 1, Price: 1})
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestHandleBuyMalformedBody(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{}, &stubQuoteService{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.HandleBuy(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleReset(t *testing.T) {
	stub := &stubLedgerService{}
	h := NewLedgerHandler(stub, &stubQuoteService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/ledger", nil)
	rr := httptest.NewRecorder()
	h.HandleReset(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, stub.resets)
}

// stubQuoteService for quote handler tests.
type stubQuoteService struct {
	quote   models.Quote
	err     error
	matches []models.SymbolMatch
}

func (s *stubQuoteService) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	return s.quote, s.err
}

func (s *stubQuoteService) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	return s.matches, s.err
}

func TestHandleGetPortfolioValue(t *testing.T) {
	ledger := models.Ledger{
		Cash: 1000,
		Positions: []models.Position{
			{Symbol: "AAPL", Quantity: 10, AverageCost: 170},
		},
	}
	h := NewLedgerHandler(
		&stubLedgerService{ledger: ledger},
		&stubQuoteService{quote: models.Quote{Symbol: "AAPL", CurrentPrice: 180}},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/ledger/value", nil)
	rr := httptest.NewRecorder()
	h.HandleGetPortfolioValue(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got PortfolioValueResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1000.0, got.Cash)
	assert.Equal(t, 1000.0+10*180, got.MarketValue)
	assert.True(t, got.QuotedAll)
}

func TestHandleGetPortfolioValueFallsBackWithoutQuotes(t *testing.T) {
	ledger := models.Ledger{
		Cash: 1000,
		Positions: []models.Position{
			{Symbol: "AAPL", Quantity: 10, AverageCost: 170},
		},
	}
	h := NewLedgerHandler(
		&stubLedgerService{ledger: ledger},
		&stubQuoteService{err: services.ErrQuoteUnavailable},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/ledger/value", nil)
	rr := httptest.NewRecorder()
	h.HandleGetPortfolioValue(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got PortfolioValueResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1000.0+10*170, got.MarketValue, "unquoted positions valued at cost basis")
	assert.False(t, got.QuotedAll)
}

func TestHandleGetQuoteUnavailable(t *testing.T) {
	h := NewQuoteHandler(&stubQuoteService{err: services.ErrQuoteUnavailable})

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/NOPE", nil)
	rr := httptest.NewRecorder()

	// Route through chi so the URL parameter is populated.
	mux := newQuoteRouter(h)
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHandleGetQuoteSuccess(t *testing.T) {
	h := NewQuoteHandler(&stubQuoteService{quote: models.Quote{Symbol: "AAPL", CurrentPrice: 172.5}})

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/AAPL", nil)
	rr := httptest.NewRecorder()
	newQuoteRouter(h).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 172.5, got.CurrentPrice)
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	h := NewQuoteHandler(&stubQuoteService{})

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/search", nil)
	rr := httptest.NewRecorder()
	newQuoteRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
