// backend/src/handlers/ledger_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/services"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/utils"
)

type LedgerHandler struct {
	ledgerService services.LedgerService
	quoteService  services.QuoteService
}

func NewLedgerHandler(ledgerService services.LedgerService, quoteService services.QuoteService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		quoteService:  quoteService,
	}
}

// BuyRequest is the body for POST /api/ledger/buy.
type BuyRequest struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
}

// SellRequest is the body for POST /api/ledger/sell.
type SellRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// tradeErrorStatus maps each service error to a distinct HTTP status so the
// frontend can show a specific notification per failure.
func tradeErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *LedgerHandler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ledgerService.InitializeLedger()
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to initialize ledger", "error", err)
		utils.SendJSONError(w, "Failed to load portfolio", tradeErrorStatus(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, ledger)
}

func (h *LedgerHandler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	logger.InfoFromContext(r.Context(), "Handling buy request",
		"symbol", req.Symbol, "quantity", req.Quantity, "price", req.Price)

	if err := h.ledgerService.Buy(req.Symbol, req.Description, req.Quantity, req.Price); err != nil {
		logger.ErrorFromContext(r.Context(), "Buy rejected", "symbol", req.Symbol, "error", err)
		utils.SendJSONError(w, err.Error(), tradeErrorStatus(err))
		return
	}

	ledger, err := h.ledgerService.InitializeLedger()
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to reload ledger after buy", "error", err)
		utils.SendJSONError(w, "Trade executed but portfolio reload failed", http.StatusServiceUnavailable)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ledger)
}

func (h *LedgerHandler) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	logger.InfoFromContext(r.Context(), "Handling sell request",
		"symbol", req.Symbol, "quantity", req.Quantity, "price", req.Price)

	if err := h.ledgerService.Sell(req.Symbol, req.Quantity, req.Price); err != nil {
		logger.ErrorFromContext(r.Context(), "Sell rejected", "symbol", req.Symbol, "error", err)
		utils.SendJSONError(w, err.Error(), tradeErrorStatus(err))
		return
	}

	ledger, err := h.ledgerService.InitializeLedger()
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to reload ledger after sell", "error", err)
		utils.SendJSONError(w, "Trade executed but portfolio reload failed", http.StatusServiceUnavailable)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ledger)
}

// PortfolioValueResponse is the body for GET /api/ledger/value.
type PortfolioValueResponse struct {
	Cash        float64 `json:"cash"`
	MarketValue float64 `json:"market_value"`
	QuotedAll   bool    `json:"quoted_all"`
}

func (h *LedgerHandler) HandleGetPortfolioValue(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ledgerService.InitializeLedger()
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to initialize ledger", "error", err)
		utils.SendJSONError(w, "Failed to load portfolio", tradeErrorStatus(err))
		return
	}

	prices := make(map[string]float64, len(ledger.Positions))
	quotedAll := true
	for _, pos := range ledger.Positions {
		quote, err := h.quoteService.GetQuote(r.Context(), pos.Symbol)
		if err != nil {
			// Positions without a live quote fall back to cost basis inside
			// MarketValue; flag it so the UI can mark the total as approximate.
			logger.InfoFromContext(r.Context(), "No live quote for position", "symbol", pos.Symbol, "error", err)
			quotedAll = false
			continue
		}
		prices[pos.Symbol] = quote.CurrentPrice
	}

	utils.WriteJSON(w, http.StatusOK, PortfolioValueResponse{
		Cash:        ledger.Cash,
		MarketValue: ledger.MarketValue(prices),
		QuotedAll:   quotedAll,
	})
}

func (h *LedgerHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	logger.InfoFromContext(r.Context(), "Handling ledger reset request")

	if err := h.ledgerService.ResetLedger(); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to reset ledger", "error", err)
		utils.SendJSONError(w, "Failed to reset portfolio", tradeErrorStatus(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Portfolio reset"})
}
