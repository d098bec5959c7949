// backend/src/handlers/quote_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/models"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/services"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/utils"
	"github.com/go-chi/chi/v5"
)

type QuoteHandler struct {
	quoteService services.QuoteService
}

func NewQuoteHandler(quoteService services.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

func (h *QuoteHandler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		utils.SendJSONError(w, "symbol is required", http.StatusBadRequest)
		return
	}

	quote, err := h.quoteService.GetQuote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, services.ErrQuoteUnavailable) {
			logger.InfoFromContext(r.Context(), "Quote unavailable", "symbol", symbol, "error", err)
			utils.SendJSONError(w, "Quote unavailable for "+symbol, http.StatusBadGateway)
			return
		}
		logger.ErrorFromContext(r.Context(), "Error retrieving quote", "symbol", symbol, "error", err)
		utils.SendJSONError(w, "Error retrieving quote", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) HandleSearchSymbols(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		utils.SendJSONError(w, "q is required", http.StatusBadRequest)
		return
	}

	matches, err := h.quoteService.SearchSymbols(r.Context(), query)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Symbol search failed", "query", query, "error", err)
		utils.SendJSONError(w, "Symbol search failed", http.StatusBadGateway)
		return
	}
	if matches == nil {
		matches = []models.SymbolMatch{}
	}
	utils.WriteJSON(w, http.StatusOK, matches)
}
