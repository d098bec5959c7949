package utils

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
)

// JSONErrorResponse is the uniform error body returned by every handler.
type JSONErrorResponse struct {
	Error string `json:"error"`
}

// SendJSONError writes a JSON error body with the given status code.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(JSONErrorResponse{Error: message}); err != nil {
		logger.L.Error("Failed to encode JSON error response", "error", err)
	}
}

// WriteJSON writes v as a JSON response with status 200 unless code says otherwise.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}
