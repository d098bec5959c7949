// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/models"
)

// Define common service errors
var (
	// Trading validation errors. These are detected before any mutation and
	// never touch persisted state, so the caller may retry with corrected input.
	ErrInvalidOrder       = errors.New("quantity and price must be positive")
	ErrInsufficientFunds  = errors.New("insufficient cash for purchase")
	ErrInsufficientShares = errors.New("insufficient shares for sale")
	ErrPositionNotFound   = errors.New("no position held for symbol")

	// Persistence errors.
	ErrCorruptSnapshot    = errors.New("persisted snapshot is not a valid ledger")
	ErrStorageUnavailable = errors.New("snapshot storage unavailable")

	// Quote errors.
	ErrQuoteUnavailable = errors.New("quote unavailable for symbol")
)

// SnapshotStore is the durable key-value substrate the ledger persists into.
// Implemented by database.BlobStore.
type SnapshotStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
}

// LedgerService owns the portfolio ledger: it loads or creates the persisted
// snapshot, applies buy/sell transactions under the trading invariants, and
// keeps the durable copy in sync with every completed operation.
type LedgerService interface {
	// InitializeLedger returns the current ledger, creating and persisting the
	// default one (starting cash, no positions) if no snapshot exists yet.
	InitializeLedger() (models.Ledger, error)

	// Buy purchases quantity shares of symbol at pricePerShare, debiting cash
	// and folding the purchase into the position's weighted average cost.
	Buy(symbol, description string, quantity int64, pricePerShare float64) error

	// Sell disposes of quantity shares of symbol at pricePerShare, crediting
	// cash. Selling the full position removes it; partial sales leave the
	// average cost untouched.
	Sell(symbol string, quantity int64, pricePerShare float64) error

	// ResetLedger deletes the persisted snapshot. The next InitializeLedger
	// recreates the default state.
	ResetLedger() error
}

// QuoteService fetches current market data for display and trade pricing.
// GetQuote never fabricates a zero price: when the backend has no data the
// caller gets ErrQuoteUnavailable.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
	SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error)
}
