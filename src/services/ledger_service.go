// backend/src/services/ledger_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/database"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/models"
	"github.com/microcosm-cc/bluemonday"
)

type ledgerServiceImpl struct {
	store        SnapshotStore
	snapshotKey  string
	startingCash float64
	sanitizer    *bluemonday.Policy

	// Serializes the load->validate->mutate->save cycle. Without it two
	// concurrent trades could read the same snapshot and lose an update.
	mu sync.Mutex
}

func NewLedgerService(store SnapshotStore, snapshotKey string, startingCash float64) LedgerService {
	return &ledgerServiceImpl{
		store:        store,
		snapshotKey:  snapshotKey,
		startingCash: startingCash,
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

func (s *ledgerServiceImpl) defaultLedger() models.Ledger {
	return models.Ledger{
		Cash:      s.startingCash,
		Positions: []models.Position{},
	}
}

// snapshotProbe mirrors models.Ledger with pointer fields so a structurally
// incomplete snapshot (missing cash or positions) can be told apart from a
// legitimately empty one. Unknown extra fields are ignored on purpose.
type snapshotProbe struct {
	Cash      *float64           `json:"cash"`
	Positions *[]models.Position `json:"positions"`
}

// loadSnapshot reads the persisted ledger. The bool reports whether a usable
// snapshot existed. A snapshot that cannot be parsed into a valid ledger
// returns ErrCorruptSnapshot; a storage read failure returns
// ErrStorageUnavailable.
func (s *ledgerServiceImpl) loadSnapshot() (models.Ledger, bool, error) {
	data, err := s.store.Get(s.snapshotKey)
	if errors.Is(err, database.ErrBlobNotFound) {
		return models.Ledger{}, false, nil
	}
	if err != nil {
		return models.Ledger{}, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var probe snapshotProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return models.Ledger{}, false, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if probe.Cash == nil || probe.Positions == nil {
		return models.Ledger{}, false, fmt.Errorf("%w: missing cash or positions", ErrCorruptSnapshot)
	}

	ledger := models.Ledger{Cash: *probe.Cash, Positions: *probe.Positions}
	if ledger.Positions == nil {
		ledger.Positions = []models.Position{}
	}
	return ledger, true, nil
}

func (s *ledgerServiceImpl) saveSnapshot(ledger models.Ledger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("serializing ledger snapshot: %w", err)
	}
	if err := s.store.Put(s.snapshotKey, data); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// initializeLocked returns the working ledger every operation starts from:
// the persisted snapshot if one exists, otherwise the default ledger, freshly
// persisted so the durable copy is always a valid base state. A corrupt
// snapshot is unusable and is replaced by the default rather than propagated.
// Caller must hold s.mu.
func (s *ledgerServiceImpl) initializeLocked() (models.Ledger, error) {
	ledger, found, err := s.loadSnapshot()
	if err != nil {
		if !errors.Is(err, ErrCorruptSnapshot) {
			return models.Ledger{}, err
		}
		logger.L.Warn("Persisted ledger snapshot is corrupt, falling back to default state", "error", err)
	}
	if found {
		return ledger, nil
	}

	ledger = s.defaultLedger()
	if err := s.saveSnapshot(ledger); err != nil {
		return models.Ledger{}, err
	}
	logger.L.Info("Created default ledger snapshot", "startingCash", s.startingCash)
	return ledger, nil
}

// withLedger runs one load->validate->mutate->save cycle under the lock.
// mutate works on a freshly loaded copy, so a validation error or a failed
// save leaves no visible state change: the durable snapshot stays the source
// of truth and nothing in memory runs ahead of it.
func (s *ledgerServiceImpl) withLedger(mutate func(*models.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.initializeLocked()
	if err != nil {
		return err
	}
	if err := mutate(&ledger); err != nil {
		return err
	}
	return s.saveSnapshot(ledger)
}

func (s *ledgerServiceImpl) InitializeLedger() (models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked()
}

func (s *ledgerServiceImpl) Buy(symbol, description string, quantity int64, pricePerShare float64) error {
	if quantity <= 0 || pricePerShare <= 0 {
		return ErrInvalidOrder
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ErrInvalidOrder
	}
	description = strings.TrimSpace(s.sanitizer.Sanitize(description))

	err := s.withLedger(func(ledger *models.Ledger) error {
		totalCost := float64(quantity) * pricePerShare
		if ledger.Cash < totalCost {
			return ErrInsufficientFunds
		}
		ledger.Cash -= totalCost

		if i := ledger.FindPosition(symbol); i >= 0 {
			pos := &ledger.Positions[i]
			newQuantity := pos.Quantity + quantity
			// Weighted average of the prior basis and this purchase. newQuantity
			// is always positive here, so the division is safe.
			pos.AverageCost = (float64(pos.Quantity)*pos.AverageCost + totalCost) / float64(newQuantity)
			pos.Quantity = newQuantity
			if description != "" {
				pos.Description = description
			}
		} else {
			ledger.Positions = append(ledger.Positions, models.Position{
				Symbol:      symbol,
				Description: description,
				Quantity:    quantity,
				AverageCost: pricePerShare,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.L.Info("Buy executed", "symbol", symbol, "quantity", quantity, "price", pricePerShare)
	return nil
}

func (s *ledgerServiceImpl) Sell(symbol string, quantity int64, pricePerShare float64) error {
	if quantity <= 0 || pricePerShare <= 0 {
		return ErrInvalidOrder
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	err := s.withLedger(func(ledger *models.Ledger) error {
		i := ledger.FindPosition(symbol)
		if i < 0 {
			return ErrPositionNotFound
		}
		pos := &ledger.Positions[i]
		if pos.Quantity < quantity {
			return ErrInsufficientShares
		}

		ledger.Cash += float64(quantity) * pricePerShare
		if pos.Quantity == quantity {
			// A position never survives with zero shares.
			ledger.Positions = append(ledger.Positions[:i], ledger.Positions[i+1:]...)
		} else {
			// Average cost is untouched by sales: realized gain/loss is the
			// caller's derivation, not ledger state.
			pos.Quantity -= quantity
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.L.Info("Sell executed", "symbol", symbol, "quantity", quantity, "price", pricePerShare)
	return nil
}

func (s *ledgerServiceImpl) ResetLedger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(s.snapshotKey); err != nil {
		logger.L.Error("Failed to delete ledger snapshot", "error", err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	logger.L.Info("Ledger snapshot deleted; next initialize recreates the default state")
	return nil
}
