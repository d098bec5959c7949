package models

// Position represents the user's aggregate holding in a single symbol.
// Quantity is always positive: a position whose quantity reaches zero is
// removed from the ledger rather than stored empty.
type Position struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	AverageCost float64 `json:"averageCost"`
}

// Ledger is the unit of persistence: the simulated cash balance plus every
// open position, keyed implicitly by Position.Symbol (unique within the slice).
type Ledger struct {
	Cash      float64    `json:"cash"`
	Positions []Position `json:"positions"`
}

// FindPosition returns the index of the position for symbol, or -1.
func (l *Ledger) FindPosition(symbol string) int {
	for i := range l.Positions {
		if l.Positions[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// MarketValue returns the sum of quantity*price over the supplied price map
// plus cash. Symbols without a quoted price contribute their cost basis, so
// the total degrades gracefully when quotes are unavailable.
func (l *Ledger) MarketValue(prices map[string]float64) float64 {
	total := l.Cash
	for _, p := range l.Positions {
		if price, ok := prices[p.Symbol]; ok {
			total += float64(p.Quantity) * price
		} else {
			total += float64(p.Quantity) * p.AverageCost
		}
	}
	return total
}
