package strategy

import (
	"github.com/shopspring/decimal"
)

// SMACrossStrategy implements a simple SMA Crossover strategy.
// It is stateful and deterministic.
// Prices live in a fixed ring buffer sized to the long period.
type SMACrossStrategy struct {
	symbol      string
	shortPeriod int
	longPeriod  int

	// State (Ring Buffer)
	prices []decimal.Decimal
	head   int             // Current write position
	count  int             // Number of elements filled
	sum    decimal.Decimal // Running sum for the long period

	primed       bool // prev SMAs are valid
	prevShortSMA decimal.Decimal
	prevLongSMA  decimal.Decimal
}

// NewSMACrossStrategy creates a new instance.
func NewSMACrossStrategy(symbol string, shortPeriod, longPeriod int) *SMACrossStrategy {
	if shortPeriod <= 0 || shortPeriod >= longPeriod {
		panic("SMACrossStrategy: shortPeriod must be positive and less than longPeriod")
	}
	return &SMACrossStrategy{
		symbol:      symbol,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		prices:      make([]decimal.Decimal, longPeriod), // Fixed size allocation
	}
}

// OnPrice processes a mid price and generates signals.
func (s *SMACrossStrategy) OnPrice(symbol string, mid decimal.Decimal) []Action {
	// 1. Filter by symbol
	if symbol != s.symbol {
		return nil
	}

	// 2. Update Price History (Ring Buffer)
	// If full, subtract the oldest value from sum before overwriting
	if s.count == s.longPeriod {
		s.sum = s.sum.Sub(s.prices[s.head]) // s.head points to the oldest value when full
	}

	s.prices[s.head] = mid
	s.sum = s.sum.Add(mid)
	s.head = (s.head + 1) % s.longPeriod

	if s.count < s.longPeriod {
		s.count++
	}

	// 3. Check if we have enough data
	if s.count < s.longPeriod {
		return nil
	}

	// 4. Calculate SMAs
	currLongSMA := s.sum.Div(decimal.NewFromInt(int64(s.longPeriod)))
	currShortSMA := s.calculateShortSMA()

	var actions []Action

	// 5. Check for Cross
	if s.primed {
		// Golden Cross: Short goes above Long
		if s.prevShortSMA.LessThanOrEqual(s.prevLongSMA) && currShortSMA.GreaterThan(currLongSMA) {
			actions = append(actions, Action{Type: ActionBuy, Symbol: s.symbol, Price: mid})
		}

		// Dead Cross: Short goes below Long
		if s.prevShortSMA.GreaterThanOrEqual(s.prevLongSMA) && currShortSMA.LessThan(currLongSMA) {
			actions = append(actions, Action{Type: ActionSell, Symbol: s.symbol, Price: mid})
		}
	}

	// 6. Update State
	s.prevShortSMA = currShortSMA
	s.prevLongSMA = currLongSMA
	s.primed = true

	return actions
}

// calculateShortSMA calculates the SMA for the short period using the ring buffer.
func (s *SMACrossStrategy) calculateShortSMA() decimal.Decimal {
	sum := decimal.Zero
	// Walk backwards from current head (which points to next write slot, so head-1 is latest)
	idx := s.head
	for i := 0; i < s.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.longPeriod - 1
		}
		sum = sum.Add(s.prices[idx])
	}
	return sum.Div(decimal.NewFromInt(int64(s.shortPeriod)))
}
