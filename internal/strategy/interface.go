package strategy

import (
	"github.com/shopspring/decimal"
)

// ActionType defines the type of trading action
type ActionType int

const (
	ActionBuy  ActionType = iota + 1
	ActionSell // Sell
)

// String returns the string representation of ActionType
func (a ActionType) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Action represents a decision made by the strategy
type Action struct {
	Type   ActionType
	Symbol string
	Price  decimal.Decimal // mid price that triggered the signal
}

// Strategy is the interface that all trading strategies must implement.
// It is called synchronously from the tick callback.
type Strategy interface {
	// OnPrice is called with the mid price of every changed tick.
	// It returns a list of Actions to be executed.
	OnPrice(symbol string, mid decimal.Decimal) []Action
}
