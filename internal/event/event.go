package event

import "encoding/json"

// Type identifies the bridge event carried by an Event.
type Type string

const (
	TypeOrders         Type = "orders"
	TypeMessage        Type = "message"
	TypeTick           Type = "tick"
	TypeBar            Type = "bar"
	TypeHistoricData   Type = "historic_data"
	TypeHistoricTrades Type = "historic_trades"
)

// Event is the envelope fanned out to relay subscribers.
// Seq is assigned by the hub and has no gaps within one process.
type Event struct {
	Seq  uint64          `json:"seq"`
	Type Type            `json:"type"`
	Ts   int64           `json:"ts"` // unix millis, set when the event was observed
	Data json.RawMessage `json:"data"`
}
