package domain

// Stream names one host-written state file.
type Stream string

const (
	StreamOrders         Stream = "orders"
	StreamMessages       Stream = "messages"
	StreamMarketData     Stream = "market_data"
	StreamBarData        Stream = "bar_data"
	StreamHistoricData   Stream = "historic_data"
	StreamHistoricTrades Stream = "historic_trades"
)

// Streams lists every watched stream in a stable order.
var Streams = []Stream{
	StreamOrders,
	StreamMessages,
	StreamMarketData,
	StreamBarData,
	StreamHistoricData,
	StreamHistoricTrades,
}
