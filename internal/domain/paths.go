package domain

import (
	"fmt"
	"path/filepath"
)

const (
	exchangeSubdir = "mql_stuff"
	filePrefix     = "mql_VS_"
)

// Paths holds the fixed file names shared with the host under its data directory.
type Paths struct {
	Root string

	Orders         string
	Messages       string
	MarketData     string
	BarData        string
	HistoricData   string
	HistoricTrades string

	// Side files owned by the bridge, replayed on restart
	OrdersStored   string
	MessagesStored string

	CommandPrefix string
}

// NewPaths derives every exchange file path from the MetaTrader data directory.
func NewPaths(metatraderDir string) Paths {
	base := filepath.Join(metatraderDir, exchangeSubdir)
	file := func(name string) string {
		return filepath.Join(base, filePrefix+name+".txt")
	}
	return Paths{
		Root:           base,
		Orders:         file("Orders"),
		Messages:       file("Messages"),
		MarketData:     file("Market_Data"),
		BarData:        file("Bar_Data"),
		HistoricData:   file("Historic_Data"),
		HistoricTrades: file("Historic_Trades"),
		OrdersStored:   file("Orders_Stored"),
		MessagesStored: file("Messages_Stored"),
		CommandPrefix:  filepath.Join(base, filePrefix+"Commands_"),
	}
}

// CommandSlot returns the path of command slot i.
func (p Paths) CommandSlot(i int) string {
	return fmt.Sprintf("%s%d.txt", p.CommandPrefix, i)
}

// Stream returns the host-written file for a stream, or "" if unknown.
func (p Paths) Stream(s Stream) string {
	switch s {
	case StreamOrders:
		return p.Orders
	case StreamMessages:
		return p.Messages
	case StreamMarketData:
		return p.MarketData
	case StreamBarData:
		return p.BarData
	case StreamHistoricData:
		return p.HistoricData
	case StreamHistoricTrades:
		return p.HistoricTrades
	default:
		return ""
	}
}
