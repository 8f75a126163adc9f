package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// HistoricBar is one candle of a historic series.
type HistoricBar struct {
	Time       string          `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	TickVolume int64           `json:"tick_volume"`
}

// HistoricSeries is the one-shot reply to GET_HISTORIC_DATA.
type HistoricSeries struct {
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	Bars      []HistoricBar `json:"bars"`
}

// HistoricData maps "SYMBOL_TIMEFRAME" to the latest delivered series.
type HistoricData map[string]HistoricSeries

// Keys returns the map keys in sorted order.
func (h HistoricData) Keys() []string {
	return sortedKeys(h)
}

// Merge returns a new map holding h overlaid with next.
func (h HistoricData) Merge(next HistoricData) HistoricData {
	out := make(HistoricData, len(h)+len(next))
	for k, v := range h {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

// ParseHistoricData decodes the historic data file. Each series is either an
// array of bars or an object keyed by bar time; both come out sorted by time.
func ParseHistoricData(raw []byte) (HistoricData, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, NewMalformedContentError(StreamHistoricData, err)
	}
	out := make(HistoricData, len(records))
	for key, rec := range records {
		st, err := SplitKey(key)
		if err != nil {
			return nil, NewMalformedContentError(StreamHistoricData, err)
		}
		bars, err := decodeHistoricBars(rec)
		if err != nil {
			return nil, NewMalformedContentError(StreamHistoricData, fmt.Errorf("%s: %w", key, err))
		}
		out[key] = HistoricSeries{Symbol: st.Symbol, Timeframe: st.Timeframe, Bars: bars}
	}
	return out, nil
}

func decodeHistoricBars(rec []byte) ([]HistoricBar, error) {
	var bars []HistoricBar
	if bytes.HasPrefix(rec, []byte("[")) {
		if err := json.Unmarshal(rec, &bars); err != nil {
			return nil, err
		}
	} else {
		var byTime map[string]HistoricBar
		if err := json.Unmarshal(rec, &byTime); err != nil {
			return nil, err
		}
		bars = make([]HistoricBar, 0, len(byTime))
		for ts, b := range byTime {
			b.Time = ts
			bars = append(bars, b)
		}
	}
	// host time format "2006.01.02 15:04" sorts lexically
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	return bars, nil
}

// Trade is a closed deal from the account history.
type Trade struct {
	Ticket     string          `json:"ticket"`
	Magic      int64           `json:"magic"`
	Symbol     string          `json:"symbol"`
	Lots       decimal.Decimal `json:"lots"`
	Type       string          `json:"type"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	ClosePrice decimal.Decimal `json:"close_price"`
	OpenTime   string          `json:"open_time"`
	CloseTime  string          `json:"close_time"`
	PnL        decimal.Decimal `json:"pnl"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Comment    string          `json:"comment"`
}

// HistoricTrades maps ticket to trade; replaced wholesale on each delivery.
type HistoricTrades map[string]Trade

// Tickets returns the tickets in sorted order.
func (h HistoricTrades) Tickets() []string {
	return sortedKeys(h)
}

// ParseHistoricTrades decodes the historic trades file.
func ParseHistoricTrades(raw []byte) (HistoricTrades, error) {
	var m map[string]Trade
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, NewMalformedContentError(StreamHistoricTrades, err)
	}
	if m == nil {
		return nil, NewMalformedContentError(StreamHistoricTrades, fmt.Errorf("expected an object"))
	}
	for ticket, tr := range m {
		tr.Ticket = ticket
		m[ticket] = tr
	}
	return HistoricTrades(m), nil
}
