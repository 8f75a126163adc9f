package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/shopspring/decimal"
)

// Tick is the latest bid/ask the host published for one symbol.
type Tick struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	TickValue decimal.Decimal `json:"tick_value"`

	fields map[string]any // decoded host record, used for change detection
}

// Mid returns (bid + ask) / 2
func (t Tick) Mid() decimal.Decimal {
	return t.Bid.Add(t.Ask).Div(decimal.NewFromInt(2))
}

// Spread returns ask - bid
func (t Tick) Spread() decimal.Decimal {
	return t.Ask.Sub(t.Bid)
}

// Same reports whether both ticks carry the same host values. Key order and
// number formatting do not count as a change.
func (t Tick) Same(o Tick) bool {
	return reflect.DeepEqual(t.fields, o.fields)
}

// MarketData maps symbol to its latest tick.
type MarketData map[string]Tick

// Symbols returns the symbols in sorted order.
func (m MarketData) Symbols() []string {
	return sortedKeys(m)
}

// ParseMarketData decodes the market data file: an object of symbol -> {bid, ask, ...}.
func ParseMarketData(raw []byte) (MarketData, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, NewMalformedContentError(StreamMarketData, err)
	}
	out := make(MarketData, len(records))
	for symbol, rec := range records {
		var t Tick
		if err := json.Unmarshal(rec, &t); err != nil {
			return nil, NewMalformedContentError(StreamMarketData, err)
		}
		if t.fields, err = decodeFields(rec); err != nil {
			return nil, NewMalformedContentError(StreamMarketData, err)
		}
		t.Symbol = symbol
		out[symbol] = t
	}
	return out, nil
}

// ChangedTicks returns ticks in next that are new or differ from prev, sorted by symbol.
func ChangedTicks(prev, next MarketData) []Tick {
	var changed []Tick
	for _, symbol := range next.Symbols() {
		t := next[symbol]
		if old, ok := prev[symbol]; !ok || !old.Same(t) {
			changed = append(changed, t)
		}
	}
	return changed
}

// decodeRecords splits a top-level JSON object into compacted per-key records.
func decodeRecords(raw []byte) (map[string][]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, err
		}
		out[k] = buf.Bytes()
	}
	return out, nil
}

// decodeFields decodes one record generically; JSON numbers become float64,
// so 1.10 and 1.1 compare equal.
func decodeFields(rec []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(rec, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
