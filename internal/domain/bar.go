package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// Bar is the current candle for one (symbol, timeframe) subscription.
type Bar struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Time       string          `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	TickVolume int64           `json:"tick_volume"`

	fields map[string]any
}

// Same reports whether both bars carry the same host values.
func (b Bar) Same(o Bar) bool {
	return reflect.DeepEqual(b.fields, o.fields)
}

// SymbolTimeframe is a subscription pair.
type SymbolTimeframe struct {
	Symbol    string
	Timeframe string
}

// Key renders the host's "SYMBOL_TIMEFRAME" map key.
func (st SymbolTimeframe) Key() string {
	return st.Symbol + "_" + st.Timeframe
}

// SplitKey parses "SYMBOL_TIMEFRAME". The timeframe never contains an
// underscore, so the last one separates the parts.
func SplitKey(key string) (SymbolTimeframe, error) {
	i := strings.LastIndex(key, "_")
	if i <= 0 || i == len(key)-1 {
		return SymbolTimeframe{}, fmt.Errorf("key %q is not SYMBOL_TIMEFRAME", key)
	}
	return SymbolTimeframe{Symbol: key[:i], Timeframe: key[i+1:]}, nil
}

// BarData maps "SYMBOL_TIMEFRAME" to the current bar.
type BarData map[string]Bar

// Keys returns the map keys in sorted order.
func (b BarData) Keys() []string {
	return sortedKeys(b)
}

// ParseBarData decodes the bar data file.
func ParseBarData(raw []byte) (BarData, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, NewMalformedContentError(StreamBarData, err)
	}
	out := make(BarData, len(records))
	for key, rec := range records {
		st, err := SplitKey(key)
		if err != nil {
			return nil, NewMalformedContentError(StreamBarData, err)
		}
		var b Bar
		if err := json.Unmarshal(rec, &b); err != nil {
			return nil, NewMalformedContentError(StreamBarData, err)
		}
		if b.fields, err = decodeFields(rec); err != nil {
			return nil, NewMalformedContentError(StreamBarData, err)
		}
		b.Symbol, b.Timeframe = st.Symbol, st.Timeframe
		out[key] = b
	}
	return out, nil
}

// ChangedBars returns bars in next that are new or differ from prev, sorted by key.
func ChangedBars(prev, next BarData) []Bar {
	var changed []Bar
	for _, key := range next.Keys() {
		b := next[key]
		if old, ok := prev[key]; !ok || !old.Same(b) {
			changed = append(changed, b)
		}
	}
	return changed
}
