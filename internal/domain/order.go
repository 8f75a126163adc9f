package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Order is one open position or pending order as reported by the host.
// Ticket is the key of the order in the orders map.
type Order struct {
	Ticket     string          `json:"ticket"`
	Magic      int64           `json:"magic"`
	Symbol     string          `json:"symbol"`
	Lots       decimal.Decimal `json:"lots"`
	Type       string          `json:"type"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	OpenTime   string          `json:"open_time"`
	StopLoss   decimal.Decimal `json:"SL"`
	TakeProfit decimal.Decimal `json:"TP"`
	PnL        decimal.Decimal `json:"pnl"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Comment    string          `json:"comment"`
}

// AccountInfo is replaced wholesale with every orders snapshot.
type AccountInfo struct {
	Name       string          `json:"name"`
	Number     int64           `json:"number"`
	Currency   string          `json:"currency"`
	Leverage   int64           `json:"leverage"`
	FreeMargin decimal.Decimal `json:"free_margin"`
	Balance    decimal.Decimal `json:"balance"`
	Equity     decimal.Decimal `json:"equity"`
}

// OrderBook is the parsed content of the orders file.
type OrderBook struct {
	AccountInfo AccountInfo      `json:"account_info"`
	Orders      map[string]Order `json:"orders"`
}

var errMissingOrders = errors.New(`missing "orders" object`)

// ParseOrderBook decodes the orders file. The orders object is mandatory.
func ParseOrderBook(raw []byte) (OrderBook, error) {
	var wire struct {
		AccountInfo AccountInfo      `json:"account_info"`
		Orders      map[string]Order `json:"orders"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return OrderBook{}, NewMalformedContentError(StreamOrders, err)
	}
	if wire.Orders == nil {
		return OrderBook{}, NewMalformedContentError(StreamOrders, errMissingOrders)
	}
	for ticket, o := range wire.Orders {
		o.Ticket = ticket
		wire.Orders[ticket] = o
	}
	return OrderBook{AccountInfo: wire.AccountInfo, Orders: wire.Orders}, nil
}

// OrderDiff is the existence diff between two order sets, sorted by ticket.
type OrderDiff struct {
	Added   []Order `json:"added"`
	Removed []Order `json:"removed"`
}

// Empty reports whether no order appeared or disappeared.
func (d OrderDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffOrders compares key-set membership only; field changes on a surviving
// ticket are not reported.
func DiffOrders(prev, next map[string]Order) OrderDiff {
	var diff OrderDiff
	for ticket, o := range prev {
		if _, ok := next[ticket]; !ok {
			diff.Removed = append(diff.Removed, o)
		}
	}
	for ticket, o := range next {
		if _, ok := prev[ticket]; !ok {
			diff.Added = append(diff.Added, o)
		}
	}
	byTicket := func(list []Order) {
		sort.Slice(list, func(i, j int) bool { return list[i].Ticket < list[j].Ticket })
	}
	byTicket(diff.Added)
	byTicket(diff.Removed)
	return diff
}

// Order types accepted by the host
const (
	OrderTypeBuy       = "buy"
	OrderTypeSell      = "sell"
	OrderTypeBuyLimit  = "buylimit"
	OrderTypeSellLimit = "selllimit"
	OrderTypeBuyStop   = "buystop"
	OrderTypeSellStop  = "sellstop"
)

// DefaultLots is the volume used when an order request leaves Lots at zero.
var DefaultLots = decimal.New(1, -2)

// ValidOrderType reports whether t is one of the host's order types.
func ValidOrderType(t string) bool {
	switch t {
	case OrderTypeBuy, OrderTypeSell,
		OrderTypeBuyLimit, OrderTypeSellLimit,
		OrderTypeBuyStop, OrderTypeSellStop:
		return true
	}
	return false
}

// OrderRequest carries the OPEN_ORDER arguments. Zero prices mean
// "market" for Price and "none" for StopLoss/TakeProfit.
type OrderRequest struct {
	Symbol     string
	Type       string
	Lots       decimal.Decimal
	Price      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Magic      int64
	Comment    string
	Expiration time.Time
}

// Payload encodes the request as comma-joined positional fields.
func (r OrderRequest) Payload() (string, error) {
	if !ValidOrderType(r.Type) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, r.Type)
	}
	lots := r.Lots
	if lots.IsZero() {
		lots = DefaultLots
	}
	return JoinFields(r.Symbol, r.Type, lots, r.Price, r.StopLoss, r.TakeProfit, r.Magic, r.Comment, r.Expiration)
}

// ModifyRequest carries the MODIFY_ORDER arguments.
type ModifyRequest struct {
	Ticket     int64
	Price      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Expiration time.Time
}

// Payload encodes the request as comma-joined positional fields.
func (r ModifyRequest) Payload() (string, error) {
	return JoinFields(r.Ticket, r.Price, r.StopLoss, r.TakeProfit, r.Expiration)
}
