// Package domain defines the core entities of the trading ledger: traders,
// accounts, positions, quotes, and security orders.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of a market order.
type OrderSide string

// OrderType is the execution style of an order. Only market orders are
// supported.
type OrderType string

// OrderStatus is the terminal state of an execution attempt.
type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeMarket OrderType = "MARKET"

	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Cancellation notes recorded on the order ledger. These are part of the
// ledger's vocabulary, not error messages.
const (
	NoteInsufficientFund     = "Insufficient fund"
	NoteInsufficientPosition = "Insufficient position"
)

// Trader is a registered user of the platform. A trader owns exactly one
// account sharing the same identifier. Immutable after creation except by
// deletion.
type Trader struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"` // YYYY-MM-DD
	Country   string `json:"country"`
	Email     string `json:"email"`
}

// Account holds a trader's cash balance. Amount never goes negative after a
// successful operation. Version backs the optimistic concurrency check at
// the store boundary; callers treat it as opaque.
type Account struct {
	ID       int64           `json:"id"`
	TraderID int64           `json:"traderId"`
	Amount   decimal.Decimal `json:"amount"`
	Version  int64           `json:"-"`
}

// Position is the net number of shares of a ticker held by an account. It is
// derived from the filled rows of the order ledger and never written
// directly.
type Position struct {
	AccountID int64  `json:"accountId"`
	Ticker    string `json:"ticker"`
	Position  int64  `json:"position"`
}

// Quote is a point-in-time price snapshot for a ticker. A zero price means
// the field is absent from the snapshot.
type Quote struct {
	Ticker    string          `json:"ticker"`
	LastPrice decimal.Decimal `json:"lastPrice"`
	BidPrice  decimal.Decimal `json:"bidPrice"`
	BidSize   int64           `json:"bidSize"`
	AskPrice  decimal.Decimal `json:"askPrice"`
	AskSize   int64           `json:"askSize"`
}

// SecurityOrder is one immutable row of the order ledger: a single execution
// attempt, filled or canceled. Rows are never updated after creation and
// only deleted in bulk when their trader is deleted.
type SecurityOrder struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	Status    OrderStatus     `json:"status"`
	Ticker    string          `json:"ticker"`
	Size      int64           `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
	Side      OrderSide       `json:"side"`
	Type      OrderType       `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MarketOrder is an execution request submitted to the engine.
type MarketOrder struct {
	TraderID int64     `json:"traderId"`
	Ticker   string    `json:"ticker"`
	Size     int64     `json:"size"`
	Side     OrderSide `json:"side"`
}

// TraderAccountView is the combined read view returned when a trader and its
// account are created together.
type TraderAccountView struct {
	TraderID  int64           `json:"traderId"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	DOB       string          `json:"dob"`
	Country   string          `json:"country"`
	Email     string          `json:"email"`
	AccountID int64           `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

// Signed returns the ledger contribution of the order to the owning
// account's position in the order's ticker: +Size for a filled buy, -Size
// for a filled sell, 0 for canceled orders.
func (o *SecurityOrder) Signed() int64 {
	if o.Status != OrderStatusFilled {
		return 0
	}
	if o.Side == OrderSideSell {
		return -o.Size
	}
	return o.Size
}

// Notional returns price multiplied by size.
func (o *SecurityOrder) Notional() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Size))
}
