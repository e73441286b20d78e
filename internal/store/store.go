// Package store defines storage contracts for the trading ledger and
// provides in-memory, SQLite, and Parquet-archive implementations.
package store

import (
	"context"

	"tradedesk/internal/domain"
)

// QuoteStore persists and retrieves last-known price snapshots per ticker.
// The execution engine only reads from it; writes come from the quote
// service.
type QuoteStore interface {
	// GetQuote returns the quote for ticker, with found=false (and a nil
	// quote) when no snapshot exists. Absence is not an error.
	GetQuote(ctx context.Context, ticker string) (*domain.Quote, bool, error)

	// ListQuotes returns every stored quote, ordered by ticker.
	ListQuotes(ctx context.Context) ([]domain.Quote, error)

	// SaveQuote upserts a quote keyed by its ticker.
	SaveQuote(ctx context.Context, quote *domain.Quote) error
}

// AccountStore persists and retrieves cash-balance records.
//
// SaveAccount of an existing account is a compare-and-swap on
// Account.Version: the stored row is updated only if its version still
// matches, otherwise the save fails with domain.ErrVersionConflict. This is
// the store-contract obligation that serializes concurrent writers per
// account; unrelated accounts never contend.
type AccountStore interface {
	// GetAccount returns the account, with found=false when it does not exist.
	GetAccount(ctx context.Context, id int64) (*domain.Account, bool, error)

	// SaveAccount inserts the account when Version is zero, otherwise
	// performs the conditional update described above. The returned account
	// carries the new version.
	SaveAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)

	// DeleteAccount removes the account row.
	DeleteAccount(ctx context.Context, id int64) error
}

// PositionStore reads net share counts per (account, ticker). Positions are
// derived from the filled rows of the order ledger; there is no write path.
type PositionStore interface {
	// GetPosition returns the position, with found=false when the account
	// holds no shares of ticker (zero rows are equivalent to absent).
	GetPosition(ctx context.Context, accountID int64, ticker string) (*domain.Position, bool, error)

	// ListPositions returns every nonzero position held by the account.
	ListPositions(ctx context.Context, accountID int64) ([]domain.Position, error)
}

// OrderStore is the append-only order ledger. Rows are assigned an id on
// first save and never updated afterwards; the only delete is the bulk
// delete used by trader removal.
type OrderStore interface {
	// SaveOrder inserts the order, assigns its id, and returns the stored row.
	SaveOrder(ctx context.Context, order *domain.SecurityOrder) (*domain.SecurityOrder, error)

	// ListOrdersByAccount returns every order placed by the account, oldest
	// first.
	ListOrdersByAccount(ctx context.Context, accountID int64) ([]domain.SecurityOrder, error)

	// DeleteOrdersByAccount removes every order placed by the account.
	DeleteOrdersByAccount(ctx context.Context, accountID int64) error
}

// TraderStore persists and retrieves trader records.
type TraderStore interface {
	// SaveTrader inserts the trader, assigning an id when none is set, and
	// returns the stored row.
	SaveTrader(ctx context.Context, trader *domain.Trader) (*domain.Trader, error)

	// GetTrader returns the trader, with found=false when it does not exist.
	GetTrader(ctx context.Context, id int64) (*domain.Trader, bool, error)

	// TraderExists reports whether a trader row exists.
	TraderExists(ctx context.Context, id int64) (bool, error)

	// DeleteTrader removes the trader row.
	DeleteTrader(ctx context.Context, id int64) error
}
