package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ QuoteStore = (*SQLiteStore)(nil)
var _ AccountStore = (*SQLiteStore)(nil)
var _ PositionStore = (*SQLiteStore)(nil)
var _ OrderStore = (*SQLiteStore)(nil)
var _ TraderStore = (*SQLiteStore)(nil)

// SQLiteStore implements every store contract backed by a SQLite database.
// Money columns hold exact decimal strings. The position table is a SQL view
// over the filled rows of security_order, so positions always agree with the
// ledger and are never written directly.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trader (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	dob        TEXT NOT NULL,
	country    TEXT NOT NULL,
	email      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS account (
	id        INTEGER PRIMARY KEY,
	trader_id INTEGER NOT NULL REFERENCES trader (id),
	amount    TEXT NOT NULL,
	version   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quote (
	ticker     TEXT PRIMARY KEY,
	last_price TEXT NOT NULL,
	bid_price  TEXT NOT NULL,
	bid_size   INTEGER NOT NULL,
	ask_price  TEXT NOT NULL,
	ask_size   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS security_order (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL REFERENCES account (id),
	status     TEXT NOT NULL,
	ticker     TEXT NOT NULL,
	size       INTEGER NOT NULL,
	price      TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	side       TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE VIEW IF NOT EXISTS position AS
	SELECT account_id,
	       ticker,
	       SUM(CASE WHEN side = 'SELL' THEN -size ELSE size END) AS position
	FROM security_order
	WHERE status = 'FILLED'
	GROUP BY account_id, ticker;
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("setting pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// QuoteStore implementation
// ---------------------------------------------------------------------------

// GetQuote retrieves the quote row for ticker.
func (s *SQLiteStore) GetQuote(ctx context.Context, ticker string) (*domain.Quote, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT ticker, last_price, bid_price, bid_size, ask_price, ask_size FROM quote WHERE ticker = ?",
		ticker,
	)
	q, err := scanQuote(row.Scan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying quote %s: %w", ticker, err)
	}
	return q, true, nil
}

// ListQuotes returns every quote row ordered by ticker.
func (s *SQLiteStore) ListQuotes(ctx context.Context) ([]domain.Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ticker, last_price, bid_price, bid_size, ask_price, ask_size FROM quote ORDER BY ticker",
	)
	if err != nil {
		return nil, fmt.Errorf("querying quotes: %w", err)
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

// SaveQuote upserts the quote keyed by its ticker.
func (s *SQLiteStore) SaveQuote(ctx context.Context, quote *domain.Quote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quote (ticker, last_price, bid_price, bid_size, ask_price, ask_size)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			last_price = excluded.last_price,
			bid_price  = excluded.bid_price,
			bid_size   = excluded.bid_size,
			ask_price  = excluded.ask_price,
			ask_size   = excluded.ask_size`,
		quote.Ticker, quote.LastPrice.String(), quote.BidPrice.String(),
		quote.BidSize, quote.AskPrice.String(), quote.AskSize,
	)
	if err != nil {
		return fmt.Errorf("saving quote %s: %w", quote.Ticker, err)
	}
	return nil
}

func scanQuote(scan func(...any) error) (*domain.Quote, error) {
	var q domain.Quote
	var last, bid, ask string
	if err := scan(&q.Ticker, &last, &bid, &q.BidSize, &ask, &q.AskSize); err != nil {
		return nil, err
	}
	var err error
	if q.LastPrice, err = decimal.NewFromString(last); err != nil {
		return nil, fmt.Errorf("parsing last_price %q: %w", last, err)
	}
	if q.BidPrice, err = decimal.NewFromString(bid); err != nil {
		return nil, fmt.Errorf("parsing bid_price %q: %w", bid, err)
	}
	if q.AskPrice, err = decimal.NewFromString(ask); err != nil {
		return nil, fmt.Errorf("parsing ask_price %q: %w", ask, err)
	}
	return &q, nil
}

// ---------------------------------------------------------------------------
// AccountStore implementation
// ---------------------------------------------------------------------------

// GetAccount retrieves the account row for id.
func (s *SQLiteStore) GetAccount(ctx context.Context, id int64) (*domain.Account, bool, error) {
	var a domain.Account
	var amount string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, trader_id, amount, version FROM account WHERE id = ?", id,
	).Scan(&a.ID, &a.TraderID, &amount, &a.Version)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying account %d: %w", id, err)
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, false, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return &a, true, nil
}

// SaveAccount inserts the account when its Version is zero, otherwise
// updates it with a conditional write on the version column. A stale
// version, or an insert over an existing row, fails with
// domain.ErrVersionConflict.
func (s *SQLiteStore) SaveAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	saved := *account

	if account.Version == 0 {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO account (id, trader_id, amount, version) VALUES (?, ?, ?, 1)",
			account.ID, account.TraderID, account.Amount.String(),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				return nil, domain.ErrVersionConflict
			}
			return nil, fmt.Errorf("inserting account %d: %w", account.ID, err)
		}
		saved.Version = 1
		return &saved, nil
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE account SET amount = ?, version = version + 1 WHERE id = ? AND version = ?",
		account.Amount.String(), account.ID, account.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating account %d: %w", account.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating account %d: %w", account.ID, err)
	}
	if affected == 0 {
		return nil, domain.ErrVersionConflict
	}

	saved.Version++
	return &saved, nil
}

// DeleteAccount removes the account row.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting account %d: %w", id, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation (backed by the position view)
// ---------------------------------------------------------------------------

// GetPosition reads the derived position for (account, ticker). The view
// contains no row when the net share count is zero.
func (s *SQLiteStore) GetPosition(ctx context.Context, accountID int64, ticker string) (*domain.Position, bool, error) {
	var p domain.Position
	err := s.db.QueryRowContext(ctx,
		"SELECT account_id, ticker, position FROM position WHERE account_id = ? AND ticker = ? AND position != 0",
		accountID, ticker,
	).Scan(&p.AccountID, &p.Ticker, &p.Position)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying position %d/%s: %w", accountID, ticker, err)
	}
	return &p, true, nil
}

// ListPositions returns every nonzero derived position for the account.
func (s *SQLiteStore) ListPositions(ctx context.Context, accountID int64) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT account_id, ticker, position FROM position WHERE account_id = ? AND position != 0 ORDER BY ticker",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying positions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.AccountID, &p.Ticker, &p.Position); err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// SaveOrder appends the order to the ledger and assigns its id.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.SecurityOrder) (*domain.SecurityOrder, error) {
	saved := *order
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO security_order (account_id, status, ticker, size, price, notes, side, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.AccountID, string(saved.Status), saved.Ticker, saved.Size,
		saved.Price.String(), saved.Notes, string(saved.Side), string(saved.Type),
		saved.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting order for account %d: %w", saved.AccountID, err)
	}
	if saved.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("inserting order for account %d: %w", saved.AccountID, err)
	}
	return &saved, nil
}

// ListOrdersByAccount returns the account's ledger rows, oldest first.
func (s *SQLiteStore) ListOrdersByAccount(ctx context.Context, accountID int64) ([]domain.SecurityOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, status, ticker, size, price, notes, side, type, created_at
		FROM security_order WHERE account_id = ? ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying orders for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var orders []domain.SecurityOrder
	for rows.Next() {
		var o domain.SecurityOrder
		var status, side, otype, price string
		var createdMs int64
		if err := rows.Scan(&o.ID, &o.AccountID, &status, &o.Ticker, &o.Size, &price, &o.Notes, &side, &otype, &createdMs); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing order price %q: %w", price, err)
		}
		o.Status = domain.OrderStatus(status)
		o.Side = domain.OrderSide(side)
		o.Type = domain.OrderType(otype)
		o.CreatedAt = time.UnixMilli(createdMs).UTC()
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// DeleteOrdersByAccount removes every ledger row owned by the account.
func (s *SQLiteStore) DeleteOrdersByAccount(ctx context.Context, accountID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM security_order WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("deleting orders for account %d: %w", accountID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// TraderStore implementation
// ---------------------------------------------------------------------------

// SaveTrader inserts the trader, letting SQLite assign the id when none is
// set.
func (s *SQLiteStore) SaveTrader(ctx context.Context, trader *domain.Trader) (*domain.Trader, error) {
	saved := *trader

	var id any // nil lets AUTOINCREMENT pick the id
	if saved.ID != 0 {
		id = saved.ID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trader (id, first_name, last_name, dob, country, email)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, saved.FirstName, saved.LastName, saved.DOB, saved.Country, saved.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting trader: %w", err)
	}
	if saved.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("inserting trader: %w", err)
	}
	return &saved, nil
}

// GetTrader retrieves the trader row for id.
func (s *SQLiteStore) GetTrader(ctx context.Context, id int64) (*domain.Trader, bool, error) {
	var tr domain.Trader
	err := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, dob, country, email FROM trader WHERE id = ?", id,
	).Scan(&tr.ID, &tr.FirstName, &tr.LastName, &tr.DOB, &tr.Country, &tr.Email)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying trader %d: %w", id, err)
	}
	return &tr, true, nil
}

// TraderExists reports whether a trader row exists.
func (s *SQLiteStore) TraderExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM trader WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying trader %d: %w", id, err)
	}
	return n > 0, nil
}

// DeleteTrader removes the trader row.
func (s *SQLiteStore) DeleteTrader(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM trader WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting trader %d: %w", id, err)
	}
	return nil
}
