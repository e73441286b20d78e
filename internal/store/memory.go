package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradedesk/internal/domain"
)

// Compile-time interface checks.
var _ QuoteStore = (*MemoryStore)(nil)
var _ AccountStore = (*MemoryStore)(nil)
var _ PositionStore = (*MemoryStore)(nil)
var _ OrderStore = (*MemoryStore)(nil)
var _ TraderStore = (*MemoryStore)(nil)

// MemoryStore implements every store contract in process memory. It backs
// the server when no SQLite path is configured, and the test suites.
type MemoryStore struct {
	mu           sync.RWMutex
	quotes       map[string]domain.Quote
	accounts     map[int64]domain.Account
	traders      map[int64]domain.Trader
	orders       map[int64]domain.SecurityOrder
	nextTraderID int64
	nextOrderID  int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes:   make(map[string]domain.Quote),
		accounts: make(map[int64]domain.Account),
		traders:  make(map[int64]domain.Trader),
		orders:   make(map[int64]domain.SecurityOrder),
	}
}

// ---------------------------------------------------------------------------
// QuoteStore implementation
// ---------------------------------------------------------------------------

// GetQuote returns the stored quote for ticker, if any.
func (s *MemoryStore) GetQuote(_ context.Context, ticker string) (*domain.Quote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[ticker]
	if !ok {
		return nil, false, nil
	}
	return &q, true, nil
}

// ListQuotes returns every stored quote ordered by ticker.
func (s *MemoryStore) ListQuotes(_ context.Context) ([]domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]domain.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Ticker < quotes[j].Ticker })
	return quotes, nil
}

// SaveQuote upserts a quote keyed by ticker.
func (s *MemoryStore) SaveQuote(_ context.Context, quote *domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[quote.Ticker] = *quote
	return nil
}

// ---------------------------------------------------------------------------
// AccountStore implementation
// ---------------------------------------------------------------------------

// GetAccount returns the account for id, if any.
func (s *MemoryStore) GetAccount(_ context.Context, id int64) (*domain.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

// SaveAccount inserts the account when its Version is zero, otherwise
// performs a compare-and-swap against the stored version.
func (s *MemoryStore) SaveAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.accounts[account.ID]
	if account.Version == 0 {
		if exists {
			return nil, domain.ErrVersionConflict
		}
	} else if !exists || stored.Version != account.Version {
		return nil, domain.ErrVersionConflict
	}

	saved := *account
	saved.Version++
	s.accounts[saved.ID] = saved
	return &saved, nil
}

// DeleteAccount removes the account row.
func (s *MemoryStore) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, id)
	return nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation (derived from the order ledger)
// ---------------------------------------------------------------------------

// GetPosition sums the filled ledger rows for (account, ticker). A zero sum
// reads as no position.
func (s *MemoryStore) GetPosition(_ context.Context, accountID int64, ticker string) (*domain.Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var shares int64
	for _, o := range s.orders {
		if o.AccountID == accountID && o.Ticker == ticker {
			shares += o.Signed()
		}
	}
	if shares == 0 {
		return nil, false, nil
	}
	return &domain.Position{AccountID: accountID, Ticker: ticker, Position: shares}, true, nil
}

// ListPositions returns every nonzero position held by the account.
func (s *MemoryStore) ListPositions(_ context.Context, accountID int64) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTicker := make(map[string]int64)
	for _, o := range s.orders {
		if o.AccountID == accountID {
			byTicker[o.Ticker] += o.Signed()
		}
	}

	var positions []domain.Position
	for ticker, shares := range byTicker {
		if shares != 0 {
			positions = append(positions, domain.Position{AccountID: accountID, Ticker: ticker, Position: shares})
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Ticker < positions[j].Ticker })
	return positions, nil
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// SaveOrder appends the order to the ledger and assigns its id.
func (s *MemoryStore) SaveOrder(_ context.Context, order *domain.SecurityOrder) (*domain.SecurityOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrderID++
	saved := *order
	saved.ID = s.nextOrderID
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}
	s.orders[saved.ID] = saved
	return &saved, nil
}

// ListOrdersByAccount returns the account's ledger rows, oldest first.
func (s *MemoryStore) ListOrdersByAccount(_ context.Context, accountID int64) ([]domain.SecurityOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []domain.SecurityOrder
	for _, o := range s.orders {
		if o.AccountID == accountID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

// DeleteOrdersByAccount removes every ledger row owned by the account.
func (s *MemoryStore) DeleteOrdersByAccount(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.orders {
		if o.AccountID == accountID {
			delete(s.orders, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// TraderStore implementation
// ---------------------------------------------------------------------------

// SaveTrader inserts the trader, assigning the next id when none is set.
func (s *MemoryStore) SaveTrader(_ context.Context, trader *domain.Trader) (*domain.Trader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *trader
	if saved.ID == 0 {
		s.nextTraderID++
		saved.ID = s.nextTraderID
	} else if saved.ID > s.nextTraderID {
		s.nextTraderID = saved.ID
	}
	s.traders[saved.ID] = saved
	return &saved, nil
}

// GetTrader returns the trader for id, if any.
func (s *MemoryStore) GetTrader(_ context.Context, id int64) (*domain.Trader, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.traders[id]
	if !ok {
		return nil, false, nil
	}
	return &tr, true, nil
}

// TraderExists reports whether a trader row exists.
func (s *MemoryStore) TraderExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.traders[id]
	return ok, nil
}

// DeleteTrader removes the trader row.
func (s *MemoryStore) DeleteTrader(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.traders, id)
	return nil
}
