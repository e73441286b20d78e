package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// fullStore is the union of every store contract, for running the same
// behavioral tests against both backends.
type fullStore interface {
	QuoteStore
	AccountStore
	PositionStore
	OrderStore
	TraderStore
}

func openBackends(t *testing.T) map[string]fullStore {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]fullStore{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuoteStore(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, found, err := st.GetQuote(ctx, "AAPL"); err != nil || found {
				t.Fatalf("GetQuote on empty store = found=%v err=%v", found, err)
			}

			q := domain.Quote{Ticker: "AAPL", LastPrice: dec("150.25"), BidPrice: dec("150.20"), BidSize: 3, AskPrice: dec("150.30"), AskSize: 5}
			if err := st.SaveQuote(ctx, &q); err != nil {
				t.Fatalf("SaveQuote: %v", err)
			}

			got, found, err := st.GetQuote(ctx, "AAPL")
			if err != nil || !found {
				t.Fatalf("GetQuote = found=%v err=%v", found, err)
			}
			if !got.LastPrice.Equal(q.LastPrice) || !got.BidPrice.Equal(q.BidPrice) || !got.AskPrice.Equal(q.AskPrice) {
				t.Errorf("GetQuote = %+v, want %+v", got, q)
			}
			if got.BidSize != 3 || got.AskSize != 5 {
				t.Errorf("sizes = %d/%d, want 3/5", got.BidSize, got.AskSize)
			}

			// Upsert replaces in place.
			q.LastPrice = dec("151")
			if err := st.SaveQuote(ctx, &q); err != nil {
				t.Fatalf("SaveQuote upsert: %v", err)
			}
			if err := st.SaveQuote(ctx, &domain.Quote{Ticker: "MSFT", LastPrice: dec("400")}); err != nil {
				t.Fatalf("SaveQuote second ticker: %v", err)
			}

			quotes, err := st.ListQuotes(ctx)
			if err != nil {
				t.Fatalf("ListQuotes: %v", err)
			}
			if len(quotes) != 2 {
				t.Fatalf("ListQuotes returned %d quotes, want 2", len(quotes))
			}
			if quotes[0].Ticker != "AAPL" || quotes[1].Ticker != "MSFT" {
				t.Errorf("order = %s, %s, want AAPL, MSFT", quotes[0].Ticker, quotes[1].Ticker)
			}
			if !quotes[0].LastPrice.Equal(dec("151")) {
				t.Errorf("upsert did not replace: last = %s", quotes[0].LastPrice)
			}
		})
	}
}

func TestAccountStoreCAS(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			trader, err := st.SaveTrader(ctx, &domain.Trader{FirstName: "Ada", LastName: "Lovelace", DOB: "1990-01-01", Country: "UK", Email: "ada@example.com"})
			if err != nil {
				t.Fatalf("SaveTrader: %v", err)
			}

			// Insert: Version 0 becomes Version 1.
			acct, err := st.SaveAccount(ctx, &domain.Account{ID: trader.ID, TraderID: trader.ID, Amount: dec("1000")})
			if err != nil {
				t.Fatalf("SaveAccount insert: %v", err)
			}
			if acct.Version != 1 {
				t.Errorf("inserted version = %d, want 1", acct.Version)
			}

			// Double insert conflicts.
			if _, err := st.SaveAccount(ctx, &domain.Account{ID: trader.ID, TraderID: trader.ID, Amount: dec("0")}); !errors.Is(err, domain.ErrVersionConflict) {
				t.Errorf("double insert err = %v, want ErrVersionConflict", err)
			}

			// Update at the current version succeeds and bumps it.
			acct.Amount = dec("900")
			updated, err := st.SaveAccount(ctx, acct)
			if err != nil {
				t.Fatalf("SaveAccount update: %v", err)
			}
			if updated.Version != 2 {
				t.Errorf("updated version = %d, want 2", updated.Version)
			}

			// A writer holding the old version loses.
			stale := *acct
			stale.Amount = dec("500")
			if _, err := st.SaveAccount(ctx, &stale); !errors.Is(err, domain.ErrVersionConflict) {
				t.Errorf("stale update err = %v, want ErrVersionConflict", err)
			}

			got, found, err := st.GetAccount(ctx, trader.ID)
			if err != nil || !found {
				t.Fatalf("GetAccount = found=%v err=%v", found, err)
			}
			if !got.Amount.Equal(dec("900")) {
				t.Errorf("amount = %s, want 900 (stale write must not land)", got.Amount)
			}

			if err := st.DeleteAccount(ctx, trader.ID); err != nil {
				t.Fatalf("DeleteAccount: %v", err)
			}
			if _, found, _ := st.GetAccount(ctx, trader.ID); found {
				t.Error("account still present after delete")
			}
		})
	}
}

func TestPositionsDerivedFromLedger(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			trader, err := st.SaveTrader(ctx, &domain.Trader{FirstName: "Bo", LastName: "Chen", DOB: "1985-05-05", Country: "US", Email: "bo@example.com"})
			if err != nil {
				t.Fatalf("SaveTrader: %v", err)
			}
			if _, err := st.SaveAccount(ctx, &domain.Account{ID: trader.ID, TraderID: trader.ID, Amount: dec("0")}); err != nil {
				t.Fatalf("SaveAccount: %v", err)
			}

			ledger := []domain.SecurityOrder{
				{Ticker: "AAPL", Size: 10, Side: domain.OrderSideBuy, Status: domain.OrderStatusFilled},
				{Ticker: "AAPL", Size: 4, Side: domain.OrderSideSell, Status: domain.OrderStatusFilled},
				// Canceled rows never move the position.
				{Ticker: "AAPL", Size: 100, Side: domain.OrderSideBuy, Status: domain.OrderStatusCanceled, Notes: domain.NoteInsufficientFund},
				{Ticker: "MSFT", Size: 3, Side: domain.OrderSideBuy, Status: domain.OrderStatusFilled},
				// A fully unwound ticker reads as no position.
				{Ticker: "GOOG", Size: 2, Side: domain.OrderSideBuy, Status: domain.OrderStatusFilled},
				{Ticker: "GOOG", Size: 2, Side: domain.OrderSideSell, Status: domain.OrderStatusFilled},
			}
			for i := range ledger {
				ledger[i].AccountID = trader.ID
				ledger[i].Type = domain.OrderTypeMarket
				ledger[i].Price = dec("1")
				if _, err := st.SaveOrder(ctx, &ledger[i]); err != nil {
					t.Fatalf("SaveOrder %d: %v", i, err)
				}
			}

			pos, found, err := st.GetPosition(ctx, trader.ID, "AAPL")
			if err != nil || !found {
				t.Fatalf("GetPosition AAPL = found=%v err=%v", found, err)
			}
			if pos.Position != 6 {
				t.Errorf("AAPL position = %d, want 6", pos.Position)
			}

			if _, found, err := st.GetPosition(ctx, trader.ID, "GOOG"); err != nil || found {
				t.Errorf("GOOG position = found=%v err=%v, want absent", found, err)
			}

			positions, err := st.ListPositions(ctx, trader.ID)
			if err != nil {
				t.Fatalf("ListPositions: %v", err)
			}
			if len(positions) != 2 {
				t.Fatalf("ListPositions returned %d rows, want 2 (AAPL, MSFT)", len(positions))
			}
			if positions[0].Ticker != "AAPL" || positions[0].Position != 6 {
				t.Errorf("positions[0] = %+v, want AAPL/6", positions[0])
			}
			if positions[1].Ticker != "MSFT" || positions[1].Position != 3 {
				t.Errorf("positions[1] = %+v, want MSFT/3", positions[1])
			}
		})
	}
}

func TestOrderLedger(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			trader, err := st.SaveTrader(ctx, &domain.Trader{FirstName: "Liv", LastName: "Park", DOB: "1992-02-02", Country: "KR", Email: "liv@example.com"})
			if err != nil {
				t.Fatalf("SaveTrader: %v", err)
			}
			if _, err := st.SaveAccount(ctx, &domain.Account{ID: trader.ID, TraderID: trader.ID, Amount: dec("0")}); err != nil {
				t.Fatalf("SaveAccount: %v", err)
			}

			first, err := st.SaveOrder(ctx, &domain.SecurityOrder{
				AccountID: trader.ID, Ticker: "AAPL", Size: 1, Price: dec("150.25"),
				Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Status: domain.OrderStatusFilled,
			})
			if err != nil {
				t.Fatalf("SaveOrder: %v", err)
			}
			if first.ID == 0 {
				t.Error("SaveOrder left id unset")
			}
			if first.CreatedAt.IsZero() {
				t.Error("SaveOrder left created_at unset")
			}

			second, err := st.SaveOrder(ctx, &domain.SecurityOrder{
				AccountID: trader.ID, Ticker: "AAPL", Size: 2, Price: dec("150"),
				Side: domain.OrderSideSell, Type: domain.OrderTypeMarket,
				Status: domain.OrderStatusCanceled, Notes: domain.NoteInsufficientPosition,
				CreatedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
			})
			if err != nil {
				t.Fatalf("SaveOrder: %v", err)
			}

			orders, err := st.ListOrdersByAccount(ctx, trader.ID)
			if err != nil {
				t.Fatalf("ListOrdersByAccount: %v", err)
			}
			if len(orders) != 2 {
				t.Fatalf("ledger has %d rows, want 2", len(orders))
			}
			if orders[0].ID != first.ID || orders[1].ID != second.ID {
				t.Errorf("ledger not ordered by id: %d, %d", orders[0].ID, orders[1].ID)
			}
			if !orders[0].Price.Equal(dec("150.25")) {
				t.Errorf("price round-trip = %s, want 150.25", orders[0].Price)
			}
			if orders[1].Notes != domain.NoteInsufficientPosition {
				t.Errorf("notes round-trip = %q", orders[1].Notes)
			}
			if !orders[1].CreatedAt.Equal(second.CreatedAt) {
				t.Errorf("created_at round-trip = %v, want %v", orders[1].CreatedAt, second.CreatedAt)
			}

			if err := st.DeleteOrdersByAccount(ctx, trader.ID); err != nil {
				t.Fatalf("DeleteOrdersByAccount: %v", err)
			}
			orders, err = st.ListOrdersByAccount(ctx, trader.ID)
			if err != nil {
				t.Fatalf("ListOrdersByAccount after delete: %v", err)
			}
			if len(orders) != 0 {
				t.Errorf("ledger has %d rows after delete, want 0", len(orders))
			}
		})
	}
}

func TestTraderStore(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if exists, err := st.TraderExists(ctx, 1); err != nil || exists {
				t.Fatalf("TraderExists on empty store = %v, %v", exists, err)
			}

			tr, err := st.SaveTrader(ctx, &domain.Trader{FirstName: "Sam", LastName: "Oak", DOB: "1970-07-07", Country: "JP", Email: "sam@example.com"})
			if err != nil {
				t.Fatalf("SaveTrader: %v", err)
			}
			if tr.ID == 0 {
				t.Fatal("SaveTrader left id unset")
			}

			got, found, err := st.GetTrader(ctx, tr.ID)
			if err != nil || !found {
				t.Fatalf("GetTrader = found=%v err=%v", found, err)
			}
			if *got != *tr {
				t.Errorf("GetTrader = %+v, want %+v", got, tr)
			}

			if exists, err := st.TraderExists(ctx, tr.ID); err != nil || !exists {
				t.Errorf("TraderExists = %v, %v, want true", exists, err)
			}

			if err := st.DeleteTrader(ctx, tr.ID); err != nil {
				t.Fatalf("DeleteTrader: %v", err)
			}
			if exists, _ := st.TraderExists(ctx, tr.ID); exists {
				t.Error("trader still present after delete")
			}
		})
	}
}
