package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// LedgerArchive writes immutable copies of order-ledger rows to Parquet
// files on disk. The lifecycle service archives an account's orders right
// before the bulk delete that accompanies trader removal, so the audit trail
// outlives the account.
type LedgerArchive struct {
	DataDir string
}

// NewLedgerArchive creates a LedgerArchive rooted at the given data
// directory.
func NewLedgerArchive(dataDir string) *LedgerArchive {
	return &LedgerArchive{DataDir: dataDir}
}

// OrderRecord is the Parquet schema for archived security orders.
type OrderRecord struct {
	ID        int64  `parquet:"id"`
	AccountID int64  `parquet:"account_id"`
	Status    string `parquet:"status"`
	Ticker    string `parquet:"ticker"`
	Size      int64  `parquet:"size"`
	Price     string `parquet:"price"` // exact decimal string
	Notes     string `parquet:"notes"`
	Side      string `parquet:"side"`
	Type      string `parquet:"type"`
	CreatedAt int64  `parquet:"created_at,timestamp(millisecond)"` // Unix ms
}

// ArchiveOrders appends the given orders to the account's archive file,
// deduplicating by order id with new records preferred. Archiving an empty
// slice is a no-op.
//
// Layout: <DataDir>/ledger/<accountID>/orders.parquet
func (a *LedgerArchive) ArchiveOrders(_ context.Context, accountID int64, orders []domain.SecurityOrder) error {
	if len(orders) == 0 {
		return nil
	}

	records := make([]OrderRecord, 0, len(orders))
	for _, o := range orders {
		records = append(records, OrderRecord{
			ID:        o.ID,
			AccountID: o.AccountID,
			Status:    string(o.Status),
			Ticker:    o.Ticker,
			Size:      o.Size,
			Price:     o.Price.String(),
			Notes:     o.Notes,
			Side:      string(o.Side),
			Type:      string(o.Type),
			CreatedAt: o.CreatedAt.UnixMilli(),
		})
	}

	path := a.ordersPath(accountID)
	existing, _ := readParquetFile[OrderRecord](path)
	merged := mergeOrderRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("archiving orders for account %d: %w", accountID, err)
	}
	return nil
}

// ReadOrders reads back every archived order for the account, oldest first.
// A missing archive reads as empty.
func (a *LedgerArchive) ReadOrders(_ context.Context, accountID int64) ([]domain.SecurityOrder, error) {
	records, err := readParquetFile[OrderRecord](a.ordersPath(accountID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive for account %d: %w", accountID, err)
	}

	orders := make([]domain.SecurityOrder, 0, len(records))
	for _, r := range records {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("parsing archived price %q: %w", r.Price, err)
		}
		orders = append(orders, domain.SecurityOrder{
			ID:        r.ID,
			AccountID: r.AccountID,
			Status:    domain.OrderStatus(r.Status),
			Ticker:    r.Ticker,
			Size:      r.Size,
			Price:     price,
			Notes:     r.Notes,
			Side:      domain.OrderSide(r.Side),
			Type:      domain.OrderType(r.Type),
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		})
	}
	return orders, nil
}

// ordersPath returns the archive file path for an account.
// Layout: <dataDir>/ledger/<accountID>/orders.parquet
func (a *LedgerArchive) ordersPath(accountID int64) string {
	return filepath.Join(a.DataDir, "ledger", fmt.Sprintf("%d", accountID), "orders.parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeOrderRecords deduplicates records by order id, preferring new records
// over existing ones. Results are sorted by id.
func mergeOrderRecords(existing, incoming []OrderRecord) []OrderRecord {
	seen := make(map[int64]OrderRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ID] = r
	}
	for _, r := range incoming {
		seen[r.ID] = r
	}

	merged := make([]OrderRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})
	return merged
}
