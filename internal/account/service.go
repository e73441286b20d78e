// Package account manages the trader/account lifecycle: creation with a
// zero-balance account, deposits, withdrawals, and the guarded deletion that
// removes a trader together with its account and order history.
package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
	"tradedesk/internal/store"
)

// Service implements the lifecycle operations over the trader, account,
// position, and order stores. The archive is optional; when set, an
// account's orders are copied to Parquet right before the bulk delete that
// accompanies trader removal.
type Service struct {
	traders  store.TraderStore
	accounts store.AccountStore
	// positions is read-only here: deletion preconditions only.
	positions store.PositionStore
	orders    store.OrderStore
	archive   *store.LedgerArchive
	log       *slog.Logger
}

// NewService creates a Service wired with the given stores. archive may be
// nil to disable audit archiving.
func NewService(
	traders store.TraderStore,
	accounts store.AccountStore,
	positions store.PositionStore,
	orders store.OrderStore,
	archive *store.LedgerArchive,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		traders:   traders,
		accounts:  accounts,
		positions: positions,
		orders:    orders,
		archive:   archive,
		log:       log.With("component", "account"),
	}
}

// CreateTraderAndAccount creates a trader and its zero-balance account in
// one operation and returns the combined view. The trader must carry every
// identity field and no pre-assigned id.
func (s *Service) CreateTraderAndAccount(ctx context.Context, trader *domain.Trader) (*domain.TraderAccountView, error) {
	if err := validateTrader(trader); err != nil {
		return nil, err
	}
	if trader.ID != 0 {
		return nil, domain.InvalidRequestf("trader id must not be set")
	}

	savedTrader, err := s.traders.SaveTrader(ctx, trader)
	if err != nil {
		return nil, domain.Infra("saving trader", err)
	}

	account := &domain.Account{
		ID:       savedTrader.ID,
		TraderID: savedTrader.ID,
		Amount:   decimal.Zero,
	}
	savedAccount, err := s.accounts.SaveAccount(ctx, account)
	if err != nil {
		return nil, domain.Infra("saving account", err)
	}

	s.log.Info("trader created", "trader", savedTrader.ID, "email", savedTrader.Email)

	return &domain.TraderAccountView{
		TraderID:  savedTrader.ID,
		FirstName: savedTrader.FirstName,
		LastName:  savedTrader.LastName,
		DOB:       savedTrader.DOB,
		Country:   savedTrader.Country,
		Email:     savedTrader.Email,
		AccountID: savedAccount.ID,
		Amount:    savedAccount.Amount,
	}, nil
}

// Deposit adds a positive amount to the trader's account balance and returns
// the updated account.
func (s *Service) Deposit(ctx context.Context, traderID int64, amount decimal.Decimal) (*domain.Account, error) {
	if traderID == 0 {
		return nil, domain.InvalidRequestf("trader id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.InvalidRequestf("amount must be greater than 0")
	}

	account, found, err := s.accounts.GetAccount(ctx, traderID)
	if err != nil {
		return nil, domain.Infra("looking up account", err)
	}
	if !found {
		return nil, domain.NotFoundf("account not found: %d", traderID)
	}

	account.Amount = account.Amount.Add(amount)
	saved, err := s.accounts.SaveAccount(ctx, account)
	if err != nil {
		return nil, domain.Infra("saving account", err)
	}

	s.log.Info("deposit", "account", saved.ID, "amount", amount, "balance", saved.Amount)
	return saved, nil
}

// Withdraw removes a positive amount from the trader's account balance; the
// amount may not exceed the current balance.
func (s *Service) Withdraw(ctx context.Context, traderID int64, amount decimal.Decimal) (*domain.Account, error) {
	if traderID == 0 {
		return nil, domain.InvalidRequestf("trader id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.InvalidRequestf("amount must be greater than 0")
	}

	account, found, err := s.accounts.GetAccount(ctx, traderID)
	if err != nil {
		return nil, domain.Infra("looking up account", err)
	}
	if !found {
		return nil, domain.NotFoundf("account not found: %d", traderID)
	}
	if account.Amount.LessThan(amount) {
		return nil, domain.InvalidRequestf("insufficient balance")
	}

	account.Amount = account.Amount.Sub(amount)
	saved, err := s.accounts.SaveAccount(ctx, account)
	if err != nil {
		return nil, domain.Infra("saving account", err)
	}

	s.log.Info("withdrawal", "account", saved.ID, "amount", amount, "balance", saved.Amount)
	return saved, nil
}

// DeleteTraderByID removes the trader, its account, and the account's order
// history. Deletion is permitted only when the balance is zero and every
// position is flat; a failed precondition leaves everything intact.
func (s *Service) DeleteTraderByID(ctx context.Context, traderID int64) error {
	if traderID == 0 {
		return domain.InvalidRequestf("trader id is required")
	}

	trader, found, err := s.traders.GetTrader(ctx, traderID)
	if err != nil {
		return domain.Infra("looking up trader", err)
	}
	if !found {
		return domain.NotFoundf("trader not found: %d", traderID)
	}

	accountRow, found, err := s.accounts.GetAccount(ctx, traderID)
	if err != nil {
		return domain.Infra("looking up account", err)
	}
	if !found {
		return domain.NotFoundf("account not found: %d", traderID)
	}
	if accountRow.Amount.GreaterThan(decimal.Zero) {
		return domain.InvalidRequestf("account balance is not zero")
	}

	positions, err := s.positions.ListPositions(ctx, accountRow.ID)
	if err != nil {
		return domain.Infra("listing positions", err)
	}
	for _, p := range positions {
		if p.Position != 0 {
			return domain.InvalidRequestf("account has open positions")
		}
	}

	if s.archive != nil {
		orders, err := s.orders.ListOrdersByAccount(ctx, accountRow.ID)
		if err != nil {
			return domain.Infra("listing orders", err)
		}
		if err := s.archive.ArchiveOrders(ctx, accountRow.ID, orders); err != nil {
			return domain.Infra("archiving orders", err)
		}
	}

	if err := s.orders.DeleteOrdersByAccount(ctx, accountRow.ID); err != nil {
		return domain.Infra("deleting orders", err)
	}
	if err := s.accounts.DeleteAccount(ctx, accountRow.ID); err != nil {
		return domain.Infra("deleting account", err)
	}
	if err := s.traders.DeleteTrader(ctx, trader.ID); err != nil {
		return domain.Infra("deleting trader", err)
	}

	s.log.Info("trader deleted", "trader", trader.ID)
	return nil
}

// validateTrader rejects a trader with any blank identity field.
func validateTrader(trader *domain.Trader) error {
	if trader == nil {
		return domain.InvalidRequestf("trader is required")
	}
	if isBlank(trader.FirstName) ||
		isBlank(trader.LastName) ||
		isBlank(trader.DOB) ||
		isBlank(trader.Country) ||
		isBlank(trader.Email) {
		return domain.InvalidRequestf("trader fields are required")
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
