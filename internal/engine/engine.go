// Package engine implements the market-order execution engine: price
// resolution, affordability and availability checks, account settlement, and
// the immutable audit record of every attempt.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
	"tradedesk/internal/store"
)

// Executor validates and settles one market order per call against the
// account, quote, position, and order stores. It is synchronous, performs no
// retries, and never writes a position row: positions derive from the filled
// rows it appends to the ledger.
type Executor struct {
	accounts  store.AccountStore
	quotes    store.QuoteStore
	positions store.PositionStore
	orders    store.OrderStore
	log       *slog.Logger
}

// NewExecutor creates an Executor wired with the given stores.
func NewExecutor(
	accounts store.AccountStore,
	quotes store.QuoteStore,
	positions store.PositionStore,
	orders store.OrderStore,
	log *slog.Logger,
) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		accounts:  accounts,
		quotes:    quotes,
		positions: positions,
		orders:    orders,
		log:       log.With("component", "executor"),
	}
}

// ExecuteMarketOrder resolves a price for the request, settles it against
// the trader's account, and appends the resulting SecurityOrder to the
// ledger. A business-rule rejection (insufficient funds or shares) is not an
// error: it yields a persisted CANCELED order. Errors are either
// InvalidRequestError (malformed request, unknown account or ticker,
// unusable price; nothing persisted) or InfrastructureError (store failure,
// including a lost concurrent-update race; the caller may retry the whole
// call).
func (e *Executor) ExecuteMarketOrder(ctx context.Context, order *domain.MarketOrder) (*domain.SecurityOrder, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	account, found, err := e.accounts.GetAccount(ctx, order.TraderID)
	if err != nil {
		return nil, domain.Infra("looking up account", err)
	}
	if !found {
		return nil, domain.NotFoundf("account not found: %d", order.TraderID)
	}

	quote, found, err := e.quotes.GetQuote(ctx, order.Ticker)
	if err != nil {
		return nil, domain.Infra("looking up quote", err)
	}
	if !found {
		return nil, domain.NotFoundf("ticker not found: %s", order.Ticker)
	}

	securityOrder := &domain.SecurityOrder{
		AccountID: account.ID,
		Ticker:    order.Ticker,
		Size:      order.Size,
		Side:      order.Side,
		Type:      domain.OrderTypeMarket,
	}

	if order.Side == domain.OrderSideBuy {
		err = e.settleBuy(ctx, order, securityOrder, account, quote)
	} else {
		err = e.settleSell(ctx, order, securityOrder, account, quote)
	}
	if err != nil {
		return nil, err
	}

	saved, err := e.orders.SaveOrder(ctx, securityOrder)
	if err != nil {
		return nil, domain.Infra("saving order", err)
	}

	e.log.Info("market order executed",
		"order", saved.ID,
		"account", saved.AccountID,
		"ticker", saved.Ticker,
		"side", saved.Side,
		"size", saved.Size,
		"price", saved.Price,
		"status", saved.Status,
	)
	return saved, nil
}

// settleBuy debits the account by price*size when affordable. The quote's
// ask price wins; a missing ask falls back to the last traded price.
func (e *Executor) settleBuy(ctx context.Context, order *domain.MarketOrder, securityOrder *domain.SecurityOrder, account *domain.Account, quote *domain.Quote) error {
	price, err := resolvePrice(quote.AskPrice, quote.LastPrice, "ask", quote.Ticker)
	if err != nil {
		return err
	}
	securityOrder.Price = price

	required := price.Mul(decimal.NewFromInt(order.Size))
	if account.Amount.LessThan(required) {
		securityOrder.Status = domain.OrderStatusCanceled
		securityOrder.Notes = domain.NoteInsufficientFund
		return nil
	}

	account.Amount = account.Amount.Sub(required)
	if _, err := e.accounts.SaveAccount(ctx, account); err != nil {
		return domain.Infra("saving account", err)
	}
	securityOrder.Status = domain.OrderStatusFilled
	return nil
}

// settleSell credits the account by price*size when the derived position
// covers the requested size. The quote's bid price wins; a missing bid falls
// back to the last traded price.
func (e *Executor) settleSell(ctx context.Context, order *domain.MarketOrder, securityOrder *domain.SecurityOrder, account *domain.Account, quote *domain.Quote) error {
	price, err := resolvePrice(quote.BidPrice, quote.LastPrice, "bid", quote.Ticker)
	if err != nil {
		return err
	}
	securityOrder.Price = price

	position, found, err := e.positions.GetPosition(ctx, account.ID, order.Ticker)
	if err != nil {
		return domain.Infra("looking up position", err)
	}
	var available int64
	if found {
		available = position.Position
	}
	if available < order.Size {
		securityOrder.Status = domain.OrderStatusCanceled
		securityOrder.Notes = domain.NoteInsufficientPosition
		return nil
	}

	account.Amount = account.Amount.Add(price.Mul(decimal.NewFromInt(order.Size)))
	if _, err := e.accounts.SaveAccount(ctx, account); err != nil {
		return domain.Infra("saving account", err)
	}
	securityOrder.Status = domain.OrderStatusFilled
	return nil
}

// validateOrder rejects a malformed request before any store is touched.
func validateOrder(order *domain.MarketOrder) error {
	if order == nil {
		return domain.InvalidRequestf("order is required")
	}
	if order.TraderID == 0 {
		return domain.InvalidRequestf("trader id is required")
	}
	if strings.TrimSpace(order.Ticker) == "" {
		return domain.InvalidRequestf("ticker is required")
	}
	if order.Size <= 0 {
		return domain.InvalidRequestf("order size must be greater than 0")
	}
	if order.Side != domain.OrderSideBuy && order.Side != domain.OrderSideSell {
		return domain.InvalidRequestf("order side must be BUY or SELL")
	}
	return nil
}

// resolvePrice picks the side's best price, falling back to the last traded
// price when the side price is absent. An absent or non-positive result is
// unusable.
func resolvePrice(sidePrice, lastPrice decimal.Decimal, side, ticker string) (decimal.Decimal, error) {
	price := sidePrice
	if price.IsZero() {
		price = lastPrice
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.InvalidRequestf("invalid %s price for ticker: %s", side, ticker)
	}
	return price, nil
}
