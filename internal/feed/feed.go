// Package feed fetches last-known quote snapshots from external market-data
// providers. The quote service uses it to validate tickers and refresh the
// quote store; the execution engine never talks to a feed directly.
package feed

import (
	"context"

	"tradedesk/internal/domain"
)

// Feed looks up the latest quote snapshot for a ticker at an external
// provider. found=false means the provider does not know the ticker; errors
// are transport or provider failures.
type Feed interface {
	// Name returns the feed identifier (e.g. "alpaca").
	Name() string

	// LatestQuote returns the provider's latest bid/ask/last snapshot.
	LatestQuote(ctx context.Context, ticker string) (*domain.Quote, bool, error)
}
