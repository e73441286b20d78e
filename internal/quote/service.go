// Package quote maintains the quote store: registering tickers validated
// against a market-data feed, refreshing stored snapshots, and manual
// overrides.
package quote

import (
	"context"
	"log/slog"
	"strings"

	"tradedesk/internal/domain"
	"tradedesk/internal/feed"
	"tradedesk/internal/store"
)

// Service keeps the quote store in sync with an external feed.
type Service struct {
	feed   feed.Feed
	quotes store.QuoteStore
	log    *slog.Logger
}

// NewService creates a Service over the given feed and store.
func NewService(f feed.Feed, quotes store.QuoteStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		feed:   f,
		quotes: quotes,
		log:    log.With("component", "quote"),
	}
}

// SaveQuotes validates each ticker against the feed and upserts the
// resulting snapshots. A ticker the feed does not know is an invalid
// request; nothing before it in the list is rolled back.
func (s *Service) SaveQuotes(ctx context.Context, tickers []string) ([]domain.Quote, error) {
	if len(tickers) == 0 {
		return nil, domain.InvalidRequestf("tickers are required")
	}

	quotes := make([]domain.Quote, 0, len(tickers))
	for _, ticker := range tickers {
		q, err := s.registerTicker(ctx, ticker)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

// UpdateMarketData refreshes every stored quote from the feed. Tickers the
// feed no longer knows keep their previous snapshot.
func (s *Service) UpdateMarketData(ctx context.Context) error {
	quotes, err := s.quotes.ListQuotes(ctx)
	if err != nil {
		return domain.Infra("listing quotes", err)
	}

	for _, q := range quotes {
		fresh, found, err := s.feed.LatestQuote(ctx, q.Ticker)
		if err != nil {
			return domain.Infra("fetching quote", err)
		}
		if !found {
			s.log.Warn("ticker no longer known to feed", "ticker", q.Ticker)
			continue
		}
		if err := s.quotes.SaveQuote(ctx, fresh); err != nil {
			return domain.Infra("saving quote", err)
		}
	}

	s.log.Info("market data updated", "tickers", len(quotes))
	return nil
}

// FindAllQuotes returns every stored quote.
func (s *Service) FindAllQuotes(ctx context.Context) ([]domain.Quote, error) {
	quotes, err := s.quotes.ListQuotes(ctx)
	if err != nil {
		return nil, domain.Infra("listing quotes", err)
	}
	return quotes, nil
}

// SaveQuote stores the given quote without consulting the feed. It is the
// manual-override path.
func (s *Service) SaveQuote(ctx context.Context, quote *domain.Quote) (*domain.Quote, error) {
	if quote == nil || strings.TrimSpace(quote.Ticker) == "" {
		return nil, domain.InvalidRequestf("quote ticker is required")
	}
	if err := s.quotes.SaveQuote(ctx, quote); err != nil {
		return nil, domain.Infra("saving quote", err)
	}
	return quote, nil
}

// FindFeedQuote fetches the feed's snapshot for a ticker without storing it.
func (s *Service) FindFeedQuote(ctx context.Context, ticker string) (*domain.Quote, error) {
	if strings.TrimSpace(ticker) == "" {
		return nil, domain.InvalidRequestf("ticker is required")
	}
	q, found, err := s.feed.LatestQuote(ctx, ticker)
	if err != nil {
		return nil, domain.Infra("fetching quote", err)
	}
	if !found {
		return nil, domain.NotFoundf("ticker not found: %s", ticker)
	}
	return q, nil
}

// registerTicker validates one ticker against the feed and upserts its
// snapshot.
func (s *Service) registerTicker(ctx context.Context, ticker string) (*domain.Quote, error) {
	if strings.TrimSpace(ticker) == "" {
		return nil, domain.InvalidRequestf("ticker is required")
	}

	q, found, err := s.feed.LatestQuote(ctx, ticker)
	if err != nil {
		return nil, domain.Infra("fetching quote", err)
	}
	if !found {
		return nil, domain.NotFoundf("ticker not found: %s", ticker)
	}

	if err := s.quotes.SaveQuote(ctx, q); err != nil {
		return nil, domain.Infra("saving quote", err)
	}
	return q, nil
}
