package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
	"tradedesk/internal/util"
)

// Compile-time interface check.
var _ Feed = (*AlpacaFeed)(nil)

// AlpacaFeed implements Feed using the Alpaca market-data API. Transient
// fetch failures are retried with backoff; bulk refreshes are paced by a
// token-bucket rate limiter so the free-tier request quota is respected.
type AlpacaFeed struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaFeed creates an AlpacaFeed configured with the given credentials
// and data endpoint. ratePerMin bounds outgoing requests per minute.
func NewAlpacaFeed(apiKey, apiSecret, dataURL string, ratePerMin int) *AlpacaFeed {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaFeed{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		log:     slog.Default().With("feed", "alpaca"),
	}
}

// Name returns "alpaca".
func (f *AlpacaFeed) Name() string { return "alpaca" }

// LatestQuote fetches the latest NBBO quote and latest trade for ticker and
// merges them into a single snapshot: bid/ask from the quote, last from the
// trade. An unknown ticker reads as not found.
func (f *AlpacaFeed) LatestQuote(ctx context.Context, ticker string) (*domain.Quote, bool, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	var latestQuote *marketdata.Quote
	var latestTrade *marketdata.Trade
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		q, err := f.client.GetLatestQuote(ticker, marketdata.GetLatestQuoteRequest{})
		if err != nil {
			return err
		}
		t, err := f.client.GetLatestTrade(ticker, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return err
		}
		latestQuote, latestTrade = q, t
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			f.log.Debug("ticker unknown to provider", "ticker", ticker)
			return nil, false, nil
		}
		return nil, false, err
	}
	if latestQuote == nil && latestTrade == nil {
		return nil, false, nil
	}

	quote := &domain.Quote{Ticker: ticker}
	if latestQuote != nil {
		quote.BidPrice = decimal.NewFromFloat(latestQuote.BidPrice)
		quote.BidSize = int64(latestQuote.BidSize)
		quote.AskPrice = decimal.NewFromFloat(latestQuote.AskPrice)
		quote.AskSize = int64(latestQuote.AskSize)
	}
	if latestTrade != nil {
		quote.LastPrice = decimal.NewFromFloat(latestTrade.Price)
	}
	return quote, true, nil
}

// isNotFound reports whether the provider rejected the symbol itself rather
// than failing transiently.
func isNotFound(err error) bool {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound ||
			apiErr.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}
