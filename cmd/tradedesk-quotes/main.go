// tradedesk-quotes registers tickers in the quote store and refreshes stored
// snapshots from the market-data feed.
//
// Usage:
//
//	tradedesk-quotes AAPL MSFT   register tickers, then refresh
//	tradedesk-quotes             refresh every stored quote
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"tradedesk/internal/config"
	"tradedesk/internal/feed"
	"tradedesk/internal/quote"
	"tradedesk/internal/store"
	"tradedesk/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "config/tradedesk.yaml"
	if p := os.Getenv("TRADEDESK_CONFIG"); p != "" {
		cfgPath = p
	}

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	if cfg.Storage.SQLitePath == "" {
		log.Fatal("sqlite_path must be configured for tradedesk-quotes")
	}
	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer st.Close()

	marketFeed := feed.NewAlpacaFeed(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.RateLimitPerMin)
	quotes := quote.NewService(marketFeed, st, logger)

	ctx := context.Background()

	if tickers := os.Args[1:]; len(tickers) > 0 {
		saved, err := quotes.SaveQuotes(ctx, tickers)
		if err != nil {
			log.Fatalf("failed to register tickers: %v", err)
		}
		for _, q := range saved {
			fmt.Printf("%s last=%s bid=%s ask=%s\n", q.Ticker, q.LastPrice, q.BidPrice, q.AskPrice)
		}
		return
	}

	if err := quotes.UpdateMarketData(ctx); err != nil {
		log.Fatalf("failed to update market data: %v", err)
	}
}
