package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradedesk/internal/account"
	"tradedesk/internal/api"
	"tradedesk/internal/config"
	"tradedesk/internal/engine"
	"tradedesk/internal/feed"
	"tradedesk/internal/quote"
	"tradedesk/internal/store"
	"tradedesk/internal/util"
)

func main() {
	// .env is optional; real environments set variables directly.
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

	// Store selection: SQLite when a path is configured, in-memory otherwise.
	var (
		quoteStore    store.QuoteStore
		accountStore  store.AccountStore
		positionStore store.PositionStore
		orderStore    store.OrderStore
		traderStore   store.TraderStore
	)
	if cfg.Storage.SQLitePath != "" {
		st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		defer st.Close()
		quoteStore, accountStore, positionStore, orderStore, traderStore = st, st, st, st, st
		logger.Info("using sqlite store", "path", cfg.Storage.SQLitePath)
	} else {
		ms := store.NewMemoryStore()
		quoteStore, accountStore, positionStore, orderStore, traderStore = ms, ms, ms, ms, ms
		logger.Warn("no sqlite_path configured, using in-memory store")
	}

	var archive *store.LedgerArchive
	if cfg.Storage.DataDir != "" {
		archive = store.NewLedgerArchive(cfg.Storage.DataDir)
	}

	if cfg.Alpaca.APIKey == "" {
		logger.Warn("no alpaca credentials configured, quote registration will fail")
	}
	marketFeed := feed.NewAlpacaFeed(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.RateLimitPerMin)

	executor := engine.NewExecutor(accountStore, quoteStore, positionStore, orderStore, logger)
	accounts := account.NewService(traderStore, accountStore, positionStore, orderStore, archive, logger)
	quotes := quote.NewService(marketFeed, quoteStore, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := api.NewServer(addr, executor, accounts, quotes, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}
}
