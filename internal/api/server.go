// Package api exposes the trading ledger over HTTP: market-order execution,
// trader/account lifecycle, and quote management endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tradedesk/internal/account"
	"tradedesk/internal/engine"
	"tradedesk/internal/quote"
)

// Server hosts the HTTP API over the execution engine and the lifecycle and
// quote services.
type Server struct {
	executor *engine.Executor
	accounts *account.Service
	quotes   *quote.Service
	log      *slog.Logger
	httpSrv  *http.Server
}

// NewServer creates a Server listening on addr.
func NewServer(
	addr string,
	executor *engine.Executor,
	accounts *account.Service,
	quotes *quote.Service,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		executor: executor,
		accounts: accounts,
		quotes:   quotes,
		log:      log.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /order/marketOrder", s.handleMarketOrder)
	mux.HandleFunc("POST /trader", s.handleCreateTrader)
	mux.HandleFunc("DELETE /trader/traderId/{traderId}", s.handleDeleteTrader)
	mux.HandleFunc("PUT /trader/deposit/traderId/{traderId}/amount/{amount}", s.handleDeposit)
	mux.HandleFunc("PUT /trader/withdraw/traderId/{traderId}/amount/{amount}", s.handleWithdraw)
	mux.HandleFunc("GET /quote/dailyList", s.handleDailyList)
	mux.HandleFunc("PUT /quote", s.handlePutQuote)
	mux.HandleFunc("POST /quote/tickerId/{tickerId}", s.handleCreateQuote)
	mux.HandleFunc("PUT /quote/marketData", s.handleUpdateMarketData)
	mux.HandleFunc("GET /quote/ticker/{ticker}", s.handleFeedQuote)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.withLogging(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe starts the HTTP listener and blocks until the server is
// shut down or a fatal error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown performs a graceful shutdown, waiting for in-flight requests to
// complete.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// withLogging logs one line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	})
}
