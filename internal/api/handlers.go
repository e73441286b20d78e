package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// errorResponse is the JSON body returned for every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// handleMarketOrder executes a market order and returns the resulting ledger
// row, filled or canceled.
func (s *Server) handleMarketOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.MarketOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.executor.ExecuteMarketOrder(r.Context(), &order)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleCreateTrader creates a trader plus its zero-balance account.
func (s *Server) handleCreateTrader(w http.ResponseWriter, r *http.Request) {
	var trader domain.Trader
	if err := json.NewDecoder(r.Body).Decode(&trader); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.accounts.CreateTraderAndAccount(r.Context(), &trader)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleDeleteTrader deletes a trader whose balance and positions are zero.
func (s *Server) handleDeleteTrader(w http.ResponseWriter, r *http.Request) {
	traderID, ok := pathInt64(w, r, "traderId")
	if !ok {
		return
	}

	if err := s.accounts.DeleteTraderByID(r.Context(), traderID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeposit adds funds to a trader's account.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	traderID, ok := pathInt64(w, r, "traderId")
	if !ok {
		return
	}
	amount, ok := pathDecimal(w, r, "amount")
	if !ok {
		return
	}

	updated, err := s.accounts.Deposit(r.Context(), traderID, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleWithdraw removes funds from a trader's account.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	traderID, ok := pathInt64(w, r, "traderId")
	if !ok {
		return
	}
	amount, ok := pathDecimal(w, r, "amount")
	if !ok {
		return
	}

	updated, err := s.accounts.Withdraw(r.Context(), traderID, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDailyList returns every stored quote.
func (s *Server) handleDailyList(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.quotes.FindAllQuotes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// handlePutQuote stores a quote without feed validation (manual override).
func (s *Server) handlePutQuote(w http.ResponseWriter, r *http.Request) {
	var q domain.Quote
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.quotes.SaveQuote(r.Context(), &q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleCreateQuote validates a ticker against the feed and registers it.
func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("tickerId")

	quotes, err := s.quotes.SaveQuotes(r.Context(), []string{ticker})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quotes[0])
}

// handleUpdateMarketData refreshes every stored quote from the feed.
func (s *Server) handleUpdateMarketData(w http.ResponseWriter, r *http.Request) {
	if err := s.quotes.UpdateMarketData(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFeedQuote returns the feed's live snapshot for a ticker without
// storing it.
func (s *Server) handleFeedQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotes.FindFeedQuote(r.Context(), r.PathValue("ticker"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeError maps the domain error taxonomy onto HTTP status codes: unknown
// entities read as 404, other invalid requests as 400, infrastructure
// failures as 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case domain.IsInvalidRequest(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case domain.IsInfrastructure(err):
		s.log.Error("store failure", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	default:
		s.log.Error("unexpected failure", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func pathDecimal(w http.ResponseWriter, r *http.Request, name string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(r.PathValue(name))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid "+name)
		return decimal.Zero, false
	}
	return v, true
}
