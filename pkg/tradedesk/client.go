// Package tradedesk provides a Go SDK for the tradedesk-server API. It is
// self-contained: the types here mirror the server's JSON wire format so
// external modules can depend on the client alone.
package tradedesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order vocabulary, matching the server's ledger constants.
const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"

	OrderTypeMarket = "MARKET"

	OrderStatusFilled   = "FILLED"
	OrderStatusCanceled = "CANCELED"
)

// Trader is the registration request for a new trader.
type Trader struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"` // YYYY-MM-DD
	Country   string `json:"country"`
	Email     string `json:"email"`
}

// TraderAccountView is the combined trader-plus-account view returned on
// creation.
type TraderAccountView struct {
	TraderID  int64           `json:"traderId"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	DOB       string          `json:"dob"`
	Country   string          `json:"country"`
	Email     string          `json:"email"`
	AccountID int64           `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

// Account is a trader's cash account.
type Account struct {
	ID       int64           `json:"id"`
	TraderID int64           `json:"traderId"`
	Amount   decimal.Decimal `json:"amount"`
}

// MarketOrder is an execution request.
type MarketOrder struct {
	TraderID int64  `json:"traderId"`
	Ticker   string `json:"ticker"`
	Size     int64  `json:"size"`
	Side     string `json:"side"`
}

// SecurityOrder is one row of the order ledger: a single execution attempt,
// filled or canceled.
type SecurityOrder struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	Status    string          `json:"status"`
	Ticker    string          `json:"ticker"`
	Size      int64           `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
	Side      string          `json:"side"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Quote is a price snapshot for a ticker. A zero price means the field is
// absent from the snapshot.
type Quote struct {
	Ticker    string          `json:"ticker"`
	LastPrice decimal.Decimal `json:"lastPrice"`
	BidPrice  decimal.Decimal `json:"bidPrice"`
	BidSize   int64           `json:"bidSize"`
	AskPrice  decimal.Decimal `json:"askPrice"`
	AskSize   int64           `json:"askSize"`
}

// Client calls the tradedesk-server HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// CreateTrader registers a trader and its zero-balance account.
func (c *Client) CreateTrader(ctx context.Context, trader *Trader) (*TraderAccountView, error) {
	var view TraderAccountView
	if err := c.do(ctx, http.MethodPost, "/trader", trader, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteTrader removes a trader whose balance and positions are zero.
func (c *Client) DeleteTrader(ctx context.Context, traderID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/trader/traderId/%d", traderID), nil, nil)
}

// Deposit adds funds to a trader's account.
func (c *Client) Deposit(ctx context.Context, traderID int64, amount decimal.Decimal) (*Account, error) {
	var acct Account
	path := fmt.Sprintf("/trader/deposit/traderId/%d/amount/%s", traderID, amount)
	if err := c.do(ctx, http.MethodPut, path, nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Withdraw removes funds from a trader's account.
func (c *Client) Withdraw(ctx context.Context, traderID int64, amount decimal.Decimal) (*Account, error) {
	var acct Account
	path := fmt.Sprintf("/trader/withdraw/traderId/%d/amount/%s", traderID, amount)
	if err := c.do(ctx, http.MethodPut, path, nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// PlaceMarketOrder executes a market order and returns the persisted ledger
// row, filled or canceled.
func (c *Client) PlaceMarketOrder(ctx context.Context, order *MarketOrder) (*SecurityOrder, error) {
	var saved SecurityOrder
	if err := c.do(ctx, http.MethodPost, "/order/marketOrder", order, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Quotes returns every quote stored on the server.
func (c *Client) Quotes(ctx context.Context) ([]Quote, error) {
	var quotes []Quote
	if err := c.do(ctx, http.MethodGet, "/quote/dailyList", nil, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// RegisterTicker validates a ticker against the server's market-data feed and
// registers it for quoting.
func (c *Client) RegisterTicker(ctx context.Context, ticker string) (*Quote, error) {
	var q Quote
	if err := c.do(ctx, http.MethodPost, "/quote/tickerId/"+ticker, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// do sends one request and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
