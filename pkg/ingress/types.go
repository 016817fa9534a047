package ingress

import "github.com/shopspring/decimal"

// PlaceOrderRequest is the order body accepted by POST /place_order and
// POST /api/v1/orders. Price and quantity may be JSON numbers or strings.
type PlaceOrderRequest struct {
	ID        string          `json:"id"`         // generated when empty
	OrderType string          `json:"order_type"` // "Buy" or "Sell"
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"` // whole units
}

// OrderResponse echoes the order after matching.
type OrderResponse struct {
	ID             string          `json:"id"`
	OrderType      string          `json:"order_type"`
	Ticker         string          `json:"ticker"`
	Price          float64         `json:"price"`
	Quantity       int64           `json:"quantity"` // remaining, 0 when fully filled
	FilledQuantity int64           `json:"filled_quantity"`
	Trades         []TradeResponse `json:"trades"`
}

type TradeResponse struct {
	BuyOrderID  string  `json:"buy_order_id"`
	SellOrderID string  `json:"sell_order_id"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
}

type BookResponse struct {
	Ticker string         `json:"ticker"`
	Buys   []RestingOrder `json:"buys"`  // queue order, head first
	Sells  []RestingOrder `json:"sells"` // queue order, head first
}

type RestingOrder struct {
	ID       string  `json:"id"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
