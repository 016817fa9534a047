package orderbook

// MatchResult is one trade between the head buy and head sell order of a book.
// Price is always the sell order's limit price.
type MatchResult struct {
	Symbol      string  `json:"symbol"`
	BuyOrderID  string  `json:"buy_order_id"`
	SellOrderID string  `json:"sell_order_id"`
	Price       float64 `json:"price"`
	Qty         int64   `json:"qty"`
}
