package orderbook

import (
	"fmt"
	"math"
)

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

func (s Side) Valid() bool {
	return s == BUY || s == SELL
}

// Order is a limit order. Qty is the remaining quantity and is the only field
// changed by matching.
type Order struct {
	ID     string
	Symbol string
	Side   Side
	Price  float64
	Qty    int64
}

// Validate rejects orders that a book cannot hold.
func (o *Order) Validate() error {
	switch {
	case o.ID == "":
		return fmt.Errorf("%w: empty order id", ErrInvalidOrder)
	case o.Symbol == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	case !o.Side.Valid():
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, o.Side)
	case math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price <= 0:
		return fmt.Errorf("%w: price must be positive, got %v", ErrInvalidOrder, o.Price)
	case o.Qty <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, o.Qty)
	}
	return nil
}
