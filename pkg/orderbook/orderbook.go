// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"sync"

	"github.com/gammazero/deque"
)

// orderBook holds the resting orders of one symbol in two FIFO queues.
// All methods except newOrderBook require mu to be held.
type orderBook struct {
	symbol string

	buyOrders  deque.Deque[*Order]
	sellOrders deque.Deque[*Order]

	// set when a panic escaped while mu was held; the queues may be inconsistent
	poisoned bool

	mu sync.Mutex
}

// BookSnapshot is a copy of the resting queues, front first.
type BookSnapshot struct {
	Symbol string  `json:"symbol"`
	Buys   []Order `json:"buys"`
	Sells  []Order `json:"sells"`
}

func newOrderBook(symbol string) *orderBook {
	return &orderBook{
		symbol: symbol,
	}
}

func (ob *orderBook) addOrder(order *Order) []MatchResult {
	if order.Side == BUY {
		ob.buyOrders.PushBack(order)
	} else {
		ob.sellOrders.PushBack(order)
	}

	return ob.matchOrders()
}

// matchOrders crosses the head buy against the head sell until the heads no
// longer cross. Only the heads are compared; deeper orders never jump the queue.
func (ob *orderBook) matchOrders() []MatchResult {
	var results []MatchResult

	for ob.buyOrders.Len() > 0 && ob.sellOrders.Len() > 0 {
		buy := ob.buyOrders.Front()
		sell := ob.sellOrders.Front()
		if buy.Price < sell.Price {
			break
		}

		matchQty := min(buy.Qty, sell.Qty)
		buy.Qty -= matchQty
		sell.Qty -= matchQty

		results = append(results, MatchResult{
			Symbol:      ob.symbol,
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			Price:       sell.Price,
			Qty:         matchQty,
		})

		if buy.Qty == 0 {
			ob.buyOrders.PopFront()
		}
		if sell.Qty == 0 {
			ob.sellOrders.PopFront()
		}
	}

	return results
}

func (ob *orderBook) snapshot() BookSnapshot {
	return BookSnapshot{
		Symbol: ob.symbol,
		Buys:   copyQueue(&ob.buyOrders),
		Sells:  copyQueue(&ob.sellOrders),
	}
}

func copyQueue(q *deque.Deque[*Order]) []Order {
	out := make([]Order, q.Len())
	for i := range out {
		out[i] = *q.At(i)
	}
	return out
}
