package orderbook

import (
	"fmt"
	"testing"
)

func TestSimpleMatch(t *testing.T) {
	ob := newOrderBook("AAPL")

	ob.addOrder(&Order{ID: "B1", Symbol: "AAPL", Side: BUY, Price: 100.0, Qty: 10})
	results := ob.addOrder(&Order{ID: "S1", Symbol: "AAPL", Side: SELL, Price: 100.0, Qty: 10})

	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	match := results[0]
	if match.BuyOrderID != "B1" || match.SellOrderID != "S1" {
		t.Errorf("incorrect order IDs in match: %+v", match)
	}
	if match.Qty != 10 || match.Price != 100.0 || match.Symbol != "AAPL" {
		t.Errorf("incorrect qty/price/symbol: %+v", match)
	}
	if ob.buyOrders.Len() != 0 || ob.sellOrders.Len() != 0 {
		t.Errorf("expected both queues empty, got buys=%d sells=%d", ob.buyOrders.Len(), ob.sellOrders.Len())
	}
}

func TestPartialMatch(t *testing.T) {
	ob := newOrderBook("AAPL")

	ob.addOrder(&Order{ID: "B1", Side: BUY, Price: 100.0, Qty: 10})
	results := ob.addOrder(&Order{ID: "S1", Side: SELL, Price: 100.0, Qty: 4})

	if len(results) != 1 || results[0].Qty != 4 || results[0].Price != 100.0 {
		t.Fatalf("expected 1 match of 4 @ 100, got %+v", results)
	}
	if ob.buyOrders.Len() != 1 || ob.buyOrders.Front().Qty != 6 {
		t.Errorf("expected buy head with 6 remaining, got %+v", ob.snapshot().Buys)
	}
	if ob.sellOrders.Len() != 0 {
		t.Errorf("expected sell queue empty, got %d", ob.sellOrders.Len())
	}
}

func TestNoMatchDueToPrice(t *testing.T) {
	ob := newOrderBook("AAPL")

	ob.addOrder(&Order{ID: "S1", Side: SELL, Price: 105.0, Qty: 5})
	results := ob.addOrder(&Order{ID: "B1", Side: BUY, Price: 100.0, Qty: 5})

	if len(results) != 0 {
		t.Fatalf("expected no match, got %+v", results)
	}
	if ob.buyOrders.Len() != 1 || ob.sellOrders.Len() != 1 {
		t.Errorf("expected both orders resting, got buys=%d sells=%d", ob.buyOrders.Len(), ob.sellOrders.Len())
	}
}

func TestFIFOMatch(t *testing.T) {
	ob := newOrderBook("AAPL")

	ob.addOrder(&Order{ID: "B1", Side: BUY, Price: 100.0, Qty: 5})
	ob.addOrder(&Order{ID: "B2", Side: BUY, Price: 100.0, Qty: 5})
	results := ob.addOrder(&Order{ID: "S1", Side: SELL, Price: 100.0, Qty: 7})

	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	if results[0].BuyOrderID != "B1" || results[0].Qty != 5 {
		t.Errorf("expected B1 filled first for 5, got %+v", results[0])
	}
	if results[1].BuyOrderID != "B2" || results[1].Qty != 2 {
		t.Errorf("expected B2 filled second for 2, got %+v", results[1])
	}

	snap := ob.snapshot()
	if len(snap.Buys) != 1 || snap.Buys[0].ID != "B2" || snap.Buys[0].Qty != 3 {
		t.Errorf("expected B2 resting with 3, got %+v", snap.Buys)
	}
	if len(snap.Sells) != 0 {
		t.Errorf("expected sell fully filled, got %+v", snap.Sells)
	}
}

func TestExecutionAtSellPrice(t *testing.T) {
	ob := newOrderBook("AAPL")

	ob.addOrder(&Order{ID: "S1", Side: SELL, Price: 99.0, Qty: 10})
	results := ob.addOrder(&Order{ID: "B1", Side: BUY, Price: 101.0, Qty: 10})
	if len(results) != 1 || results[0].Price != 99.0 {
		t.Fatalf("expected execution at resting sell price 99, got %+v", results)
	}

	// the sell price wins even when the sell is the incoming order
	ob.addOrder(&Order{ID: "B2", Side: BUY, Price: 110.0, Qty: 10})
	results = ob.addOrder(&Order{ID: "S2", Side: SELL, Price: 95.0, Qty: 10})
	if len(results) != 1 || results[0].Price != 95.0 {
		t.Fatalf("expected execution at incoming sell price 95, got %+v", results)
	}
}

func TestHeadOnlyComparison(t *testing.T) {
	ob := newOrderBook("AAPL")

	// a better priced sell behind a non-crossing head is not reached
	ob.addOrder(&Order{ID: "S1", Side: SELL, Price: 105.0, Qty: 5})
	ob.addOrder(&Order{ID: "S2", Side: SELL, Price: 99.0, Qty: 5})
	results := ob.addOrder(&Order{ID: "B1", Side: BUY, Price: 100.0, Qty: 5})

	if len(results) != 0 {
		t.Fatalf("expected no match against the head at 105, got %+v", results)
	}
	if ob.buyOrders.Len() != 1 || ob.sellOrders.Len() != 2 {
		t.Errorf("expected 1 buy and 2 sells resting, got buys=%d sells=%d", ob.buyOrders.Len(), ob.sellOrders.Len())
	}
}

func TestMultiCounterMatch(t *testing.T) {
	ob := newOrderBook("AAPL")

	sells := []*Order{
		{ID: "S1", Side: SELL, Price: 101.0, Qty: 5},
		{ID: "S2", Side: SELL, Price: 102.0, Qty: 5},
		{ID: "S3", Side: SELL, Price: 103.0, Qty: 5},
	}
	for _, o := range sells {
		ob.addOrder(o)
	}

	results := ob.addOrder(&Order{ID: "B1", Side: BUY, Price: 105.0, Qty: 15})
	if len(results) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(results))
	}
	for i, want := range []float64{101.0, 102.0, 103.0} {
		if results[i].Price != want || results[i].Qty != 5 {
			t.Errorf("match %d: expected 5 @ %v, got %+v", i, want, results[i])
		}
	}
	if ob.buyOrders.Len() != 0 || ob.sellOrders.Len() != 0 {
		t.Errorf("expected empty book, got buys=%d sells=%d", ob.buyOrders.Len(), ob.sellOrders.Len())
	}
}

func TestHighVolumeOrders(t *testing.T) {
	ob := newOrderBook("AAPL")
	trades := 0

	num := 10_000
	for i := 0; i < num; i++ {
		side := BUY
		if i%2 == 0 {
			side = SELL
		}
		trades += len(ob.addOrder(&Order{
			ID:    fmt.Sprintf("ORD-%d", i),
			Side:  side,
			Price: 100.0,
			Qty:   10,
		}))
	}

	if trades != num/2 {
		t.Errorf("expected %d matching, got %d", num/2, trades)
	}
}

func BenchmarkOrderBookMatch(b *testing.B) {
	ob := newOrderBook("AAPL")

	for i := 0; i < 10_000; i++ {
		ob.addOrder(&Order{
			ID:    fmt.Sprintf("SELL-%d", i),
			Side:  SELL,
			Price: 100.0,
			Qty:   10,
		})
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ob.addOrder(&Order{
			ID:    fmt.Sprintf("BUY-%d", i),
			Side:  BUY,
			Price: 101.0,
			Qty:   10,
		})
		if ob.sellOrders.Len() == 0 {
			ob.addOrder(&Order{ID: fmt.Sprintf("SELL-R-%d", i), Side: SELL, Price: 100.0, Qty: 10 * 10_000})
		}
	}
}
