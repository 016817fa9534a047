package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/joripage/miniexchange/pkg/orderbook"
	"github.com/joripage/miniexchange/pkg/tradesink"
)

const (
	minPrice = 100.0
	maxPrice = 200.0
	minQty   = 10
	maxQty   = 100
)

var symbols = []string{"AAPL", "GOOG", "TSLA", "MSFT"}

// matchingPair returns a sell and a buy priced at or above it, like the
// HTTP load test does.
func matchingPair(rng *rand.Rand, id int) (orderbook.Order, orderbook.Order) {
	symbol := symbols[rng.Intn(len(symbols))]
	sellPrice := roundCents(minPrice + rng.Float64()*50)
	buyPrice := roundCents(sellPrice + rng.Float64()*(maxPrice-sellPrice))

	sell := orderbook.Order{
		ID:     fmt.Sprintf("S-%08d", id),
		Symbol: symbol,
		Side:   orderbook.SELL,
		Price:  sellPrice,
		Qty:    int64(rng.Intn(maxQty-minQty+1) + minQty),
	}
	buy := orderbook.Order{
		ID:     fmt.Sprintf("B-%08d", id),
		Symbol: symbol,
		Side:   orderbook.BUY,
		Price:  buyPrice,
		Qty:    int64(rng.Intn(maxQty-minQty+1) + minQty),
	}
	return sell, buy
}

func roundCents(p float64) float64 {
	return float64(int(p*100)) / 100
}

func main() {
	var (
		pairs   int
		workers int
	)
	flag.IntVar(&pairs, "pairs", 500_000, "number of sell/buy pairs to place")
	flag.IntVar(&workers, "workers", 8, "number of concurrent submitters")
	flag.Parse()

	obm := orderbook.NewOrderBookManager(nil)
	rec := tradesink.NewRecorder()
	tradesink.Register(obm, rec)

	ctx := context.Background()
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for id := range jobs {
				sell, buy := matchingPair(rng, id)
				if _, _, err := obm.PlaceOrder(ctx, sell); err != nil {
					log.Printf("place %s: %v", sell.ID, err)
				}
				if _, _, err := obm.PlaceOrder(ctx, buy); err != nil {
					log.Printf("place %s: %v", buy.ID, err)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}

	for i := 0; i < pairs; i++ {
		jobs <- i + 1
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	st := obm.Stats()

	for i, t := range rec.Trades() {
		if i >= 5 {
			break
		}
		log.Printf("Match: %s BUY[%s] <=> SELL[%s] @ %.2f Qty %d",
			t.Symbol, t.BuyOrderID, t.SellOrderID, t.Price, t.Qty)
	}

	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", st.OrdersPlaced)
	fmt.Printf("Total Matches    : %d\n", st.Trades)
	fmt.Printf("Total Matched Qty: %d\n", st.TradedQty)
	fmt.Printf("Books            : %d\n", st.Books)
	fmt.Printf("Workers          : %d\n", workers)
	fmt.Printf("Time Taken       : %s\n", elapsed)
	fmt.Printf("Orders/sec       : %.0f\n", float64(st.OrdersPlaced)/elapsed.Seconds())
}
