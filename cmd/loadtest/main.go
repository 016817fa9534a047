package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/miniexchange/pkg/ingress"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var tickers = []string{"AAPL", "GOOG", "TSLA", "MSFT"}

// matchingOrders returns a sell and a buy that cross.
func matchingOrders(rng *rand.Rand) (ingress.PlaceOrderRequest, ingress.PlaceOrderRequest) {
	ticker := tickers[rng.Intn(len(tickers))]
	sellPrice := decimal.NewFromFloat(100 + rng.Float64()*50).Round(2)
	buyPrice := sellPrice.Add(decimal.NewFromFloat(rng.Float64() * (200 - sellPrice.InexactFloat64()))).Round(2)

	sell := ingress.PlaceOrderRequest{
		ID:        uuid.NewString(),
		OrderType: "Sell",
		Ticker:    ticker,
		Price:     sellPrice,
		Quantity:  decimal.NewFromInt(int64(rng.Intn(91) + 10)),
	}
	buy := ingress.PlaceOrderRequest{
		ID:        uuid.NewString(),
		OrderType: "Buy",
		Ticker:    ticker,
		Price:     buyPrice,
		Quantity:  decimal.NewFromInt(int64(rng.Intn(91) + 10)),
	}
	return sell, buy
}

func main() {
	var (
		url         string
		concurrency int
		iterations  int
		verbose     bool
	)
	flag.StringVar(&url, "url", "http://127.0.0.1:3030/place_order", "place order endpoint")
	flag.IntVar(&concurrency, "concurrency", 50, "requests in flight per iteration")
	flag.IntVar(&iterations, "iterations", 20, "number of iterations")
	flag.BoolVar(&verbose, "verbose", false, "log every response")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := &http.Client{Timeout: 10 * time.Second}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var ok, failed, errored atomic.Int64
	send := func(order ingress.PlaceOrderRequest) {
		body, err := json.Marshal(order)
		if err != nil {
			errored.Add(1)
			return
		}
		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			errored.Add(1)
			logger.Warn("request error", zap.Error(err))
			return
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode == http.StatusOK {
			ok.Add(1)
			if verbose {
				logger.Info("success", zap.ByteString("body", respBody))
			}
			return
		}
		failed.Add(1)
		logger.Warn("failed", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
	}

	start := time.Now()
	for it := 0; it < iterations; it++ {
		orders := make([]ingress.PlaceOrderRequest, 0, concurrency)
		for i := 0; i < concurrency/2; i++ {
			sell, buy := matchingOrders(rng)
			orders = append(orders, sell, buy)
		}

		var wg sync.WaitGroup
		for _, o := range orders {
			wg.Add(1)
			go func(o ingress.PlaceOrderRequest) {
				defer wg.Done()
				send(o)
			}(o)
		}
		wg.Wait()
	}
	elapsed := time.Since(start)

	total := ok.Load() + failed.Load() + errored.Load()
	fmt.Println("--------")
	fmt.Printf("Requests   : %d\n", total)
	fmt.Printf("Succeeded  : %d\n", ok.Load())
	fmt.Printf("Failed     : %d\n", failed.Load())
	fmt.Printf("Errors     : %d\n", errored.Load())
	fmt.Printf("Time Taken : %s\n", elapsed)
	fmt.Printf("Req/sec    : %.0f\n", float64(total)/elapsed.Seconds())
}
