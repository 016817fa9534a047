package tradesink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/joripage/miniexchange/pkg/orderbook"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishJSON(_ context.Context, topic string, key string, v any, _ map[string]string) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, key: key, value: b})
	return nil
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	sink.OnTrades([]orderbook.MatchResult{
		{Symbol: "AAPL", BuyOrderID: "B1", SellOrderID: "S1", Price: 150, Qty: 10},
		{Symbol: "AAPL", BuyOrderID: "B1", SellOrderID: "S2", Price: 151, Qty: 5},
	})

	entries := logs.FilterMessage("trade_executed").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 trade logs, got %d", len(entries))
	}
	fields := entries[1].ContextMap()
	if fields["sell_order_id"] != "S2" || fields["qty"] != int64(5) {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestKafkaSinkPublishesBySymbol(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewKafkaSink(pub, "trades", nil)

	sink.OnTrades([]orderbook.MatchResult{
		{Symbol: "AAPL", BuyOrderID: "B1", SellOrderID: "S1", Price: 150, Qty: 10},
		{Symbol: "MSFT", BuyOrderID: "B2", SellOrderID: "S2", Price: 300, Qty: 1},
	})

	if len(pub.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.msgs))
	}
	if pub.msgs[0].topic != "trades" || pub.msgs[0].key != "AAPL" || pub.msgs[1].key != "MSFT" {
		t.Errorf("unexpected messages %+v", pub.msgs)
	}

	var got orderbook.MatchResult
	if err := json.Unmarshal(pub.msgs[0].value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BuyOrderID != "B1" || got.Qty != 10 || got.Price != 150 {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestKafkaSinkLogsPublishError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	pub := &fakePublisher{err: errors.New("broker down")}
	sink := NewKafkaSink(pub, "trades", zap.New(core))

	sink.OnTrades([]orderbook.MatchResult{{Symbol: "AAPL", BuyOrderID: "B1", SellOrderID: "S1", Price: 1, Qty: 1}})

	if logs.FilterMessage("publish_trade_failed").Len() != 1 {
		t.Fatalf("expected publish failure to be logged")
	}
}

func TestRecorderWithManager(t *testing.T) {
	mgr := orderbook.NewOrderBookManager(nil)
	rec := NewRecorder()
	Register(mgr, rec)

	ctx := context.Background()
	orders := []orderbook.Order{
		{ID: "S1", Symbol: "AAPL", Side: orderbook.SELL, Price: 100, Qty: 5},
		{ID: "S2", Symbol: "MSFT", Side: orderbook.SELL, Price: 200, Qty: 5},
		{ID: "B1", Symbol: "AAPL", Side: orderbook.BUY, Price: 100, Qty: 5},
		{ID: "B2", Symbol: "MSFT", Side: orderbook.BUY, Price: 210, Qty: 3},
	}
	for _, o := range orders {
		if _, _, err := mgr.PlaceOrder(ctx, o); err != nil {
			t.Fatalf("place %s: %v", o.ID, err)
		}
	}

	if rec.Len() != 2 {
		t.Fatalf("expected 2 trades, got %d", rec.Len())
	}
	msft := rec.BySymbol("MSFT")
	if len(msft) != 1 || msft[0].Price != 200 || msft[0].Qty != 3 {
		t.Errorf("unexpected MSFT trades %+v", msft)
	}

	trades := rec.Trades()
	trades[0].Qty = 999
	if rec.Trades()[0].Qty == 999 {
		t.Errorf("Trades must return a copy")
	}
}
