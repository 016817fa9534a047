// Package tradesink holds consumers for the trades emitted by the order book
// manager. Each sink exposes OnTrades so it can be passed to
// OrderBookManager.RegisterTradeCallback.
package tradesink

import (
	"context"
	"sync"

	"github.com/joripage/miniexchange/pkg/orderbook"
	"go.uber.org/zap"
)

type Sink interface {
	OnTrades(trades []orderbook.MatchResult)
}

// Register attaches every sink to mgr in the given order.
func Register(mgr *orderbook.OrderBookManager, sinks ...Sink) {
	for _, s := range sinks {
		mgr.RegisterTradeCallback(s.OnTrades)
	}
}

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("trades")}
}

func (s *LogSink) OnTrades(trades []orderbook.MatchResult) {
	for _, t := range trades {
		s.logger.Info("trade_executed",
			zap.String("symbol", t.Symbol),
			zap.Float64("price", t.Price),
			zap.Int64("qty", t.Qty),
			zap.String("buy_order_id", t.BuyOrderID),
			zap.String("sell_order_id", t.SellOrderID))
	}
}

type publisher interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// KafkaSink publishes every trade as JSON keyed by symbol, so trades of one
// symbol land on one partition in execution order.
type KafkaSink struct {
	producer publisher
	topic    string
	logger   *zap.Logger
}

func NewKafkaSink(producer publisher, topic string, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("kafka_sink"),
	}
}

var tradeHeaders = map[string]string{"content-type": "application/json"}

func (s *KafkaSink) OnTrades(trades []orderbook.MatchResult) {
	for _, t := range trades {
		if err := s.producer.PublishJSON(context.Background(), s.topic, t.Symbol, t, tradeHeaders); err != nil {
			s.logger.Error("publish_trade_failed",
				zap.String("symbol", t.Symbol),
				zap.String("buy_order_id", t.BuyOrderID),
				zap.String("sell_order_id", t.SellOrderID),
				zap.Error(err))
		}
	}
}

// Recorder keeps every trade in memory.
type Recorder struct {
	mu     sync.Mutex
	trades []orderbook.MatchResult
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnTrades(trades []orderbook.MatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trades = append(r.trades, trades...)
}

// Trades returns a copy of the recorded trades in arrival order.
func (r *Recorder) Trades() []orderbook.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]orderbook.MatchResult, len(r.trades))
	copy(out, r.trades)
	return out
}

// BySymbol returns the recorded trades of symbol in arrival order.
func (r *Recorder) BySymbol(symbol string) []orderbook.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []orderbook.MatchResult
	for _, t := range r.trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.trades)
}
