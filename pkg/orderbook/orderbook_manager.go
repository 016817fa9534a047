package orderbook

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type OrderBookManagerConfig struct {
	Logger *zap.Logger
}

// OrderBookManager routes orders to one book per symbol. Books are created on
// first use and each is locked independently, so orders on different symbols
// never wait for each other.
type OrderBookManager struct {
	books sync.Map // symbol -> *orderBook

	cbMu      sync.RWMutex
	callbacks []func([]MatchResult)

	ordersPlaced  atomic.Int64
	tradesCount   atomic.Int64
	tradedQty     atomic.Int64
	rejectedCount atomic.Int64

	callbackPanics atomic.Int64

	logger *zap.Logger
}

// Stats are cumulative counters since the manager was created.
type Stats struct {
	Books        int   `json:"books"`
	OrdersPlaced int64 `json:"orders_placed"`
	Rejected     int64 `json:"rejected"`
	Trades       int64 `json:"trades"`
	TradedQty    int64 `json:"traded_qty"`

	// CallbackPanics counts trade callbacks that panicked; their trades were
	// still applied to the book.
	CallbackPanics int64 `json:"callback_panics"`
}

func NewOrderBookManager(cfg *OrderBookManagerConfig) *OrderBookManager {
	logger := zap.NewNop()
	if cfg != nil && cfg.Logger != nil {
		logger = cfg.Logger
	}

	return &OrderBookManager{
		logger: logger.Named("orderbook"),
	}
}

// PlaceOrder validates order, adds it to the book of its symbol and matches.
// It returns the order with its remaining quantity and the trades produced, in
// execution order. Trade callbacks run before PlaceOrder returns, under the
// book lock.
func (s *OrderBookManager) PlaceOrder(ctx context.Context, order Order) (Order, []MatchResult, error) {
	if err := order.Validate(); err != nil {
		s.rejectedCount.Add(1)
		return order, nil, err
	}
	if err := ctx.Err(); err != nil {
		return order, nil, err
	}

	book := s.getOrCreateBook(order.Symbol)

	placed, results, err := s.addToBook(book, order)
	if err != nil {
		s.rejectedCount.Add(1)
		return order, nil, err
	}

	s.ordersPlaced.Add(1)
	for _, r := range results {
		s.tradesCount.Add(1)
		s.tradedQty.Add(r.Qty)
	}

	return placed, results, nil
}

// addToBook returns a copy of the order taken under the book lock; the book
// keeps its own pointer, which later orders may fill.
func (s *OrderBookManager) addToBook(book *orderBook, o Order) (Order, []MatchResult, error) {
	book.mu.Lock()
	defer book.mu.Unlock()

	if book.poisoned {
		return o, nil, fmt.Errorf("%w: symbol %s", ErrBookUnavailable, book.symbol)
	}

	order := &o
	results, err := s.match(book, order)
	if err != nil {
		return o, nil, err
	}

	s.logger.Debug("order_added",
		zap.String("symbol", book.symbol),
		zap.String("order_id", order.ID),
		zap.String("side", string(order.Side)),
		zap.Float64("price", order.Price),
		zap.Int64("remaining_qty", order.Qty),
		zap.Int("trades", len(results)))

	if len(results) > 0 {
		s.dispatch(results)
	}
	return *order, results, nil
}

// match runs addOrder and poisons the book if it panics, since the queues may
// then be half updated.
func (s *OrderBookManager) match(book *orderBook, order *Order) (results []MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			book.poisoned = true
			s.logger.Error("book_poisoned",
				zap.String("symbol", book.symbol),
				zap.String("order_id", order.ID),
				zap.Any("panic", r))
			results = nil
			err = fmt.Errorf("%w: symbol %s: %v", ErrBookUnavailable, book.symbol, r)
		}
	}()

	return book.addOrder(order), nil
}

func (s *OrderBookManager) RegisterTradeCallback(cb func([]MatchResult)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.callbacks = append(s.callbacks, cb)
}

// dispatch hands results to every callback. The book is already consistent
// here, so a panicking callback is logged and skipped; later callbacks still run.
func (s *OrderBookManager) dispatch(results []MatchResult) {
	s.cbMu.RLock()
	callbacks := s.callbacks
	s.cbMu.RUnlock()

	for i, cb := range callbacks {
		s.runCallback(i, cb, results)
	}
}

func (s *OrderBookManager) runCallback(i int, cb func([]MatchResult), results []MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.callbackPanics.Add(1)
			s.logger.Error("trade_callback_panic",
				zap.Int("callback", i),
				zap.String("symbol", results[0].Symbol),
				zap.Int("trades", len(results)),
				zap.Any("panic", r))
		}
	}()

	cb(results)
}

// Snapshot copies the resting orders of symbol. ok is false if no order was
// ever placed on symbol or if the book is poisoned.
func (s *OrderBookManager) Snapshot(symbol string) (snap BookSnapshot, ok bool) {
	val, ok := s.books.Load(symbol)
	if !ok {
		return BookSnapshot{}, false
	}

	book := val.(*orderBook)
	book.mu.Lock()
	defer book.mu.Unlock()

	if book.poisoned {
		return BookSnapshot{}, false
	}
	return book.snapshot(), true
}

// Symbols lists every symbol that has a book, sorted.
func (s *OrderBookManager) Symbols() []string {
	var symbols []string
	s.books.Range(func(k, _ any) bool {
		symbols = append(symbols, k.(string))
		return true
	})
	sort.Strings(symbols)
	return symbols
}

func (s *OrderBookManager) Stats() Stats {
	books := 0
	s.books.Range(func(_, _ any) bool {
		books++
		return true
	})

	return Stats{
		Books:        books,
		OrdersPlaced: s.ordersPlaced.Load(),
		Rejected:     s.rejectedCount.Load(),
		Trades:       s.tradesCount.Load(),
		TradedQty:    s.tradedQty.Load(),

		CallbackPanics: s.callbackPanics.Load(),
	}
}

func (s *OrderBookManager) getOrCreateBook(symbol string) *orderBook {
	if val, ok := s.books.Load(symbol); ok {
		return val.(*orderBook)
	}

	actual, loaded := s.books.LoadOrStore(symbol, newOrderBook(symbol))
	if !loaded {
		s.logger.Info("book_created", zap.String("symbol", symbol))
	}
	return actual.(*orderBook)
}
