package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joripage/miniexchange/pkg/logging"
	"github.com/joripage/miniexchange/pkg/orderbook"
	"github.com/joripage/miniexchange/pkg/orderid"
	"github.com/joripage/miniexchange/pkg/riskrule"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	orderTypeBuy  = "Buy"
	orderTypeSell = "Sell"

	maxBodyBytes = 1 << 16
)

var errBadRequest = errors.New("bad request")

// Exchange is the part of orderbook.OrderBookManager the server needs.
type Exchange interface {
	PlaceOrder(ctx context.Context, order orderbook.Order) (orderbook.Order, []orderbook.MatchResult, error)
	Snapshot(symbol string) (orderbook.BookSnapshot, bool)
	Symbols() []string
	Stats() orderbook.Stats
}

type Config struct {
	Manager        Exchange
	Registry       orderid.Registry  // in-memory when nil
	Risk           riskrule.RiskRule // optional
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server exposes the order book manager over HTTP/JSON.
type Server struct {
	manager  Exchange
	registry orderid.Registry
	risk     riskrule.RiskRule
	router   *mux.Router
	handler  http.Handler
	logger   *zap.Logger
}

func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = orderid.NewInMemoryRegistry()
	}

	s := &Server{
		manager:  cfg.Manager,
		registry: registry,
		risk:     cfg.Risk,
		router:   mux.NewRouter(),
		logger:   logger.Named("ingress"),
	}
	s.setupRoutes()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", logging.RequestIDHeader},
		ExposedHeaders: []string{logging.RequestIDHeader},
	})
	s.handler = c.Handler(logging.Middleware(s.logger)(s.router))

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/place_order", s.handlePlaceOrder).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/books", s.handleListBooks).Methods(http.MethodGet)
	api.HandleFunc("/books/{symbol}", s.handleGetBook).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req PlaceOrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON order", err.Error())
		return
	}

	order, err := toOrder(req)
	if err != nil {
		s.fail(ctx, w, order, err)
		return
	}
	if err := order.Validate(); err != nil {
		s.fail(ctx, w, order, err)
		return
	}
	if s.risk != nil {
		if err := s.risk.Check(order); err != nil {
			s.fail(ctx, w, order, err)
			return
		}
	}
	if err := ctx.Err(); err != nil {
		s.fail(ctx, w, order, err)
		return
	}
	if err := s.registry.Reserve(ctx, order.ID); err != nil {
		s.fail(ctx, w, order, err)
		return
	}

	placed, trades, err := s.manager.PlaceOrder(ctx, order)
	if err != nil {
		if statusFor(err) == http.StatusServiceUnavailable {
			// the order never reached a book; keep its id usable for the retry
			s.release(ctx, order.ID)
		}
		s.fail(ctx, w, order, err)
		return
	}

	logger.Info("order_processed",
		zap.String("order_id", placed.ID),
		zap.String("symbol", placed.Symbol),
		zap.String("side", string(placed.Side)),
		zap.Int64("remaining_qty", placed.Qty),
		zap.Int("trades", len(trades)))

	respondJSON(w, http.StatusOK, toOrderResponse(order.Qty, placed, trades))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	snap, ok := s.manager.Snapshot(symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "orderbook not found", symbol)
		return
	}

	respondJSON(w, http.StatusOK, BookResponse{
		Ticker: snap.Symbol,
		Buys:   toResting(snap.Buys),
		Sells:  toResting(snap.Sells),
	})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	symbols := s.manager.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	respondJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) release(ctx context.Context, id string) {
	if err := s.registry.Release(context.WithoutCancel(ctx), id); err != nil {
		logging.FromContext(ctx).Error("release_order_id_failed",
			zap.String("order_id", id),
			zap.Error(err))
	}
}

// fail maps err to a status code and writes the error body.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, order orderbook.Order, err error) {
	status := statusFor(err)
	logger := logging.FromContext(ctx)

	fields := []zap.Field{
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("order_failed", fields...)
	} else {
		logger.Info("order_rejected", fields...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	respondError(w, status, http.StatusText(status), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, orderbook.ErrInvalidOrder), errors.Is(err, orderid.ErrEmptyOrderID):
		return http.StatusBadRequest
	case errors.Is(err, orderid.ErrDuplicateOrderID):
		return http.StatusConflict
	case errors.Is(err, riskrule.ErrRiskViolation):
		return http.StatusUnprocessableEntity
	case orderbook.IsRetryable(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	minQty = decimal.NewFromInt(1)
	maxQty = decimal.NewFromInt(math.MaxInt64)
)

func toOrder(req PlaceOrderRequest) (orderbook.Order, error) {
	order := orderbook.Order{
		ID:     req.ID,
		Symbol: req.Ticker,
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	switch {
	case strings.EqualFold(req.OrderType, orderTypeBuy):
		order.Side = orderbook.BUY
	case strings.EqualFold(req.OrderType, orderTypeSell):
		order.Side = orderbook.SELL
	default:
		return order, fmt.Errorf("%w: unknown order_type %q", errBadRequest, req.OrderType)
	}

	if !req.Quantity.IsInteger() {
		return order, fmt.Errorf("%w: quantity %s is not a whole number", errBadRequest, req.Quantity)
	}
	// IntPart wraps outside int64, so bound both ends first.
	if req.Quantity.LessThan(minQty) || req.Quantity.GreaterThan(maxQty) {
		return order, fmt.Errorf("%w: quantity %s outside [1, %d]", errBadRequest, req.Quantity, int64(math.MaxInt64))
	}
	order.Qty = req.Quantity.IntPart()
	order.Price = req.Price.InexactFloat64()

	return order, nil
}

func toOrderResponse(requestedQty int64, placed orderbook.Order, trades []orderbook.MatchResult) OrderResponse {
	resp := OrderResponse{
		ID:             placed.ID,
		OrderType:      orderTypeBuy,
		Ticker:         placed.Symbol,
		Price:          placed.Price,
		Quantity:       placed.Qty,
		FilledQuantity: requestedQty - placed.Qty,
		Trades:         make([]TradeResponse, 0, len(trades)),
	}
	if placed.Side == orderbook.SELL {
		resp.OrderType = orderTypeSell
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, TradeResponse{
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       t.Price,
			Quantity:    t.Qty,
		})
	}
	return resp
}

func toResting(orders []orderbook.Order) []RestingOrder {
	out := make([]RestingOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, RestingOrder{ID: o.ID, Price: o.Price, Quantity: o.Qty})
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
