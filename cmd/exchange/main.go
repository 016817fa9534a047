package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/miniexchange/config"
	redis_wrapper "github.com/joripage/miniexchange/pkg/infra/redis"
	"github.com/joripage/miniexchange/pkg/ingress"
	kafkawrapper "github.com/joripage/miniexchange/pkg/kafka_wrapper"
	"github.com/joripage/miniexchange/pkg/logging"
	"github.com/joripage/miniexchange/pkg/orderbook"
	"github.com/joripage/miniexchange/pkg/orderid"
	"github.com/joripage/miniexchange/pkg/riskrule"
	"github.com/joripage/miniexchange/pkg/tradesink"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	logger = logger.With(zap.String("service", cfg.ServiceName))

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, closeRegistry, err := newRegistry(cfg.OrderID, cfg.Redis)
	if err != nil {
		logger.Fatal("init order id registry", zap.Error(err))
	}
	defer closeRegistry()

	manager := orderbook.NewOrderBookManager(&orderbook.OrderBookManagerConfig{
		Logger: logger,
	})

	sinks := []tradesink.Sink{tradesink.NewLogSink(logger)}
	if cfg.Kafka.Enabled {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RequiredAcks: kafka.RequireOne,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Error("kafka_write_failed", zap.Int("messages", len(messages)), zap.Error(err))
				}
			},
		})
		defer producer.Close()
		sinks = append(sinks, tradesink.NewKafkaSink(producer, cfg.Kafka.TradeTopic, logger))
		logger.Info("kafka trade sink enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.TradeTopic))
	}
	tradesink.Register(manager, sinks...)

	srv := ingress.NewServer(&ingress.Config{
		Manager:        manager,
		Registry:       registry,
		Risk:           riskrule.NewChain(cfg.Risk),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutMs) * time.Millisecond,
	}

	go logStats(ctx, logger, manager, time.Duration(cfg.StatsIntervalMs)*time.Millisecond)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}

	logger.Info("exited", zap.Any("stats", manager.Stats()))
}

func newRegistry(cfg *config.OrderIDConfig, redisCfg *redis_wrapper.RedisConfig) (orderid.Registry, func(), error) {
	switch cfg.Backend {
	case config.OrderIDBackendMemory:
		return orderid.NewInMemoryRegistry(), func() {}, nil
	case config.OrderIDBackendRedis:
		if redisCfg == nil {
			return nil, nil, errors.New("order_id backend redis requires a redis section")
		}
		client, err := redis_wrapper.InitRedisWithBackoff(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		ttl := time.Duration(cfg.TTLSeconds) * time.Second
		return orderid.NewRedisRegistry(client, cfg.KeyPrefix, ttl), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown order_id backend %q", cfg.Backend)
	}
}

func logStats(ctx context.Context, logger *zap.Logger, manager *orderbook.OrderBookManager, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := manager.Stats()
			logger.Info("stats",
				zap.Int("books", st.Books),
				zap.Int64("orders_placed", st.OrdersPlaced),
				zap.Int64("rejected", st.Rejected),
				zap.Int64("trades", st.Trades),
				zap.Int64("traded_qty", st.TradedQty))
		}
	}
}
