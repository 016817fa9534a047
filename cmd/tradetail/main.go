package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joripage/miniexchange/config"
	kafkawrapper "github.com/joripage/miniexchange/pkg/kafka_wrapper"
	"github.com/joripage/miniexchange/pkg/logging"
	"github.com/joripage/miniexchange/pkg/orderbook"
	"go.uber.org/zap"
)

// tradetail follows the trades topic written by the exchange and logs every
// trade.
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

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("kafka.brokers is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafkawrapper.NewConsumer(kafkawrapper.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.GroupID,
		Topic:      cfg.Kafka.TradeTopic,
		MaxRetries: 3,
	})
	defer consumer.Close()

	logger.Info("tailing trades",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.TradeTopic),
		zap.String("group_id", cfg.Kafka.GroupID))

	err = consumer.Run(ctx, func(_ context.Context, msg kafkawrapper.Message) error {
		var t orderbook.MatchResult
		if err := json.Unmarshal(msg.Value, &t); err != nil {
			// a bad payload will not get better on retry
			logger.Warn("skip undecodable trade", zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}
		logger.Info("trade",
			zap.String("symbol", t.Symbol),
			zap.Float64("price", t.Price),
			zap.Int64("qty", t.Qty),
			zap.String("buy_order_id", t.BuyOrderID),
			zap.String("sell_order_id", t.SellOrderID),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))
		return nil
	})
	if err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
