package kafkawrapper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
)

func TestRetryBackOff(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	c := &Consumer{cfg: ConsumerConfig{MaxRetries: 5, BackoffMin: min, BackoffMax: max}}

	b := c.retryBackOff()
	for i := 0; i < 5; i++ {
		d := b.NextBackOff()
		if d == backoff.Stop {
			t.Fatalf("retry %d: stopped before MaxRetries", i+1)
		}
		// jitter spreads each wait by at most half of the current interval
		if d < min/2 || d > max*3/2 {
			t.Errorf("retry %d: wait %v outside [%v, %v]", i+1, d, min/2, max*3/2)
		}
	}
	if d := b.NextBackOff(); d != backoff.Stop {
		t.Errorf("expected Stop after MaxRetries, got %v", d)
	}

	none := (&Consumer{cfg: ConsumerConfig{BackoffMin: min, BackoffMax: max}}).retryBackOff()
	if d := none.NextBackOff(); d != backoff.Stop {
		t.Errorf("expected no retries with MaxRetries 0, got %v", d)
	}
}

func TestWrapMessageHeaders(t *testing.T) {
	m := kafka.Message{
		Topic:   "trades",
		Key:     []byte("AAPL"),
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	}
	got := wrapMessage(m)
	if got.Topic != "trades" || string(got.Key) != "AAPL" {
		t.Errorf("unexpected message %+v", got)
	}
	if got.Headers["content-type"] != "application/json" {
		t.Errorf("expected header carried over, got %v", got.Headers)
	}
}

func TestNilProducer(t *testing.T) {
	var p *Producer
	err := p.Publish(context.Background(), "trades", nil, nil, nil)
	if !errors.Is(err, errProducerNotInitialized) {
		t.Fatalf("expected errProducerNotInitialized, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}

func TestNewProducerDefaults(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})
	defer p.Close()

	if p.w.BatchSize != 100 || p.w.BatchTimeout != 50*time.Millisecond || !p.w.Async {
		t.Errorf("unexpected writer defaults: size=%d timeout=%v async=%v", p.w.BatchSize, p.w.BatchTimeout, p.w.Async)
	}

	sync := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Sync: true, RequiredAcks: kafka.RequireAll})
	defer sync.Close()
	if sync.w.Async || sync.w.RequiredAcks != kafka.RequireAll {
		t.Errorf("expected sync writer with RequireAll, got async=%v acks=%v", sync.w.Async, sync.w.RequiredAcks)
	}
	if _, ok := p.w.Balancer.(*kafka.Hash); !ok {
		t.Errorf("expected hash balancer so one symbol stays on one partition")
	}
}

func TestNilConsumer(t *testing.T) {
	var c *Consumer
	if err := c.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error from nil consumer")
	}
}
