package orderid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrDuplicateOrderID = errors.New("duplicate order id")
	ErrEmptyOrderID     = errors.New("empty order id")
)

// Registry hands out each order id at most once.
type Registry interface {
	// Reserve claims id. It returns ErrDuplicateOrderID if id was reserved
	// before.
	Reserve(ctx context.Context, id string) error
	// Release frees a reserved id whose order never reached a book, so the
	// client may retry with it.
	Release(ctx context.Context, id string) error
}

type InMemoryRegistry struct {
	ids sync.Map
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{}
}

func (r *InMemoryRegistry) Reserve(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyOrderID
	}
	if _, loaded := r.ids.LoadOrStore(id, struct{}{}); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateOrderID, id)
	}
	return nil
}

func (r *InMemoryRegistry) Release(_ context.Context, id string) error {
	r.ids.Delete(id)
	return nil
}

// RedisRegistry shares reserved ids between exchange processes with SETNX.
// A zero ttl keeps ids forever.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisRegistry) Reserve(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyOrderID
	}

	ok, err := r.client.SetNX(ctx, r.prefix+id, time.Now().UnixMilli(), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve order id %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOrderID, id)
	}
	return nil
}

func (r *RedisRegistry) Release(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("release order id %s: %w", id, err)
	}
	return nil
}
