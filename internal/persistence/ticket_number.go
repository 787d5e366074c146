package persistence

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

const ticketSeqKey = "support-desk:ticket-number:seq"

// RedisTicketNumberAllocator hands out sequential human-facing ticket numbers backed by
// a Redis counter, so numbers stay monotonic across instances.
type RedisTicketNumberAllocator struct {
	client *redis.Client
	prefix string
}

// NewRedisTicketNumberAllocator builds the allocator. Prefix defaults to "TKT".
func NewRedisTicketNumberAllocator(client *redis.Client, prefix string) *RedisTicketNumberAllocator {
	if prefix == "" {
		prefix = "TKT"
	}
	return &RedisTicketNumberAllocator{client: client, prefix: prefix}
}

// Next returns the next ticket number, e.g. TKT-000042.
func (a *RedisTicketNumberAllocator) Next(ctx context.Context) (string, error) {
	seq, err := a.client.Incr(ctx, ticketSeqKey).Result()
	if err != nil {
		return "", fmt.Errorf("allocate ticket number: %w", err)
	}
	return fmt.Sprintf("%s-%06d", a.prefix, seq), nil
}

// LocalTicketNumberAllocator is the single-process fallback used when Redis is not
// configured. Numbers restart at 1 on process restart, so it is for development only.
type LocalTicketNumberAllocator struct {
	prefix string
	seq    atomic.Int64
}

// NewLocalTicketNumberAllocator builds the in-process allocator.
func NewLocalTicketNumberAllocator(prefix string) *LocalTicketNumberAllocator {
	if prefix == "" {
		prefix = "TKT"
	}
	return &LocalTicketNumberAllocator{prefix: prefix}
}

// Next returns the next ticket number.
func (a *LocalTicketNumberAllocator) Next(_ context.Context) (string, error) {
	return fmt.Sprintf("%s-%06d", a.prefix, a.seq.Add(1)), nil
}
