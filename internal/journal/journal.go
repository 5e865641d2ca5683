// Package journal keeps a bounded ring of recent event frames in Redis so
// dashboards that connect mid-run can catch up before live pushes resume.
package journal

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"crowdboard/internal/metrics"
)

const journalKey = "crowdboard:journal"

// Client wraps a go-redis client with the hooks every journal operation
// should pass through.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client from a URL (e.g. "redis://localhost:6379")
// with metrics and circuit breaker hooks installed.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(&MetricsHook{})
	rdb.AddHook(NewCircuitBreakerHook())
	return &Client{rdb: rdb}, nil
}

// Ping verifies the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Journal is a fixed-size ring of serialized event frames. Appends beyond
// size push the oldest frames out.
type Journal struct {
	client *Client
	size   int
}

func New(client *Client, size int) *Journal {
	return &Journal{client: client, size: size}
}

// Append adds frame to the ring and trims it to size. Both steps run in
// one transaction so the ring never grows past its bound.
func (j *Journal) Append(ctx context.Context, frame []byte) error {
	pipe := j.client.rdb.TxPipeline()
	pipe.LPush(ctx, journalKey, frame)
	pipe.LTrim(ctx, journalKey, 0, int64(j.size-1))

	if _, err := pipe.Exec(ctx); err != nil {
		metrics.JournalAppendsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to append to journal: %w", err)
	}

	metrics.JournalAppendsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Recent returns up to size frames, oldest first, ready for replay.
func (j *Journal) Recent(ctx context.Context) ([][]byte, error) {
	values, err := j.client.rdb.LRange(ctx, journalKey, 0, int64(j.size-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	// LPush stores newest first; replay wants insertion order.
	frames := make([][]byte, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		frames = append(frames, []byte(values[i]))
	}
	return frames, nil
}
