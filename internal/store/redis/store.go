// Package redis provides the hot candle store: one Redis Stream per pair,
// MAXLEN-trimmed to roughly two days of 1-minute candles, plus a "latest"
// key and a pubsub channel for live subscribers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"signal-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// ~2 days of 1m candles + buffer.
	streamMaxLen     = 3000
	defaultLatestTTL = 30 * time.Minute
)

// Config configures the Redis store.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Store reads and writes 1-minute candles in Redis.
type Store struct {
	client *goredis.Client

	// OnWrite is called with the duration of each successful append
	// (optional, metrics hook).
	OnWrite func(d time.Duration)
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New creates a Store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client}, nil
}

func streamKey(pair string) string { return "candle:1m:" + pair }
func latestKey(pair string) string { return "candle:1m:latest:" + pair }
func pubsubKey(pair string) string { return "pub:candle:1m:" + pair }

// Append writes one candle: XADD to the pair stream with auto-trimming,
// SET latest with TTL, PUBLISH for live subscribers — one pipeline.
func (s *Store) Append(ctx context.Context, c model.Candle) error {
	jsonData := string(c.JSON())

	pipe := s.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey(c.Pair),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, latestKey(c.Pair), jsonData, defaultLatestTTL)
	pipe.Publish(ctx, pubsubKey(c.Pair), jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %s: %w", c.Pair, err)
	}
	return nil
}

// RecentN returns up to n candles for pair, newest first.
func (s *Store) RecentN(ctx context.Context, pair string, n int) ([]model.Candle, error) {
	msgs, err := s.client.XRevRangeN(ctx, streamKey(pair), "+", "-", int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange %s: %w", pair, err)
	}

	candles := make([]model.Candle, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var c model.Candle
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			log.Printf("[redis] skipping malformed candle entry %s in %s: %v", msg.ID, pair, err)
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// Run consumes candles from candleCh and appends them until ctx is
// cancelled or the channel is closed. Write failures are logged, not fatal.
func (s *Store) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-candleCh:
			if !ok {
				return
			}
			start := time.Now()
			if err := s.Append(ctx, c); err != nil {
				log.Printf("[redis] write error: %v", err)
			} else if s.OnWrite != nil {
				s.OnWrite(time.Since(start))
			}
		}
	}
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
