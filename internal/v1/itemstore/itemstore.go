// Package itemstore adapts the external persistent key/value store of
// globally-submitted item texts with emoji into the Random-Item Provider
// contract (C9, §4.9): sample(n) never blocks the Actor and degrades to
// an empty set on failure.
package itemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/logging"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/metrics"
)

// setKey is the Redis set holding every globally-submitted item's JSON
// encoding, used for SRANDMEMBER sampling.
const setKey = "rank-everything:items"

// Suggestion is one {text, emoji} row from the external item store
// (C9, §4.9).
type Suggestion struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

// entry is the JSON shape stored per set member; identical to Suggestion,
// kept distinct so the wire/storage shape can diverge independently.
type entry struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

// Store wraps a Redis client with a circuit breaker, exactly as the
// teacher wraps its Redis bus connection, repurposed here from cross-pod
// pub/sub to a simple sampled-set adapter.
type Store struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// New dials Redis and verifies connectivity, same retry-free immediate
// ping as the teacher's NewService.
func New(addr, password string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("itemstore: connect to redis: %w", err)
	}

	st := gobreaker.Settings{
		Name:        "itemstore",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState("itemstore", to)
		},
	}

	logging.Info(ctx, "connected to item store", zap.String("addr", addr))
	return &Store{client: rdb, cb: gobreaker.NewCircuitBreaker(st)}, nil
}

// Sample reads up to n random rows from the store (C9, §4.9). Any
// failure, including a tripped breaker, degrades to an empty slice: the
// Room Actor is never blocked or errored by this adapter.
func (s *Store) Sample(ctx context.Context, n int) []Suggestion {
	if s == nil || s.client == nil || n <= 0 {
		return nil
	}

	start := time.Now()
	raw, err := s.cb.Execute(func() (any, error) {
		return s.client.SRandMemberN(ctx, setKey, int64(n)).Result()
	})
	metrics.ObserveItemStoreOp("sample", time.Since(start), err == nil)

	if err != nil {
		if err == gobreaker.ErrOpenState {
			logging.Warn(ctx, "itemstore circuit open, returning empty sample")
		} else {
			logging.Warn(ctx, "itemstore sample failed", zap.Error(err))
		}
		return nil
	}

	members, _ := raw.([]string)
	out := make([]Suggestion, 0, len(members))
	for _, m := range members {
		var e entry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			continue
		}
		out = append(out, Suggestion{Text: e.Text, Emoji: e.Emoji})
	}
	return out
}

// Add stores a submitted item for future sampling, called by the Room
// Actor's broadcast hook once emoji assignment completes. Failures are
// swallowed: the global sample set is best-effort, not authoritative.
func (s *Store) Add(ctx context.Context, text, emoji string) {
	if s == nil || s.client == nil {
		return
	}
	data, err := json.Marshal(entry{Text: text, Emoji: emoji})
	if err != nil {
		return
	}
	_, _ = s.cb.Execute(func() (any, error) {
		return nil, s.client.SAdd(ctx, setKey, data).Err()
	})
}

// Client returns the underlying Redis client, for components that share
// the same Redis deployment (e.g. Redis-backed rate limiting).
func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Ping checks Redis connectivity directly, bypassing the circuit breaker
// so a readiness probe always reflects live connection state (C9 health).
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
