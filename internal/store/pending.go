// Package store implements the pending-request store: a Redis-backed
// key-value record with expiry that correlates an asynchronous automation
// callback with the chat that originated the request.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jarekbird/telegram-receiver/internal/domain"
)

// keyPrefix namespaces pending-request keys in the shared Redis instance.
const keyPrefix = "telegram:pending:"

// DefaultTTL bounds how long an unanswered pending request survives before
// Redis expires it.
const DefaultTTL = time.Hour

// Cmdable is the subset of the go-redis client the store needs. *redis.Client
// satisfies it; tests supply a fake.
type Cmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// PendingStore persists PendingRequest records as JSON under a fixed key
// prefix with a per-record TTL. A missing or expired record is reported as
// (nil, nil), never as an error.
type PendingStore struct {
	rdb Cmdable
	ttl time.Duration
}

// NewPendingStore constructs a PendingStore. A ttl <= 0 falls back to
// DefaultTTL.
func NewPendingStore(rdb Cmdable, ttl time.Duration) *PendingStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PendingStore{rdb: rdb, ttl: ttl}
}

// Put stores req under its request ID, overwriting any previous record with
// the same ID and resetting the TTL.
func (s *PendingStore) Put(ctx context.Context, req *domain.PendingRequest) error {
	if req == nil || req.RequestID == "" {
		return errors.New("pending request must carry a request id")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal pending request: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+req.RequestID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store pending request %s: %w", req.RequestID, err)
	}
	return nil
}

// Get returns the record stored under requestID without consuming it, or
// (nil, nil) when no such record exists.
func (s *PendingStore) Get(ctx context.Context, requestID string) (*domain.PendingRequest, error) {
	return s.decode(requestID, s.rdb.Get(ctx, keyPrefix+requestID))
}

// Take atomically retrieves and removes the record stored under requestID so
// that a callback is honored exactly once. A missing or already-consumed
// record yields (nil, nil).
func (s *PendingStore) Take(ctx context.Context, requestID string) (*domain.PendingRequest, error) {
	return s.decode(requestID, s.rdb.GetDel(ctx, keyPrefix+requestID))
}

// Delete removes the record stored under requestID. Deleting a missing
// record is not an error.
func (s *PendingStore) Delete(ctx context.Context, requestID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+requestID).Err(); err != nil {
		return fmt.Errorf("delete pending request %s: %w", requestID, err)
	}
	return nil
}

func (s *PendingStore) decode(requestID string, cmd *redis.StringCmd) (*domain.PendingRequest, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending request %s: %w", requestID, err)
	}
	var req domain.PendingRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode pending request %s: %w", requestID, err)
	}
	return &req, nil
}
