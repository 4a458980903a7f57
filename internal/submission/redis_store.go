package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "booking:session:"
	redisMaxAttempts = 5
)

// RedisStore keeps session state in Redis so several server instances can
// share it. Update is an optimistic WATCH/MULTI transaction.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A non-positive ttl stores keys without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("submission: redis client required")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Load returns the session's state.
func (r *RedisStore) Load(ctx context.Context, id string) (State, error) {
	if strings.TrimSpace(id) == "" {
		return State{}, ErrMissingSessionID
	}
	return r.get(ctx, r.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c getter, id string) (State, error) {
	raw, err := c.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("submission: redis get: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("submission: decode state: %w", err)
	}
	return st, nil
}

// Update runs fn inside a watched transaction, retrying when another writer
// touched the key first.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(State) (State, bool)) (State, bool, error) {
	if strings.TrimSpace(id) == "" {
		return State{}, false, ErrMissingSessionID
	}
	key := redisKey(id)

	var (
		result  State
		changed bool
	)
	txf := func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next, ok := fn(current)
		if !ok {
			result, changed = current, false
			return nil
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("submission: encode state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result, changed = next, true
		return nil
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, changed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return State{}, false, fmt.Errorf("submission: redis update: %w", err)
	}
	return State{}, false, ErrConflict
}
