package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gomodule/redigo/redis"
)

const (
	updateAttempts = 50
	scanCount      = 100
)

// errWatchConflict means a watched key changed between WATCH and EXEC.
var errWatchConflict = errors.New("redis: watched key changed")

// RedisStore keeps each key as a Redis string under a shared prefix.
type RedisStore struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisPool builds a connection pool for addr.
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewRedisStore constructor
func NewRedisStore(pool *redis.Pool, prefix string) *RedisStore {
	return &RedisStore{pool: pool, prefix: prefix}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + ":" + k
}

// Ping checks that the server is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	cl, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()

	_, err = cl.Do("PING")
	return err
}

func (r *RedisStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cl, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	defer cl.Close()

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = r.key(k)
	}
	values, err := redis.ByteSlices(cl.Do("MGET", args...))
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	for i, v := range values {
		if v != nil {
			out[keys[i]] = v
		}
	}
	return out, nil
}

func (r *RedisStore) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}

	cl, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer cl.Close()

	args := make([]any, 0, len(items)*2)
	for k, v := range items {
		args = append(args, r.key(k), v)
	}
	// MSET is atomic on the server.
	if _, err := cl.Do("MSET", args...); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Update runs fn under WATCH on keys and commits its result with MULTI/EXEC.
// A concurrent write to any watched key aborts the transaction and fn runs
// again on fresh values.
func (r *RedisStore) Update(ctx context.Context, fn UpdateFunc, keys ...string) error {
	cl, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer cl.Close()

	return retry.Do(
		func() error { return r.updateOnce(cl, fn, keys) },
		retry.Context(ctx),
		retry.Attempts(updateAttempts),
		retry.Delay(10*time.Millisecond),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errWatchConflict) }),
		retry.LastErrorOnly(true),
	)
}

func (r *RedisStore) updateOnce(cl redis.Conn, fn UpdateFunc, keys []string) error {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = r.key(k)
	}

	cur := make(map[string][]byte, len(keys))
	if len(keys) > 0 {
		if _, err := cl.Do("WATCH", args...); err != nil {
			return fmt.Errorf("watching state: %w", err)
		}
		values, err := redis.ByteSlices(cl.Do("MGET", args...))
		if err != nil {
			cl.Do("UNWATCH")
			return fmt.Errorf("reading state: %w", err)
		}
		for i, v := range values {
			if v != nil {
				cur[keys[i]] = v
			}
		}
	}

	items, err := fn(cur)
	if err != nil || len(items) == 0 {
		cl.Do("UNWATCH")
		return err
	}

	set := make([]any, 0, len(items)*2)
	for k, v := range items {
		set = append(set, r.key(k), v)
	}
	if err := cl.Send("MULTI"); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := cl.Send("MSET", set...); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	reply, err := cl.Do("EXEC")
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if reply == nil {
		return errWatchConflict
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	cl, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer cl.Close()

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = r.key(k)
	}
	if _, err := cl.Do("DEL", args...); err != nil {
		return fmt.Errorf("removing state: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	cl, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer cl.Close()

	cursor := 0
	for {
		reply, err := redis.Values(cl.Do("SCAN", cursor, "MATCH", r.prefix+":*", "COUNT", scanCount))
		if err != nil {
			return fmt.Errorf("listing state: %w", err)
		}
		if cursor, err = redis.Int(reply[0], nil); err != nil {
			return fmt.Errorf("listing state: %w", err)
		}
		keys, err := redis.Strings(reply[1], nil)
		if err != nil {
			return fmt.Errorf("listing state: %w", err)
		}
		if len(keys) > 0 {
			if _, err := cl.Do("DEL", redis.Args{}.AddFlat(keys)...); err != nil {
				return fmt.Errorf("clearing state: %w", err)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisStore) Close() error {
	return r.pool.Close()
}
