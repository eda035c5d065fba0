package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each bucket as a hash plus a version counter so that
// several service instances share one cache.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend wraps client. Keys are namespaced under prefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "tunevault:cache"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// Every key carries the prefix as its hash tag so a Clear spanning several
// buckets stays in one cluster slot.
func (r *RedisBackend) entriesKey(bucket string) string {
	return "{" + r.prefix + "}:" + bucket
}

func (r *RedisBackend) versionKey(bucket string) string {
	return "{" + r.prefix + "}:" + bucket + ":v"
}

func (r *RedisBackend) Get(ctx context.Context, bucket, field string) ([]byte, bool, error) {
	v, err := r.client.HGet(ctx, r.entriesKey(bucket), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget: %w", err)
	}
	return v, true, nil
}

func (r *RedisBackend) Version(ctx context.Context, bucket string) (uint64, error) {
	v, err := r.client.Get(ctx, r.versionKey(bucket)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version: %w", err)
	}
	return v, nil
}

// PutIfVersion watches the version key so a Clear landing between the
// check and the write aborts the transaction.
func (r *RedisBackend) PutIfVersion(ctx context.Context, bucket, field string, value []byte, version uint64) (bool, error) {
	vkey := r.versionKey(bucket)
	stored := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.entriesKey(bucket), field, value)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, vkey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis put: %w", err)
	}
	return stored, nil
}

func (r *RedisBackend) Clear(ctx context.Context, buckets []string) error {
	if len(buckets) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, b := range buckets {
			pipe.Del(ctx, r.entriesKey(b))
			pipe.Incr(ctx, r.versionKey(b))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}
