package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"tunevault/internal/logging"
)

// Coordinator runs read-through lookups and post-commit invalidation over a
// Backend.
type Coordinator struct {
	backend Backend
	metrics *Metrics
	group   singleflight.Group
}

// NewCoordinator wires a backend. metrics may be nil.
func NewCoordinator(backend Backend, metrics *Metrics) *Coordinator {
	return &Coordinator{backend: backend, metrics: metrics}
}

// Fetch returns the cached value for key or loads, stores and returns it.
// The bucket version is read before load runs; if an invalidation bumps it
// while load is in flight the fill is discarded, so a value computed from
// pre-commit state never lands after the commit's invalidation. Concurrent
// misses on the same key and version share one load.
//
// Backend failures degrade to a direct load.
func Fetch[T any](ctx context.Context, c *Coordinator, key Key, load func(context.Context) (T, error)) (T, error) {
	var zero T
	bucket, field := key.Bucket(), key.Field()

	raw, ok, err := c.backend.Get(ctx, bucket, field)
	if err != nil {
		c.metrics.backendError("get")
		logging.FromContext(ctx).Warn().Err(err).Str("key", key.String()).Msg("cache get failed")
	}
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.hit(key.Region)
			return v, nil
		}
		logging.FromContext(ctx).Warn().Str("key", key.String()).Msg("discarding undecodable cache entry")
	}
	c.metrics.miss(key.Region)

	version, err := c.backend.Version(ctx, bucket)
	if err != nil {
		c.metrics.backendError("version")
		logging.FromContext(ctx).Warn().Err(err).Str("key", key.String()).Msg("cache version lookup failed")
		return load(ctx)
	}

	flight := key.String() + "@" + strconv.FormatUint(version, 10)
	shared, err, _ := c.group.Do(flight, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cache entry: %w", err)
		}
		stored, err := c.backend.PutIfVersion(ctx, bucket, field, data, version)
		switch {
		case err != nil:
			c.metrics.backendError("put")
			logging.FromContext(ctx).Warn().Err(err).Str("key", key.String()).Msg("cache fill failed")
		case !stored:
			c.metrics.staleFill(key.Region)
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(shared.([]byte), &v); err != nil {
		return zero, fmt.Errorf("decode cache entry: %w", err)
	}
	return v, nil
}

// Invalidate clears every bucket staled by the mutations. Call it after the
// transaction commits and before releasing the playlist lock.
func (c *Coordinator) Invalidate(ctx context.Context, muts ...Mutation) {
	buckets := Buckets(muts...)
	if len(buckets) == 0 {
		return
	}
	if err := c.backend.Clear(ctx, buckets); err != nil {
		c.metrics.backendError("clear")
		logging.FromContext(ctx).Error().Err(err).Strs("buckets", buckets).Msg("cache invalidation failed")
		return
	}
	c.metrics.invalidated(len(buckets))
}
