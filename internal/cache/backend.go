package cache

import "context"

// Backend stores cache entries grouped in versioned buckets. Clearing a
// bucket bumps its version so fills computed before the clear are refused.
type Backend interface {
	// Get returns the entry and whether it was present.
	Get(ctx context.Context, bucket, field string) ([]byte, bool, error)
	// Version returns the current version of bucket.
	Version(ctx context.Context, bucket string) (uint64, error)
	// PutIfVersion stores the entry only while bucket is still at version.
	// It reports whether the value was stored.
	PutIfVersion(ctx context.Context, bucket, field string, value []byte, version uint64) (bool, error)
	// Clear drops every entry of the buckets and bumps their versions in one
	// atomic step.
	Clear(ctx context.Context, buckets []string) error
}
