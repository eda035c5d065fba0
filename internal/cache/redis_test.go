package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunevault/internal/models"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client, "test"), mr
}

func TestRedisBackendVersionedPut(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	v, err := b.Version(ctx, "by-id:1")
	require.NoError(t, err)
	assert.Zero(t, v)

	stored, err := b.PutIfVersion(ctx, "by-id:1", "plain", []byte(`"x"`), v)
	require.NoError(t, err)
	assert.True(t, stored)

	raw, ok, err := b.Get(ctx, "by-id:1", "plain")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"x"`, string(raw))
	assert.True(t, mr.Exists("{test}:by-id:1"))

	require.NoError(t, b.Clear(ctx, []string{"by-id:1", "listing"}))

	_, ok, err = b.Get(ctx, "by-id:1", "plain")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err = b.PutIfVersion(ctx, "by-id:1", "plain", []byte(`"stale"`), v)
	require.NoError(t, err)
	assert.False(t, stored, "fill against an old version must be refused")

	current, err := b.Version(ctx, "by-id:1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, current)

	listing, err := b.Version(ctx, "listing")
	require.NoError(t, err)
	assert.EqualValues(t, 1, listing)
}

func TestRedisBackendKeysShareOneHashTag(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	for _, bucket := range []string{"by-id:1", "listing", "my-playlists:4"} {
		_, err := b.PutIfVersion(ctx, bucket, "f", []byte(`1`), 0)
		require.NoError(t, err)
	}
	require.NoError(t, b.Clear(ctx, []string{"by-id:1", "listing", "my-playlists:4"}))
	_, err := b.PutIfVersion(ctx, "search", "f", []byte(`1`), 0)
	require.NoError(t, err)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "{test}:"), "key %q outside the shared hash tag", k)
	}
}

func TestRedisBackendWithCoordinator(t *testing.T) {
	ctx := context.Background()
	b, _ := newRedisBackend(t)
	c := NewCoordinator(b, nil)
	key := Mine(4, models.DefaultPage())

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, key, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	}
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, Mutation{Kind: Created, PlaylistID: 9, OwnerID: 4})
	_, err := Fetch(ctx, c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
