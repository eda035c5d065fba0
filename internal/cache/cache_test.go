package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunevault/internal/models"
)

func TestKeysAreStructured(t *testing.T) {
	page := models.NewPageRequest(1, 10, models.SortName, "asc")

	assert.Equal(t, "by-id:7", ByID(7, ViewPlain).Bucket())
	assert.Equal(t, "with-songs", ByID(7, ViewWithSongs).Field())
	assert.Equal(t, "my-playlists:3", Mine(3, page).Bucket())
	assert.Equal(t, "listing", Listing(page, "public").Bucket())
	assert.NotEqual(t, Listing(page, "public").Field(), Listing(page, "all").Field())
	assert.Equal(t, Search("Rock", page, "public").Field(), Search("rock", page, "public").Field())
	assert.NotEqual(t, ByGenre(1, page, "public").Field(), ByGenre(2, page, "public").Field())
}

func TestBucketsFollowInvalidationTable(t *testing.T) {
	tests := []struct {
		name string
		muts []Mutation
		want []string
	}{
		{
			name: "created user playlist",
			muts: []Mutation{{Kind: Created, PlaylistID: 1, OwnerID: 5}},
			want: []string{"listing", "my-playlists:5", "search"},
		},
		{
			name: "created curated playlist",
			muts: []Mutation{{Kind: Created, PlaylistID: 1, OwnerID: 5, Curated: true}},
			want: []string{"by-genre", "listing", "my-playlists:5", "search"},
		},
		{
			name: "updated",
			muts: []Mutation{{Kind: Updated, PlaylistID: 2, OwnerID: 5}},
			want: []string{"by-id:2", "listing", "my-playlists:5", "search"},
		},
		{
			name: "genres changed",
			muts: []Mutation{{Kind: GenresChanged, PlaylistID: 2, OwnerID: 1, Curated: true}},
			want: []string{"by-genre", "by-id:2", "listing", "my-playlists:1", "search"},
		},
		{
			name: "membership without thumbnail change",
			muts: []Mutation{{Kind: MembershipChanged, PlaylistID: 3, OwnerID: 5}},
			want: []string{"by-id:3"},
		},
		{
			name: "membership with thumbnail change",
			muts: []Mutation{{Kind: MembershipChanged, PlaylistID: 3, OwnerID: 5, ThumbnailChanged: true}},
			want: []string{"by-id:3", "listing", "my-playlists:5", "search"},
		},
		{
			name: "union is deduplicated",
			muts: []Mutation{
				{Kind: MembershipChanged, PlaylistID: 3, OwnerID: 1, Curated: true, ThumbnailChanged: true},
				{Kind: MembershipChanged, PlaylistID: 4, OwnerID: 1, Curated: true},
			},
			want: []string{"by-genre", "by-id:3", "by-id:4", "listing", "my-playlists:1", "search"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Buckets(tt.muts...))
		})
	}
}

func TestFetchReadsThroughAndInvalidates(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := NewCoordinator(NewMemoryBackend(), NewMetrics(reg))
	key := ByID(1, ViewPlain)

	var loads int32
	value := "v1"
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return value, nil
	}

	got, err := Fetch(ctx, c, key, load)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	value = "v2"
	got, err = Fetch(ctx, c, key, load)
	require.NoError(t, err)
	assert.Equal(t, "v1", got, "second read should be a hit")
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))

	c.Invalidate(ctx, Mutation{Kind: Updated, PlaylistID: 1, OwnerID: 9})

	got, err = Fetch(ctx, c, key, load)
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
	assert.EqualValues(t, 2, atomic.LoadInt32(&loads))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.hits.WithLabelValues(string(RegionByID))))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.misses.WithLabelValues(string(RegionByID))))
}

func TestFetchDropsFillRacingAnInvalidation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	c := NewCoordinator(backend, NewMetrics(prometheus.NewRegistry()))
	key := Listing(models.DefaultPage(), "public")

	got, err := Fetch(ctx, c, key, func(context.Context) (string, error) {
		// a writer commits and invalidates while this load is in flight
		c.Invalidate(ctx, Mutation{Kind: Created, PlaylistID: 1, OwnerID: 1})
		return "pre-commit", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pre-commit", got)
	assert.Equal(t, 0, backend.Len(), "stale fill must not be stored")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.staleFills.WithLabelValues(string(RegionListing))))

	got, err = Fetch(ctx, c, key, func(context.Context) (string, error) { return "post-commit", nil })
	require.NoError(t, err)
	assert.Equal(t, "post-commit", got)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	c := NewCoordinator(backend, nil)
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, ByID(5, ViewPlain), func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, backend.Len())
}

func TestFetchCoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(NewMemoryBackend(), nil)
	key := ByID(3, ViewWithSongs)

	release := make(chan struct{})
	var loads int32
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return 42, nil
	}

	const readers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	results := make([]int, readers)
	started.Add(readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, err := Fetch(ctx, c, key, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	started.Wait()
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&loads), int32(readers))
}
