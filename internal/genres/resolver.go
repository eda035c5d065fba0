// Package genres turns a set of genre ids into the songs a curated playlist
// must contain.
package genres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tunevault/internal/models"
)

// ErrUnknownGenre is returned when any requested genre does not exist.
var ErrUnknownGenre = errors.New("genre not found")

// Catalog is the read access the resolver needs.
type Catalog interface {
	GenresByIDs(ctx context.Context, ids []int64) ([]models.Genre, error)
	SongsByGenres(ctx context.Context, genreIDs []int64) ([]models.Song, error)
}

// Resolution is the outcome of resolving a genre set. Songs are unique and
// ordered by id ascending, which is the order memberships are inserted in.
type Resolution struct {
	GenreIDs []int64
	Genres   []models.Genre
	Songs    []models.Song
}

// Resolver resolves genre sets against the catalog.
type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve loads every genre in ids and the union of their songs. It fails
// with ErrUnknownGenre when any id is missing; nothing is partially resolved.
func (r *Resolver) Resolve(ctx context.Context, ids []int64) (Resolution, error) {
	ids = NormalizeIDs(ids)
	if len(ids) == 0 {
		return Resolution{GenreIDs: []int64{}}, nil
	}

	found, err := r.catalog.GenresByIDs(ctx, ids)
	if err != nil {
		return Resolution{}, fmt.Errorf("load genres: %w", err)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return Resolution{}, fmt.Errorf("%w: %v", ErrUnknownGenre, missing)
	}

	songs, err := r.catalog.SongsByGenres(ctx, ids)
	if err != nil {
		return Resolution{}, fmt.Errorf("load songs for genres: %w", err)
	}

	return Resolution{
		GenreIDs: ids,
		Genres:   found,
		Songs:    uniqueSongs(songs),
	}, nil
}

// NormalizeIDs de-duplicates and sorts ids.
func NormalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missingIDs(want []int64, found []models.Genre) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, g := range found {
		have[g.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func uniqueSongs(songs []models.Song) []models.Song {
	seen := make(map[int64]struct{}, len(songs))
	out := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
