package playlists

import (
	"context"
	"fmt"
	"strings"

	"tunevault/internal/auth"
	"tunevault/internal/cache"
	"tunevault/internal/models"
	"tunevault/internal/storage"
	"tunevault/internal/visibility"
)

// GetByID returns a playlist the principal may read. Cached entries are
// still checked against the principal.
func (s *Service) GetByID(ctx context.Context, p auth.Principal, id int64) (models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, err
	}
	pl, err := s.playlist(ctx, id)
	if err != nil {
		return models.Playlist{}, err
	}
	if err := authorize(p, pl, visibility.Read); err != nil {
		return models.Playlist{}, err
	}
	return pl, nil
}

// GetByIDWithSongs returns a readable playlist with its memberships, newest
// first.
func (s *Service) GetByIDWithSongs(ctx context.Context, p auth.Principal, id int64) (models.PlaylistWithSongs, error) {
	if err := ctx.Err(); err != nil {
		return models.PlaylistWithSongs{}, err
	}
	out, err := cache.Fetch(ctx, s.cache, cache.ByID(id, cache.ViewWithSongs), func(ctx context.Context) (models.PlaylistWithSongs, error) {
		pl, err := s.store.Playlist(ctx, id)
		if err != nil {
			return models.PlaylistWithSongs{}, err
		}
		songs, err := s.store.PlaylistSongs(ctx, id)
		if err != nil {
			return models.PlaylistWithSongs{}, err
		}
		return models.PlaylistWithSongs{Playlist: pl, SongPlaylists: songs}, nil
	})
	if err != nil {
		return models.PlaylistWithSongs{}, translate(err)
	}
	if err := authorize(p, out.Playlist, visibility.Read); err != nil {
		return models.PlaylistWithSongs{}, err
	}
	return out, nil
}

// ListAll pages through every playlist visible to p.
func (s *Service) ListAll(ctx context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Playlist], error) {
	scope := visibility.ListScope(p)
	return s.list(ctx, cache.Listing(page, scope.Key()), storage.PlaylistFilter{Scope: scope, Page: page})
}

// SearchByName matches names case-insensitively by substring.
func (s *Service) SearchByName(ctx context.Context, p auth.Principal, query string, page models.PageRequest) (models.Page[models.Playlist], error) {
	query = strings.TrimSpace(query)
	scope := visibility.ListScope(p)
	return s.list(ctx, cache.Search(query, page, scope.Key()), storage.PlaylistFilter{
		Scope:        scope,
		NameContains: query,
		Page:         page,
	})
}

// ListByGenre returns the curated playlist bound to genreID, if any, as a
// page.
func (s *Service) ListByGenre(ctx context.Context, p auth.Principal, genreID int64, page models.PageRequest) (models.Page[models.Playlist], error) {
	if genreID <= 0 {
		return models.Page[models.Playlist]{}, newError(ErrInvalidArgument, "invalid genre id %d", genreID)
	}
	scope := visibility.ListScope(p)
	return s.list(ctx, cache.ByGenre(genreID, page, scope.Key()), storage.PlaylistFilter{
		Scope:   scope,
		GenreID: genreID,
		Page:    page,
	})
}

// ListMine pages through the caller's own playlists.
func (s *Service) ListMine(ctx context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Playlist], error) {
	if err := requireUser(ctx, p); err != nil {
		return models.Page[models.Playlist]{}, err
	}
	return s.list(ctx, cache.Mine(p.ID, page), storage.PlaylistFilter{
		Scope:   visibility.Scope{All: true},
		OwnerID: p.ID,
		Page:    page,
	})
}

// Share returns the public link of a playlist the caller may read.
func (s *Service) Share(ctx context.Context, p auth.Principal, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pl, err := s.playlist(ctx, id)
	if err != nil {
		return "", err
	}
	if err := authorize(p, pl, visibility.Share); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/playlists/%d", s.baseURL, pl.ID), nil
}

// ListMemberships pages through every membership row, newest first.
func (s *Service) ListMemberships(ctx context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Membership], error) {
	if err := requireAdmin(ctx, p); err != nil {
		return models.Page[models.Membership]{}, err
	}
	items, total, err := s.store.ListMemberships(ctx, page)
	if err != nil {
		return models.Page[models.Membership]{}, translate(err)
	}
	return models.NewPage(items, page, total), nil
}

func (s *Service) playlist(ctx context.Context, id int64) (models.Playlist, error) {
	pl, err := cache.Fetch(ctx, s.cache, cache.ByID(id, cache.ViewPlain), func(ctx context.Context) (models.Playlist, error) {
		return s.store.Playlist(ctx, id)
	})
	if err != nil {
		return models.Playlist{}, translate(err)
	}
	return pl, nil
}

func (s *Service) list(ctx context.Context, key cache.Key, filter storage.PlaylistFilter) (models.Page[models.Playlist], error) {
	if err := ctx.Err(); err != nil {
		return models.Page[models.Playlist]{}, err
	}
	page, err := cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (models.Page[models.Playlist], error) {
		items, total, err := s.store.ListPlaylists(ctx, filter)
		if err != nil {
			return models.Page[models.Playlist]{}, err
		}
		return models.NewPage(items, filter.Page, total), nil
	})
	if err != nil {
		return models.Page[models.Playlist]{}, translate(err)
	}
	return page, nil
}
