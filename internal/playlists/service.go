// Package playlists keeps playlists, their memberships, genre claims and
// thumbnails consistent, and serves cached reads filtered by visibility.
package playlists

import (
	"context"
	"strings"
	"time"

	"tunevault/internal/auth"
	"tunevault/internal/cache"
	"tunevault/internal/genres"
	"tunevault/internal/logging"
	"tunevault/internal/models"
	"tunevault/internal/storage"
	"tunevault/internal/thumbnail"
	"tunevault/internal/visibility"
)

const maxNameLength = 255

// CreateRequest describes a user playlist.
type CreateRequest struct {
	Name        string
	Description string
	IsPublic    *bool
}

// CuratedRequest describes a genre-curated playlist.
type CuratedRequest struct {
	Name        string
	Description string
	GenreIDs    []int64
}

// Patch changes playlist metadata. Nil fields are left alone.
type Patch struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// GenreUpdate rebinds a playlist to a new genre set.
type GenreUpdate struct {
	Name        *string
	Description *string
	GenreIDs    []int64
}

// Service implements the playlist operations.
type Service struct {
	store    storage.Store
	resolver *genres.Resolver
	cache    *cache.Coordinator
	locks    *keyedLocks
	baseURL  string
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithShareBaseURL sets the public origin used in share links.
func WithShareBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithClock replaces the time source used for membership timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the service.
func New(store storage.Store, c *cache.Coordinator, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: genres.NewResolver(store),
		cache:    c,
		locks:    newKeyedLocks(),
		baseURL:  "http://localhost:8080",
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUserPlaylist creates a playlist owned by p. Playlists are private
// unless the request says otherwise.
func (s *Service) CreateUserPlaylist(ctx context.Context, p auth.Principal, req CreateRequest) (models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return models.Playlist{}, err
	}
	if !p.Authenticated() {
		return models.Playlist{}, unauthenticated()
	}
	name, err := validName(req.Name)
	if err != nil {
		return models.Playlist{}, err
	}

	pl := models.Playlist{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     p.ID,
		IsPublic:    req.IsPublic != nil && *req.IsPublic,
		CreatedAt:   s.now(),
		GenreIDs:    []int64{},
	}
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.InsertPlaylist(ctx, &pl)
	})
	if err != nil {
		return models.Playlist{}, translate(err)
	}

	s.cache.Invalidate(ctx, cache.Mutation{Kind: cache.Created, PlaylistID: pl.ID, OwnerID: pl.OwnerID})
	logging.FromContext(ctx).Info().Int64("playlist_id", pl.ID).Bool("public", pl.IsPublic).Msg("playlist created")
	return pl, nil
}

// CreateCuratedPlaylist creates a public playlist holding every song of the
// given genres. The genres must exist and must not belong to another
// playlist. Nothing is written unless every step succeeds.
func (s *Service) CreateCuratedPlaylist(ctx context.Context, p auth.Principal, req CuratedRequest) (models.Playlist, error) {
	if err := requireAdmin(ctx, p); err != nil {
		return models.Playlist{}, err
	}
	name, err := validName(req.Name)
	if err != nil {
		return models.Playlist{}, err
	}
	ids := genres.NormalizeIDs(req.GenreIDs)
	if len(ids) == 0 {
		return models.Playlist{}, newError(ErrInvalidArgument, "a curated playlist needs at least one genre")
	}

	res, err := s.resolver.Resolve(ctx, ids)
	if err != nil {
		return models.Playlist{}, translate(err)
	}

	pl := models.Playlist{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     p.ID,
		IsPublic:    true,
		CreatedAt:   s.now(),
	}
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := ensureGenresFree(ctx, tx, res.GenreIDs, 0); err != nil {
			return err
		}
		if err := tx.InsertPlaylist(ctx, &pl); err != nil {
			return err
		}
		if err := tx.SetPlaylistGenres(ctx, pl.ID, res.GenreIDs); err != nil {
			return err
		}
		if err := insertSongs(ctx, tx, pl.ID, res.Songs, s.now()); err != nil {
			return err
		}
		thumb, err := thumbnail.Derive(ctx, tx, pl.ID)
		if err != nil {
			return err
		}
		pl.Thumbnail = thumb
		return nil
	})
	if err != nil {
		return models.Playlist{}, translate(err)
	}
	pl.GenreIDs = res.GenreIDs

	s.cache.Invalidate(ctx, cache.Mutation{Kind: cache.Created, PlaylistID: pl.ID, OwnerID: pl.OwnerID, Curated: true})
	logging.FromContext(ctx).Info().
		Int64("playlist_id", pl.ID).
		Ints64("genre_ids", pl.GenreIDs).
		Int("songs", len(res.Songs)).
		Msg("curated playlist created")
	return pl, nil
}

func requireAdmin(ctx context.Context, p auth.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Authenticated() {
		return unauthenticated()
	}
	if !p.IsAdmin() {
		return newError(ErrForbidden, "not permitted")
	}
	return nil
}

func requireUser(ctx context.Context, p auth.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Authenticated() {
		return unauthenticated()
	}
	return nil
}

// authorize turns a denied capability into the error the caller may see.
// Anonymous readers are told the playlist does not exist.
func authorize(p auth.Principal, pl models.Playlist, c visibility.Capability) error {
	if visibility.Allowed(p, pl, c) {
		return nil
	}
	switch {
	case c == visibility.Write && !p.Authenticated():
		return unauthenticated()
	case !p.Authenticated():
		return newError(ErrNotFound, "playlist %d not found", pl.ID)
	default:
		return newError(ErrForbidden, "not permitted")
	}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newError(ErrInvalidArgument, "name is required")
	}
	if len(name) > maxNameLength {
		return "", newError(ErrInvalidArgument, "name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

// ensureGenresFree fails with a conflict naming the first genre held by a
// playlist other than self. The unique constraint in storage backs this up
// against concurrent claims.
func ensureGenresFree(ctx context.Context, tx storage.Tx, ids []int64, self int64) error {
	owners, err := tx.GenreOwners(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if owner, ok := owners[id]; ok && owner != self {
			return newError(ErrConflict, "genre %d is already assigned to playlist %d", id, owner)
		}
	}
	return nil
}

func insertSongs(ctx context.Context, tx storage.Tx, playlistID int64, songs []models.Song, at time.Time) error {
	for _, song := range songs {
		m := models.Membership{PlaylistID: playlistID, SongID: song.ID, AddedAt: at}
		if err := tx.InsertMembership(ctx, &m); err != nil {
			return err
		}
	}
	return nil
}
