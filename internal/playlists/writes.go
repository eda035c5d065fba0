package playlists

import (
	"context"
	"strings"

	"tunevault/internal/auth"
	"tunevault/internal/cache"
	"tunevault/internal/genres"
	"tunevault/internal/logging"
	"tunevault/internal/models"
	"tunevault/internal/storage"
	"tunevault/internal/thumbnail"
	"tunevault/internal/visibility"
)

// Update changes name, description or visibility. Memberships are never
// touched. Curated playlists cannot be made private.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, patch Patch) (models.Playlist, error) {
	if err := requireUser(ctx, p); err != nil {
		return models.Playlist{}, err
	}
	if patch.Name == nil && patch.Description == nil && patch.IsPublic == nil {
		return models.Playlist{}, newError(ErrInvalidArgument, "nothing to update")
	}
	var name string
	if patch.Name != nil {
		n, err := validName(*patch.Name)
		if err != nil {
			return models.Playlist{}, err
		}
		name = n
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var updated models.Playlist
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		pl, err := tx.LockPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(p, pl, visibility.Write); err != nil {
			return err
		}
		if patch.Name != nil {
			pl.Name = name
		}
		if patch.Description != nil {
			pl.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.IsPublic != nil {
			pl.IsPublic = *patch.IsPublic
		}
		if pl.Curated() && !pl.IsPublic {
			return newError(ErrInvalidArgument, "curated playlists are always public")
		}
		if err := tx.UpdatePlaylist(ctx, pl); err != nil {
			return err
		}
		updated = pl
		return nil
	})
	if err != nil {
		return models.Playlist{}, translate(err)
	}

	s.cache.Invalidate(ctx, cache.Mutation{
		Kind:       cache.Updated,
		PlaylistID: updated.ID,
		OwnerID:    updated.OwnerID,
		Curated:    updated.Curated(),
	})
	logging.FromContext(ctx).Info().Int64("playlist_id", updated.ID).Msg("playlist updated")
	return updated, nil
}

// UpdateWithGenres rebinds a playlist to a new genre set. The genres must
// exist and be free or already held by this playlist. On success every
// membership is replaced by the new resolution and the playlist becomes
// public. On failure nothing changes.
func (s *Service) UpdateWithGenres(ctx context.Context, p auth.Principal, id int64, upd GenreUpdate) (models.Playlist, error) {
	if err := requireAdmin(ctx, p); err != nil {
		return models.Playlist{}, err
	}
	ids := genres.NormalizeIDs(upd.GenreIDs)
	if len(ids) == 0 {
		return models.Playlist{}, newError(ErrInvalidArgument, "genre ids must not be empty")
	}
	var name string
	if upd.Name != nil {
		n, err := validName(*upd.Name)
		if err != nil {
			return models.Playlist{}, err
		}
		name = n
	}

	res, err := s.resolver.Resolve(ctx, ids)
	if err != nil {
		return models.Playlist{}, translate(err)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var (
		updated      models.Playlist
		thumbChanged bool
	)
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		pl, err := tx.LockPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureGenresFree(ctx, tx, res.GenreIDs, pl.ID); err != nil {
			return err
		}
		if upd.Name != nil {
			pl.Name = name
		}
		if upd.Description != nil {
			pl.Description = strings.TrimSpace(*upd.Description)
		}
		pl.IsPublic = true
		if err := tx.UpdatePlaylist(ctx, pl); err != nil {
			return err
		}
		if err := tx.SetPlaylistGenres(ctx, pl.ID, res.GenreIDs); err != nil {
			return err
		}
		if err := tx.ClearMemberships(ctx, pl.ID); err != nil {
			return err
		}
		if err := insertSongs(ctx, tx, pl.ID, res.Songs, s.now()); err != nil {
			return err
		}
		thumb, err := thumbnail.Derive(ctx, tx, pl.ID)
		if err != nil {
			return err
		}
		thumbChanged = !thumbnail.Equal(pl.Thumbnail, thumb)
		pl.Thumbnail = thumb
		pl.GenreIDs = res.GenreIDs
		updated = pl
		return nil
	})
	if err != nil {
		return models.Playlist{}, translate(err)
	}

	s.cache.Invalidate(ctx, cache.Mutation{
		Kind:             cache.GenresChanged,
		PlaylistID:       updated.ID,
		OwnerID:          updated.OwnerID,
		Curated:          true,
		ThumbnailChanged: thumbChanged,
	})
	logging.FromContext(ctx).Info().
		Int64("playlist_id", updated.ID).
		Ints64("genre_ids", updated.GenreIDs).
		Int("songs", len(res.Songs)).
		Msg("playlist genres replaced")
	return updated, nil
}

// Delete removes a playlist with its memberships and genre claims.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) error {
	if err := requireUser(ctx, p); err != nil {
		return err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var deleted models.Playlist
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		pl, err := tx.LockPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(p, pl, visibility.Write); err != nil {
			return err
		}
		deleted = pl
		return tx.DeletePlaylist(ctx, id)
	})
	if err != nil {
		return translate(err)
	}

	s.cache.Invalidate(ctx, cache.Mutation{
		Kind:       cache.Deleted,
		PlaylistID: deleted.ID,
		OwnerID:    deleted.OwnerID,
		Curated:    deleted.Curated(),
	})
	logging.FromContext(ctx).Info().Int64("playlist_id", deleted.ID).Msg("playlist deleted")
	return nil
}
