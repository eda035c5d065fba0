package playlists

import (
	"context"
	"errors"

	"tunevault/internal/auth"
	"tunevault/internal/cache"
	"tunevault/internal/genres"
	"tunevault/internal/logging"
	"tunevault/internal/models"
	"tunevault/internal/storage"
	"tunevault/internal/thumbnail"
	"tunevault/internal/visibility"
)

const maxResyncAttempts = 3

var errResyncRaced = errors.New("curated playlists changed during resync")

// ResyncResult lists the curated playlists a song was added to or removed
// from.
type ResyncResult struct {
	SongID  int64   `json:"songId"`
	Added   []int64 `json:"added"`
	Removed []int64 `json:"removed"`
}

// AddSong appends a song to a playlist the caller may write.
func (s *Service) AddSong(ctx context.Context, p auth.Principal, playlistID, songID int64) (models.Membership, error) {
	if err := requireUser(ctx, p); err != nil {
		return models.Membership{}, err
	}
	if _, err := s.store.Song(ctx, songID); err != nil {
		return models.Membership{}, translate(err)
	}

	unlock := s.locks.lock(playlistID)
	defer unlock()

	var (
		m   models.Membership
		mut cache.Mutation
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		pl, err := tx.LockPlaylist(ctx, playlistID)
		if err != nil {
			return err
		}
		if err := authorize(p, pl, visibility.Write); err != nil {
			return err
		}
		m = models.Membership{PlaylistID: playlistID, SongID: songID, AddedAt: s.now()}
		if err := tx.InsertMembership(ctx, &m); err != nil {
			return err
		}
		mut, err = rederive(ctx, tx, pl)
		return err
	})
	if err != nil {
		return models.Membership{}, translate(err)
	}

	s.cache.Invalidate(ctx, mut)
	logging.FromContext(ctx).Info().
		Int64("playlist_id", playlistID).
		Int64("song_id", songID).
		Msg("song added to playlist")
	return m, nil
}

// RemoveSong deletes a membership from a playlist the caller may write.
func (s *Service) RemoveSong(ctx context.Context, p auth.Principal, membershipID int64) error {
	if err := requireUser(ctx, p); err != nil {
		return err
	}
	existing, err := s.store.Membership(ctx, membershipID)
	if err != nil {
		return translate(err)
	}

	unlock := s.locks.lock(existing.PlaylistID)
	defer unlock()

	var mut cache.Mutation
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		pl, err := tx.LockPlaylist(ctx, existing.PlaylistID)
		if err != nil {
			return err
		}
		if err := authorize(p, pl, visibility.Write); err != nil {
			return err
		}
		if err := tx.DeleteMembership(ctx, membershipID); err != nil {
			return err
		}
		mut, err = rederive(ctx, tx, pl)
		return err
	})
	if err != nil {
		return translate(err)
	}

	s.cache.Invalidate(ctx, mut)
	logging.FromContext(ctx).Info().
		Int64("playlist_id", existing.PlaylistID).
		Int64("membership_id", membershipID).
		Msg("song removed from playlist")
	return nil
}

// ResyncSong brings a song's curated memberships in line with its current
// genres: it joins every curated playlist bound to one of them and leaves
// the curated playlists that no longer match. User playlists are not
// touched, and memberships that remain valid keep their timestamps, so a
// second run changes nothing.
func (s *Service) ResyncSong(ctx context.Context, p auth.Principal, songID int64) (ResyncResult, error) {
	if err := requireAdmin(ctx, p); err != nil {
		return ResyncResult{}, err
	}
	song, err := s.store.Song(ctx, songID)
	if err != nil {
		return ResyncResult{}, translate(err)
	}
	genreIDs := genres.NormalizeIDs(song.GenreIDs)

	for attempt := 0; attempt < maxResyncAttempts; attempt++ {
		var affected []int64
		err := s.store.WithTx(ctx, func(tx storage.Tx) error {
			added, removed, err := resyncPlan(ctx, tx, songID, genreIDs)
			affected = union(added, removed)
			return err
		})
		if err != nil {
			return ResyncResult{}, translate(err)
		}

		result, err := s.resync(ctx, songID, genreIDs, affected)
		if errors.Is(err, errResyncRaced) {
			continue
		}
		if err != nil {
			return ResyncResult{}, translate(err)
		}
		return result, nil
	}
	return ResyncResult{}, newError(ErrConflict, "song %d: curated playlists kept changing during resync", songID)
}

func (s *Service) resync(ctx context.Context, songID int64, genreIDs, planned []int64) (ResyncResult, error) {
	unlock := s.locks.lock(planned...)
	defer unlock()

	result := ResyncResult{SongID: songID, Added: []int64{}, Removed: []int64{}}
	var muts []cache.Mutation
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		added, removed, err := resyncPlan(ctx, tx, songID, genreIDs)
		if err != nil {
			return err
		}
		affected := union(added, removed)
		if !subset(affected, planned) {
			return errResyncRaced
		}

		locked := make(map[int64]models.Playlist, len(affected))
		for _, id := range affected {
			pl, err := tx.LockPlaylist(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = pl
		}

		for _, id := range removed {
			if err := tx.DeleteSongMembership(ctx, id, songID); err != nil {
				return err
			}
		}
		at := s.now()
		for _, id := range added {
			m := models.Membership{PlaylistID: id, SongID: songID, AddedAt: at}
			if err := tx.InsertMembership(ctx, &m); err != nil {
				return err
			}
		}

		muts = muts[:0]
		for _, id := range affected {
			mut, err := rederive(ctx, tx, locked[id])
			if err != nil {
				return err
			}
			muts = append(muts, mut)
		}
		result.Added, result.Removed = added, removed
		return nil
	})
	if err != nil {
		return ResyncResult{}, err
	}

	s.cache.Invalidate(ctx, muts...)
	logging.FromContext(ctx).Info().
		Int64("song_id", songID).
		Ints64("added", result.Added).
		Ints64("removed", result.Removed).
		Msg("song memberships resynced")
	return result, nil
}

// resyncPlan compares the curated playlists holding the song with those its
// genres call for.
func resyncPlan(ctx context.Context, tx storage.Tx, songID int64, genreIDs []int64) (added, removed []int64, err error) {
	holding, err := tx.CuratedPlaylistsOfSong(ctx, songID)
	if err != nil {
		return nil, nil, err
	}
	var targets []int64
	if len(genreIDs) > 0 {
		targets, err = tx.CuratedPlaylistsForGenres(ctx, genreIDs)
		if err != nil {
			return nil, nil, err
		}
	}
	return difference(targets, holding), difference(holding, targets), nil
}

// rederive recomputes the thumbnail of pl inside tx and describes the
// membership change for cache invalidation.
func rederive(ctx context.Context, tx storage.Tx, pl models.Playlist) (cache.Mutation, error) {
	thumb, err := thumbnail.Derive(ctx, tx, pl.ID)
	if err != nil {
		return cache.Mutation{}, err
	}
	return cache.Mutation{
		Kind:             cache.MembershipChanged,
		PlaylistID:       pl.ID,
		OwnerID:          pl.OwnerID,
		Curated:          pl.Curated(),
		ThumbnailChanged: !thumbnail.Equal(pl.Thumbnail, thumb),
	}, nil
}

func difference(a, b []int64) []int64 {
	drop := make(map[int64]struct{}, len(b))
	for _, id := range b {
		drop[id] = struct{}{}
	}
	out := []int64{}
	for _, id := range a {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func union(a, b []int64) []int64 {
	return genres.NormalizeIDs(append(append([]int64{}, a...), b...))
}

func subset(a, b []int64) bool {
	have := make(map[int64]struct{}, len(b))
	for _, id := range b {
		have[id] = struct{}{}
	}
	for _, id := range a {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}
