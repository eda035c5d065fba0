package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tunevault/internal/models"
	"tunevault/internal/storage"
)

// Tx is the transactional half of the store handed to WithTx callbacks.
type Tx struct {
	tx *sql.Tx
}

var _ storage.Tx = (*Tx)(nil)

// LockPlaylist takes a row lock on the playlist for the rest of the
// transaction and returns its current state.
func (t *Tx) LockPlaylist(ctx context.Context, id int64) (models.Playlist, error) {
	var locked int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, storage.ErrPlaylistNotFound
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("lock playlist: %w", err)
	}
	return loadPlaylist(ctx, t.tx, id)
}

func (t *Tx) InsertPlaylist(ctx context.Context, p *models.Playlist) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := t.tx.QueryRowContext(ctx, `
		INSERT INTO playlists (name, description, owner_id, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		p.Name, p.Description, p.OwnerID, p.IsPublic, p.CreatedAt,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	if p.GenreIDs == nil {
		p.GenreIDs = []int64{}
	}
	return nil
}

// UpdatePlaylist stores name, description and visibility.
func (t *Tx) UpdatePlaylist(ctx context.Context, p models.Playlist) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE playlists
		SET name = $1, description = $2, is_public = $3
		WHERE id = $4`, p.Name, p.Description, p.IsPublic, p.ID)
	if err != nil {
		return fmt.Errorf("update playlist: %w", err)
	}
	return expectAffected(res, storage.ErrPlaylistNotFound)
}

// DeletePlaylist removes the playlist; memberships and genre claims cascade.
func (t *Tx) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return expectAffected(res, storage.ErrPlaylistNotFound)
}

func (t *Tx) GenreOwners(ctx context.Context, ids []int64) (map[int64]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT genre_id, playlist_id
		FROM playlist_genres
		WHERE genre_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select genre owners: %w", err)
	}
	defer rows.Close()

	owners := make(map[int64]int64)
	for rows.Next() {
		var genreID, playlistID int64
		if err := rows.Scan(&genreID, &playlistID); err != nil {
			return nil, fmt.Errorf("scan genre owner: %w", err)
		}
		owners[genreID] = playlistID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genre owners: %w", err)
	}
	return owners, nil
}

// SetPlaylistGenres replaces the playlist's genre claims. The unique
// constraint on genre_id rejects genres held by another playlist even when a
// concurrent transaction claimed them after our pre-check.
func (t *Tx) SetPlaylistGenres(ctx context.Context, playlistID int64, genreIDs []int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM playlist_genres WHERE playlist_id = $1`, playlistID); err != nil {
		return fmt.Errorf("clear playlist genres: %w", err)
	}
	if len(genreIDs) == 0 {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO playlist_genres (playlist_id, genre_id)
		SELECT $1, UNNEST($2::bigint[])`, playlistID, pq.Array(genreIDs)); err != nil {
		if constraint, ok := isUniqueViolation(err); ok && constraint == constraintGenreUnique {
			return storage.ErrGenreClaimed
		}
		return fmt.Errorf("insert playlist genres: %w", err)
	}
	return nil
}

func (t *Tx) CuratedPlaylistsForGenres(ctx context.Context, genreIDs []int64) ([]int64, error) {
	return t.ids(ctx, "curated playlists for genres", `
		SELECT DISTINCT playlist_id
		FROM playlist_genres
		WHERE genre_id = ANY($1)
		ORDER BY playlist_id`, pq.Array(genreIDs))
}

func (t *Tx) CuratedPlaylistsOfSong(ctx context.Context, songID int64) ([]int64, error) {
	return t.ids(ctx, "curated playlists of song", `
		SELECT DISTINCT ps.playlist_id
		FROM playlist_songs ps
		WHERE ps.song_id = $1
		  AND EXISTS (SELECT 1 FROM playlist_genres pg WHERE pg.playlist_id = ps.playlist_id)
		ORDER BY ps.playlist_id`, songID)
}

func (t *Tx) Membership(ctx context.Context, id int64) (models.Membership, error) {
	return loadMembership(ctx, t.tx, id)
}

func (t *Tx) InsertMembership(ctx context.Context, m *models.Membership) error {
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO playlist_songs (playlist_id, song_id, added_at)
		VALUES ($1, $2, $3)
		RETURNING id`, m.PlaylistID, m.SongID, m.AddedAt).Scan(&m.ID)
	if err == nil {
		return nil
	}
	if constraint, ok := isUniqueViolation(err); ok && constraint == constraintMembershipUnique {
		return storage.ErrDuplicateMembership
	}
	if constraint, ok := isForeignKeyViolation(err); ok {
		switch constraint {
		case constraintMembershipSong:
			return storage.ErrSongNotFound
		case constraintMembershipList:
			return storage.ErrPlaylistNotFound
		}
	}
	return fmt.Errorf("insert membership: %w", err)
}

func (t *Tx) DeleteMembership(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return expectAffected(res, storage.ErrMembershipNotFound)
}

func (t *Tx) ClearMemberships(ctx context.Context, playlistID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = $1`, playlistID); err != nil {
		return fmt.Errorf("clear memberships: %w", err)
	}
	return nil
}

func (t *Tx) DeleteSongMembership(ctx context.Context, playlistID, songID int64) error {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM playlist_songs
		WHERE playlist_id = $1 AND song_id = $2`, playlistID, songID)
	if err != nil {
		return fmt.Errorf("delete song membership: %w", err)
	}
	return expectAffected(res, storage.ErrMembershipNotFound)
}

func (t *Tx) MembershipsOldestFirst(ctx context.Context, playlistID int64) ([]models.MembershipDetail, error) {
	return listMembershipDetails(ctx, t.tx, playlistID, "ASC")
}

func (t *Tx) SetThumbnail(ctx context.Context, playlistID int64, thumbnail *string) error {
	var value sql.NullString
	if thumbnail != nil {
		value = sql.NullString{String: *thumbnail, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE playlists SET thumbnail = $1 WHERE id = $2`, value, playlistID)
	if err != nil {
		return fmt.Errorf("update thumbnail: %w", err)
	}
	return expectAffected(res, storage.ErrPlaylistNotFound)
}

func (t *Tx) ids(ctx context.Context, what, query string, args ...any) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return ids, nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
