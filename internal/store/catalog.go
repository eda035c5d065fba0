package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tunevault/internal/models"
	"tunevault/internal/storage"
)

const selectSongSQL = `
		SELECT s.id, s.title, s.thumbnail, s.duration, s.artist_id,
		       ARRAY(SELECT sg.genre_id FROM song_genres sg WHERE sg.song_id = s.id ORDER BY sg.genre_id)
		FROM songs s
		WHERE s.id = $1`

const selectGenresByIDsSQL = `
		SELECT id, name, description
		FROM genres
		WHERE id = ANY($1)
		ORDER BY id`

const selectSongsByGenresSQL = `
		SELECT DISTINCT s.id, s.title, s.thumbnail, s.duration, s.artist_id
		FROM songs s
		JOIN song_genres sg ON sg.song_id = s.id
		WHERE sg.genre_id = ANY($1)
		ORDER BY s.id`

// GenresByIDs returns the genres that exist among ids.
func (s *Store) GenresByIDs(ctx context.Context, ids []int64) ([]models.Genre, error) {
	rows, err := s.db.QueryContext(ctx, selectGenresByIDsSQL, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}

// SongsByGenres returns every song carrying at least one of the genres,
// ordered by id.
func (s *Store) SongsByGenres(ctx context.Context, genreIDs []int64) ([]models.Song, error) {
	rows, err := s.db.QueryContext(ctx, selectSongsByGenresSQL, pq.Array(genreIDs))
	if err != nil {
		return nil, fmt.Errorf("select songs by genre: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		if err := rows.Scan(&song.ID, &song.Title, &song.Thumbnail, &song.Duration, &song.ArtistID); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// Song returns a song with its genre ids.
func (s *Store) Song(ctx context.Context, id int64) (models.Song, error) {
	var (
		song     models.Song
		genreIDs pq.Int64Array
	)
	err := s.db.QueryRowContext(ctx, selectSongSQL, id).
		Scan(&song.ID, &song.Title, &song.Thumbnail, &song.Duration, &song.ArtistID, &genreIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Song{}, storage.ErrSongNotFound
	}
	if err != nil {
		return models.Song{}, fmt.Errorf("get song: %w", err)
	}
	song.GenreIDs = []int64(genreIDs)
	return song, nil
}

// AddGenre inserts a catalog genre, or returns the existing one with the
// same name.
func (s *Store) AddGenre(ctx context.Context, g models.Genre) (models.Genre, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO genres (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`, g.Name, g.Description).Scan(&g.ID)
	if err != nil {
		return models.Genre{}, fmt.Errorf("insert genre: %w", err)
	}
	return g, nil
}

// AddSong inserts a catalog song and its genre links.
func (s *Store) AddSong(ctx context.Context, song models.Song) (models.Song, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Song{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO songs (title, thumbnail, duration, artist_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, song.Title, song.Thumbnail, song.Duration, song.ArtistID).Scan(&song.ID); err != nil {
		return models.Song{}, fmt.Errorf("insert song: %w", err)
	}

	if len(song.GenreIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO song_genres (song_id, genre_id)
			SELECT $1, UNNEST($2::bigint[])
			ON CONFLICT DO NOTHING`, song.ID, pq.Array(song.GenreIDs)); err != nil {
			return models.Song{}, fmt.Errorf("insert song genres: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Song{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return song, nil
}

// CatalogEmpty reports whether the songs table has no rows.
func (s *Store) CatalogEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM songs)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("count songs: %w", err)
	}
	return !exists, nil
}
