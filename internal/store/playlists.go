package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"tunevault/internal/models"
	"tunevault/internal/storage"
)

const selectPlaylistSQL = `
		SELECT p.id, p.name, p.description, p.thumbnail, p.created_at, p.owner_id, p.is_public,
		       ARRAY(SELECT pg.genre_id FROM playlist_genres pg WHERE pg.playlist_id = p.id ORDER BY pg.genre_id)
		FROM playlists p`

const selectPlaylistByIDSQL = selectPlaylistSQL + `
		WHERE p.id = $1`

const selectMembershipDetailsSQL = `
		SELECT ps.id, ps.playlist_id, ps.song_id, ps.added_at,
		       s.title, s.thumbnail, s.duration, s.artist_id
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = $1`

const selectMembershipSQL = `
		SELECT id, playlist_id, song_id, added_at
		FROM playlist_songs
		WHERE id = $1`

var sortColumns = map[string]string{
	models.SortCreatedAt: "p.created_at",
	models.SortName:      "p.name",
	models.SortID:        "p.id",
}

// Playlist returns a single playlist by ID.
func (s *Store) Playlist(ctx context.Context, id int64) (models.Playlist, error) {
	return loadPlaylist(ctx, s.db, id)
}

// PlaylistSongs lists a playlist's memberships newest first.
func (s *Store) PlaylistSongs(ctx context.Context, playlistID int64) ([]models.MembershipDetail, error) {
	return listMembershipDetails(ctx, s.db, playlistID, "DESC")
}

// ListPlaylists returns one page of playlists matching the filter and the
// total number of matches.
func (s *Store) ListPlaylists(ctx context.Context, f storage.PlaylistFilter) ([]models.Playlist, int64, error) {
	where, args := playlistWhere(f)

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count playlists: %w", err)
	}

	query := selectPlaylistSQL + where + playlistOrder(f.Page) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Page.Size, f.Page.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, total, nil
}

// Membership returns one membership row.
func (s *Store) Membership(ctx context.Context, id int64) (models.Membership, error) {
	return loadMembership(ctx, s.db, id)
}

// ListMemberships pages through every membership, newest first.
func (s *Store) ListMemberships(ctx context.Context, page models.PageRequest) ([]models.Membership, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_songs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count memberships: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, playlist_id, song_id, added_at
		FROM playlist_songs
		ORDER BY added_at DESC, id DESC
		LIMIT $1 OFFSET $2`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []models.Membership{}
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.PlaylistID, &m.SongID, &m.AddedAt); err != nil {
			return nil, 0, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate memberships: %w", err)
	}
	return memberships, total, nil
}

func playlistWhere(f storage.PlaylistFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.Scope.All {
		if f.Scope.ViewerID > 0 {
			clauses = append(clauses, "(p.is_public OR p.owner_id = "+next(f.Scope.ViewerID)+")")
		} else {
			clauses = append(clauses, "p.is_public")
		}
	}
	if f.NameContains != "" {
		clauses = append(clauses, "p.name ILIKE "+next("%"+escapeLike(f.NameContains)+"%"))
	}
	if f.OwnerID != 0 {
		clauses = append(clauses, "p.owner_id = "+next(f.OwnerID))
	}
	if f.GenreID != 0 {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM playlist_genres g WHERE g.playlist_id = p.id AND g.genre_id = "+next(f.GenreID)+")")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func playlistOrder(page models.PageRequest) string {
	column, ok := sortColumns[page.Sort]
	if !ok {
		column = sortColumns[models.SortCreatedAt]
	}
	dir := strings.ToUpper(page.Direction())
	if column == "p.id" {
		return fmt.Sprintf(" ORDER BY p.id %s", dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s, p.id %s", column, dir, dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func loadPlaylist(ctx context.Context, q queryer, id int64) (models.Playlist, error) {
	p, err := scanPlaylist(q.QueryRowContext(ctx, selectPlaylistByIDSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, storage.ErrPlaylistNotFound
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

func scanPlaylist(row rowScanner) (models.Playlist, error) {
	var (
		p         models.Playlist
		thumbnail sql.NullString
		genreIDs  pq.Int64Array
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &thumbnail, &p.CreatedAt, &p.OwnerID, &p.IsPublic, &genreIDs); err != nil {
		return models.Playlist{}, err
	}
	if thumbnail.Valid {
		v := thumbnail.String
		p.Thumbnail = &v
	}
	p.GenreIDs = []int64(genreIDs)
	if p.GenreIDs == nil {
		p.GenreIDs = []int64{}
	}
	return p, nil
}

func listMembershipDetails(ctx context.Context, q queryer, playlistID int64, dir string) ([]models.MembershipDetail, error) {
	query := selectMembershipDetailsSQL + fmt.Sprintf(`
		ORDER BY ps.added_at %s, ps.id %s`, dir, dir)

	rows, err := q.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist songs: %w", err)
	}
	defer rows.Close()

	details := []models.MembershipDetail{}
	for rows.Next() {
		var d models.MembershipDetail
		if err := rows.Scan(&d.ID, &d.PlaylistID, &d.SongID, &d.AddedAt,
			&d.Song.Title, &d.Song.Thumbnail, &d.Song.Duration, &d.Song.ArtistID); err != nil {
			return nil, fmt.Errorf("scan playlist song: %w", err)
		}
		d.Song.ID = d.SongID
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist songs: %w", err)
	}
	return details, nil
}

func loadMembership(ctx context.Context, q queryer, id int64) (models.Membership, error) {
	var m models.Membership
	err := q.QueryRowContext(ctx, selectMembershipSQL, id).Scan(&m.ID, &m.PlaylistID, &m.SongID, &m.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, storage.ErrMembershipNotFound
	}
	if err != nil {
		return models.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}
