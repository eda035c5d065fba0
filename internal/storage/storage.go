// Package storage declares the persistence contract shared by the Postgres
// and in-memory stores.
package storage

import (
	"context"
	"errors"

	"tunevault/internal/models"
	"tunevault/internal/visibility"
)

var (
	ErrPlaylistNotFound    = errors.New("playlist not found")
	ErrSongNotFound        = errors.New("song not found")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrGenreClaimed        = errors.New("genre already assigned to a playlist")
	ErrDuplicateMembership = errors.New("song already in playlist")
)

// PlaylistFilter narrows a playlist listing. Zero fields do not filter.
type PlaylistFilter struct {
	Scope        visibility.Scope
	NameContains string
	GenreID      int64
	OwnerID      int64
	Page         models.PageRequest
}

// Catalog exposes the read-only genre and song lookups.
type Catalog interface {
	GenresByIDs(ctx context.Context, ids []int64) ([]models.Genre, error)
	SongsByGenres(ctx context.Context, genreIDs []int64) ([]models.Song, error)
	Song(ctx context.Context, id int64) (models.Song, error)
}

// Store is the non-transactional read side plus the transaction entry point.
type Store interface {
	Catalog

	// WithTx runs fn in one transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(Tx) error) error

	Playlist(ctx context.Context, id int64) (models.Playlist, error)
	PlaylistSongs(ctx context.Context, playlistID int64) ([]models.MembershipDetail, error)
	ListPlaylists(ctx context.Context, filter PlaylistFilter) ([]models.Playlist, int64, error)
	Membership(ctx context.Context, id int64) (models.Membership, error)
	ListMemberships(ctx context.Context, page models.PageRequest) ([]models.Membership, int64, error)
}

// Tx is the mutation side, valid only inside WithTx.
type Tx interface {
	// LockPlaylist loads a playlist and holds it against concurrent writers
	// until the transaction ends.
	LockPlaylist(ctx context.Context, id int64) (models.Playlist, error)
	InsertPlaylist(ctx context.Context, p *models.Playlist) error
	UpdatePlaylist(ctx context.Context, p models.Playlist) error
	DeletePlaylist(ctx context.Context, id int64) error

	// GenreOwners maps each claimed genre in ids to the playlist holding it.
	GenreOwners(ctx context.Context, ids []int64) (map[int64]int64, error)
	// SetPlaylistGenres replaces the genre claims of a playlist. A genre held
	// by another playlist fails with ErrGenreClaimed.
	SetPlaylistGenres(ctx context.Context, playlistID int64, genreIDs []int64) error
	CuratedPlaylistsForGenres(ctx context.Context, genreIDs []int64) ([]int64, error)
	CuratedPlaylistsOfSong(ctx context.Context, songID int64) ([]int64, error)

	Membership(ctx context.Context, id int64) (models.Membership, error)
	InsertMembership(ctx context.Context, m *models.Membership) error
	DeleteMembership(ctx context.Context, id int64) error
	ClearMemberships(ctx context.Context, playlistID int64) error
	// DeleteSongMembership removes songID from playlistID.
	DeleteSongMembership(ctx context.Context, playlistID, songID int64) error

	// MembershipsOldestFirst lists memberships by (addedAt asc, id asc) with
	// the song thumbnail populated.
	MembershipsOldestFirst(ctx context.Context, playlistID int64) ([]models.MembershipDetail, error)
	SetThumbnail(ctx context.Context, playlistID int64, thumbnail *string) error
}
