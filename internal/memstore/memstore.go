// Package memstore is an in-memory implementation of storage.Store used for
// local development and tests.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"tunevault/internal/models"
	"tunevault/internal/storage"
)

// Store keeps all state in maps guarded by one mutex. Transactions work on a
// copy of the state that replaces the committed state only when the
// transaction function succeeds.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

type state struct {
	genres      map[int64]models.Genre
	songs       map[int64]models.Song
	playlists   map[int64]models.Playlist
	genreOwner  map[int64]int64
	memberships map[int64]models.Membership

	nextGenreID      int64
	nextSongID       int64
	nextPlaylistID   int64
	nextMembershipID int64
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		state: &state{
			genres:           make(map[int64]models.Genre),
			songs:            make(map[int64]models.Song),
			playlists:        make(map[int64]models.Playlist),
			genreOwner:       make(map[int64]int64),
			memberships:      make(map[int64]models.Membership),
			nextGenreID:      1,
			nextSongID:       1,
			nextPlaylistID:   1,
			nextMembershipID: 1,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *state) clone() *state {
	out := &state{
		genres:           make(map[int64]models.Genre, len(s.genres)),
		songs:            make(map[int64]models.Song, len(s.songs)),
		playlists:        make(map[int64]models.Playlist, len(s.playlists)),
		genreOwner:       make(map[int64]int64, len(s.genreOwner)),
		memberships:      make(map[int64]models.Membership, len(s.memberships)),
		nextGenreID:      s.nextGenreID,
		nextSongID:       s.nextSongID,
		nextPlaylistID:   s.nextPlaylistID,
		nextMembershipID: s.nextMembershipID,
	}
	for id, g := range s.genres {
		out.genres[id] = g
	}
	for id, song := range s.songs {
		out.songs[id] = cloneSong(song)
	}
	for id, p := range s.playlists {
		out.playlists[id] = p.Clone()
	}
	for g, p := range s.genreOwner {
		out.genreOwner[g] = p
	}
	for id, m := range s.memberships {
		out.memberships[id] = m
	}
	return out
}

func cloneSong(s models.Song) models.Song {
	s.GenreIDs = append([]int64(nil), s.GenreIDs...)
	return s
}

// AddGenre registers a catalog genre, assigning an id when zero.
func (s *Store) AddGenre(_ context.Context, g models.Genre) (models.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == 0 {
		g.ID = s.state.nextGenreID
	}
	if g.ID >= s.state.nextGenreID {
		s.state.nextGenreID = g.ID + 1
	}
	s.state.genres[g.ID] = g
	return g, nil
}

// AddSong registers a catalog song, assigning an id when zero.
func (s *Store) AddSong(_ context.Context, song models.Song) (models.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range song.GenreIDs {
		if _, ok := s.state.genres[g]; !ok {
			return models.Song{}, errors.New("song references unknown genre")
		}
	}
	if song.ID == 0 {
		song.ID = s.state.nextSongID
	}
	if song.ID >= s.state.nextSongID {
		s.state.nextSongID = song.ID + 1
	}
	s.state.songs[song.ID] = cloneSong(song)
	return cloneSong(song), nil
}

// SetSongGenres changes a song's genres the way the catalog would. Callers
// resync curated playlists afterwards.
func (s *Store) SetSongGenres(_ context.Context, songID int64, genreIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	song, ok := s.state.songs[songID]
	if !ok {
		return storage.ErrSongNotFound
	}
	song.GenreIDs = append([]int64(nil), genreIDs...)
	s.state.songs[songID] = song
	return nil
}

// CatalogEmpty reports whether no songs are registered.
func (s *Store) CatalogEmpty(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.songs) == 0, nil
}

// WithTx runs fn against a private copy of the state and publishes it on
// success.
func (s *Store) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{state: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GenresByIDs(_ context.Context, ids []int64) ([]models.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Genre
	for _, id := range ids {
		if g, ok := s.state.genres[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) SongsByGenres(_ context.Context, genreIDs []int64) ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.songsByGenres(genreIDs), nil
}

func (s *Store) Song(_ context.Context, id int64) (models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	song, ok := s.state.songs[id]
	if !ok {
		return models.Song{}, storage.ErrSongNotFound
	}
	return cloneSong(song), nil
}

func (s *Store) Playlist(_ context.Context, id int64) (models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.playlists[id]
	if !ok {
		return models.Playlist{}, storage.ErrPlaylistNotFound
	}
	return p.Clone(), nil
}

// PlaylistSongs lists memberships newest first.
func (s *Store) PlaylistSongs(_ context.Context, playlistID int64) ([]models.MembershipDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.state.playlists[playlistID]; !ok {
		return nil, storage.ErrPlaylistNotFound
	}
	out := s.state.details(playlistID)
	sort.Slice(out, func(i, j int) bool { return newer(out[i].Membership, out[j].Membership) })
	return out, nil
}

func (s *Store) ListPlaylists(_ context.Context, f storage.PlaylistFilter) ([]models.Playlist, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(f.NameContains)
	var matched []models.Playlist
	for _, p := range s.state.playlists {
		if !f.Scope.Includes(p) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if f.OwnerID != 0 && p.OwnerID != f.OwnerID {
			continue
		}
		if f.GenreID != 0 && s.state.genreOwner[f.GenreID] != p.ID {
			continue
		}
		matched = append(matched, p.Clone())
	}

	sortPlaylists(matched, f.Page)
	return paginate(matched, f.Page), int64(len(matched)), nil
}

func (s *Store) Membership(_ context.Context, id int64) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.state.memberships[id]
	if !ok {
		return models.Membership{}, storage.ErrMembershipNotFound
	}
	return m, nil
}

// ListMemberships lists every membership newest first.
func (s *Store) ListMemberships(_ context.Context, page models.PageRequest) ([]models.Membership, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Membership, 0, len(s.state.memberships))
	for _, m := range s.state.memberships {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return newer(all[i], all[j]) })
	return paginate(all, page), int64(len(all)), nil
}

func (s *state) songsByGenres(genreIDs []int64) []models.Song {
	want := make(map[int64]struct{}, len(genreIDs))
	for _, id := range genreIDs {
		want[id] = struct{}{}
	}
	var out []models.Song
	for _, song := range s.songs {
		for _, g := range song.GenreIDs {
			if _, ok := want[g]; ok {
				out = append(out, cloneSong(song))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) details(playlistID int64) []models.MembershipDetail {
	var out []models.MembershipDetail
	for _, m := range s.memberships {
		if m.PlaylistID != playlistID {
			continue
		}
		out = append(out, models.MembershipDetail{Membership: m, Song: cloneSong(s.songs[m.SongID])})
	}
	return out
}

func newer(a, b models.Membership) bool {
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.After(b.AddedAt)
	}
	return a.ID > b.ID
}

func sortPlaylists(list []models.Playlist, page models.PageRequest) {
	compare := func(a, b models.Playlist) int {
		switch page.Sort {
		case models.SortName:
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c
			}
		case models.SortID:
		default:
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	}
	sort.Slice(list, func(i, j int) bool {
		c := compare(list[i], list[j])
		if page.Desc {
			return c > 0
		}
		return c < 0
	})
}

func paginate[T any](items []T, page models.PageRequest) []T {
	start := page.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) || end < start {
		end = len(items)
	}
	return items[start:end]
}
