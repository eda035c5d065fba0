package memstore

import (
	"context"
	"sort"
	"time"

	"tunevault/internal/models"
	"tunevault/internal/storage"
)

type tx struct {
	state *state
	now   func() time.Time
}

func (t *tx) LockPlaylist(_ context.Context, id int64) (models.Playlist, error) {
	p, ok := t.state.playlists[id]
	if !ok {
		return models.Playlist{}, storage.ErrPlaylistNotFound
	}
	return p.Clone(), nil
}

func (t *tx) InsertPlaylist(_ context.Context, p *models.Playlist) error {
	p.ID = t.state.nextPlaylistID
	t.state.nextPlaylistID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t.now()
	}
	stored := p.Clone()
	stored.Thumbnail = nil
	stored.GenreIDs = []int64{}
	t.state.playlists[p.ID] = stored
	if p.GenreIDs == nil {
		p.GenreIDs = []int64{}
	}
	return nil
}

// UpdatePlaylist stores name, description and visibility. Genres and the
// thumbnail have their own setters.
func (t *tx) UpdatePlaylist(_ context.Context, p models.Playlist) error {
	existing, ok := t.state.playlists[p.ID]
	if !ok {
		return storage.ErrPlaylistNotFound
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.IsPublic = p.IsPublic
	t.state.playlists[p.ID] = existing
	return nil
}

func (t *tx) DeletePlaylist(_ context.Context, id int64) error {
	if _, ok := t.state.playlists[id]; !ok {
		return storage.ErrPlaylistNotFound
	}
	delete(t.state.playlists, id)
	for g, owner := range t.state.genreOwner {
		if owner == id {
			delete(t.state.genreOwner, g)
		}
	}
	for mid, m := range t.state.memberships {
		if m.PlaylistID == id {
			delete(t.state.memberships, mid)
		}
	}
	return nil
}

func (t *tx) GenreOwners(_ context.Context, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, id := range ids {
		if owner, ok := t.state.genreOwner[id]; ok {
			out[id] = owner
		}
	}
	return out, nil
}

func (t *tx) SetPlaylistGenres(_ context.Context, playlistID int64, genreIDs []int64) error {
	p, ok := t.state.playlists[playlistID]
	if !ok {
		return storage.ErrPlaylistNotFound
	}
	for _, g := range genreIDs {
		if owner, ok := t.state.genreOwner[g]; ok && owner != playlistID {
			return storage.ErrGenreClaimed
		}
	}
	for g, owner := range t.state.genreOwner {
		if owner == playlistID {
			delete(t.state.genreOwner, g)
		}
	}
	for _, g := range genreIDs {
		t.state.genreOwner[g] = playlistID
	}
	p.GenreIDs = append([]int64{}, genreIDs...)
	sort.Slice(p.GenreIDs, func(i, j int) bool { return p.GenreIDs[i] < p.GenreIDs[j] })
	t.state.playlists[playlistID] = p
	return nil
}

func (t *tx) CuratedPlaylistsForGenres(_ context.Context, genreIDs []int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var out []int64
	for _, g := range genreIDs {
		owner, ok := t.state.genreOwner[g]
		if !ok {
			continue
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		out = append(out, owner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (t *tx) CuratedPlaylistsOfSong(_ context.Context, songID int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var out []int64
	for _, m := range t.state.memberships {
		if m.SongID != songID || !t.state.playlists[m.PlaylistID].Curated() {
			continue
		}
		if _, dup := seen[m.PlaylistID]; dup {
			continue
		}
		seen[m.PlaylistID] = struct{}{}
		out = append(out, m.PlaylistID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (t *tx) Membership(_ context.Context, id int64) (models.Membership, error) {
	m, ok := t.state.memberships[id]
	if !ok {
		return models.Membership{}, storage.ErrMembershipNotFound
	}
	return m, nil
}

func (t *tx) InsertMembership(_ context.Context, m *models.Membership) error {
	if _, ok := t.state.playlists[m.PlaylistID]; !ok {
		return storage.ErrPlaylistNotFound
	}
	if _, ok := t.state.songs[m.SongID]; !ok {
		return storage.ErrSongNotFound
	}
	for _, existing := range t.state.memberships {
		if existing.PlaylistID == m.PlaylistID && existing.SongID == m.SongID {
			return storage.ErrDuplicateMembership
		}
	}
	m.ID = t.state.nextMembershipID
	t.state.nextMembershipID++
	if m.AddedAt.IsZero() {
		m.AddedAt = t.now()
	}
	t.state.memberships[m.ID] = *m
	return nil
}

func (t *tx) DeleteMembership(_ context.Context, id int64) error {
	if _, ok := t.state.memberships[id]; !ok {
		return storage.ErrMembershipNotFound
	}
	delete(t.state.memberships, id)
	return nil
}

func (t *tx) ClearMemberships(_ context.Context, playlistID int64) error {
	for id, m := range t.state.memberships {
		if m.PlaylistID == playlistID {
			delete(t.state.memberships, id)
		}
	}
	return nil
}

func (t *tx) DeleteSongMembership(_ context.Context, playlistID, songID int64) error {
	for id, m := range t.state.memberships {
		if m.PlaylistID == playlistID && m.SongID == songID {
			delete(t.state.memberships, id)
			return nil
		}
	}
	return storage.ErrMembershipNotFound
}

func (t *tx) MembershipsOldestFirst(_ context.Context, playlistID int64) ([]models.MembershipDetail, error) {
	out := t.state.details(playlistID)
	sort.Slice(out, func(i, j int) bool { return newer(out[j].Membership, out[i].Membership) })
	return out, nil
}

func (t *tx) SetThumbnail(_ context.Context, playlistID int64, thumbnail *string) error {
	p, ok := t.state.playlists[playlistID]
	if !ok {
		return storage.ErrPlaylistNotFound
	}
	if thumbnail != nil {
		v := *thumbnail
		thumbnail = &v
	}
	p.Thumbnail = thumbnail
	t.state.playlists[playlistID] = p
	return nil
}
