package models

import "time"

// Playlist is a named, owned collection of songs. A playlist bound to one or
// more genres is curated: its memberships are derived from those genres and
// it is always public.
type Playlist struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Thumbnail   *string   `json:"thumbnail"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerID     int64     `json:"userId"`
	IsPublic    bool      `json:"isPublic"`
	GenreIDs    []int64   `json:"genreIds"`
}

// Curated reports whether the playlist is bound to genres.
func (p Playlist) Curated() bool {
	return len(p.GenreIDs) > 0
}

// Clone returns a deep copy of the playlist.
func (p Playlist) Clone() Playlist {
	out := p
	if p.Thumbnail != nil {
		thumb := *p.Thumbnail
		out.Thumbnail = &thumb
	}
	out.GenreIDs = append([]int64(nil), p.GenreIDs...)
	return out
}

// PlaylistWithSongs is a playlist together with its memberships, newest first.
type PlaylistWithSongs struct {
	Playlist
	SongPlaylists []MembershipDetail `json:"songPlaylists"`
}

// Membership places one song in one playlist.
type Membership struct {
	ID         int64     `json:"id"`
	PlaylistID int64     `json:"playlistId"`
	SongID     int64     `json:"songId"`
	AddedAt    time.Time `json:"addedAt"`
}

// MembershipDetail is a membership joined with its song.
type MembershipDetail struct {
	Membership
	Song Song `json:"song"`
}
