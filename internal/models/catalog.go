package models

// Song is a catalog track. Songs are owned by the catalog; playlists only
// reference them.
type Song struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Duration  int     `json:"duration"`
	ArtistID  int64   `json:"artistId"`
	GenreIDs  []int64 `json:"genreIds,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
