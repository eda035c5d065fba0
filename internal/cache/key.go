// Package cache is the read cache for playlist queries. Entries live in
// buckets; a write invalidates whole buckets chosen from the mutation kind.
package cache

import (
	"fmt"
	"strconv"
	"strings"

	"tunevault/internal/models"
)

// Region groups cache entries by query shape.
type Region string

const (
	RegionByID    Region = "by-id"
	RegionListing Region = "listing"
	RegionSearch  Region = "search"
	RegionByGenre Region = "by-genre"
	RegionMine    Region = "my-playlists"
)

// Views of a single playlist cached under its by-id bucket.
const (
	ViewPlain     = "plain"
	ViewWithSongs = "with-songs"
)

// Key identifies one cached value. Bucket picks the invalidation unit and
// Field the entry within it.
type Key struct {
	Region     Region
	PlaylistID int64
	OwnerID    int64
	GenreID    int64
	View       string
	Query      string
	Page       int
	Size       int
	Sort       string
	Scope      string
}

func ByID(playlistID int64, view string) Key {
	return Key{Region: RegionByID, PlaylistID: playlistID, View: view}
}

func Listing(page models.PageRequest, scope string) Key {
	return withPage(Key{Region: RegionListing, Scope: scope}, page)
}

func Search(query string, page models.PageRequest, scope string) Key {
	return withPage(Key{Region: RegionSearch, Query: strings.ToLower(query), Scope: scope}, page)
}

func ByGenre(genreID int64, page models.PageRequest, scope string) Key {
	return withPage(Key{Region: RegionByGenre, GenreID: genreID, Scope: scope}, page)
}

func Mine(ownerID int64, page models.PageRequest) Key {
	return withPage(Key{Region: RegionMine, OwnerID: ownerID}, page)
}

func withPage(k Key, page models.PageRequest) Key {
	k.Page = page.Page
	k.Size = page.Size
	k.Sort = page.Sort + "," + page.Direction()
	return k
}

// Bucket names the invalidation unit holding k.
func (k Key) Bucket() string {
	switch k.Region {
	case RegionByID:
		return bucketForPlaylist(k.PlaylistID)
	case RegionMine:
		return bucketForOwner(k.OwnerID)
	default:
		return string(k.Region)
	}
}

// Field names k inside its bucket.
func (k Key) Field() string {
	switch k.Region {
	case RegionByID:
		return k.View
	case RegionSearch:
		return fmt.Sprintf("q=%s|%s", strconv.Quote(k.Query), k.pageField())
	case RegionByGenre:
		return fmt.Sprintf("genre=%d|%s", k.GenreID, k.pageField())
	default:
		return k.pageField()
	}
}

func (k Key) pageField() string {
	f := fmt.Sprintf("page=%d|size=%d|sort=%s", k.Page, k.Size, k.Sort)
	if k.Scope != "" {
		f += "|scope=" + k.Scope
	}
	return f
}

func (k Key) String() string {
	return k.Bucket() + "#" + k.Field()
}

func bucketForPlaylist(id int64) string {
	return fmt.Sprintf("%s:%d", RegionByID, id)
}

func bucketForOwner(id int64) string {
	return fmt.Sprintf("%s:%d", RegionMine, id)
}
