// Package thumbnail derives a playlist's cover from its oldest song.
package thumbnail

import (
	"context"
	"fmt"

	"tunevault/internal/models"
)

// Source is the transactional view the deriver reads and writes through.
type Source interface {
	MembershipsOldestFirst(ctx context.Context, playlistID int64) ([]models.MembershipDetail, error)
	SetThumbnail(ctx context.Context, playlistID int64, thumbnail *string) error
}

// Derive recomputes and stores the thumbnail of a playlist. It must run
// inside the transaction that changed the memberships. Running it twice
// without an intervening change yields the same value.
func Derive(ctx context.Context, src Source, playlistID int64) (*string, error) {
	memberships, err := src.MembershipsOldestFirst(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	thumb := Pick(memberships)
	if err := src.SetThumbnail(ctx, playlistID, thumb); err != nil {
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}
	return thumb, nil
}

// Pick returns the song thumbnail of the oldest membership, ties broken by
// the lower membership id. Empty thumbnails and empty playlists yield nil.
func Pick(memberships []models.MembershipDetail) *string {
	var oldest *models.MembershipDetail
	for i := range memberships {
		m := &memberships[i]
		if oldest == nil || older(m.Membership, oldest.Membership) {
			oldest = m
		}
	}
	if oldest == nil || oldest.Song.Thumbnail == "" {
		return nil
	}
	thumb := oldest.Song.Thumbnail
	return &thumb
}

// Equal compares two optional thumbnails by value.
func Equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func older(a, b models.Membership) bool {
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.Before(b.AddedAt)
	}
	return a.ID < b.ID
}
