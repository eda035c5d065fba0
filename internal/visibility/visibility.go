// Package visibility decides who may see and change a playlist.
package visibility

import (
	"strconv"

	"tunevault/internal/auth"
	"tunevault/internal/models"
)

// Class is the relationship between a principal and one playlist.
type Class int

const (
	ClassNone Class = iota
	ClassPublicViewer
	ClassOwner
	ClassAdmin
)

func (c Class) String() string {
	switch c {
	case ClassAdmin:
		return "admin"
	case ClassOwner:
		return "owner"
	case ClassPublicViewer:
		return "public-viewer"
	default:
		return "none"
	}
}

// Capability is an action a principal may attempt on a playlist.
type Capability int

const (
	Read Capability = iota
	Write
	Share
)

// Classify resolves the class of p with respect to pl.
func Classify(p auth.Principal, pl models.Playlist) Class {
	switch {
	case p.IsAdmin():
		return ClassAdmin
	case p.Authenticated() && p.ID == pl.OwnerID:
		return ClassOwner
	case pl.IsPublic:
		return ClassPublicViewer
	default:
		return ClassNone
	}
}

func CanRead(p auth.Principal, pl models.Playlist) bool {
	return Classify(p, pl) != ClassNone
}

func CanWrite(p auth.Principal, pl models.Playlist) bool {
	c := Classify(p, pl)
	return c == ClassAdmin || c == ClassOwner
}

func CanShare(p auth.Principal, pl models.Playlist) bool {
	return CanRead(p, pl)
}

// Allowed checks a single capability.
func Allowed(p auth.Principal, pl models.Playlist, c Capability) bool {
	switch c {
	case Write:
		return CanWrite(p, pl)
	case Share:
		return CanShare(p, pl)
	default:
		return CanRead(p, pl)
	}
}

// Scope is a listing pre-filter. All disables filtering; otherwise public
// playlists are included plus, when ViewerID is set, the viewer's own.
type Scope struct {
	All      bool
	ViewerID int64
}

// ListScope returns the listing filter for p.
func ListScope(p auth.Principal) Scope {
	switch {
	case p.IsAdmin():
		return Scope{All: true}
	case p.Authenticated():
		return Scope{ViewerID: p.ID}
	default:
		return Scope{}
	}
}

// Includes reports whether pl passes the filter.
func (s Scope) Includes(pl models.Playlist) bool {
	if s.All || pl.IsPublic {
		return true
	}
	return s.ViewerID > 0 && pl.OwnerID == s.ViewerID
}

// Key identifies the filter in cache keys. Two principals with the same key
// see identical listings.
func (s Scope) Key() string {
	switch {
	case s.All:
		return "all"
	case s.ViewerID > 0:
		return "viewer:" + strconv.FormatInt(s.ViewerID, 10)
	default:
		return "public"
	}
}
