package cache

import "sort"

// MutationKind classifies a committed write.
type MutationKind int

const (
	Created MutationKind = iota + 1
	Updated
	GenresChanged
	Deleted
	MembershipChanged
)

func (k MutationKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case GenresChanged:
		return "genres-changed"
	case Deleted:
		return "deleted"
	case MembershipChanged:
		return "membership-changed"
	default:
		return "unknown"
	}
}

// Mutation describes one committed write in enough detail to choose the
// buckets it makes stale.
type Mutation struct {
	Kind             MutationKind
	PlaylistID       int64
	OwnerID          int64
	Curated          bool
	ThumbnailChanged bool
}

type bucketSet struct {
	byID    bool
	lists   bool
	byGenre bool
}

// invalidations maps a mutation to the regions it touches. Listing, search
// and my-playlists always move together because they all render the same
// playlist rows.
func invalidations(m Mutation) bucketSet {
	switch m.Kind {
	case Created:
		return bucketSet{lists: true, byGenre: m.Curated}
	case Updated, Deleted:
		return bucketSet{byID: true, lists: true, byGenre: m.Curated}
	case GenresChanged:
		return bucketSet{byID: true, lists: true, byGenre: true}
	case MembershipChanged:
		return bucketSet{byID: true, lists: m.ThumbnailChanged, byGenre: m.ThumbnailChanged && m.Curated}
	default:
		return bucketSet{byID: true, lists: true, byGenre: true}
	}
}

// Buckets returns the sorted union of buckets staled by muts.
func Buckets(muts ...Mutation) []string {
	set := make(map[string]struct{})
	for _, m := range muts {
		b := invalidations(m)
		if b.byID {
			set[bucketForPlaylist(m.PlaylistID)] = struct{}{}
		}
		if b.lists {
			set[string(RegionListing)] = struct{}{}
			set[string(RegionSearch)] = struct{}{}
			set[bucketForOwner(m.OwnerID)] = struct{}{}
		}
		if b.byGenre {
			set[string(RegionByGenre)] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
