package visibility

import (
	"testing"

	"tunevault/internal/auth"
	"tunevault/internal/models"
)

func TestCapabilities(t *testing.T) {
	private := models.Playlist{ID: 1, OwnerID: 10}
	public := models.Playlist{ID: 2, OwnerID: 10, IsPublic: true}

	tests := []struct {
		name      string
		principal auth.Principal
		playlist  models.Playlist
		class     Class
		read      bool
		write     bool
	}{
		{"admin on private", auth.Admin(1), private, ClassAdmin, true, true},
		{"owner on private", auth.User(10), private, ClassOwner, true, true},
		{"stranger on private", auth.User(11), private, ClassNone, false, false},
		{"anonymous on private", auth.Anonymous(), private, ClassNone, false, false},
		{"stranger on public", auth.User(11), public, ClassPublicViewer, true, false},
		{"anonymous on public", auth.Anonymous(), public, ClassPublicViewer, true, false},
		{"owner on public", auth.User(10), public, ClassOwner, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.principal, tt.playlist); got != tt.class {
				t.Fatalf("Classify() = %v, want %v", got, tt.class)
			}
			if got := Allowed(tt.principal, tt.playlist, Read); got != tt.read {
				t.Fatalf("read = %v, want %v", got, tt.read)
			}
			if got := Allowed(tt.principal, tt.playlist, Share); got != tt.read {
				t.Fatalf("share = %v, want %v", got, tt.read)
			}
			if got := Allowed(tt.principal, tt.playlist, Write); got != tt.write {
				t.Fatalf("write = %v, want %v", got, tt.write)
			}
		})
	}
}

func TestListScope(t *testing.T) {
	mine := models.Playlist{OwnerID: 5}
	theirs := models.Playlist{OwnerID: 6}
	open := models.Playlist{OwnerID: 6, IsPublic: true}

	admin := ListScope(auth.Admin(1))
	user := ListScope(auth.User(5))
	anon := ListScope(auth.Anonymous())

	if !admin.Includes(theirs) || admin.Key() != "all" {
		t.Fatalf("admin scope should include everything: %+v", admin)
	}
	if !user.Includes(mine) || user.Includes(theirs) || !user.Includes(open) {
		t.Fatalf("user scope mismatch: %+v", user)
	}
	if anon.Includes(mine) || !anon.Includes(open) || anon.Key() != "public" {
		t.Fatalf("anonymous scope mismatch: %+v", anon)
	}
	if user.Key() != "viewer:5" {
		t.Fatalf("unexpected key %q", user.Key())
	}
}
