package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"tunevault/internal/auth"
	"tunevault/internal/middleware"
	"tunevault/internal/models"
	"tunevault/internal/playlists"
)

const testSecret = "0123456789abcdef-http"

type stubPlaylistService struct {
	err error

	lastPrincipal auth.Principal
	lastID        int64
	lastSongID    int64
	lastQuery     string
	lastPage      models.PageRequest
	lastCreate    playlists.CreateRequest
	lastCurated   playlists.CuratedRequest
	lastPatch     playlists.Patch
	lastGenres    playlists.GenreUpdate
}

func (s *stubPlaylistService) CreateUserPlaylist(_ context.Context, p auth.Principal, req playlists.CreateRequest) (models.Playlist, error) {
	s.lastPrincipal, s.lastCreate = p, req
	return models.Playlist{ID: 1, Name: req.Name, OwnerID: p.ID, GenreIDs: []int64{}}, s.err
}

func (s *stubPlaylistService) CreateCuratedPlaylist(_ context.Context, p auth.Principal, req playlists.CuratedRequest) (models.Playlist, error) {
	s.lastPrincipal, s.lastCurated = p, req
	return models.Playlist{ID: 2, Name: req.Name, IsPublic: true, GenreIDs: req.GenreIDs}, s.err
}

func (s *stubPlaylistService) GetByID(_ context.Context, p auth.Principal, id int64) (models.Playlist, error) {
	s.lastPrincipal, s.lastID = p, id
	return models.Playlist{ID: id, Name: "Road Trip"}, s.err
}

func (s *stubPlaylistService) GetByIDWithSongs(_ context.Context, p auth.Principal, id int64) (models.PlaylistWithSongs, error) {
	s.lastPrincipal, s.lastID = p, id
	return models.PlaylistWithSongs{
		Playlist: models.Playlist{ID: id},
		SongPlaylists: []models.MembershipDetail{
			{Membership: models.Membership{ID: 9, PlaylistID: id, SongID: 4}, Song: models.Song{ID: 4, Title: "Song"}},
		},
	}, s.err
}

func (s *stubPlaylistService) page() models.Page[models.Playlist] {
	return models.NewPage([]models.Playlist{{ID: 1}}, s.lastPage, 1)
}

func (s *stubPlaylistService) ListAll(_ context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Playlist], error) {
	s.lastPrincipal, s.lastPage = p, page
	return s.page(), s.err
}

func (s *stubPlaylistService) SearchByName(_ context.Context, p auth.Principal, query string, page models.PageRequest) (models.Page[models.Playlist], error) {
	s.lastPrincipal, s.lastQuery, s.lastPage = p, query, page
	return s.page(), s.err
}

func (s *stubPlaylistService) ListByGenre(_ context.Context, p auth.Principal, genreID int64, page models.PageRequest) (models.Page[models.Playlist], error) {
	s.lastPrincipal, s.lastID, s.lastPage = p, genreID, page
	return s.page(), s.err
}

func (s *stubPlaylistService) ListMine(_ context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Playlist], error) {
	s.lastPrincipal, s.lastPage = p, page
	return s.page(), s.err
}

func (s *stubPlaylistService) Update(_ context.Context, p auth.Principal, id int64, patch playlists.Patch) (models.Playlist, error) {
	s.lastPrincipal, s.lastID, s.lastPatch = p, id, patch
	return models.Playlist{ID: id}, s.err
}

func (s *stubPlaylistService) UpdateWithGenres(_ context.Context, p auth.Principal, id int64, upd playlists.GenreUpdate) (models.Playlist, error) {
	s.lastPrincipal, s.lastID, s.lastGenres = p, id, upd
	return models.Playlist{ID: id, GenreIDs: upd.GenreIDs, IsPublic: true}, s.err
}

func (s *stubPlaylistService) Delete(_ context.Context, p auth.Principal, id int64) error {
	s.lastPrincipal, s.lastID = p, id
	return s.err
}

func (s *stubPlaylistService) Share(_ context.Context, p auth.Principal, id int64) (string, error) {
	s.lastPrincipal, s.lastID = p, id
	return fmt.Sprintf("https://tunes.example/api/v1/playlists/%d", id), s.err
}

func (s *stubPlaylistService) AddSong(_ context.Context, p auth.Principal, playlistID, songID int64) (models.Membership, error) {
	s.lastPrincipal, s.lastID, s.lastSongID = p, playlistID, songID
	return models.Membership{ID: 5, PlaylistID: playlistID, SongID: songID}, s.err
}

func (s *stubPlaylistService) RemoveSong(_ context.Context, p auth.Principal, membershipID int64) error {
	s.lastPrincipal, s.lastID = p, membershipID
	return s.err
}

func (s *stubPlaylistService) ListMemberships(_ context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Membership], error) {
	s.lastPrincipal, s.lastPage = p, page
	return models.NewPage([]models.Membership{}, page, 0), s.err
}

func (s *stubPlaylistService) ResyncSong(_ context.Context, p auth.Principal, songID int64) (playlists.ResyncResult, error) {
	s.lastPrincipal, s.lastSongID = p, songID
	return playlists.ResyncResult{SongID: songID, Added: []int64{3}, Removed: []int64{}}, s.err
}

func newTestHandler(svc PlaylistService) http.Handler {
	router := mux.NewRouter()
	New(svc).Register(router)
	return middleware.Authenticate(auth.NewVerifier(testSecret))(router)
}

func bearer(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := auth.NewVerifier(testSecret).Sign(p, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, target, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&stubPlaylistService{}), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreatePlaylistPassesPrincipalAndBody(t *testing.T) {
	svc := &stubPlaylistService{}
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodPost, "/api/v1/playlists", bearer(t, auth.User(42)), map[string]any{
		"name":     "Morning",
		"isPublic": true,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastPrincipal != auth.User(42) {
		t.Fatalf("principal = %+v", svc.lastPrincipal)
	}
	if svc.lastCreate.Name != "Morning" || svc.lastCreate.IsPublic == nil || !*svc.lastCreate.IsPublic {
		t.Fatalf("request = %+v", svc.lastCreate)
	}

	var got models.Playlist
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OwnerID != 42 {
		t.Fatalf("owner = %d", got.OwnerID)
	}
}

func TestCreateCuratedPlaylist(t *testing.T) {
	svc := &stubPlaylistService{}
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/v1/playlists/with-genres", bearer(t, auth.Admin(1)), map[string]any{
		"name":     "Rock",
		"genreIds": []int64{5, 6},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.lastCurated.GenreIDs) != 2 {
		t.Fatalf("genre ids = %v", svc.lastCurated.GenreIDs)
	}
}

func TestRejectsMalformedBodies(t *testing.T) {
	h := newTestHandler(&stubPlaylistService{})
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"empty body", http.MethodPost, "/api/v1/playlists", ""},
		{"unknown field", http.MethodPost, "/api/v1/playlists", `{"name":"x","tags":["a"]}`},
		{"bad json", http.MethodPut, "/api/v1/playlists/3", `{"name":`},
		{"missing ids", http.MethodPost, "/api/v1/song-playlists", `{"playlistId":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListRoutesParsePaging(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantPage  models.PageRequest
		wantQuery string
		wantID    int64
	}{
		{
			name:     "list defaults",
			target:   "/api/v1/playlists",
			wantPage: models.DefaultPage(),
		},
		{
			name:     "list explicit",
			target:   "/api/v1/playlists?page=2&size=5&sortBy=name&sortDir=asc",
			wantPage: models.PageRequest{Page: 2, Size: 5, Sort: models.SortName, Desc: false},
		},
		{
			name:      "search",
			target:    "/api/v1/playlists/search?name=chill&size=500",
			wantPage:  models.PageRequest{Page: 0, Size: models.MaxPageSize, Sort: models.SortCreatedAt, Desc: true},
			wantQuery: "chill",
		},
		{
			name:     "by genre",
			target:   "/api/v1/playlists/genre/7?page=1",
			wantPage: models.PageRequest{Page: 1, Size: models.DefaultPageSize, Sort: models.SortCreatedAt, Desc: true},
			wantID:   7,
		},
		{
			name:     "mine",
			target:   "/api/v1/playlists/my-playlists",
			wantPage: models.DefaultPage(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPlaylistService{}
			rec := do(t, newTestHandler(svc), http.MethodGet, tt.target, bearer(t, auth.User(3)), nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if svc.lastPage != tt.wantPage {
				t.Fatalf("page = %+v, want %+v", svc.lastPage, tt.wantPage)
			}
			if svc.lastQuery != tt.wantQuery {
				t.Fatalf("query = %q, want %q", svc.lastQuery, tt.wantQuery)
			}
			if svc.lastID != tt.wantID {
				t.Fatalf("id = %d, want %d", svc.lastID, tt.wantID)
			}

			var page map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, field := range []string{"content", "pageNumber", "pageSize", "totalElements", "totalPages", "last"} {
				if _, ok := page[field]; !ok {
					t.Fatalf("page response missing %q: %v", field, page)
				}
			}
		})
	}
}

func TestListRejectsBadPaging(t *testing.T) {
	h := newTestHandler(&stubPlaylistService{})
	for _, target := range []string{
		"/api/v1/playlists?page=-1",
		"/api/v1/playlists?size=abc",
		"/api/v1/playlists/search",
		"/api/v1/playlists?page=9223372036854775807&size=100",
	} {
		rec := do(t, h, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: playlist 9", playlists.ErrNotFound), http.StatusNotFound},
		{"forbidden", playlists.ErrForbidden, http.StatusForbidden},
		{"unauthenticated", playlists.ErrUnauthenticated, http.StatusUnauthorized},
		{"conflict", fmt.Errorf("genre 5: %w", playlists.ErrConflict), http.StatusConflict},
		{"invalid", playlists.ErrInvalidArgument, http.StatusBadRequest},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubPlaylistService{err: tt.err})
			rec := do(t, h, http.MethodGet, "/api/v1/playlists/9", "", nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] == "" {
				t.Fatalf("missing error message")
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(body["error"], "connection") {
				t.Fatalf("internal error leaked: %q", body["error"])
			}
		})
	}
}

func TestPlaylistMutationRoutes(t *testing.T) {
	admin := auth.Admin(1)
	tests := []struct {
		name       string
		method     string
		target     string
		body       any
		wantStatus int
		check      func(t *testing.T, svc *stubPlaylistService)
	}{
		{
			name:       "update",
			method:     http.MethodPut,
			target:     "/api/v1/playlists/3",
			body:       map[string]any{"name": "New", "isPublic": false},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, svc *stubPlaylistService) {
				if svc.lastID != 3 || svc.lastPatch.Name == nil || *svc.lastPatch.Name != "New" || svc.lastPatch.Description != nil {
					t.Fatalf("patch = %+v", svc.lastPatch)
				}
			},
		},
		{
			name:       "update genres",
			method:     http.MethodPut,
			target:     "/api/v1/playlists/3/with-genres",
			body:       map[string]any{"genreIds": []int64{8}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, svc *stubPlaylistService) {
				if len(svc.lastGenres.GenreIDs) != 1 || svc.lastGenres.GenreIDs[0] != 8 {
					t.Fatalf("genres = %+v", svc.lastGenres)
				}
			},
		},
		{
			name:       "delete",
			method:     http.MethodDelete,
			target:     "/api/v1/playlists/3",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "with songs",
			method:     http.MethodGet,
			target:     "/api/v1/playlists/3/with-songs",
			wantStatus: http.StatusOK,
		},
		{
			name:       "add song",
			method:     http.MethodPost,
			target:     "/api/v1/song-playlists",
			body:       map[string]any{"playlistId": 3, "songId": 11},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, svc *stubPlaylistService) {
				if svc.lastID != 3 || svc.lastSongID != 11 {
					t.Fatalf("add song got playlist=%d song=%d", svc.lastID, svc.lastSongID)
				}
			},
		},
		{
			name:       "remove song",
			method:     http.MethodDelete,
			target:     "/api/v1/song-playlists/12",
			wantStatus: http.StatusNoContent,
			check: func(t *testing.T, svc *stubPlaylistService) {
				if svc.lastID != 12 {
					t.Fatalf("membership id = %d", svc.lastID)
				}
			},
		},
		{
			name:       "list memberships",
			method:     http.MethodGet,
			target:     "/api/v1/song-playlists?size=10",
			wantStatus: http.StatusOK,
		},
		{
			name:       "resync",
			method:     http.MethodPost,
			target:     "/api/v1/songs/11/resync-playlists",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, svc *stubPlaylistService) {
				if svc.lastSongID != 11 {
					t.Fatalf("song id = %d", svc.lastSongID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPlaylistService{}
			rec := do(t, newTestHandler(svc), tt.method, tt.target, bearer(t, admin), tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if svc.lastPrincipal != admin {
				t.Fatalf("principal = %+v", svc.lastPrincipal)
			}
			if tt.check != nil {
				tt.check(t, svc)
			}
		})
	}
}

func TestShareReturnsPlainText(t *testing.T) {
	svc := &stubPlaylistService{}
	rec := do(t, newTestHandler(svc), http.MethodGet, "/api/v1/playlists/15/share", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "https://tunes.example/api/v1/playlists/15" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if svc.lastPrincipal != auth.Anonymous() {
		t.Fatalf("principal = %+v", svc.lastPrincipal)
	}
}

func TestInvalidTokenIsRejectedBeforeRouting(t *testing.T) {
	svc := &stubPlaylistService{}
	rec := do(t, newTestHandler(svc), http.MethodGet, "/api/v1/playlists", "Bearer nope", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastPrincipal != (auth.Principal{}) {
		t.Fatalf("service should not be called")
	}
}
