// Package httpapi exposes the playlist service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tunevault/internal/auth"
	"tunevault/internal/models"
	"tunevault/internal/playlists"
)

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	CreateUserPlaylist(ctx context.Context, p auth.Principal, req playlists.CreateRequest) (models.Playlist, error)
	CreateCuratedPlaylist(ctx context.Context, p auth.Principal, req playlists.CuratedRequest) (models.Playlist, error)
	GetByID(ctx context.Context, p auth.Principal, id int64) (models.Playlist, error)
	GetByIDWithSongs(ctx context.Context, p auth.Principal, id int64) (models.PlaylistWithSongs, error)
	ListAll(ctx context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Playlist], error)
	SearchByName(ctx context.Context, p auth.Principal, query string, page models.PageRequest) (models.Page[models.Playlist], error)
	ListByGenre(ctx context.Context, p auth.Principal, genreID int64, page models.PageRequest) (models.Page[models.Playlist], error)
	ListMine(ctx context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Playlist], error)
	Update(ctx context.Context, p auth.Principal, id int64, patch playlists.Patch) (models.Playlist, error)
	UpdateWithGenres(ctx context.Context, p auth.Principal, id int64, upd playlists.GenreUpdate) (models.Playlist, error)
	Delete(ctx context.Context, p auth.Principal, id int64) error
	Share(ctx context.Context, p auth.Principal, id int64) (string, error)
	AddSong(ctx context.Context, p auth.Principal, playlistID, songID int64) (models.Membership, error)
	RemoveSong(ctx context.Context, p auth.Principal, membershipID int64) error
	ListMemberships(ctx context.Context, p auth.Principal, page models.PageRequest) (models.Page[models.Membership], error)
	ResyncSong(ctx context.Context, p auth.Principal, songID int64) (playlists.ResyncResult, error)
}

// Server wires HTTP handlers to the playlist service.
type Server struct {
	playlists PlaylistService
}

// New creates a Server.
func New(svc PlaylistService) *Server {
	return &Server{playlists: svc}
}

// Register mounts the health check and every /api/v1 route on router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	s.registerPlaylists(api)
	s.registerMemberships(api)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// pageRequest reads page, size, sortBy and sortDir from the query string.
func pageRequest(r *http.Request) (models.PageRequest, error) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 0)
	if err != nil || page < 0 {
		return models.PageRequest{}, errors.New("page must be a non-negative integer")
	}
	size, err := queryInt(q.Get("size"), 0)
	if err != nil || size < 0 {
		return models.PageRequest{}, errors.New("size must be a non-negative integer")
	}
	req := models.NewPageRequest(page, size, q.Get("sortBy"), q.Get("sortDir"))
	if page > req.Page {
		return models.PageRequest{}, errors.New("page is out of range")
	}
	return req, nil
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
