package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"tunevault/internal/auth"
	"tunevault/internal/playlists"
)

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"isPublic"`
}

type curatedPlaylistRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	GenreIDs    []int64 `json:"genreIds"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

type updateGenresRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	GenreIDs    []int64 `json:"genreIds"`
}

func (s *Server) registerPlaylists(router *mux.Router) {
	router.HandleFunc("/playlists", s.handleCreatePlaylist).Methods(http.MethodPost)
	router.HandleFunc("/playlists", s.handleListPlaylists).Methods(http.MethodGet)
	router.HandleFunc("/playlists/with-genres", s.handleCreateCurated).Methods(http.MethodPost)
	router.HandleFunc("/playlists/search", s.handleSearchPlaylists).Methods(http.MethodGet)
	router.HandleFunc("/playlists/my-playlists", s.handleMyPlaylists).Methods(http.MethodGet)
	router.HandleFunc("/playlists/genre/{genreId:[0-9]+}", s.handlePlaylistsByGenre).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id:[0-9]+}", s.handleGetPlaylist).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id:[0-9]+}", s.handleUpdatePlaylist).Methods(http.MethodPut)
	router.HandleFunc("/playlists/{id:[0-9]+}", s.handleDeletePlaylist).Methods(http.MethodDelete)
	router.HandleFunc("/playlists/{id:[0-9]+}/with-songs", s.handleGetPlaylistWithSongs).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id:[0-9]+}/with-genres", s.handleUpdateGenres).Methods(http.MethodPut)
	router.HandleFunc("/playlists/{id:[0-9]+}/share", s.handleSharePlaylist).Methods(http.MethodGet)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.playlists.CreateUserPlaylist(r.Context(), auth.FromContext(r.Context()), playlists.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateCurated(w http.ResponseWriter, r *http.Request) {
	var req curatedPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.playlists.CreateCuratedPlaylist(r.Context(), auth.FromContext(r.Context()), playlists.CuratedRequest{
		Name:        req.Name,
		Description: req.Description,
		GenreIDs:    req.GenreIDs,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.playlists.ListAll(r.Context(), auth.FromContext(r.Context()), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearchPlaylists(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("name"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.playlists.SearchByName(r.Context(), auth.FromContext(r.Context()), query, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMyPlaylists(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.playlists.ListMine(r.Context(), auth.FromContext(r.Context()), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlaylistsByGenre(w http.ResponseWriter, r *http.Request) {
	genreID, err := pathID(r, "genreId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.playlists.ListByGenre(r.Context(), auth.FromContext(r.Context()), genreID, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	playlist, err := s.playlists.GetByID(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleGetPlaylistWithSongs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	playlist, err := s.playlists.GetByIDWithSongs(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.playlists.Update(r.Context(), auth.FromContext(r.Context()), id, playlists.Patch{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUpdateGenres(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateGenresRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.playlists.UpdateWithGenres(r.Context(), auth.FromContext(r.Context()), id, playlists.GenreUpdate{
		Name:        req.Name,
		Description: req.Description,
		GenreIDs:    req.GenreIDs,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.playlists.Delete(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSharePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	link, err := s.playlists.Share(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(link))
}
