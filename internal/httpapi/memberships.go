package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tunevault/internal/auth"
)

type addSongRequest struct {
	PlaylistID int64 `json:"playlistId"`
	SongID     int64 `json:"songId"`
}

func (s *Server) registerMemberships(router *mux.Router) {
	router.HandleFunc("/song-playlists", s.handleAddSong).Methods(http.MethodPost)
	router.HandleFunc("/song-playlists", s.handleListMemberships).Methods(http.MethodGet)
	router.HandleFunc("/song-playlists/{id:[0-9]+}", s.handleRemoveSong).Methods(http.MethodDelete)
	router.HandleFunc("/songs/{id:[0-9]+}/resync-playlists", s.handleResyncSong).Methods(http.MethodPost)
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var req addSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PlaylistID <= 0 || req.SongID <= 0 {
		writeError(w, http.StatusBadRequest, "playlistId and songId are required")
		return
	}
	m, err := s.playlists.AddSong(r.Context(), auth.FromContext(r.Context()), req.PlaylistID, req.SongID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.playlists.RemoveSong(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.playlists.ListMemberships(r.Context(), auth.FromContext(r.Context()), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResyncSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.playlists.ResyncSong(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
