package httpapi

import (
	"context"
	"errors"
	"net/http"

	"tunevault/internal/logging"
	"tunevault/internal/playlists"
)

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service error kinds onto status codes. Unexpected
// errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, playlists.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, playlists.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, playlists.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, playlists.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, playlists.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logging.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
