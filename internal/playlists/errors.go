package playlists

import (
	"errors"
	"fmt"

	"tunevault/internal/genres"
	"tunevault/internal/storage"
)

// Error kinds returned by the service. Match them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)

// kindError tags a descriptive error with one of the kinds above.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	return e.err.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}

func newError(kind error, format string, args ...any) error {
	return &kindError{kind: kind, err: fmt.Errorf(format, args...)}
}

func unauthenticated() error {
	return &kindError{kind: ErrUnauthenticated, err: ErrUnauthenticated}
}

// translate maps storage and resolver errors onto service kinds. Errors
// that already carry a kind pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrPlaylistNotFound),
		errors.Is(err, storage.ErrSongNotFound),
		errors.Is(err, storage.ErrMembershipNotFound),
		errors.Is(err, genres.ErrUnknownGenre):
		return &kindError{kind: ErrNotFound, err: err}
	case errors.Is(err, storage.ErrGenreClaimed),
		errors.Is(err, storage.ErrDuplicateMembership):
		return &kindError{kind: ErrConflict, err: err}
	}
	return err
}
