package store

import (
	"errors"
	"net/http"
)

// Error is a typed failure carrying an HTTP-style status so callers
// building a higher-level API can map it directly.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same status, so wrapped errors
// compare equal to the package sentinels via errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status
}

var (
	// ErrNotFound is returned when the requested identity does not
	// exist, including when its table has never been created.
	ErrNotFound = &Error{Status: http.StatusNotFound, Message: "stratum: record not found"}

	// ErrConflict is returned on an optimistic-concurrency violation:
	// a stale revision on update or delete, or a duplicate identity on
	// add.
	ErrConflict = &Error{Status: http.StatusConflict, Message: "stratum: revision conflict"}
)

// StatusOf returns the HTTP-style status carried by err, or 0 when err
// carries none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
