package booru

import (
	"errors"
	"fmt"
)

var (
	// ErrFeatureUnavailable is returned when the backend's descriptor does not support the operation.
	ErrFeatureUnavailable = errors.New("feature unavailable on this booru")
	// ErrTooManyTags is returned when a query carries more tags than the backend's ceiling.
	ErrTooManyTags = errors.New("too many tags")
	// ErrInvalidTags is returned when a random selection matches zero posts.
	ErrInvalidTags = errors.New("no post matches the given tags")
	// ErrAuthenticationRequired is returned when the tag count crosses the
	// authentication threshold and no credentials are configured.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrUnrecognizedRating is returned when a post's rating is neither a known letter nor a known word.
	ErrUnrecognizedRating = errors.New("unrecognized rating")
	// ErrMalformedResponse is returned when a payload is not valid for the backend's schema
	// or a post lacks a mandatory field.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrPostNotFound is returned when a lookup by id or md5 matches no post.
	ErrPostNotFound = errors.New("post not found")
	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid booru descriptor")
	// ErrInvalidBackend is returned by custom discovery when a host is not a usable booru.
	ErrInvalidBackend = errors.New("invalid booru")
)

// StatusError is returned by RestyTransport when a backend answers with a non-success status.
type StatusError struct {
	URL  string
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code is %d (%s)", e.Code, e.URL)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
