package media

import "errors"

var (
	ErrNotFound = errors.New("media not found")
	// ErrUnavailable marks gateway failures where the backing service could
	// not be reached at all, as opposed to a rejected single operation.
	ErrUnavailable = errors.New("storage backend unavailable")
	// ErrConflict marks a write lost to a concurrent request. Retrying may
	// succeed.
	ErrConflict = errors.New("conflicting concurrent update")
)
