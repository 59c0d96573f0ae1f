package dispatch

import "errors"

var (
	// ErrBackendTimeout means the model backend did not answer inside the
	// configured deadline. The caller should fall back, never retry inline.
	ErrBackendTimeout = errors.New("dispatch: backend timeout")

	// ErrBackendUpstream means the backend answered with a transport or
	// service error.
	ErrBackendUpstream = errors.New("dispatch: backend upstream failure")

	// ErrMalformedOutput means the backend produced output that could not
	// be interpreted at all.
	ErrMalformedOutput = errors.New("dispatch: malformed backend output")

	// ErrStoreConflict means a concurrent writer changed the conversation
	// between read and write. One retry is safe.
	ErrStoreConflict = errors.New("dispatch: conversation store conflict")

	// ErrStoreUnavailable means the conversation store cannot be reached.
	ErrStoreUnavailable = errors.New("dispatch: conversation store unavailable")

	// ErrConversationNotFound means the conversation id is unknown to the
	// store (or belongs to another org).
	ErrConversationNotFound = errors.New("dispatch: conversation not found")
)
