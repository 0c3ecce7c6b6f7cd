package export

import "errors"

// Sentinel errors classifying every failure the export pipeline can surface.
// Stages wrap one of these with fmt.Errorf("%w: ...") and callers match with
// errors.Is; the underlying SDK error stays on the chain for errors.As.
var (
	// ErrConfiguration covers bad or missing attribute tables, admin-center
	// tables, and invalid flag combinations.
	ErrConfiguration = errors.New("configuration error")

	// ErrCredential means no usable credential could be resolved.
	ErrCredential = errors.New("credential error")

	// ErrClientInit means an SDK client or adapter could not be constructed.
	ErrClientInit = errors.New("client initialization error")

	// ErrRemoteFetch covers authentication and transport failures while
	// listing records from a remote service.
	ErrRemoteFetch = errors.New("remote fetch error")

	// ErrSinkWrite covers output path and permission failures.
	ErrSinkWrite = errors.New("sink write error")
)
