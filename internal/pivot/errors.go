package pivot

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRule marks a spec whose filter payload or aggregation
	// function does not match its operator. Detected at validation time,
	// before any row is processed.
	ErrMalformedRule = errors.New("malformed pivot rule")

	// ErrStale marks a remote result that arrived after a newer request was
	// issued. Callers discard it silently; it is supersession, not failure.
	ErrStale = errors.New("pivot result superseded")

	// ErrRemote wraps a failure reported by the remote engine. There is no
	// silent fallback to a local computation.
	ErrRemote = errors.New("remote pivot engine")
)

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRule, fmt.Sprintf(format, args...))
}
