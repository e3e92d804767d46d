package sandbox

import "errors"

// Executor errors.
var (
	// ErrUnavailable is returned when the worker is not running. Callers
	// should fall back to an explicitly unsafe in-process load path.
	ErrUnavailable = errors.New("sandbox: executor unavailable")

	// ErrClosed is returned when operating on a closed executor.
	ErrClosed = errors.New("sandbox: executor closed")

	// ErrCallTimeout is returned when no response arrives within the
	// round-trip timeout. The worker may still be executing; the caller
	// simply stops waiting.
	ErrCallTimeout = errors.New("sandbox: call timed out")

	// ErrUnknownAlgorithm is returned when invoking an algorithm id that was
	// never registered. This is a programmer error in the host, not bad
	// plugin data.
	ErrUnknownAlgorithm = errors.New("sandbox: unknown algorithm")

	// ErrMissingExport is returned when the plugin source does not define
	// the expected exported function.
	ErrMissingExport = errors.New("sandbox: missing exported function")
)
