package shadercache

import "errors"

// Package errors for shader programs.
var (
	// ErrNotReady is returned when binary code is requested before Compile
	// has finished. This is a usage error, not a data error.
	ErrNotReady = errors.New("shadercache: program not compiled yet")

	// ErrNoBackend is returned when no compiler backend is registered.
	ErrNoBackend = errors.New("shadercache: no compiler backend available")

	// ErrEntryPointNotFound is returned when the linked program has no entry
	// point matching the requested stage or name.
	ErrEntryPointNotFound = errors.New("shadercache: entry point not found")

	// ErrCompileFailed is returned by Compile when the backend rejects the
	// program. The program's ErrorMessage carries the diagnostics.
	ErrCompileFailed = errors.New("shadercache: compilation failed")
)
