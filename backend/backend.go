// Package backend defines the compiler backend contract used by shadercache.
//
// A Backend turns named shader source modules plus macro definitions into a
// linked program exposing per-entry-point SPIR-V code. Backends register
// themselves by name (typically from an init function) and are selected via
// Get or Default, mirroring how rendering backends are picked in the GoGPU
// ecosystem.
package backend

import (
	"errors"
	"fmt"
)

// Common backend errors.
var (
	// ErrUnknownProfile is returned when a session is created with a target
	// profile the backend does not support.
	ErrUnknownProfile = errors.New("backend: unknown target profile")

	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("backend: session closed")
)

// Stage identifies a shader pipeline stage.
type Stage uint32

// Shader stages understood by the cache file format and the fingerprint walk.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// String returns the lower-case stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", uint32(s))
	}
}

// ParseStage converts a stage name ("vertex", "fragment", "compute") to a
// Stage value.
func ParseStage(name string) (Stage, error) {
	switch name {
	case "vertex":
		return StageVertex, nil
	case "fragment":
		return StageFragment, nil
	case "compute":
		return StageCompute, nil
	default:
		return 0, fmt.Errorf("backend: unknown stage %q", name)
	}
}

// Macro is a preprocessor definition applied to every module in a session.
type Macro struct {
	Name  string
	Value string
}

// SessionConfig carries the build options for one compile session.
// Slices are snapshotted when the session is created; callers may reuse the
// backing storage after NewSession returns.
type SessionConfig struct {
	// Profile names the target binary profile, e.g. "spirv_1_5".
	Profile string

	// Optimize selects optimized output. Unoptimized builds carry debug info.
	Optimize bool

	// SearchPaths are directories consulted when resolving includes.
	SearchPaths []string

	// Macros are applied to every module loaded into the session.
	Macros []Macro
}

// EntryPointInfo describes one entry point of a linked program.
type EntryPointInfo struct {
	Name  string
	Stage Stage
}

// Session is a per-compile unit bound to a shared backend context.
// Sessions are not safe for concurrent use.
type Session interface {
	// LoadModule parses one named source module into the session.
	// The returned error carries the backend's diagnostics.
	LoadModule(name, source string) error

	// Link combines every loaded module into one composite program.
	Link() (Program, error)

	// Close releases the session. The session must not be used afterwards;
	// programs produced by Link remain valid.
	Close()
}

// Program is a linked composite shader program.
type Program interface {
	// EntryPoints enumerates the program's entry points in declaration order.
	EntryPoints() []EntryPointInfo

	// Code produces the SPIR-V words for the entry point at index i.
	Code(i int) ([]uint32, error)

	// Close releases the program.
	Close()
}

// Backend is a shared compiler context. Creating one is expensive;
// shadercache keeps one per worker and opens cheap sessions against it.
type Backend interface {
	// Name returns the backend identifier, e.g. "naga".
	Name() string

	// Version returns the backend build tag written into cache file headers.
	Version() string

	// NewSession opens a session with the given build options.
	NewSession(cfg SessionConfig) (Session, error)
}
