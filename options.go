package shadercache

import "github.com/gogpu/shadercache/backend"

// DefaultProfile is the target binary profile used when none is configured.
const DefaultProfile = "spirv_1_5"

// Option configures a Program during creation.
type Option func(*Program)

// WithOptimize selects optimized output. Programs default to optimized;
// unoptimized builds carry debug info.
func WithOptimize(optimize bool) Option {
	return func(p *Program) {
		p.optimize = optimize
	}
}

// WithProfile sets the target binary profile, e.g. "spirv_1_3".
// The profile is part of the cache key: changing it invalidates the cache.
func WithProfile(profile string) Option {
	return func(p *Program) {
		p.profile = profile
	}
}

// WithMacros sets the macro definitions applied to every module.
// Macros are part of the cache key.
func WithMacros(macros ...backend.Macro) Option {
	return func(p *Program) {
		p.macros = append([]backend.Macro(nil), macros...)
	}
}

// WithRegistry binds the program to a specific session registry instead of
// the process-wide default. Use for dependency injection in tests or to
// isolate backend contexts.
func WithRegistry(r *SessionRegistry) Option {
	return func(p *Program) {
		p.registry = r
	}
}

// WithBackendName pins the program to a named registered backend instead of
// the priority-selected default. The program gets its own registry, so its
// contexts are not shared with programs using other backends.
func WithBackendName(name string) Option {
	return func(p *Program) {
		p.registry = NewSessionRegistry(func() backend.Backend {
			return backend.Get(name)
		})
	}
}
