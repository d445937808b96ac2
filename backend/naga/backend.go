// Package naga implements the shadercache compiler backend on top of
// github.com/gogpu/naga, the pure-Go WGSL to SPIR-V compiler.
//
// Modules are WGSL source. A lightweight preprocessor resolves
// #include "file" directives against the session search paths and
// substitutes macro identifiers before parsing; WGSL itself has neither.
// Linking lowers the concatenated modules into one IR module, whose entry
// points become the composite program's entry points.
//
// Importing this package registers the backend under the name "naga".
package naga

import (
	"fmt"
	"strings"

	nagac "github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/shadercache/backend"
)

// BackendNaga is the registry name of this backend.
const BackendNaga = "naga"

// buildTag identifies the compiler generation in cache file headers.
// Bump when the vendored naga version changes codegen output.
const buildTag = "gogpu-naga-0.17"

func init() {
	backend.Register(BackendNaga, func() backend.Backend { return New() })
}

// profiles maps target profile names to SPIR-V versions.
var profiles = map[string]spirv.Version{
	"spirv_1_0": spirv.Version1_0,
	"spirv_1_3": spirv.Version1_3,
	"spirv_1_4": spirv.Version1_4,
	"spirv_1_5": spirv.Version1_5,
	"spirv_1_6": spirv.Version1_6,
}

// Backend is a naga compiler context. The context itself is stateless, but
// shadercache still keeps one per worker so session creation stays cheap and
// uncontended.
type Backend struct{}

// New creates a naga backend context.
func New() *Backend { return &Backend{} }

// Name returns "naga".
func (b *Backend) Name() string { return BackendNaga }

// Version returns the build tag written into cache file headers.
func (b *Backend) Version() string { return buildTag }

// NewSession opens a compile session. The profile must be one of
// "spirv_1_0" through "spirv_1_6"; cfg's slices are copied.
func (b *Backend) NewSession(cfg backend.SessionConfig) (backend.Session, error) {
	version, ok := profiles[cfg.Profile]
	if !ok {
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownProfile, cfg.Profile)
	}
	return &session{
		opts: spirv.Options{
			Version: version,
			Debug:   !cfg.Optimize,
		},
		pre: newPreprocessor(cfg.SearchPaths, cfg.Macros),
	}, nil
}

type module struct {
	name   string
	source string // preprocessed
}

type session struct {
	opts    spirv.Options
	pre     *preprocessor
	modules []module
	closed  bool
}

// LoadModule preprocesses and parses one WGSL module. Parsing here gives
// per-module diagnostics; the module is lowered again as part of the
// composite during Link.
func (s *session) LoadModule(name, source string) error {
	if s.closed {
		return backend.ErrSessionClosed
	}

	src, err := s.pre.process(name, source)
	if err != nil {
		return err
	}
	if _, err := nagac.Parse(src); err != nil {
		return fmt.Errorf("naga: module %q: %w", name, err)
	}
	s.modules = append(s.modules, module{name: name, source: src})
	return nil
}

// Link concatenates every loaded module and lowers the result into one IR
// module. Validation failures carry the first validator diagnostic.
func (s *session) Link() (backend.Program, error) {
	if s.closed {
		return nil, backend.ErrSessionClosed
	}

	var combined strings.Builder
	for _, m := range s.modules {
		combined.WriteString(m.source)
		if !strings.HasSuffix(m.source, "\n") {
			combined.WriteByte('\n')
		}
	}
	src := combined.String()

	ast, err := nagac.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("naga: link: %w", err)
	}
	mod, err := nagac.LowerWithSource(ast, src)
	if err != nil {
		return nil, fmt.Errorf("naga: link: %w", err)
	}
	verrs, err := nagac.Validate(mod)
	if err != nil {
		return nil, fmt.Errorf("naga: validate: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("naga: validate: %w", &verrs[0])
	}

	eps := make([]backend.EntryPointInfo, len(mod.EntryPoints))
	for i, ep := range mod.EntryPoints {
		stage, err := stageFromIR(ep.Stage)
		if err != nil {
			return nil, err
		}
		eps[i] = backend.EntryPointInfo{Name: ep.Name, Stage: stage}
	}

	return &program{mod: mod, opts: s.opts, eps: eps}, nil
}

// Close releases the session. Programs produced by Link stay valid.
func (s *session) Close() {
	s.closed = true
	s.modules = nil
}

type program struct {
	mod  *ir.Module
	opts spirv.Options
	eps  []backend.EntryPointInfo
}

// EntryPoints enumerates the linked entry points in declaration order.
func (p *program) EntryPoints() []backend.EntryPointInfo {
	out := make([]backend.EntryPointInfo, len(p.eps))
	copy(out, p.eps)
	return out
}

// Code generates SPIR-V for the entry point at index i. The module is
// narrowed to that single entry point so each stage gets its own binary,
// matching how the artifacts are stored in the cache.
func (p *program) Code(i int) ([]uint32, error) {
	if i < 0 || i >= len(p.eps) {
		return nil, fmt.Errorf("naga: entry point index %d out of range", i)
	}

	single := *p.mod
	single.EntryPoints = []ir.EntryPoint{p.mod.EntryPoints[i]}

	raw, err := nagac.GenerateSPIRV(&single, p.opts)
	if err != nil {
		return nil, fmt.Errorf("naga: entry point %q: %w", p.eps[i].Name, err)
	}
	return wordsFromBytes(raw)
}

// Close releases the program.
func (p *program) Close() {
	p.mod = nil
	p.eps = nil
}

func stageFromIR(s ir.ShaderStage) (backend.Stage, error) {
	switch s {
	case ir.StageVertex:
		return backend.StageVertex, nil
	case ir.StageFragment:
		return backend.StageFragment, nil
	case ir.StageCompute:
		return backend.StageCompute, nil
	default:
		return 0, fmt.Errorf("naga: unsupported shader stage %d", s)
	}
}

// wordsFromBytes converts a SPIR-V byte blob to little-endian 32-bit words.
func wordsFromBytes(raw []byte) ([]uint32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("naga: SPIR-V blob of %d bytes is not word-aligned", len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = uint32(raw[i*4]) |
			uint32(raw[i*4+1])<<8 |
			uint32(raw[i*4+2])<<16 |
			uint32(raw[i*4+3])<<24
	}
	return words, nil
}
