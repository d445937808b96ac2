package shadercache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/shadercache/backend"
	"github.com/gogpu/shadercache/cachefile"
	"github.com/gogpu/shadercache/fingerprint"
)

// Status is the compile state of a Program.
type Status uint8

// Program states. StatusCached is non-terminal: a forced recompile or a
// partial-cache repair moves the program to StatusCompiled.
const (
	StatusNotReady Status = iota
	StatusCached
	StatusFailed
	StatusCompiled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNotReady:
		return "not-ready"
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	case StatusCompiled:
		return "compiled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// CompiledEntryPoint is one stage's compiled binary, produced either by live
// compilation or by cache deserialization. Immutable once created.
type CompiledEntryPoint struct {
	Stage backend.Stage
	Name  string
	Code  []uint32
}

type moduleKind uint8

const (
	moduleFile moduleKind = iota
	moduleSource
)

type moduleData struct {
	kind moduleKind
	data string // path for moduleFile, source text for moduleSource
	name string
}

// Program orchestrates module loading, linking, per-stage binary extraction
// and cache read/write for one shader program.
//
// A Program exclusively owns its compile session and linked program; both
// are released by Close. Programs are not safe for concurrent use; drive one
// Program per worker.
type Program struct {
	worker   WorkerID
	registry *SessionRegistry

	optimize bool
	profile  string
	macros   []backend.Macro

	modules     []moduleData
	searchPaths []string

	fp        *fingerprint.Fingerprint
	useCache  bool
	cachePath string

	expectedStages      []backend.Stage
	expectedEntryPoints []string

	status Status
	errMsg string

	session backend.Session
	linked  backend.Program
	codes   []CompiledEntryPoint
}

// NewProgram creates a program bound to the given worker identity.
// Defaults: optimized build, DefaultProfile, the process-wide registry.
func NewProgram(worker WorkerID, opts ...Option) *Program {
	p := &Program{
		worker:   worker,
		optimize: true,
		profile:  DefaultProfile,
		fp:       fingerprint.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = DefaultRegistry()
	}
	return p
}

// EnableCache turns on the on-disk cache at path. Call before adding
// modules: only modules added while caching is enabled are folded into the
// content fingerprint. The program's macro definitions are folded in here.
func (p *Program) EnableCache(path string) {
	p.useCache = true
	p.cachePath = path
	for _, m := range p.macros {
		p.fp.AddMacro(m.Name, m.Value)
	}
}

// SetExpectedStages declares the stages (and optionally entry point names)
// a loaded cache must contain. A cache missing any of them is rejected as
// incomplete and the program recompiles.
func (p *Program) SetExpectedStages(stages []backend.Stage, entryPoints ...string) {
	p.expectedStages = append([]backend.Stage(nil), stages...)
	p.expectedEntryPoints = append([]string(nil), entryPoints...)
}

// AddModuleFile registers a file-backed module. The file's parent directory
// becomes an include search path. When caching is enabled the file content,
// module kind and name are folded into the fingerprint; an unreadable file
// is an error and registers nothing.
func (p *Program) AddModuleFile(path, name string) error {
	if p.useCache {
		if err := p.fp.AddFile(path); err != nil {
			return err
		}
		p.fp.AddMacro("type", "file")
		p.fp.AddMacro("name", name)
	}
	p.modules = append(p.modules, moduleData{kind: moduleFile, data: path, name: name})
	if dir := filepath.Dir(path); dir != "" {
		p.AddSearchPath(dir)
	}
	return nil
}

// AddModuleSource registers an inline source module.
func (p *Program) AddModuleSource(source, name string) {
	if p.useCache {
		p.fp.AddString(source)
		p.fp.AddMacro("type", "str")
		p.fp.AddMacro("name", name)
	}
	p.modules = append(p.modules, moduleData{kind: moduleSource, data: source, name: name})
}

// AddSearchPath adds an include search directory. Duplicates are ignored;
// order is preserved.
func (p *Program) AddSearchPath(path string) {
	if slices.Contains(p.searchPaths, path) {
		return
	}
	p.searchPaths = append(p.searchPaths, path)
}

// AddCacheDependency folds an extra file into the content fingerprint
// without registering it as a module. Use for files pulled in via includes.
// No-op when caching is disabled.
func (p *Program) AddCacheDependency(path string) error {
	if !p.useCache {
		return nil
	}
	return p.fp.AddFile(path)
}

// AddCacheDependencyDir folds every shader source file under dir into the
// content fingerprint. No-op when caching is disabled.
func (p *Program) AddCacheDependencyDir(dir string, recursive bool) error {
	if !p.useCache {
		return nil
	}
	return p.fp.AddDir(dir, recursive)
}

// Macros returns the program's macro definitions.
func (p *Program) Macros() []backend.Macro {
	return slices.Clone(p.macros)
}

// ContentHash returns the combined hash over the program's content inputs
// (modules, macros, declared dependencies). Build options are folded in
// separately when forming the cache key.
func (p *Program) ContentHash() uint64 {
	return p.fp.Sum()
}

// Status returns the program's compile state.
func (p *Program) Status() Status {
	return p.status
}

// ErrorMessage returns the first failure's description, or "" if none.
func (p *Program) ErrorMessage() string {
	return p.errMsg
}

// cacheKey folds the optimization flag and target profile into the content
// hash. Load and save both use this, so they always agree on validity.
func (p *Program) cacheKey() uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p.fp.Sum())
	_, _ = d.Write(buf[:])
	if p.optimize {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.WriteString(p.profile)
	return d.Sum64()
}

// fail records the first failure; later failures never overwrite it.
func (p *Program) fail(msg string) {
	if p.status == StatusFailed {
		return
	}
	p.status = StatusFailed
	p.errMsg = msg
}

// Compile builds the program. With caching enabled it first tries the cache;
// a valid cache sets StatusCached and skips compilation unless force is set.
// Otherwise it acquires a session, loads and links every module, and
// persists the cache on success.
//
// The first load or link failure wins: it sets StatusFailed with a
// descriptive message and short-circuits the remaining module loads. The
// same terminal error is also returned; cache-level problems never are.
func (p *Program) Compile(force bool) error {
	log := Logger()

	if p.useCache {
		if p.tryLoadCache(p.cacheKey()) {
			log.Debug("loaded shader from cache", "path", p.cachePath)
			p.status = StatusCached
			if !force {
				return nil
			}
		} else {
			log.Info("shader cache missing or not valid, compiling",
				"path", p.cachePath)
		}
	}

	bctx, err := p.registry.Context(p.worker)
	if err != nil {
		p.fail(err.Error())
		return err
	}
	sess, err := bctx.NewSession(backend.SessionConfig{
		Profile:     p.profile,
		Optimize:    p.optimize,
		SearchPaths: p.searchPaths,
		Macros:      p.macros,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to create compile session: %v", err)
		p.fail(msg)
		return fmt.Errorf("%w: %s", ErrCompileFailed, msg)
	}
	p.releaseSession()
	p.session = sess

	for _, m := range p.modules {
		if p.status == StatusFailed {
			break
		}
		p.loadModule(m)
	}
	p.link()

	if p.status == StatusFailed {
		return fmt.Errorf("%w: %s", ErrCompileFailed, p.errMsg)
	}

	if p.useCache {
		if err := p.saveCache(); err != nil {
			log.Warn("failed to save shader cache", "path", p.cachePath, "err", err)
		}
	}
	return nil
}

func (p *Program) loadModule(m moduleData) {
	source := m.data
	if m.kind == moduleFile {
		data, err := os.ReadFile(m.data)
		if err != nil {
			p.fail(fmt.Sprintf("failed to open shader module %s: %v", m.data, err))
			return
		}
		source = string(data)
	}
	if err := p.session.LoadModule(m.name, source); err != nil {
		p.fail(fmt.Sprintf("failed to load shader module %q: %v", m.name, err))
	}
}

func (p *Program) link() {
	if p.status == StatusFailed {
		return
	}
	linked, err := p.session.Link()
	if err != nil {
		p.fail(fmt.Sprintf("failed to link shader modules: %v", err))
		return
	}
	if p.linked != nil {
		p.linked.Close()
	}
	p.linked = linked
	p.status = StatusCompiled
}

// tryLoadCache loads and validates the cache file against the given key.
// Every rejection is a soft miss: logged, never surfaced as an error.
func (p *Program) tryLoadCache(key uint64) bool {
	log := Logger()

	f, reason, err := cachefile.Load(p.cachePath, p.profile, key)
	if err != nil {
		log.Info("shader cache unreadable", "path", p.cachePath, "err", err)
		return false
	}
	if reason != "" {
		log.Info("shader cache rejected", "path", p.cachePath, "reason", reason)
		return false
	}

	codes := make([]CompiledEntryPoint, len(f.Records))
	for i, rec := range f.Records {
		codes[i] = CompiledEntryPoint{Stage: rec.Stage, Name: rec.Name, Code: rec.Code}
	}

	for _, stage := range p.expectedStages {
		if !slices.ContainsFunc(codes, func(c CompiledEntryPoint) bool { return c.Stage == stage }) {
			log.Info("shader cache missing expected stage",
				"path", p.cachePath, "stage", stage.String())
			return false
		}
	}
	for _, name := range p.expectedEntryPoints {
		if !slices.ContainsFunc(codes, func(c CompiledEntryPoint) bool { return c.Name == name }) {
			log.Info("shader cache missing expected entry point",
				"path", p.cachePath, "entryPoint", name)
			return false
		}
	}

	p.codes = codes
	return true
}

// saveCache persists every entry point of the linked program. Silently
// no-ops unless the program just compiled. An extraction or write failure
// aborts the save, not the compile.
func (p *Program) saveCache() error {
	if p.status != StatusCompiled {
		return nil
	}

	codes, err := p.extractAll()
	if err != nil {
		return err
	}
	p.codes = codes

	bctx, err := p.registry.Context(p.worker)
	if err != nil {
		return err
	}

	records := make([]cachefile.Record, len(codes))
	for i, c := range codes {
		records[i] = cachefile.Record{Stage: c.Stage, Name: c.Name, Code: c.Code}
	}
	f := &cachefile.File{
		BackendVersion: bctx.Version(),
		Profile:        p.profile,
		ContentHash:    p.cacheKey(),
		Records:        records,
	}
	return f.WriteAtomic(p.cachePath)
}

// extractAll resolves the binary for every entry point the linked program
// declares.
func (p *Program) extractAll() ([]CompiledEntryPoint, error) {
	eps := p.linked.EntryPoints()
	codes := make([]CompiledEntryPoint, 0, len(eps))
	for i, ep := range eps {
		words, err := p.linked.Code(i)
		if err != nil {
			return nil, fmt.Errorf("extract %s entry point %q: %w", ep.Stage, ep.Name, err)
		}
		codes = append(codes, CompiledEntryPoint{Stage: ep.Stage, Name: ep.Name, Code: words})
	}
	return codes, nil
}

// SpirvForStage returns the binary for the entry point with the given stage.
//
// Valid only after Compile: returns ErrNotReady otherwise. Cached results
// are served directly. A cache that lacks the requested stage is treated as
// partially stale: the program transparently recompiles (moving to
// StatusCompiled) and extracts the code live.
func (p *Program) SpirvForStage(stage backend.Stage) ([]uint32, error) {
	return p.spirv(
		func(c CompiledEntryPoint) bool { return c.Stage == stage },
		func(ep backend.EntryPointInfo) bool { return ep.Stage == stage },
		stage.String(),
	)
}

// SpirvByName returns the binary for the entry point with the given name.
// Same semantics as SpirvForStage.
func (p *Program) SpirvByName(name string) ([]uint32, error) {
	return p.spirv(
		func(c CompiledEntryPoint) bool { return c.Name == name },
		func(ep backend.EntryPointInfo) bool { return ep.Name == name },
		name,
	)
}

func (p *Program) spirv(matchCode func(CompiledEntryPoint) bool, matchEP func(backend.EntryPointInfo) bool, what string) ([]uint32, error) {
	if p.status != StatusCached && p.status != StatusCompiled {
		return nil, ErrNotReady
	}

	if i := slices.IndexFunc(p.codes, matchCode); i >= 0 {
		return slices.Clone(p.codes[i].Code), nil
	}

	if p.status == StatusCached {
		// The cache is missing this artifact: repair by recompiling
		// rather than failing the request.
		Logger().Warn("entry point missing from shader cache, recompiling",
			"path", p.cachePath, "want", what)
		if err := p.Compile(true); err != nil {
			return nil, err
		}
		if i := slices.IndexFunc(p.codes, matchCode); i >= 0 {
			return slices.Clone(p.codes[i].Code), nil
		}
	}

	if p.linked == nil {
		return nil, ErrNotReady
	}
	eps := p.linked.EntryPoints()
	idx := slices.IndexFunc(eps, matchEP)
	if idx < 0 {
		p.fail(fmt.Sprintf("no entry point for %s", what))
		return nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, what)
	}
	words, err := p.linked.Code(idx)
	if err != nil {
		p.fail(fmt.Sprintf("failed to extract code for %s: %v", what, err))
		return nil, fmt.Errorf("%w: extract %s: %s", ErrCompileFailed, what, err)
	}

	p.codes = append(p.codes, CompiledEntryPoint{
		Stage: eps[idx].Stage,
		Name:  eps[idx].Name,
		Code:  words,
	})
	return slices.Clone(words), nil
}

// CompiledEntryPoints returns every entry point materialized so far. For a
// cached program these are the loaded records; for a compiled one, every
// entry point the linked program declares, extracting on first call.
func (p *Program) CompiledEntryPoints() ([]CompiledEntryPoint, error) {
	switch p.status {
	case StatusCached:
		return slices.Clone(p.codes), nil
	case StatusCompiled:
		if p.linked != nil && len(p.codes) < len(p.linked.EntryPoints()) {
			codes, err := p.extractAll()
			if err != nil {
				return nil, err
			}
			p.codes = codes
		}
		return slices.Clone(p.codes), nil
	default:
		return nil, ErrNotReady
	}
}

func (p *Program) releaseSession() {
	if p.session != nil {
		p.session.Close()
		p.session = nil
	}
}

// Close releases the compile session and the linked program. The program's
// status and any materialized binaries remain readable; further compilation
// requires a fresh Program.
func (p *Program) Close() {
	p.releaseSession()
	if p.linked != nil {
		p.linked.Close()
		p.linked = nil
	}
}
