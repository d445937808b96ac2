// Package manifest loads YAML shader-build manifests and turns them into
// configured programs. A manifest describes a set of shader programs, each
// with its modules, macros, expected stages and cache location, so whole
// shader trees can be prebuilt by the shadercachec tool or at application
// startup.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shadercache"
	"github.com/gogpu/shadercache/backend"
)

// Manifest errors.
var (
	ErrNoPrograms   = zerr.New("manifest declares no programs")
	ErrBadModule    = zerr.New("module needs exactly one of file or source")
	ErrMissingName  = zerr.New("program name is required")
	ErrMissingCache = zerr.New("program cache path is required")
)

// Manifest is the top-level document.
type Manifest struct {
	// Programs are the shader programs to build.
	Programs []Program `yaml:"programs"`

	// Deps are extra files folded into every program's content hash,
	// typically shared include files.
	Deps []string `yaml:"deps"`
}

// Program describes one shader program.
type Program struct {
	Name        string   `yaml:"name"`
	Worker      uint32   `yaml:"worker"`
	Profile     string   `yaml:"profile"`
	Optimize    *bool    `yaml:"optimize"`
	Cache       string   `yaml:"cache"`
	Modules     []Module `yaml:"modules"`
	Macros      []Macro  `yaml:"macros"`
	SearchPaths []string `yaml:"search_paths"`
	Expect      Expect   `yaml:"expect"`
	Deps        []string `yaml:"deps"`
}

// Module is one shader module, either file-backed or inline.
type Module struct {
	Name   string `yaml:"name"`
	File   string `yaml:"file"`
	Source string `yaml:"source"`
}

// Macro is one preprocessor definition.
type Macro struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Expect declares what a valid cache for the program must contain.
type Expect struct {
	Stages      []string `yaml:"stages"`
	EntryPoints []string `yaml:"entry_points"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, zerr.Wrap(err, "failed to parse manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return &m, nil
}

// Validate checks structural requirements: at least one program, each with a
// name, a cache path, well-formed modules and parseable expected stages.
func (m *Manifest) Validate() error {
	if len(m.Programs) == 0 {
		return ErrNoPrograms
	}
	for _, p := range m.Programs {
		if p.Name == "" {
			return ErrMissingName
		}
		if p.Cache == "" {
			return zerr.With(zerr.Wrap(ErrMissingCache, ""), "program", p.Name)
		}
		for _, mod := range p.Modules {
			if (mod.File == "") == (mod.Source == "") {
				return zerr.With(zerr.With(zerr.Wrap(ErrBadModule, ""), "program", p.Name), "module", mod.Name)
			}
		}
		for _, s := range p.Expect.Stages {
			if _, err := backend.ParseStage(s); err != nil {
				return zerr.With(zerr.Wrap(err, "bad expected stage"), "program", p.Name)
			}
		}
	}
	return nil
}

// Configure builds a shadercache.Program from one manifest entry. Relative
// paths (modules, deps, cache) resolve against dir, the manifest's
// directory. The returned program is fully configured but not yet compiled.
func (p *Program) Configure(dir string, manifestDeps []string, opts ...shadercache.Option) (*shadercache.Program, error) {
	var progOpts []shadercache.Option
	if p.Profile != "" {
		progOpts = append(progOpts, shadercache.WithProfile(p.Profile))
	}
	if p.Optimize != nil {
		progOpts = append(progOpts, shadercache.WithOptimize(*p.Optimize))
	}
	if len(p.Macros) > 0 {
		macros := make([]backend.Macro, len(p.Macros))
		for i, mc := range p.Macros {
			macros[i] = backend.Macro{Name: mc.Name, Value: mc.Value}
		}
		progOpts = append(progOpts, shadercache.WithMacros(macros...))
	}
	progOpts = append(progOpts, opts...)

	prog := shadercache.NewProgram(shadercache.WorkerID(p.Worker), progOpts...)
	prog.EnableCache(resolve(dir, p.Cache))

	for _, dep := range manifestDeps {
		if err := prog.AddCacheDependency(resolve(dir, dep)); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to add dependency"), "program", p.Name)
		}
	}
	for _, dep := range p.Deps {
		if err := prog.AddCacheDependency(resolve(dir, dep)); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to add dependency"), "program", p.Name)
		}
	}

	for _, sp := range p.SearchPaths {
		prog.AddSearchPath(resolve(dir, sp))
	}

	for _, mod := range p.Modules {
		name := mod.Name
		switch {
		case mod.File != "":
			if name == "" {
				name = mod.File
			}
			if err := prog.AddModuleFile(resolve(dir, mod.File), name); err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to add module"), "program", p.Name)
			}
		case mod.Source != "":
			if name == "" {
				name = fmt.Sprintf("%s-inline", p.Name)
			}
			prog.AddModuleSource(mod.Source, name)
		}
	}

	if len(p.Expect.Stages) > 0 || len(p.Expect.EntryPoints) > 0 {
		stages := make([]backend.Stage, len(p.Expect.Stages))
		for i, s := range p.Expect.Stages {
			stage, err := backend.ParseStage(s)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "bad expected stage"), "program", p.Name)
			}
			stages[i] = stage
		}
		prog.SetExpectedStages(stages, p.Expect.EntryPoints...)
	}

	return prog, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
