// Package shadercache compiles shader programs and caches the resulting
// SPIR-V binaries on disk so that unchanged shaders never pay the cost of a
// second compilation.
//
// # Overview
//
// A [Program] owns a set of shader modules (files or inline source), a macro
// set, and build options (target SPIR-V profile, optimization flag). Calling
// [Program.Compile] first consults the on-disk cache, keyed by a content
// fingerprint over every input that can affect the produced binaries; on a
// miss it compiles through a registered compiler backend and persists the
// result atomically.
//
//	p := shadercache.NewProgram(0, shadercache.WithOptimize(true))
//	p.EnableCache("out/blit.spvcache")
//	if err := p.AddModuleFile("shaders/blit.wgsl", "blit"); err != nil {
//	    // handle error
//	}
//	if err := p.Compile(false); err != nil {
//	    log.Fatal(err)
//	}
//	words, err := p.SpirvForStage(backend.StageVertex)
//
// # Sub-packages
//
//   - fingerprint: ordered content fingerprint used as the cache key
//   - cachefile: the versioned binary cache file codec
//   - backend: the compiler backend contract and registry
//   - backend/naga: WGSL backend built on github.com/gogpu/naga
//   - pipeline: fixed-function pipeline state fingerprinting and the
//     fingerprint-keyed pipeline object cache
//   - gpu: shader module creation and resource teardown over gogpu/wgpu
//
// # Cache validity
//
// A cache file is trusted only when its magic, format version, target profile
// and content hash all match the current inputs. Any mismatch, including a
// cache missing an expected stage or entry point, silently downgrades to a
// fresh compilation; cache problems never surface as errors.
//
// # Concurrency
//
// A Program is not safe for concurrent use; drive one Program per worker.
// The [SessionRegistry] that hands out compiler contexts is safe for
// concurrent use from any number of workers.
package shadercache
