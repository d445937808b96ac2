// Package fingerprint computes a combined content hash over an ordered
// sequence of opaque blobs: file contents, inline source, and name=value
// macro encodings. The combined hash is the shader cache key, so its value
// must be stable across processes and platforms.
package fingerprint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// DefaultExtensions are the shader source extensions matched by AddDir when
// the caller passes none.
var DefaultExtensions = []string{".wgsl", ".wgsli"}

// Fingerprint accumulates content blobs and produces one combined,
// order-sensitive hash. Permuting additions changes the hash: the order of
// inputs is part of what was compiled.
//
// The combined hash is computed lazily and memoized behind an explicit flag,
// so a digest that happens to be zero is memoized like any other value.
// Adding more content resets the memo.
//
// Fingerprint is not safe for concurrent use.
type Fingerprint struct {
	blobs [][]byte

	sum      uint64
	computed bool
}

// New returns an empty fingerprint.
func New() *Fingerprint {
	return &Fingerprint{}
}

// AddFile folds the file's bytes into the fingerprint.
// An unreadable file is an error; nothing is added in that case.
func (f *Fingerprint) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("fingerprint: read %s: %w", path, err)
	}
	f.add(data)
	return nil
}

// AddDir folds every file under dir whose extension matches exts (or
// DefaultExtensions when exts is empty). With recursive false only the
// directory's immediate files are considered.
//
// Traversal is filepath.WalkDir's lexical order: internally consistent
// within one run, but callers must not rely on a particular order across
// platforms.
func (f *Fingerprint) AddDir(dir string, recursive bool, exts ...string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("fingerprint: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fingerprint: %s is not a directory", dir)
	}

	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchExt(path, exts) {
			return nil
		}
		return f.AddFile(path)
	})
}

// AddBytes folds a raw blob into the fingerprint. The slice is copied.
func (f *Fingerprint) AddBytes(b []byte) {
	blob := make([]byte, len(b))
	copy(blob, b)
	f.add(blob)
}

// AddString folds an inline source string into the fingerprint.
func (f *Fingerprint) AddString(s string) {
	f.add([]byte(s))
}

// AddMacro folds a macro definition, encoded as "name=value", into the
// fingerprint. The encoding is flat: a "=" inside name or value can alias
// two different (name, value) pairs to the same blob. Callers own that
// constraint; see the package tests for the documented collision.
func (f *Fingerprint) AddMacro(name, value string) {
	f.add([]byte(name + "=" + value))
}

// Len returns the number of blobs added so far.
func (f *Fingerprint) Len() int {
	return len(f.blobs)
}

// Sum returns the combined hash of every blob in insertion order.
// The result is memoized until the next addition.
func (f *Fingerprint) Sum() uint64 {
	if f.computed {
		return f.sum
	}

	d := xxhash.New()
	for _, blob := range f.blobs {
		_, _ = d.Write(blob)
		_, _ = d.Write([]byte{0}) // blob separator
	}
	f.sum = d.Sum64()
	f.computed = true
	return f.sum
}

func (f *Fingerprint) add(blob []byte) {
	f.blobs = append(f.blobs, blob)
	f.computed = false
}

func matchExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
