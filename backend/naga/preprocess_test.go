package naga

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadercache/backend"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIncludeResolution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.wgsli", "const PI: f32 = 3.14159;\n")

	pre := newPreprocessor([]string{dir}, nil)
	out, err := pre.process("main", "#include \"common.wgsli\"\nfn f() -> f32 { return PI; }\n")
	require.NoError(t, err)
	assert.Contains(t, out, "const PI")
	assert.Contains(t, out, "fn f()")
	assert.NotContains(t, out, "#include")
}

func TestIncludeFirstHitWins(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "x.wgsli", "// from A\n")
	writeFile(t, dirB, "x.wgsli", "// from B\n")

	pre := newPreprocessor([]string{dirA, dirB}, nil)
	out, err := pre.process("main", "#include \"x.wgsli\"\n")
	require.NoError(t, err)
	assert.Contains(t, out, "from A")
	assert.NotContains(t, out, "from B")
}

func TestIncludeNested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inner.wgsli", "const X: u32 = 1u;\n")
	writeFile(t, dir, "outer.wgsli", "#include \"inner.wgsli\"\nconst Y: u32 = 2u;\n")

	pre := newPreprocessor([]string{dir}, nil)
	out, err := pre.process("main", "#include \"outer.wgsli\"\n")
	require.NoError(t, err)
	assert.Contains(t, out, "const X")
	assert.Contains(t, out, "const Y")
}

func TestIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wgsli", "#include \"b.wgsli\"\n")
	writeFile(t, dir, "b.wgsli", "#include \"a.wgsli\"\n")

	pre := newPreprocessor([]string{dir}, nil)
	_, err := pre.process("main", "#include \"a.wgsli\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestIncludeRepeatAllowed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.wgsli", "// shared\n")

	pre := newPreprocessor([]string{dir}, nil)
	_, err := pre.process("main", "#include \"x.wgsli\"\n#include \"x.wgsli\"\n")
	require.NoError(t, err, "a file may be included twice; only cycles are rejected")
}

func TestIncludeNotFound(t *testing.T) {
	pre := newPreprocessor([]string{t.TempDir()}, nil)
	_, err := pre.process("main", "#include \"missing.wgsli\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.wgsli")
}

func TestMacroWholeIdentifier(t *testing.T) {
	pre := newPreprocessor(nil, []backend.Macro{{Name: "N", Value: "4"}})
	out, err := pre.process("main", "let a = N; let b = NN; let c = FN;\n")
	require.NoError(t, err)
	assert.Equal(t, "let a = 4; let b = NN; let c = FN;\n", out,
		"substitution must match whole identifiers only")
}

func TestMacroDeclarationOrder(t *testing.T) {
	pre := newPreprocessor(nil, []backend.Macro{
		{Name: "A", Value: "B"},
		{Name: "B", Value: "2"},
	})
	out, err := pre.process("main", "A\n")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out, "macros apply in declaration order, so A expands through B")
}
