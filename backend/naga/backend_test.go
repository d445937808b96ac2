package naga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadercache/backend"
)

const testShader = `@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func newTestSession(t *testing.T, cfg backend.SessionConfig) backend.Session {
	t.Helper()
	if cfg.Profile == "" {
		cfg.Profile = "spirv_1_5"
	}
	sess, err := New().NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func TestRegistered(t *testing.T) {
	assert.True(t, backend.IsRegistered(BackendNaga), "importing the package must register the backend")
	b := backend.Get(BackendNaga)
	require.NotNil(t, b)
	assert.Equal(t, BackendNaga, b.Name())
	assert.NotEmpty(t, b.Version())
}

func TestCompileAndEnumerate(t *testing.T) {
	sess := newTestSession(t, backend.SessionConfig{})
	require.NoError(t, sess.LoadModule("test", testShader))

	prog, err := sess.Link()
	require.NoError(t, err)
	defer prog.Close()

	eps := prog.EntryPoints()
	require.Len(t, eps, 2)
	assert.Equal(t, backend.EntryPointInfo{Name: "vs_main", Stage: backend.StageVertex}, eps[0])
	assert.Equal(t, backend.EntryPointInfo{Name: "fs_main", Stage: backend.StageFragment}, eps[1])
}

func TestCodeIsSPIRV(t *testing.T) {
	sess := newTestSession(t, backend.SessionConfig{})
	require.NoError(t, sess.LoadModule("test", testShader))

	prog, err := sess.Link()
	require.NoError(t, err)
	defer prog.Close()

	for i, ep := range prog.EntryPoints() {
		code, err := prog.Code(i)
		require.NoError(t, err, "entry point %s", ep.Name)
		require.NotEmpty(t, code)
		assert.Equal(t, uint32(0x07230203), code[0], "SPIR-V magic for %s", ep.Name)
	}

	_, err = prog.Code(-1)
	require.Error(t, err)
	_, err = prog.Code(2)
	require.Error(t, err)
}

func TestUnknownProfile(t *testing.T) {
	_, err := New().NewSession(backend.SessionConfig{Profile: "dxil_6_0"})
	require.ErrorIs(t, err, backend.ErrUnknownProfile)
}

func TestAllProfiles(t *testing.T) {
	for name := range profiles {
		sess, err := New().NewSession(backend.SessionConfig{Profile: name})
		require.NoError(t, err, name)
		require.NoError(t, sess.LoadModule("test", testShader))
		prog, err := sess.Link()
		require.NoError(t, err, name)
		code, err := prog.Code(0)
		require.NoError(t, err, name)
		assert.Equal(t, uint32(0x07230203), code[0])
		prog.Close()
		sess.Close()
	}
}

func TestParseErrorCarriesModuleName(t *testing.T) {
	sess := newTestSession(t, backend.SessionConfig{})
	err := sess.LoadModule("broken", "@vertex fn ( {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestMacroSubstitution(t *testing.T) {
	src := `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(COLOR_R, 0.0, 0.0, 1.0);
}
`
	sess := newTestSession(t, backend.SessionConfig{
		Macros: []backend.Macro{{Name: "COLOR_R", Value: "0.5"}},
	})
	require.NoError(t, sess.LoadModule("test", src))

	prog, err := sess.Link()
	require.NoError(t, err)
	prog.Close()
}

func TestSessionClosed(t *testing.T) {
	sess := newTestSession(t, backend.SessionConfig{})
	sess.Close()

	require.ErrorIs(t, sess.LoadModule("test", testShader), backend.ErrSessionClosed)
	_, err := sess.Link()
	require.ErrorIs(t, err, backend.ErrSessionClosed)
}

func TestLinkAcrossModules(t *testing.T) {
	vs := `@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`
	fs := `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 1.0, 0.0, 1.0);
}
`
	sess := newTestSession(t, backend.SessionConfig{})
	require.NoError(t, sess.LoadModule("vs", vs))
	require.NoError(t, sess.LoadModule("fs", fs))

	prog, err := sess.Link()
	require.NoError(t, err)
	defer prog.Close()
	assert.Len(t, prog.EntryPoints(), 2)
}
