package shadercache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadercache/backend"
)

func TestRegistryContextPerWorker(t *testing.T) {
	created := 0
	r := NewSessionRegistry(func() backend.Backend {
		created++
		return &stubBackend{}
	})

	a1, err := r.Context(1)
	require.NoError(t, err)
	a2, err := r.Context(1)
	require.NoError(t, err)
	assert.Same(t, a1, a2, "the same worker shares one context")

	b, err := r.Context(2)
	require.NoError(t, err)
	assert.NotSame(t, a1, b, "distinct workers get distinct contexts")
	assert.Equal(t, 2, created)

	assert.ElementsMatch(t, []WorkerID{1, 2}, r.Workers())
}

func TestRegistryNilFactory(t *testing.T) {
	r := NewSessionRegistry(nil)
	// backend.Default picks whatever is registered; with nothing registered
	// the registry must report ErrNoBackend instead of panicking.
	if len(backend.Available()) == 0 {
		_, err := r.Context(0)
		require.ErrorIs(t, err, ErrNoBackend)
	} else {
		_, err := r.Context(0)
		require.NoError(t, err)
	}
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	created := 0
	var mu sync.Mutex
	r := NewSessionRegistry(func() backend.Backend {
		mu.Lock()
		created++
		mu.Unlock()
		return &stubBackend{}
	})

	const goroutines = 32
	contexts := make([]backend.Backend, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := r.Context(7)
			assert.NoError(t, err)
			contexts[i] = b
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "racing callers on one worker id still share one context")
	for _, b := range contexts {
		assert.Same(t, contexts[0], b)
	}
}

func TestWithBackendName(t *testing.T) {
	stub := &stubBackend{}
	backend.Register("stub-named", func() backend.Backend { return stub })
	t.Cleanup(func() { backend.Unregister("stub-named") })

	p := NewProgram(0, WithBackendName("stub-named"))
	defer p.Close()
	p.AddModuleSource("fn f() {}", "main")

	require.NoError(t, p.Compile(false))
	assert.Equal(t, StatusCompiled, p.Status())
	assert.Equal(t, 1, stub.sessions)
}

func TestWithBackendNameUnregistered(t *testing.T) {
	p := NewProgram(0, WithBackendName("no-such-backend"))
	defer p.Close()
	p.AddModuleSource("fn f() {}", "main")

	err := p.Compile(false)
	require.ErrorIs(t, err, ErrNoBackend)
}

func TestAcquireSession(t *testing.T) {
	stub := &stubBackend{}
	r := NewSessionRegistry(func() backend.Backend { return stub })

	sess, err := r.AcquireSession(0, backend.SessionConfig{Profile: "spirv_1_5"})
	require.NoError(t, err)
	require.NotNil(t, sess)
	defer sess.Close()

	assert.Equal(t, 1, stub.sessions)
}
