package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	scheme string
	values map[string]string
}

func (m *mockResolver) Scheme() string {
	return m.scheme
}

func (m *mockResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if v, ok := m.values[ref]; ok {
		return v, nil
	}
	return "", &NotFoundError{Reference: ref}
}

// withTestRegistry runs fn against an empty registry and restores the
// built-in resolvers afterwards.
func withTestRegistry(t *testing.T, fn func()) {
	t.Helper()
	mu.RLock()
	saved := make(map[string]Resolver, len(resolvers))
	for k, v := range resolvers {
		saved[k] = v
	}
	mu.RUnlock()

	clearRegistry()
	t.Cleanup(func() {
		mu.Lock()
		resolvers = saved
		mu.Unlock()
	})
	fn()
}

func TestBuiltinResolversRegistered(t *testing.T) {
	for _, scheme := range []string{"op", "awssm"} {
		_, ok := lookup(scheme)
		assert.True(t, ok, "scheme %q not registered", scheme)
	}
}

func TestResolve_DispatchesToCorrectResolver(t *testing.T) {
	withTestRegistry(t, func() {
		Register(&mockResolver{
			scheme: "mock",
			values: map[string]string{"mock://vault/item/field": "secret-value"},
		})

		val, err := Resolve(context.Background(), "mock://vault/item/field")
		require.NoError(t, err)
		assert.Equal(t, "secret-value", val)
	})
}

func TestResolve_UnsupportedScheme(t *testing.T) {
	withTestRegistry(t, func() {
		_, err := Resolve(context.Background(), "unknown://vault/item")
		var unsupported *UnsupportedSchemeError
		require.True(t, errors.As(err, &unsupported), "got %T", err)
		assert.Equal(t, "unknown", unsupported.Scheme)
	})
}

func TestResolve_InvalidReference(t *testing.T) {
	_, err := Resolve(context.Background(), "no-scheme-here")
	var invalid *InvalidReferenceError
	assert.ErrorAs(t, err, &invalid)
}

func TestResolveValue(t *testing.T) {
	withTestRegistry(t, func() {
		Register(&mockResolver{
			scheme: "mock",
			values: map[string]string{"mock://ci/password": "hunter2"},
		})
		ctx := context.Background()

		got, isRef, err := ResolveValue(ctx, "mock://ci/password")
		require.NoError(t, err)
		assert.True(t, isRef)
		assert.Equal(t, "hunter2", got)

		// Plain values, including ones that look like URLs, pass through.
		for _, plain := range []string{"hunter2", "", "https://example.com/x", "p@ss://word"} {
			got, isRef, err = ResolveValue(ctx, plain)
			require.NoError(t, err)
			assert.False(t, isRef, plain)
			assert.Equal(t, plain, got)
		}

		_, isRef, err = ResolveValue(ctx, "mock://ci/missing")
		assert.True(t, isRef)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestParseScheme(t *testing.T) {
	assert.Equal(t, "op", parseScheme("op://a/b/c"))
	assert.Equal(t, "awssm", parseScheme("awssm:///id"))
	assert.Equal(t, "", parseScheme("://x"))
	assert.Equal(t, "", parseScheme("plain"))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "unsupported secret scheme: vault", (&UnsupportedSchemeError{Scheme: "vault"}).Error())
	assert.Equal(t, "secret not found in 1Password: op://a/b/c", (&NotFoundError{Reference: "op://a/b/c", Backend: "1Password"}).Error())
	assert.Equal(t, "secret not found: op://a/b/c", (&NotFoundError{Reference: "op://a/b/c"}).Error())
	assert.Equal(t, "1Password: not signed in\n\n  run op signin", (&BackendError{Backend: "1Password", Reason: "not signed in", Fix: "run op signin"}).Error())
}
