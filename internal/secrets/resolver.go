// Package secrets resolves secret references in step inputs, so credentials
// such as auth-password can come from a secret store instead of the
// workflow file.
package secrets

import (
	"context"
	"strings"
	"sync"
)

// Resolver resolves a secret reference to its plaintext value.
type Resolver interface {
	// Scheme returns the URI scheme this resolver handles (e.g., "op", "awssm").
	Scheme() string

	// Resolve fetches the secret value for the given reference.
	// The reference is the full URI (e.g., "op://CI/npm/password").
	Resolve(ctx context.Context, reference string) (string, error)
}

var (
	resolvers = make(map[string]Resolver)
	mu        sync.RWMutex
)

// Register adds a resolver to the registry.
func Register(r Resolver) {
	mu.Lock()
	defer mu.Unlock()
	resolvers[r.Scheme()] = r
}

// Resolve dispatches to the appropriate resolver based on URI scheme.
func Resolve(ctx context.Context, reference string) (string, error) {
	scheme := parseScheme(reference)
	if scheme == "" {
		return "", &InvalidReferenceError{Reference: reference, Reason: "missing scheme"}
	}

	r, ok := lookup(scheme)
	if !ok {
		return "", &UnsupportedSchemeError{Scheme: scheme}
	}

	return r.Resolve(ctx, reference)
}

// ResolveValue resolves value when it is a reference with a registered
// scheme and returns it unchanged otherwise. isRef reports which happened.
func ResolveValue(ctx context.Context, value string) (resolved string, isRef bool, err error) {
	if _, ok := lookup(parseScheme(value)); !ok {
		return value, false, nil
	}
	resolved, err = Resolve(ctx, value)
	if err != nil {
		return "", true, err
	}
	return resolved, true, nil
}

func lookup(scheme string) (Resolver, bool) {
	if scheme == "" {
		return nil, false
	}
	mu.RLock()
	defer mu.RUnlock()
	r, ok := resolvers[scheme]
	return r, ok
}

// parseScheme extracts the scheme from a URI (e.g., "op" from "op://vault/item").
func parseScheme(ref string) string {
	idx := strings.Index(ref, "://")
	if idx < 1 {
		return ""
	}
	return ref[:idx]
}

// clearRegistry removes all registered resolvers. For testing only.
func clearRegistry() {
	mu.Lock()
	defer mu.Unlock()
	resolvers = make(map[string]Resolver)
}
