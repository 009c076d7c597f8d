// Package npmrc writes npm registry authentication into an .npmrc file.
//
// A Writer normalizes the registry and scope into a Target, resolves the
// token (a ${NODE_AUTH_TOKEN} placeholder, or the _auth value served by an
// auth endpoint), merges the auth, registry and always-auth directives into
// any existing file while keeping unrelated settings, and publishes the
// file location and token to the pipeline.
//
// The merge is line-oriented patching, not a general .npmrc parser.
// ParseNpmrc offers a read-only view of registries for inspection.
package npmrc
