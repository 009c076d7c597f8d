package npmrc

import (
	"regexp"
	"strings"
)

// GitHubPackagesHost is the registry host whose scope defaults to the
// repository owner.
const GitHubPackagesHost = "npm.pkg.github.com"

// schemePrefix matches a leading "scheme:" such as "https:".
var schemePrefix = regexp.MustCompile(`^\w+:`)

// Target is a normalized registry URL with its optional scope.
type Target struct {
	URL   string // always ends with "/"
	Scope string // "" or "@lowercase"
}

// NewTarget normalizes registryURL and scope. When scope is empty and the
// registry is GitHub Packages, owner becomes the scope.
func NewTarget(registryURL, scope, owner string) Target {
	u := NormalizeRegistryURL(registryURL)
	if scope == "" && strings.Contains(u, GitHubPackagesHost) {
		scope = owner
	}
	return Target{
		URL:   u,
		Scope: NormalizeScope(scope),
	}
}

// NormalizeRegistryURL appends a trailing "/" if absent.
func NormalizeRegistryURL(raw string) string {
	if !strings.HasSuffix(raw, "/") {
		return raw + "/"
	}
	return raw
}

// NormalizeScope prefixes "@" when missing and lowercases the result.
func NormalizeScope(scope string) string {
	if scope == "" {
		return ""
	}
	if !strings.HasPrefix(scope, "@") {
		scope = "@" + scope
	}
	return strings.ToLower(scope)
}

// AuthKey returns the registry URL without its scheme, e.g.
// "//registry.npmjs.org/". npm keys per-registry settings this way.
func (t Target) AuthKey() string {
	return schemePrefix.ReplaceAllString(t.URL, "")
}
