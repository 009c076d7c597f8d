package npmrc

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Token sources reported by ParseNpmrc.
const (
	SourceLiteral = "literal" // token written into the file
	SourceEnv     = "env"     // ${VAR} reference expanded by npm
)

// RegistryEntry is one registry host found in an .npmrc.
type RegistryEntry struct {
	Host        string   `json:"host"`
	Token       string   `json:"token,omitempty"`
	TokenSource string   `json:"token_source,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Default     bool     `json:"default,omitempty"`
}

// ParseNpmrc reads registry settings from an .npmrc.
//
// It recognizes three kinds of lines:
//   - Token lines: //registry.npmjs.org/:_authToken=npm_xxxx
//   - Scope lines: @myorg:registry=https://npm.company.com/
//   - Default registry: registry=https://registry.npmjs.org/
//
// Entries are returned per host in first-seen order. Token values that are
// environment references are reported with TokenSource SourceEnv.
func ParseNpmrc(r io.Reader) ([]RegistryEntry, error) {
	byHost := make(map[string]*RegistryEntry)
	var order []string

	entry := func(host string) *RegistryEntry {
		e, ok := byHost[host]
		if !ok {
			e = &RegistryEntry{Host: host}
			byHost[host] = e
			order = append(order, host)
		}
		return e
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "//"):
			host, token, ok := parseTokenLine(line)
			if !ok {
				continue
			}
			e := entry(host)
			e.Token = token
			e.TokenSource = SourceLiteral
			if strings.HasPrefix(token, "${") {
				e.TokenSource = SourceEnv
			}

		case strings.HasPrefix(line, "@"):
			scope, host, ok := parseScopeLine(line)
			if !ok {
				continue
			}
			e := entry(host)
			e.Scopes = append(e.Scopes, scope)

		case strings.HasPrefix(strings.ToLower(line), "registry"):
			key, value, ok := strings.Cut(line, "=")
			if !ok || strings.TrimSpace(key) != "registry" {
				continue
			}
			if host := registryHost(strings.TrimSpace(value)); host != "" {
				entry(host).Default = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading npmrc: %w", err)
	}

	entries := make([]RegistryEntry, 0, len(order))
	for _, host := range order {
		entries = append(entries, *byHost[host])
	}
	return entries, nil
}

// parseTokenLine parses "//host[/path]/:_authToken=TOKEN".
func parseTokenLine(line string) (host, token string, ok bool) {
	idx := strings.Index(line, ":_authToken=")
	if idx == -1 {
		return "", "", false
	}

	hostPart := strings.TrimSuffix(line[2:idx], "/")
	if slashIdx := strings.Index(hostPart, "/"); slashIdx != -1 {
		hostPart = hostPart[:slashIdx]
	}
	if hostPart == "" {
		return "", "", false
	}

	token = strings.TrimSpace(line[idx+len(":_authToken="):])
	return hostPart, token, true
}

// parseScopeLine parses "@scope:registry=URL".
func parseScopeLine(line string) (scope, host string, ok bool) {
	colonIdx := strings.Index(line, ":registry=")
	if colonIdx == -1 {
		return "", "", false
	}

	host = registryHost(strings.TrimSpace(line[colonIdx+len(":registry="):]))
	if host == "" {
		return "", "", false
	}
	return line[:colonIdx], host, true
}

func registryHost(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
