package npmrc

import (
	"runtime"
	"strings"
)

// LineBreak is the platform line-break sequence used to split and join
// .npmrc content.
var LineBreak = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// Directives builds the block appended after preserved content: the auth
// line, the registry line(s), then always-auth.
func Directives(t Target, token, alwaysAuth string, includeBoth bool) []string {
	lines := []string{t.AuthKey() + ":_authToken=" + token}
	switch {
	case t.Scope != "" && includeBoth:
		lines = append(lines,
			t.Scope+":registry="+t.URL,
			"registry="+t.URL,
		)
	case t.Scope != "":
		lines = append(lines, t.Scope+":registry="+t.URL)
	default:
		lines = append(lines, "registry="+t.URL)
	}
	return append(lines, "always-auth="+alwaysAuth)
}

// Merge returns existing with every registry setting removed and directives
// appended. A line is removed when it starts with "registry" (any case) or
// sets the same key as one of the directives, so each directive appears once.
// Remaining lines keep their order. The result has no trailing line break.
func Merge(existing string, directives []string, eol string) string {
	replaced := make(map[string]bool, len(directives))
	for _, d := range directives {
		replaced[lineKey(d)] = true
	}

	var kept []string
	if existing != "" {
		lines := strings.Split(existing, eol)
		// A final line break leaves an empty element that is not a line.
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			if strings.HasPrefix(strings.ToLower(line), "registry") {
				continue
			}
			if replaced[lineKey(line)] {
				continue
			}
			kept = append(kept, line)
		}
	}

	return strings.Join(append(kept, directives...), eol)
}

// lineKey returns the lowercased key of a "key=value" line, or "" for lines
// without "=".
func lineKey(line string) string {
	key, _, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(key))
}
