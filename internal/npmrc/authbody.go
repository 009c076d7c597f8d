package npmrc

import (
	"fmt"
	"strings"
)

// authKey is the entry the auth endpoint returns the token under.
const authKey = "_auth"

// ParseAuthBody extracts the _auth value from a line-oriented body such as
//
//	_auth = abc123
//	always-auth = true
//
// Only the first "=" separates key from value, so base64 padding survives.
func ParseAuthBody(body string) (string, error) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != authKey {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", fmt.Errorf("%w: empty %s value", ErrMalformedResponse, authKey)
		}
		return value, nil
	}
	return "", fmt.Errorf("%w: no %s entry", ErrMalformedResponse, authKey)
}
