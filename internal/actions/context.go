package actions

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/majorcontext/setup-npmrc/internal/log"
)

// Repository context variables set by the runner.
const (
	EnvRepositoryOwner = "GITHUB_REPOSITORY_OWNER"
	EnvRepository      = "GITHUB_REPOSITORY"
	EnvWorkspace       = "GITHUB_WORKSPACE"
)

// ErrNoOrigin is returned when a checkout has no usable origin remote.
var ErrNoOrigin = errors.New("no origin remote")

// RepositoryOwner returns the owner of the repository being built. It checks
// GITHUB_REPOSITORY_OWNER, then GITHUB_REPOSITORY, then the origin remote of
// the checkout in GITHUB_WORKSPACE (or the working directory). It returns ""
// when none of them name an owner.
func RepositoryOwner() string {
	if owner := os.Getenv(EnvRepositoryOwner); owner != "" {
		return owner
	}
	if repo := os.Getenv(EnvRepository); repo != "" {
		if owner, _, ok := strings.Cut(repo, "/"); ok && owner != "" {
			return owner
		}
	}

	dir := os.Getenv(EnvWorkspace)
	if dir == "" {
		dir = "."
	}
	owner, err := OwnerFromGit(dir)
	if err != nil {
		log.Debug("repository owner unavailable", "dir", dir, "error", err)
		return ""
	}
	return owner
}

// OwnerFromGit returns the owner segment of the origin remote URL of the
// git repository containing dir.
func OwnerFromGit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOrigin, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoOrigin
	}
	owner := ownerFromRemoteURL(urls[0])
	if owner == "" {
		return "", fmt.Errorf("%w: cannot parse %q", ErrNoOrigin, urls[0])
	}
	return owner, nil
}

// ownerFromRemoteURL handles https://host/owner/repo, ssh://git@host/owner/repo
// and scp-like git@host:owner/repo forms.
func ownerFromRemoteURL(raw string) string {
	var path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		path = u.Path
	} else {
		_, p, ok := strings.Cut(raw, ":")
		if !ok {
			return ""
		}
		path = p
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" {
		return ""
	}
	return segments[0]
}
