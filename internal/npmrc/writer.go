package npmrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/majorcontext/setup-npmrc/internal/log"
)

// FileName is the config file written into the resolved directory.
const FileName = ".npmrc"

// Names of the variables published for later pipeline steps.
const (
	EnvUserConfig = "NPM_CONFIG_USERCONFIG"
	EnvAuthToken  = "NODE_AUTH_TOKEN"
)

// DummyToken is exported as NODE_AUTH_TOKEN when no real token was resolved,
// so npm does not fail expanding the placeholder.
const DummyToken = "XXXXX-XXXXX-XXXXX-XXXXX"

// TokenResolver resolves the token for the auth line.
type TokenResolver interface {
	Resolve(ctx context.Context, creds Credentials) (string, error)
}

// Publisher makes named values visible to later pipeline steps.
type Publisher interface {
	ExportVariable(name, value string) error
	// SetSecret asks the pipeline to mask value in its logs.
	SetSecret(value string)
}

// Options are the inputs of a single Write.
type Options struct {
	RegistryURL string
	AlwaysAuth  string
	Scope       string
	// Owner is the repository owner used as the GitHub Packages default scope.
	Owner                 string
	IncludeBothRegistries bool
	Credentials           Credentials

	// Path overrides the config file location. When empty the file is
	// TempDir/.npmrc, or ./.npmrc when TempDir is also empty.
	Path    string
	TempDir string
}

// Result describes what Write produced.
type Result struct {
	Path        string
	Target      Target
	Token       string
	Placeholder bool
	Content     string
}

// Writer merges registry auth into an .npmrc and publishes its location.
type Writer struct {
	resolver  TokenResolver
	publisher Publisher
	eol       string
}

// NewWriter creates a Writer using the platform line break.
func NewWriter(resolver TokenResolver, publisher Publisher) *Writer {
	return &Writer{
		resolver:  resolver,
		publisher: publisher,
		eol:       LineBreak,
	}
}

// Write resolves the token, merges the registry directives into the config
// file and publishes NPM_CONFIG_USERCONFIG and NODE_AUTH_TOKEN. Any error
// leaves the previous file untouched and nothing published.
func (w *Writer) Write(ctx context.Context, opts Options) (*Result, error) {
	target := NewTarget(opts.RegistryURL, opts.Scope, opts.Owner)

	path := opts.Path
	if path == "" {
		var err error
		path, err = ResolvePath(opts.TempDir)
		if err != nil {
			return nil, err
		}
	}

	logger := log.With("path", path, "registry", target.URL, "scope", target.Scope)
	logger.Info("setting registry auth")

	existing, err := readExisting(path)
	if err != nil {
		return nil, err
	}

	token, err := w.resolver.Resolve(ctx, opts.Credentials)
	if err != nil {
		return nil, err
	}
	placeholder := token == Placeholder

	content := Merge(existing, Directives(target, token, opts.AlwaysAuth, opts.IncludeBothRegistries), w.eol)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return nil, err
	}
	logger.Debug("wrote npmrc", "bytes", len(content), "placeholder", placeholder)

	if err := w.publisher.ExportVariable(EnvUserConfig, path); err != nil {
		return nil, fmt.Errorf("exporting %s: %w", EnvUserConfig, err)
	}
	exported := DummyToken
	if !placeholder {
		w.publisher.SetSecret(token)
		exported = token
	}
	if err := w.publisher.ExportVariable(EnvAuthToken, exported); err != nil {
		return nil, fmt.Errorf("exporting %s: %w", EnvAuthToken, err)
	}

	return &Result{
		Path:        path,
		Target:      target,
		Token:       token,
		Placeholder: placeholder,
		Content:     content,
	}, nil
}

// ResolvePath returns the absolute path of FileName inside tempDir, or inside
// the working directory when tempDir is empty.
func ResolvePath(tempDir string) (string, error) {
	dir := tempDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	path, err := filepath.Abs(filepath.Join(dir, FileName))
	if err != nil {
		return "", fmt.Errorf("resolving %s path: %w", FileName, err)
	}
	return path, nil
}

// readExisting returns the file content, or "" when it does not exist.
func readExisting(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &FilesystemError{Op: "read", Path: path, Cause: err}
	}
	return string(data), nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place. An existing file keeps its permissions; a new one gets 0600.
func writeFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &FilesystemError{Op: "write", Path: path, Cause: err}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return &FilesystemError{Op: "write", Path: path, Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		return &FilesystemError{Op: "write", Path: path, Cause: err}
	}
	if err := tmp.Chmod(mode); err != nil {
		return &FilesystemError{Op: "write", Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &FilesystemError{Op: "write", Path: path, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &FilesystemError{Op: "write", Path: path, Cause: err}
	}

	success = true
	return nil
}
