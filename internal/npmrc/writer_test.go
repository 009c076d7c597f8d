package npmrc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher records exported variables and secrets.
type fakePublisher struct {
	vars    map[string]string
	secrets []string
	err     error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{vars: make(map[string]string)}
}

func (p *fakePublisher) ExportVariable(name, value string) error {
	if p.err != nil {
		return p.err
	}
	p.vars[name] = value
	return nil
}

func (p *fakePublisher) SetSecret(value string) {
	p.secrets = append(p.secrets, value)
}

// staticResolver returns a fixed token, or Placeholder when AuthURL is empty.
type staticResolver struct {
	token string
	err   error
	calls int
}

func (r *staticResolver) Resolve(_ context.Context, creds Credentials) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	if creds.AuthURL == "" {
		return Placeholder, nil
	}
	return r.token, nil
}

func lines(l ...string) string {
	return strings.Join(l, LineBreak)
}

func TestWrite_PlaceholderExample(t *testing.T) {
	dir := t.TempDir()
	pub := newFakePublisher()
	w := NewWriter(&staticResolver{}, pub)

	res, err := w.Write(context.Background(), Options{
		RegistryURL: "https://registry.example.com",
		AlwaysAuth:  "true",
		TempDir:     dir,
	})
	require.NoError(t, err)

	wantPath := filepath.Join(dir, FileName)
	assert.Equal(t, wantPath, res.Path)
	assert.True(t, res.Placeholder)

	data, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, lines(
		"//registry.example.com/:_authToken=${NODE_AUTH_TOKEN}",
		"registry=https://registry.example.com/",
		"always-auth=true",
	), string(data))

	assert.Equal(t, wantPath, pub.vars[EnvUserConfig])
	assert.Equal(t, DummyToken, pub.vars[EnvAuthToken])
	assert.Empty(t, pub.secrets, "placeholder must not be registered as a secret")
}

func TestWrite_ScopeWithBothRegistries(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(&staticResolver{}, newFakePublisher())

	res, err := w.Write(context.Background(), Options{
		RegistryURL:           "https://registry.example.com",
		AlwaysAuth:            "true",
		Scope:                 "myorg",
		IncludeBothRegistries: true,
		TempDir:               dir,
	})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"//registry.example.com/:_authToken=${NODE_AUTH_TOKEN}",
		"@myorg:registry=https://registry.example.com/",
		"registry=https://registry.example.com/",
		"always-auth=true",
	), res.Content)
}

func TestWrite_GitHubPackagesDefaultsScopeToOwner(t *testing.T) {
	w := NewWriter(&staticResolver{}, newFakePublisher())

	res, err := w.Write(context.Background(), Options{
		RegistryURL: "https://npm.pkg.github.com",
		AlwaysAuth:  "false",
		Owner:       "OctoOrg",
		TempDir:     t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, "@octoorg", res.Target.Scope)
	assert.Contains(t, res.Content, "@octoorg:registry=https://npm.pkg.github.com/")
	assert.NotContains(t, res.Content, LineBreak+"registry=")
}

func TestWrite_ResolvedTokenIsExportedAndMasked(t *testing.T) {
	pub := newFakePublisher()
	w := NewWriter(&staticResolver{token: "abc123"}, pub)

	res, err := w.Write(context.Background(), Options{
		RegistryURL: "https://registry.example.com/",
		AlwaysAuth:  "true",
		Credentials: Credentials{AuthURL: "https://auth.example.com/npm"},
		TempDir:     t.TempDir(),
	})
	require.NoError(t, err)

	assert.False(t, res.Placeholder)
	assert.Contains(t, res.Content, "//registry.example.com/:_authToken=abc123")
	assert.Equal(t, "abc123", pub.vars[EnvAuthToken])
	assert.Equal(t, []string{"abc123"}, pub.secrets)
}

func TestWrite_MergesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	existing := lines(
		"save-exact=true",
		"registry=https://old.example.com/",
		"Registry=https://older.example.com/",
		"fund=false",
	) + LineBreak
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	w := NewWriter(&staticResolver{}, newFakePublisher())
	_, err := w.Write(context.Background(), Options{
		RegistryURL: "https://registry.example.com",
		AlwaysAuth:  "true",
		Path:        path,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lines(
		"save-exact=true",
		"fund=false",
		"//registry.example.com/:_authToken=${NODE_AUTH_TOKEN}",
		"registry=https://registry.example.com/",
		"always-auth=true",
	), string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm(), "existing permissions should be kept")
	}
}

func TestWrite_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("save-exact=true"+LineBreak), 0600))

	opts := Options{
		RegistryURL:           "https://registry.example.com",
		AlwaysAuth:            "true",
		Scope:                 "@MyOrg",
		IncludeBothRegistries: true,
		Path:                  path,
	}
	w := NewWriter(&staticResolver{}, newFakePublisher())

	_, err := w.Write(context.Background(), opts)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), opts)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestWrite_NewFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	w := NewWriter(&staticResolver{}, newFakePublisher())

	res, err := w.Write(context.Background(), Options{RegistryURL: "https://registry.example.com", AlwaysAuth: "true", TempDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not be left behind")
}

func TestWrite_ResolverErrorLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("save-exact=true"), 0600))

	pub := newFakePublisher()
	resolverErr := &AuthRejectedError{URL: "https://auth.example.com", StatusCode: 401}
	w := NewWriter(&staticResolver{err: resolverErr}, pub)

	_, err := w.Write(context.Background(), Options{
		RegistryURL: "https://registry.example.com",
		AlwaysAuth:  "true",
		Credentials: Credentials{AuthURL: "https://auth.example.com"},
		Path:        path,
	})
	var rejected *AuthRejectedError
	require.ErrorAs(t, err, &rejected)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "save-exact=true", string(data))
	assert.Empty(t, pub.vars)
}

func TestWrite_MissingDirectoryIsFilesystemError(t *testing.T) {
	pub := newFakePublisher()
	w := NewWriter(&staticResolver{}, pub)

	_, err := w.Write(context.Background(), Options{
		RegistryURL: "https://registry.example.com",
		AlwaysAuth:  "true",
		TempDir:     filepath.Join(t.TempDir(), "does-not-exist"),
	})

	var fsErr *FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "write", fsErr.Op)
	assert.Empty(t, pub.vars)
}

func TestWrite_PublishError(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("env file closed")
	w := NewWriter(&staticResolver{}, pub)

	_, err := w.Write(context.Background(), Options{
		RegistryURL: "https://registry.example.com",
		AlwaysAuth:  "true",
		TempDir:     t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvUserConfig)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolvePath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), got)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	got, err = ResolvePath("")
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, FileName), got)
}
