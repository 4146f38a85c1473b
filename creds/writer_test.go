package creds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shono-io/acasci/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bob = sdk.CredentialProfile{Username: "bob", Password: "secret", URL: "http://localhost:3000"}

func TestWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".acas", "credentials")

	w, err := NewWriter(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, w.Write(bob))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "[default]")
	assert.Contains(t, content, "username")
	assert.Contains(t, content, "http://localhost:3000")

	got, err := Load(path, DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, bob, got)
}

func TestWriter_WritesCommentCharactersVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	p := sdk.CredentialProfile{Username: "bob", Password: "s3c#r;t", URL: "http://localhost:3000/#/"}

	w, err := NewWriter(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, w.Write(p))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^password\s*=\s*s3c#r;t$`, string(b))
	assert.NotContains(t, string(b), "`")

	got, err := Load(path, DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestWriter_WriteReplacesExistingProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("[acas]\nusername = alice\npassword = x\nurl = http://old\n"), 0o600))

	w, err := NewWriter(Config{Path: path, Profile: "ci"})
	require.NoError(t, err)
	require.NoError(t, w.Write(bob))

	_, err = Load(path, "acas")
	assert.Error(t, err)

	got, err := Load(path, "ci")
	require.NoError(t, err)
	assert.Equal(t, bob, got)
}

func TestWriter_RejectsIncompleteProfile(t *testing.T) {
	w, err := NewWriter(Config{Path: filepath.Join(t.TempDir(), "credentials")})
	require.NoError(t, err)

	assert.Error(t, w.Write(sdk.CredentialProfile{Username: "bob"}))
	assert.NoFileExists(t, w.Path())
}

func TestNewWriter_DefaultPath(t *testing.T) {
	home := t.TempDir()
	prev := osUserHomeDir
	osUserHomeDir = func() (string, error) { return home, nil }
	t.Cleanup(func() { osUserHomeDir = prev })

	w, err := NewWriter(Config{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".acas", "credentials"), w.Path())
	assert.Equal(t, DefaultProfile, w.Profile())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"), DefaultProfile)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("[default]\nusername = bob\n"), 0o600))

	_, err = Load(path, DefaultProfile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestFromEnv(t *testing.T) {
	t.Setenv(UsernameEnvVar, "bob")
	t.Setenv(PasswordEnvVar, "secret")
	t.Setenv(UrlEnvVar, "")

	_, ok := FromEnv()
	assert.False(t, ok)

	t.Setenv(UrlEnvVar, "http://localhost:3000")
	p, ok := FromEnv()
	assert.True(t, ok)
	assert.Equal(t, bob, p)
}

func TestResolveProfile(t *testing.T) {
	cfg := Config{Username: "bob", Password: "secret"}

	t.Setenv(UsernameEnvVar, "")
	assert.Equal(t, bob, ResolveProfile(cfg, "http://localhost:3000"))

	t.Setenv(UsernameEnvVar, "alice")
	t.Setenv(PasswordEnvVar, "wonderland")
	t.Setenv(UrlEnvVar, "http://acas:3000")
	assert.Equal(t, sdk.CredentialProfile{Username: "alice", Password: "wonderland", URL: "http://acas:3000"}, ResolveProfile(cfg, "http://localhost:3000"))
}

func TestEnv(t *testing.T) {
	assert.Equal(t, []string{
		"ACAS_API_USERNAME=bob",
		"ACAS_API_PASSWORD=secret",
		"ACAS_API_URL=http://localhost:3000",
	}, Env(bob))
}
