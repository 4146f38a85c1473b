// Package creds writes and reads the credential profile the client under test authenticates with.
package creds

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/sdk"
	"gopkg.in/ini.v1"
)

const (
	DefaultProfile = "default"

	UsernameEnvVar = "ACAS_API_USERNAME"
	PasswordEnvVar = "ACAS_API_PASSWORD"
	UrlEnvVar      = "ACAS_API_URL"
	ProfileEnvVar  = "ACAS_API_PROFILE"
)

var loadOptions = ini.LoadOptions{IgnoreInlineComment: true}

// for mocking in tests
var osUserHomeDir = os.UserHomeDir

type Config struct {
	Path     string `mapstructure:"path"`
	Profile  string `mapstructure:"profile"`
	Url      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func DefaultPath() (string, error) {
	home, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine home directory: %w", err)
	}

	return filepath.Join(home, ".acas", "credentials"), nil
}

type Writer struct {
	path    string
	profile string
}

func NewWriter(cfg Config) (*Writer, error) {
	path := cfg.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	return &Writer{path: path, profile: profile}, nil
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Profile() string {
	return w.profile
}

// Write replaces the credential file with a single profile. The file is plaintext and only
// readable by the current user.
func (w *Writer) Write(p sdk.CredentialProfile) error {
	if !p.Complete() {
		return fmt.Errorf("credential profile requires username, password and url")
	}

	// values are written verbatim; the client's parser does not strip go-ini's backtick quoting
	f := ini.Empty(loadOptions)
	sec, err := f.NewSection(w.profile)
	if err != nil {
		return fmt.Errorf("unable to create profile %q: %w", w.profile, err)
	}

	if err := sec.ReflectFrom(&p); err != nil {
		return fmt.Errorf("unable to encode profile %q: %w", w.profile, err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("unable to encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		return fmt.Errorf("unable to create credentials directory: %w", err)
	}

	if err := os.WriteFile(w.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("unable to write credentials: %w", err)
	}

	log.Info().Str("path", w.path).Str("profile", w.profile).Str("url", p.URL).Msg("credentials written")
	return nil
}

// Load reads a profile back from a credential file.
func Load(path string, profile string) (sdk.CredentialProfile, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return sdk.CredentialProfile{}, fmt.Errorf("unable to read credentials from %s: %w", path, err)
	}

	sec, err := f.GetSection(profile)
	if err != nil {
		return sdk.CredentialProfile{}, fmt.Errorf("profile %q not found in %s", profile, path)
	}

	var p sdk.CredentialProfile
	if err := sec.MapTo(&p); err != nil {
		return sdk.CredentialProfile{}, fmt.Errorf("unable to decode profile %q: %w", profile, err)
	}

	if !p.Complete() {
		return p, fmt.Errorf("profile %q in %s is incomplete", profile, path)
	}

	return p, nil
}

// FromEnv returns the profile given through the environment, if all of its fields are set.
func FromEnv() (sdk.CredentialProfile, bool) {
	p := sdk.CredentialProfile{
		Username: os.Getenv(UsernameEnvVar),
		Password: os.Getenv(PasswordEnvVar),
		URL:      os.Getenv(UrlEnvVar),
	}

	return p, p.Complete()
}

// ResolveProfile picks the profile written for the client. A complete profile given through the
// ACAS_API_* environment wins over the configured one, the same precedence the client applies.
func ResolveProfile(cfg Config, url string) sdk.CredentialProfile {
	if p, ok := FromEnv(); ok {
		log.Info().Str("url", p.URL).Msg("using credentials from the environment")
		return p
	}

	return sdk.CredentialProfile{Username: cfg.Username, Password: cfg.Password, URL: url}
}

// Env lists the variables that hand a profile to the client directly, independent of the
// credential file location.
func Env(p sdk.CredentialProfile) []string {
	return []string{
		UsernameEnvVar + "=" + p.Username,
		PasswordEnvVar + "=" + p.Password,
		UrlEnvVar + "=" + p.URL,
	}
}
