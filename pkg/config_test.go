package pkg

import (
	"strings"
	"testing"
	"time"

	"github.com/shono-io/acasci/exec"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("ACASCI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.Readiness.Address)
	assert.Equal(t, 10*time.Minute, cfg.Readiness.Timeout)
	assert.Equal(t, "default", cfg.Credentials.Profile)
	assert.Equal(t, []string{"python", "-m", "unittest"}, cfg.Tests.Command)
	assert.Equal(t, "https://test.pypi.org/legacy/", cfg.Staging.Url)
	assert.Equal(t, exec.TCPProbe{Address: "localhost:3000"}, cfg.Probe())
	assert.Equal(t, "http://localhost:3000", cfg.BackendURL())
	assert.False(t, cfg.Nats.Enabled())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ACASCI_READINESS_PROBE", "http")
	t.Setenv("ACASCI_READINESS_URL", "http://acas:3000/api")
	t.Setenv("ACASCI_READINESS_TIMEOUT", "2m")
	t.Setenv("ACASCI_RESOLVER_STRATEGY", "latest-release")

	cfg, err := LoadConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, "latest-release", cfg.Resolver.Strategy)
	assert.Equal(t, 2*time.Minute, cfg.Readiness.Timeout)
	assert.Equal(t, exec.HTTPProbe{URL: "http://acas:3000/api"}, cfg.Probe())
}

func TestLoadConfig_SecretsFromEnvironment(t *testing.T) {
	t.Setenv("ACASCI_STAGING_PASSWORD", "pypi-staging-token")
	t.Setenv("ACASCI_PRODUCTION_PASSWORD", "pypi-token")
	t.Setenv("ACASCI_NATS_URL", "nats://localhost:4222")
	t.Setenv("ACASCI_NATS_BUCKET", "acasci-runs")
	t.Setenv("ACASCI_RESOLVER_TOKEN", "ghp_x")
	t.Setenv("ACASCI_BACKEND_TOKEN", "ghp_y")
	t.Setenv("ACASCI_CREDENTIALS_PATH", "/home/ci/.acas/credentials")
	t.Setenv("ACASCI_ENVIRONMENT_PULL", "true")
	t.Setenv("ACASCI_TESTS_SEED", "42")

	cfg, err := LoadConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, "pypi-staging-token", cfg.Staging.Password)
	assert.Equal(t, "pypi-token", cfg.Production.Password)
	assert.Equal(t, "nats://localhost:4222", cfg.Nats.Url)
	assert.Equal(t, "acasci-runs", cfg.Nats.Bucket)
	assert.True(t, cfg.Nats.Enabled())
	assert.Equal(t, "ghp_x", cfg.Resolver.Token)
	assert.Equal(t, "ghp_y", cfg.Backend.Token)
	assert.Equal(t, "/home/ci/.acas/credentials", cfg.Credentials.Path)
	assert.True(t, cfg.Environment.Pull)
	assert.Equal(t, int64(42), cfg.Tests.Seed)
}

func TestLoadConfig_RejectsUnknownProbe(t *testing.T) {
	v := newViper()
	v.Set("readiness.probe", "icmp")

	_, err := LoadConfig(v)
	assert.ErrorContains(t, err, "unknown readiness probe")
}

func TestLoadConfig_RejectsNonPositiveTimeout(t *testing.T) {
	v := newViper()
	v.Set("readiness.timeout", "0s")

	_, err := LoadConfig(v)
	assert.Error(t, err)
}
