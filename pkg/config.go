package pkg

import (
	"fmt"
	"time"

	"github.com/shono-io/acasci/creds"
	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/publish"
	"github.com/shono-io/acasci/repo"
	"github.com/shono-io/acasci/resolve"
	sdknats "github.com/shono-io/acasci/sdk/nats"
	"github.com/shono-io/acasci/testrun"
	"github.com/spf13/viper"
)

const (
	TCPProbe  = "tcp"
	HTTPProbe = "http"
)

type Config struct {
	Log         LogConfig           `mapstructure:"log"`
	Resolver    resolve.Config      `mapstructure:"resolver"`
	Backend     repo.Config         `mapstructure:"backend"`
	Environment exec.Config         `mapstructure:"environment"`
	Readiness   ReadinessConfig     `mapstructure:"readiness"`
	Fixture     FixtureConfig       `mapstructure:"fixture"`
	Credentials creds.Config        `mapstructure:"credentials"`
	Tests       testrun.Config      `mapstructure:"tests"`
	Build       publish.BuildConfig `mapstructure:"build"`
	Staging     publish.IndexConfig `mapstructure:"staging"`
	Production  publish.IndexConfig `mapstructure:"production"`
	Nats        sdknats.Config      `mapstructure:"nats"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ReadinessConfig struct {
	Probe    string        `mapstructure:"probe"`
	Address  string        `mapstructure:"address"`
	Url      string        `mapstructure:"url"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type FixtureConfig struct {
	Service string   `mapstructure:"service"`
	Command []string `mapstructure:"command"`
}

// SetDefaults registers the values the pipelines used to hard-code. Every key is registered,
// even without a meaningful default, so ACASCI_* environment variables reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("resolver.strategy", resolve.BranchStrategy)
	v.SetDefault("resolver.repository", "mcneilco/acas")
	v.SetDefault("resolver.api_url", "")
	v.SetDefault("resolver.token", "")

	v.SetDefault("backend.url", "https://github.com/mcneilco/acas.git")
	v.SetDefault("backend.work_dir", "")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.depth", 1)

	v.SetDefault("environment.from_env", true)
	v.SetDefault("environment.url", "")
	v.SetDefault("environment.image_prefix", "")
	v.SetDefault("environment.variants", map[string]string{})
	v.SetDefault("environment.pull", false)
	v.SetDefault("environment.project", exec.DefaultProject)
	v.SetDefault("environment.compose_file", exec.DefaultComposeFile)
	v.SetDefault("environment.tag_variable", exec.DefaultTagVariable)
	v.SetDefault("environment.stop_timeout", 10)

	v.SetDefault("readiness.probe", TCPProbe)
	v.SetDefault("readiness.address", "localhost:3000")
	v.SetDefault("readiness.url", "http://localhost:3000")
	v.SetDefault("readiness.interval", 5*time.Second)
	v.SetDefault("readiness.timeout", 10*time.Minute)

	v.SetDefault("fixture.service", "acas")
	v.SetDefault("fixture.command", []string{
		"/bin/sh", "-c", "curl --silent --show-error --fail http://localhost:3001/api/systemTest/getOrCreateACASBob",
	})

	v.SetDefault("credentials.path", "")
	v.SetDefault("credentials.url", "")
	v.SetDefault("credentials.profile", creds.DefaultProfile)
	v.SetDefault("credentials.username", "bob")
	v.SetDefault("credentials.password", "secret")

	v.SetDefault("tests.work_dir", ".")
	v.SetDefault("tests.root", "tests")
	v.SetDefault("tests.pattern", "test_*.py")
	v.SetDefault("tests.command", []string{"python", "-m", "unittest"})
	v.SetDefault("tests.shuffle", true)
	v.SetDefault("tests.seed", 0)

	v.SetDefault("build.dir", ".")
	v.SetDefault("build.out_dir", "dist")
	v.SetDefault("build.command", []string{})

	v.SetDefault("staging.name", "testpypi")
	v.SetDefault("staging.url", "https://test.pypi.org/legacy/")
	v.SetDefault("staging.username", "__token__")
	v.SetDefault("staging.password", "")
	v.SetDefault("production.name", "pypi")
	v.SetDefault("production.url", "https://upload.pypi.org/legacy/")
	v.SetDefault("production.username", "__token__")
	v.SetDefault("production.password", "")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.jwt", "")
	v.SetDefault("nats.seed", "")
	v.SetDefault("nats.credentials", "")
	v.SetDefault("nats.prefix", "acasci")
	v.SetDefault("nats.bucket", "")
}

func LoadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Readiness.Probe {
	case TCPProbe:
		if c.Readiness.Address == "" {
			return fmt.Errorf("readiness.address is required for the tcp probe")
		}
	case HTTPProbe:
		if c.Readiness.Url == "" {
			return fmt.Errorf("readiness.url is required for the http probe")
		}
	default:
		return fmt.Errorf("unknown readiness probe %q", c.Readiness.Probe)
	}

	if c.Readiness.Timeout <= 0 || c.Readiness.Interval <= 0 {
		return fmt.Errorf("readiness.timeout and readiness.interval must be positive")
	}

	if len(c.Tests.Command) == 0 {
		return fmt.Errorf("tests.command must not be empty")
	}

	return nil
}

func (c Config) Probe() exec.Probe {
	if c.Readiness.Probe == HTTPProbe {
		return exec.HTTPProbe{URL: c.Readiness.Url}
	}

	return exec.TCPProbe{Address: c.Readiness.Address}
}

// BackendURL is the base url the client under test talks to.
func (c Config) BackendURL() string {
	if c.Credentials.Url != "" {
		return c.Credentials.Url
	}

	return c.Readiness.Url
}
