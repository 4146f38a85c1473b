package exec

import (
	"context"
	"fmt"

	"github.com/shono-io/acasci/sdk"
)

type (
	Config struct {
		FromEnv bool   `mapstructure:"from_env"`
		Url     string `mapstructure:"url"`

		Project     string            `mapstructure:"project"`
		ComposeFile string            `mapstructure:"compose_file"`
		TagVariable string            `mapstructure:"tag_variable"`
		ImagePrefix string            `mapstructure:"image_prefix"`
		Variants    map[string]string `mapstructure:"variants"`
		Pull        bool              `mapstructure:"pull"`
		StopTimeout int               `mapstructure:"stop_timeout"`
	}

	// Provisioner brings up the backend's services for a resolved reference. Services started by
	// Up keep running after the pipeline run finishes; Down is an explicit cleanup.
	Provisioner interface {
		Up(ctx context.Context, dir string, ref sdk.BackendReference) (*Environment, error)
		Exec(ctx context.Context, service string, cmd []string) error
		Down(ctx context.Context) error
		Close() error
	}

	Environment struct {
		Project  string
		Network  string
		Tag      string
		Services map[string]string
	}

	ServiceState string

	// ImageNamer encodes the image naming convention the backend publishes its images under.
	ImageNamer func(service string, tag string) string
)

const (
	PresentState ServiceState = "present"
	StartedState ServiceState = "started"
	StoppedState ServiceState = "stopped"
	AbsentState  ServiceState = "absent"
)

const (
	ProjectLabel = "acasci_project"
	ServiceLabel = "acasci_service"
	TagLabel     = "acasci_tag"
	ConfigLabel  = "acasci_config"

	DefaultProject     = "acas"
	DefaultComposeFile = "docker-compose.yml"
	DefaultTagVariable = "ACAS_TAG"
)

// NewImageNamer names images <prefix><service>:<tag>, or <prefix><service>:<tag>-<variant> for
// services with a variant.
func NewImageNamer(prefix string, variants map[string]string) ImageNamer {
	return func(service string, tag string) string {
		if v, fnd := variants[service]; fnd && v != "" {
			return fmt.Sprintf("%s%s:%s-%s", prefix, service, tag, v)
		}

		return fmt.Sprintf("%s%s:%s", prefix, service, tag)
	}
}

func (c Config) withDefaults() Config {
	if c.Project == "" {
		c.Project = DefaultProject
	}
	if c.ComposeFile == "" {
		c.ComposeFile = DefaultComposeFile
	}
	if c.TagVariable == "" {
		c.TagVariable = DefaultTagVariable
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 10
	}

	return c
}
