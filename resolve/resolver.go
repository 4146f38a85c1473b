package resolve

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shono-io/acasci/sdk"
)

const (
	BranchStrategy        = "branch"
	LatestReleaseStrategy = "latest-release"
)

type (
	Config struct {
		Strategy   string `mapstructure:"strategy"`
		Repository string `mapstructure:"repository"`
		ApiUrl     string `mapstructure:"api_url"`
		Token      string `mapstructure:"token"`
	}

	Resolver interface {
		Resolve(ctx context.Context, event sdk.TriggerEvent) (sdk.BackendReference, error)
	}

	// TagMapper turns a source control ref into the tag the backend images are published under.
	TagMapper func(ref string) string
)

// DockerTag replaces every path separator since image tags cannot contain one. Distinct refs may
// map onto the same tag.
func DockerTag(ref string) string {
	return strings.ReplaceAll(ref, "/", "-")
}

func New(cfg Config, mapper TagMapper) (Resolver, error) {
	if mapper == nil {
		mapper = DockerTag
	}

	switch cfg.Strategy {
	case "", BranchStrategy:
		return NewBranchResolver(mapper), nil
	case LatestReleaseStrategy:
		return NewLatestReleaseResolver(cfg, mapper, http.DefaultClient)
	default:
		return nil, fmt.Errorf("unknown resolver strategy: %q", cfg.Strategy)
	}
}

func reference(ref string, mapper TagMapper) (sdk.BackendReference, error) {
	tag := mapper(ref)
	if strings.Contains(tag, "/") {
		return sdk.BackendReference{}, fmt.Errorf("tag %q derived from %q contains a path separator", tag, ref)
	}

	return sdk.BackendReference{Ref: ref, Tag: tag}, nil
}
