package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v30/github"
	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/sdk"
)

var ErrNoReleaseTag = errors.New("latest release has no tag")

// LatestReleaseResolver ignores the trigger and tests against the newest published backend
// release. There is no fallback when the lookup fails.
type LatestReleaseResolver struct {
	owner  string
	name   string
	gh     *github.Client
	mapper TagMapper
}

func NewLatestReleaseResolver(cfg Config, mapper TagMapper, hc *http.Client) (*LatestReleaseResolver, error) {
	owner, name, found := strings.Cut(cfg.Repository, "/")
	if !found || owner == "" || name == "" {
		return nil, fmt.Errorf("backend repository must be owner/name, got %q", cfg.Repository)
	}

	if hc == nil {
		hc = http.DefaultClient
	}

	if cfg.Token != "" {
		transport := hc.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		hc = &http.Client{Timeout: hc.Timeout, Transport: &tokenTransport{token: cfg.Token, base: transport}}
	}

	gh := github.NewClient(hc)
	if cfg.ApiUrl != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.ApiUrl, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid release api url: %w", err)
		}
		gh.BaseURL = u
	}

	if mapper == nil {
		mapper = DockerTag
	}

	return &LatestReleaseResolver{owner: owner, name: name, gh: gh, mapper: mapper}, nil
}

func (r *LatestReleaseResolver) Resolve(ctx context.Context, _ sdk.TriggerEvent) (sdk.BackendReference, error) {
	release, _, err := r.gh.Repositories.GetLatestRelease(ctx, r.owner, r.name)
	if err != nil {
		return sdk.BackendReference{}, fmt.Errorf("unable to fetch latest release of %s/%s: %w", r.owner, r.name, err)
	}

	tag := strings.TrimSpace(release.GetTagName())
	if tag == "" {
		return sdk.BackendReference{}, fmt.Errorf("%s/%s: %w", r.owner, r.name, ErrNoReleaseTag)
	}

	log.Debug().Str("repository", r.owner+"/"+r.name).Str("tag", tag).Msg("resolved latest backend release")
	return reference(tag, r.mapper)
}

type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "token "+t.token)
	return t.base.RoundTrip(req)
}
