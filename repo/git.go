package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"
)

func NewGitRepository(cfg Config) (Repository, error) {
	if strings.TrimSpace(cfg.Url) == "" {
		return nil, fmt.Errorf("backend repository url is required")
	}

	workDir := cfg.WorkDir
	owned := false
	if workDir == "" {
		dir, err := os.MkdirTemp("", "acasci-backend-")
		if err != nil {
			return nil, fmt.Errorf("unable to create work directory: %w", err)
		}
		workDir = dir
		owned = true
	}

	return &gitRepository{cfg: cfg, workDir: workDir, owned: owned}, nil
}

type gitRepository struct {
	cfg     Config
	workDir string
	owned   bool
}

// Checkout clones the backend at ref, trying it as a branch first and as a tag second.
func (g *gitRepository) Checkout(ctx context.Context, ref string) (string, error) {
	dir := filepath.Join(g.workDir, strings.ReplaceAll(ref, "/", "-"))
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("unable to clean checkout directory: %w", err)
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}

	var lastErr error
	for _, name := range candidates {
		log.Debug().Str("url", g.cfg.Url).Str("ref", name.String()).Msg("cloning backend source")

		_, err := git.PlainCloneContext(ctx, dir, false, g.cloneOptions(name))
		if err == nil {
			log.Info().Str("ref", ref).Str("dir", dir).Msg("backend source checked out")
			return dir, nil
		}

		lastErr = err
		_ = os.RemoveAll(dir)
		if !isMissingRef(err) {
			break
		}
	}

	return "", fmt.Errorf("unable to check out %s at %q: %w", g.cfg.Url, ref, lastErr)
}

func (g *gitRepository) Close() error {
	if !g.owned {
		return nil
	}

	return os.RemoveAll(g.workDir)
}

func (g *gitRepository) cloneOptions(name plumbing.ReferenceName) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:           g.cfg.Url,
		ReferenceName: name,
		SingleBranch:  true,
		Depth:         g.cfg.Depth,
	}

	if g.cfg.Token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: g.cfg.Token}
	}

	return opts
}

func isMissingRef(err error) bool {
	if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return true
	}

	var noMatch git.NoMatchingRefSpecError
	if errors.As(err, &noMatch) {
		return true
	}

	return strings.Contains(err.Error(), "couldn't find remote ref")
}
