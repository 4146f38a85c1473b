package repo

import (
	"context"
)

type (
	Config struct {
		Url     string `mapstructure:"url"`
		WorkDir string `mapstructure:"work_dir"`
		Token   string `mapstructure:"token"`
		Depth   int    `mapstructure:"depth"`
	}

	// Repository gives access to the backend project's source at a given ref.
	Repository interface {
		Checkout(ctx context.Context, ref string) (string, error)
		Close() error
	}
)
