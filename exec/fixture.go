package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrFixtureApplied = errors.New("fixture already applied")

type Execer interface {
	Exec(ctx context.Context, service string, cmd []string) error
}

// Fixture creates the administrative test identity inside a backend service. It is applied once
// per run.
type Fixture struct {
	Service string
	Command []string

	mu      sync.Mutex
	applied bool
}

func (f *Fixture) Apply(ctx context.Context, ex Execer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applied {
		return ErrFixtureApplied
	}

	if f.Service == "" || len(f.Command) == 0 {
		return fmt.Errorf("fixture requires a service and a command")
	}

	if err := ex.Exec(ctx, f.Service, f.Command); err != nil {
		return fmt.Errorf("unable to create fixture identity: %w", err)
	}

	f.applied = true
	log.Info().Str("service", f.Service).Msg("fixture identity created")
	return nil
}
