package testrun

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/creds"
	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/sdk"
)

var (
	ErrPrecondition = errors.New("test preconditions not met")
	ErrNoTests      = errors.New("no test modules found")
	ErrTestsFailed  = errors.New("test modules failed")
)

type (
	Config struct {
		WorkDir string   `mapstructure:"work_dir"`
		Root    string   `mapstructure:"root"`
		Pattern string   `mapstructure:"pattern"`
		Command []string `mapstructure:"command"`
		Shuffle bool     `mapstructure:"shuffle"`
		Seed    int64    `mapstructure:"seed"`
	}

	ModuleResult struct {
		Module   string
		Duration time.Duration
		Err      error
	}

	Result struct {
		Seed    int64
		Modules []ModuleResult
	}
)

func (r Result) Failed() []string {
	var failed []string
	for _, m := range r.Modules {
		if m.Err != nil {
			failed = append(failed, m.Module)
		}
	}
	return failed
}

type Runner struct {
	cfg         Config
	credentials string
	profile     string
	probe       exec.Probe
	commands    exec.CommandRunner
}

func NewRunner(cfg Config, credentials string, profile string, probe exec.Probe, commands exec.CommandRunner) *Runner {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.Root == "" {
		cfg.Root = "tests"
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "test_*.py"
	}
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"python", "-m", "unittest"}
	}
	if commands == nil {
		commands = exec.NewProcessRunner(os.Stdout, os.Stderr)
	}

	return &Runner{cfg: cfg, credentials: credentials, profile: profile, probe: probe, commands: commands}
}

// Run executes every discovered test module. The credential profile and the backend must both be
// available before any module is started.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	profile, err := r.checkPreconditions(ctx)
	if err != nil {
		return Result{}, err
	}

	modules, err := Discover(r.cfg.WorkDir, r.cfg.Root, r.cfg.Pattern)
	if err != nil {
		return Result{}, err
	}

	if len(modules) == 0 {
		return Result{}, fmt.Errorf("%w under %s matching %s", ErrNoTests, r.cfg.Root, r.cfg.Pattern)
	}

	result := Result{Seed: r.cfg.Seed}
	if r.cfg.Shuffle {
		if result.Seed == 0 {
			result.Seed = time.Now().UnixNano()
		}
		rand.New(rand.NewSource(result.Seed)).Shuffle(len(modules), func(i, j int) {
			modules[i], modules[j] = modules[j], modules[i]
		})
		log.Info().Int64("seed", result.Seed).Msg("test modules shuffled")
	}

	// the client only looks at ~/.acas/credentials, so the profile is also handed over directly
	env := append(os.Environ(), fmt.Sprintf("%s=%s", creds.ProfileEnvVar, r.profile))
	env = append(env, creds.Env(profile)...)

	var firstErr error
	for _, module := range modules {
		log.Info().Str("module", module).Msg("running test module")

		started := time.Now()
		args := append(append([]string(nil), r.cfg.Command[1:]...), module)
		err := r.commands.Run(ctx, r.cfg.WorkDir, env, r.cfg.Command[0], args...)

		mr := ModuleResult{Module: module, Duration: time.Since(started), Err: err}
		result.Modules = append(result.Modules, mr)

		if err != nil {
			log.Error().Err(err).Str("module", module).Dur("duration", mr.Duration).Msg("test module failed")
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}

		log.Info().Str("module", module).Dur("duration", mr.Duration).Msg("test module passed")
	}

	if failed := result.Failed(); len(failed) > 0 {
		return result, fmt.Errorf("%w: %s: %w", ErrTestsFailed, strings.Join(failed, ", "), firstErr)
	}

	return result, nil
}

func (r *Runner) checkPreconditions(ctx context.Context) (sdk.CredentialProfile, error) {
	profile, err := creds.Load(r.credentials, r.profile)
	if err != nil {
		return sdk.CredentialProfile{}, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	if r.probe == nil {
		return sdk.CredentialProfile{}, fmt.Errorf("%w: no backend probe configured", ErrPrecondition)
	}

	if err := r.probe.Probe(ctx); err != nil {
		return sdk.CredentialProfile{}, fmt.Errorf("%w: backend is not healthy: %v", ErrPrecondition, err)
	}

	return profile, nil
}
