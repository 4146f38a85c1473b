package pkg

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/creds"
	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/repo"
	"github.com/shono-io/acasci/report"
	"github.com/shono-io/acasci/resolve"
	"github.com/shono-io/acasci/sdk"
	"github.com/shono-io/acasci/testrun"
	"golang.org/x/sync/errgroup"
)

const (
	ResolveStep     = "resolve"
	CheckoutStep    = "checkout"
	ProvisionStep   = "provision"
	ReadinessStep   = "readiness"
	FixtureStep     = "fixture"
	CredentialsStep = "credentials"
	TestStep        = "test"
)

type TestRunner interface {
	Run(ctx context.Context) (testrun.Result, error)
}

// TestPipeline runs the client test suite against a backend matching the trigger. Steps run in
// order and the first failure aborts the run; readiness and credentials run side by side.
type TestPipeline struct {
	RunId       string
	Resolver    resolve.Resolver
	Source      repo.Repository
	Provisioner exec.Provisioner
	Waiter      *exec.Waiter
	Fixture     *exec.Fixture
	Credentials *creds.Writer
	Profile     sdk.CredentialProfile
	Tests       TestRunner
	Reporter    report.Reporter
}

type TestOutcome struct {
	Reference   sdk.BackendReference
	Environment *exec.Environment
	Result      testrun.Result
}

func (p *TestPipeline) Run(ctx context.Context, event sdk.TriggerEvent) (TestOutcome, error) {
	steps := stepRunner{runId: p.RunId, pipeline: "test", reporter: p.Reporter}
	var out TestOutcome

	log.Info().Str("run_id", p.RunId).Str("event", event.String()).Msg("starting test pipeline")

	err := steps.run(ctx, ResolveStep, sdk.ResolutionError, func(ctx context.Context) (any, error) {
		if err := event.Validate(); err != nil {
			return nil, err
		}

		ref, err := p.Resolver.Resolve(ctx, event)
		if err != nil {
			return nil, err
		}

		out.Reference = ref
		log.Info().Str("ref", ref.Ref).Str("tag", ref.Tag).Msg("backend resolved")
		return ref, nil
	})
	if err != nil {
		return out, err
	}

	var dir string
	err = steps.run(ctx, CheckoutStep, sdk.ProvisioningError, func(ctx context.Context) (any, error) {
		d, err := p.Source.Checkout(ctx, out.Reference.Ref)
		dir = d
		return nil, err
	})
	if err != nil {
		return out, err
	}

	err = steps.run(ctx, ProvisionStep, sdk.ProvisioningError, func(ctx context.Context) (any, error) {
		env, err := p.Provisioner.Up(ctx, dir, out.Reference)
		out.Environment = env
		return env, err
	})
	if err != nil {
		return out, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := steps.run(gctx, ReadinessStep, sdk.ProvisioningError, func(ctx context.Context) (any, error) {
			return nil, p.Waiter.Wait(ctx)
		})
		if err != nil {
			return err
		}

		return steps.run(gctx, FixtureStep, sdk.ProvisioningError, func(ctx context.Context) (any, error) {
			return nil, p.Fixture.Apply(ctx, p.Provisioner)
		})
	})
	g.Go(func() error {
		return steps.run(gctx, CredentialsStep, sdk.AuthenticationError, func(context.Context) (any, error) {
			return nil, p.Credentials.Write(p.Profile)
		})
	})
	if err := g.Wait(); err != nil {
		return out, err
	}

	err = steps.run(ctx, TestStep, sdk.TestError, func(ctx context.Context) (any, error) {
		res, err := p.Tests.Run(ctx)
		out.Result = res
		return map[string]any{"modules": len(res.Modules), "failed": res.Failed(), "seed": res.Seed}, err
	})
	if err != nil {
		return out, err
	}

	log.Info().Str("run_id", p.RunId).Msg("test pipeline succeeded")
	return out, nil
}
