package pkg

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/publish"
	"github.com/shono-io/acasci/report"
	"github.com/shono-io/acasci/sdk"
)

const (
	BuildStep             = "build"
	PublishStagingStep    = "publish-staging"
	PublishProductionStep = "publish-production"
)

// ReleasePipeline builds the distribution once, publishes it to the staging index on every run and
// to the production index only for tag creation.
type ReleasePipeline struct {
	RunId      string
	Builder    publish.Builder
	Staging    publish.Uploader
	Production publish.Uploader
	Reporter   report.Reporter
}

type ReleaseOutcome struct {
	Artifacts           sdk.ArtifactSet
	Staging             []publish.UploadResult
	Production          []publish.UploadResult
	ProductionPublished bool
}

func (p *ReleasePipeline) Run(ctx context.Context, event sdk.TriggerEvent) (ReleaseOutcome, error) {
	steps := stepRunner{runId: p.RunId, pipeline: "release", reporter: p.Reporter}
	var out ReleaseOutcome

	// -- decided once, before anything is built
	toProduction := publish.ShouldPublishProduction(event)

	log.Info().Str("run_id", p.RunId).Str("event", event.String()).Bool("production", toProduction).Msg("starting release pipeline")

	err := steps.run(ctx, BuildStep, sdk.PublishError, func(ctx context.Context) (any, error) {
		set, err := p.Builder.Build(ctx)
		out.Artifacts = set
		return nil, err
	})
	if err != nil {
		return out, err
	}

	err = steps.run(ctx, PublishStagingStep, sdk.PublishError, func(ctx context.Context) (any, error) {
		res, err := publish.UploadAll(ctx, p.Staging, out.Artifacts)
		out.Staging = res
		return res, err
	})
	if err != nil {
		return out, err
	}

	if !toProduction {
		steps.skip(ctx, PublishProductionStep, fmt.Sprintf("%s is not a tag creation", event))
		log.Info().Msg("production publish skipped")
		return out, nil
	}

	err = steps.run(ctx, PublishProductionStep, sdk.PublishError, func(ctx context.Context) (any, error) {
		if p.Production == nil {
			return nil, fmt.Errorf("no production index configured")
		}

		res, err := publish.UploadAll(ctx, p.Production, out.Artifacts)
		out.Production = res
		return res, err
	})
	if err != nil {
		return out, err
	}

	out.ProductionPublished = true
	log.Info().Str("run_id", p.RunId).Msg("release pipeline succeeded")
	return out, nil
}
