package pkg

import (
	"context"
	"time"

	"github.com/shono-io/acasci/report"
	"github.com/shono-io/acasci/sdk"
)

type stepRunner struct {
	runId    string
	pipeline string
	reporter report.Reporter
}

// run executes one pipeline step, reporting its start and outcome. Failures are returned as a
// StepError of the given category.
func (s stepRunner) run(ctx context.Context, name string, category sdk.Category, fn func(ctx context.Context) (any, error)) error {
	started := time.Now()
	s.report(ctx, report.StepEvent{Step: name, Status: report.StartedStatus, Timestamp: started})

	data, err := fn(ctx)
	evt := report.StepEvent{
		Step:      name,
		Status:    report.SucceededStatus,
		Duration:  time.Since(started).Seconds(),
		Timestamp: time.Now(),
		Data:      data,
	}

	if err != nil {
		evt.Status = report.FailedStatus
		evt.Category = category
		evt.Error = err.Error()
		s.report(ctx, evt)
		return sdk.NewStepError(name, category, err)
	}

	s.report(ctx, evt)
	return nil
}

func (s stepRunner) skip(ctx context.Context, name string, reason string) {
	s.report(ctx, report.StepEvent{Step: name, Status: report.SkippedStatus, Timestamp: time.Now(), Data: reason})
}

func (s stepRunner) report(ctx context.Context, evt report.StepEvent) {
	if s.reporter == nil {
		return
	}

	evt.RunId = s.runId
	evt.Pipeline = s.pipeline
	s.reporter.Report(ctx, evt)
}
