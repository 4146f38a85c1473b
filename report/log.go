package report

import (
	"context"

	"github.com/rs/zerolog"
)

type logReporter struct {
	logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) Reporter {
	return &logReporter{logger: logger}
}

func (l *logReporter) Report(_ context.Context, evt StepEvent) {
	var e *zerolog.Event
	switch evt.Status {
	case FailedStatus:
		e = l.logger.Error()
	case StartedStatus:
		e = l.logger.Debug()
	default:
		e = l.logger.Info()
	}

	e = e.Str("run_id", evt.RunId).
		Str("pipeline", evt.Pipeline).
		Str("step", evt.Step).
		Str("status", string(evt.Status))

	if evt.Duration > 0 {
		e = e.Float64("duration_seconds", evt.Duration)
	}
	if evt.Category != "" {
		e = e.Str("category", string(evt.Category))
	}
	if evt.Error != "" {
		e = e.Str("error", evt.Error)
	}

	e.Msg("pipeline step " + string(evt.Status))
}

func (l *logReporter) Close() error {
	return nil
}
