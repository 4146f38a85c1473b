package report

import (
	"context"
	"time"

	"github.com/shono-io/acasci/sdk"
)

type Status string

var (
	StartedStatus   Status = "started"
	SucceededStatus Status = "succeeded"
	FailedStatus    Status = "failed"
	SkippedStatus   Status = "skipped"
)

type (
	StepEvent struct {
		RunId     string       `json:"run_id"`
		Pipeline  string       `json:"pipeline"`
		Step      string       `json:"step"`
		Status    Status       `json:"status"`
		Category  sdk.Category `json:"category,omitempty"`
		Error     string       `json:"error,omitempty"`
		Duration  float64      `json:"duration_seconds,omitempty"`
		Timestamp time.Time    `json:"timestamp"`
		Data      any          `json:"data,omitempty"`
	}

	Reporter interface {
		Report(ctx context.Context, evt StepEvent)
		Close() error
	}
)

type multi []Reporter

// Multi fans step events out to every reporter.
func Multi(reporters ...Reporter) Reporter {
	return multi(reporters)
}

func (m multi) Report(ctx context.Context, evt StepEvent) {
	for _, r := range m {
		r.Report(ctx, evt)
	}
}

func (m multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
