package pkg

import (
	"context"
	"sync"

	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/publish"
	"github.com/shono-io/acasci/report"
	"github.com/shono-io/acasci/sdk"
	"github.com/shono-io/acasci/testrun"
)

type MockResolver struct {
	ResolveFunc func(ctx context.Context, event sdk.TriggerEvent) (sdk.BackendReference, error)
}

func (m *MockResolver) Resolve(ctx context.Context, event sdk.TriggerEvent) (sdk.BackendReference, error) {
	return m.ResolveFunc(ctx, event)
}

type MockRepository struct {
	CheckoutFunc func(ctx context.Context, ref string) (string, error)
}

func (m *MockRepository) Checkout(ctx context.Context, ref string) (string, error) {
	return m.CheckoutFunc(ctx, ref)
}

func (m *MockRepository) Close() error { return nil }

type MockProvisioner struct {
	UpFunc   func(ctx context.Context, dir string, ref sdk.BackendReference) (*exec.Environment, error)
	ExecFunc func(ctx context.Context, service string, cmd []string) error
}

func (m *MockProvisioner) Up(ctx context.Context, dir string, ref sdk.BackendReference) (*exec.Environment, error) {
	return m.UpFunc(ctx, dir, ref)
}

func (m *MockProvisioner) Exec(ctx context.Context, service string, cmd []string) error {
	return m.ExecFunc(ctx, service, cmd)
}

func (m *MockProvisioner) Down(context.Context) error { return nil }

func (m *MockProvisioner) Close() error { return nil }

type MockProbe struct {
	ProbeFunc func(ctx context.Context) error
}

func (m *MockProbe) Probe(ctx context.Context) error {
	return m.ProbeFunc(ctx)
}

type MockTests struct {
	RunFunc func(ctx context.Context) (testrun.Result, error)
	calls   int
}

func (m *MockTests) Run(ctx context.Context) (testrun.Result, error) {
	m.calls++
	return m.RunFunc(ctx)
}

type MockBuilder struct {
	BuildFunc func(ctx context.Context) (sdk.ArtifactSet, error)
}

func (m *MockBuilder) Build(ctx context.Context) (sdk.ArtifactSet, error) {
	return m.BuildFunc(ctx)
}

// MockIndex remembers uploaded files and skips the ones it already holds.
type MockIndex struct {
	name     string
	files    map[string]bool
	uploads  []string
	failWith error
}

func NewMockIndex(name string) *MockIndex {
	return &MockIndex{name: name, files: map[string]bool{}}
}

func (m *MockIndex) Name() string { return m.name }

func (m *MockIndex) Upload(_ context.Context, a sdk.Artifact) (publish.UploadStatus, error) {
	if m.failWith != nil {
		return "", m.failWith
	}

	if m.files[a.Path] {
		return publish.Skipped, nil
	}

	m.files[a.Path] = true
	m.uploads = append(m.uploads, a.Path)
	return publish.Uploaded, nil
}

type RecordingReporter struct {
	mu     sync.Mutex
	events []report.StepEvent
}

func (r *RecordingReporter) Report(_ context.Context, evt report.StepEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *RecordingReporter) Close() error { return nil }

// Final returns the last status reported per step.
func (r *RecordingReporter) Final() map[string]report.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := map[string]report.Status{}
	for _, evt := range r.events {
		result[evt.Step] = evt.Status
	}
	return result
}

func categoryOf(err error) sdk.Category {
	c, _ := sdk.CategoryOf(err)
	return c
}
