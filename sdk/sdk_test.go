package sdk

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   TriggerEvent
		wantErr string
	}{
		{name: "push", event: TriggerEvent{Kind: PushEvent, SourceRef: "release/2.0"}},
		{name: "tag", event: TriggerEvent{Kind: TagCreateEvent, SourceRef: "v1.3.0"}},
		{name: "pull request", event: TriggerEvent{Kind: PullRequestEvent, SourceRef: "feature/x", BaseRef: "main"}},
		{name: "pull request without base", event: TriggerEvent{Kind: PullRequestEvent, SourceRef: "feature/x"}, wantErr: "base ref"},
		{name: "missing source", event: TriggerEvent{Kind: PushEvent}, wantErr: "source ref"},
		{name: "unknown kind", event: TriggerEvent{Kind: "merge", SourceRef: "main"}, wantErr: "unknown event kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBackendReference_Valid(t *testing.T) {
	assert.True(t, BackendReference{Ref: "release/2.0", Tag: "release-2.0"}.Valid())
	assert.False(t, BackendReference{Ref: "release/2.0", Tag: "release/2.0"}.Valid())
	assert.False(t, BackendReference{}.Valid())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))

	err := exec.Command("sh", "-c", "exit 3").Run()
	require.Error(t, err)

	wrapped := NewStepError("test", TestError, fmt.Errorf("unable to run tests: %w", err))
	assert.Equal(t, 3, ExitCode(wrapped))
}

func TestCategoryOf(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewStepError("resolve", ResolutionError, errors.New("no tag")))

	cat, ok := CategoryOf(err)
	assert.True(t, ok)
	assert.Equal(t, ResolutionError, cat)
	assert.Contains(t, err.Error(), `resolution step "resolve" failed: no tag`)

	_, ok = CategoryOf(errors.New("plain"))
	assert.False(t, ok)
}
