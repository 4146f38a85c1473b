package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockExecer struct {
	ExecFunc func(ctx context.Context, service string, cmd []string) error
}

func (m *MockExecer) Exec(ctx context.Context, service string, cmd []string) error {
	return m.ExecFunc(ctx, service, cmd)
}

func TestFixture_Apply(t *testing.T) {
	var got []string
	ex := &MockExecer{ExecFunc: func(_ context.Context, service string, cmd []string) error {
		got = append([]string{service}, cmd...)
		return nil
	}}

	f := &Fixture{Service: "acas", Command: []string{"create-user", "bob"}}
	require.NoError(t, f.Apply(context.Background(), ex))
	assert.Equal(t, []string{"acas", "create-user", "bob"}, got)

	assert.True(t, errors.Is(f.Apply(context.Background(), ex), ErrFixtureApplied))
}

func TestFixture_ApplyFails(t *testing.T) {
	ex := &MockExecer{ExecFunc: func(context.Context, string, []string) error {
		return errors.New("exit 1")
	}}

	f := &Fixture{Service: "acas", Command: []string{"create-user"}}
	err := f.Apply(context.Background(), ex)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create fixture identity")

	assert.Error(t, (&Fixture{}).Apply(context.Background(), ex))
}
