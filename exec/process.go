package exec

import (
	"context"
	"fmt"
	"io"
	osexec "os/exec"
	"strings"
)

// CommandRunner runs an external tool, such as the test interpreter or the packaging toolchain.
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) error
}

// ProcessRunner runs commands as child processes, streaming their output.
type ProcessRunner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewProcessRunner(stdout io.Writer, stderr io.Writer) *ProcessRunner {
	return &ProcessRunner{stdout: stdout, stderr: stderr}
}

func (p *ProcessRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	// #nosec G204 -- the command comes from the pipeline configuration
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return nil
}
