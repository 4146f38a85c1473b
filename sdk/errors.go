package sdk

import (
	"errors"
	"fmt"
	"os/exec"
)

type Category string

var (
	ResolutionError     Category = "resolution"
	ProvisioningError   Category = "provisioning"
	AuthenticationError Category = "authentication"
	TestError           Category = "test"
	PublishError        Category = "publish"
)

// StepError marks the pipeline step a failure came from. Every category is fatal to the run.
type StepError struct {
	Step     string
	Category Category
	Err      error
}

func NewStepError(step string, category Category, err error) *StepError {
	return &StepError{Step: step, Category: category, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %q failed: %v", e.Category, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode maps a pipeline error to a process exit code. The exit status of a failed external
// command is propagated when the error chain carries one.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}

func CategoryOf(err error) (Category, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Category, true
	}

	return "", false
}
