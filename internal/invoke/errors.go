package invoke

import (
	"errors"
	"fmt"

	"github.com/idanshimon/protect-web/internal/config"
)

var (
	// ErrMissingCredentials means the binary has to be downloaded but no
	// API key and secret are configured.
	ErrMissingCredentials = errors.New("missing download credentials")

	// ErrInvocation means the protection binary could not be started or
	// exited with a non-zero status.
	ErrInvocation = errors.New("protection failed")

	// ErrTimeout means the configured time limit expired.
	ErrTimeout = errors.New("protection timed out")
)

// InvocationError reports a failed run of the protection binary. Its
// message is the binary's stdout, a newline, and its stderr, or a support
// message when stderr is empty.
type InvocationError struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	detail := e.Stderr
	if detail == "" {
		detail = fmt.Sprintf("Internal error. Please contact %s for help resolving this issue.", config.SupportEmail)
	}
	return e.Stdout + "\n" + detail
}

// Unwrap exposes ErrInvocation and the underlying exec error.
func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvocation}
	}
	return []error{ErrInvocation, e.Err}
}

func missingCredentialsError(version string) error {
	return fmt.Errorf("%w: Digital.ai Web App Protection %s is not installed and %s / %s are not set",
		ErrMissingCredentials, version, config.EnvAPIKey, config.EnvAPISecret)
}
