package orchestrator

import (
	"errors"
	"fmt"

	"streamchat/internal/client"
)

// User-visible texts for failed streams.
const (
	DefaultErrorMessage   = "An error occurred while processing your request. Please try again."
	DefaultTimeoutMessage = "The request timed out. Please try again."
)

var (
	// ErrNoSession is returned by Prompt when there is no session to
	// schedule UI work on, or the session refuses it.
	ErrNoSession = errors.New("orchestrator: no active session")

	// ErrInvalidConfig wraps every builder validation error.
	ErrInvalidConfig = errors.New("orchestrator: invalid configuration")
)

// BuildError collects every problem found by Builder.Build.
type BuildError struct {
	Errors []error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("orchestrator build failed with %d error(s)", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("\n  %d. %s", i+1, err.Error())
	}
	return msg
}

func (e *BuildError) Unwrap() []error { return e.Errors }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// errorMessage picks the placeholder text for a failed stream. A custom
// formatter wins for every error kind unless keepTimeout is set.
func (o *Orchestrator) errorMessage(err error) string {
	timeout := client.IsTimeoutError(err)
	if o.formatter != nil && !(timeout && o.keepTimeout) {
		return o.formatter(err)
	}
	if timeout {
		return DefaultTimeoutMessage
	}
	return DefaultErrorMessage
}
