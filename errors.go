package phase

import (
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Error codes attached to oops errors returned by this package.
const (
	CodeContractViolation = "contract_violation"
	CodePipelineFailure   = "pipeline_failure"
	CodeInvalidState      = "invalid_state"
	CodeContextClosed     = "context_closed"
	CodeConfigLoad        = "config_load"
)

var (
	// ErrMissingSource is wrapped when an unwinding state needs a causal
	// source the context does not carry. The tracking stack was pushed
	// without its mandatory context.
	ErrMissingSource = errors.New("phase: missing causal source")

	// ErrPipelineMismatch is wrapped when a captured block no longer
	// matches the world at commit time.
	ErrPipelineMismatch = errors.New("phase: captured block does not match world")

	// ErrNoPhase is returned when popping an empty tracker.
	ErrNoPhase = errors.New("phase: no active phase")

	// ErrContextClosed is returned when pushing a context that was already unwound.
	ErrContextClosed = errors.New("phase: context already unwound")

	// ErrInvalidTransition is returned when switching between block states.
	ErrInvalidTransition = errors.New("phase: invalid state transition")
)

// contractViolation builds the error for a state unwound without its source.
func contractViolation(state State, what string) error {
	return oops.
		Code(CodeContractViolation).
		In("unwind").
		With("state", state.String()).
		With("source", what).
		Wrapf(ErrMissingSource, "could not find %s for %s", what, state)
}

// IsContractViolation returns true if err is a ContractViolation.
func IsContractViolation(err error) bool {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code() == CodeContractViolation
	}
	return errors.Is(err, ErrMissingSource)
}

// logError logs an error with structured context if it's an oops error.
func logError(logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
	} else {
		logger.Error(msg, "error", err)
	}
}
