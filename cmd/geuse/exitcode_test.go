package main

import (
	"errors"
	"testing"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/errs"
)

func TestExitCodeForUsageError(t *testing.T) {
	if got := exitCodeFor(usageErrorf("bad flag")); got != cliutil.ExitUsage {
		t.Errorf("expected ExitUsage, got %d", got)
	}
}

func TestExitCodeForValidationFailure(t *testing.T) {
	err := &errs.ValidationFailure{Field: "stack_name", Message: "required"}
	if got := exitCodeFor(err); got != cliutil.ExitOperational {
		t.Errorf("expected ExitOperational, got %d", got)
	}
}

func TestExitCodeForGenericError(t *testing.T) {
	if got := exitCodeFor(errors.New("boom")); got != cliutil.ExitOperational {
		t.Errorf("expected ExitOperational, got %d", got)
	}
}
