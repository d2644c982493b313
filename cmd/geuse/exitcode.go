package main

import (
	"errors"
	"fmt"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/errs"
)

// exitCodeFor maps a command error to the CLI's two-tier exit scheme:
// usage errors (bad flags, missing arguments) get ExitUsage, everything
// else — including every typed failure surfaced by the domain packages —
// is an operational failure.
func exitCodeFor(err error) int {
	var uf *usageError
	if errors.As(err, &uf) {
		return cliutil.ExitUsage
	}
	var vf *errs.ValidationFailure
	if errors.As(err, &vf) {
		return cliutil.ExitOperational
	}
	return cliutil.ExitOperational
}

// usageError marks a flag/argument error distinct from an operational
// failure surfaced by a domain package.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
