package cli

import (
	"errors"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitConfiguration = 3
	ExitAuth          = 4
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, perrors.ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, perrors.ErrConfiguration):
		return ExitConfiguration
	case perrors.IsAuthFailure(err):
		return ExitAuth
	}
	return ExitFailure
}
