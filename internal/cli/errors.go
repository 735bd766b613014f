package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"kmtracker/internal/config"
	"kmtracker/internal/database"
	"kmtracker/internal/gpx"
	"kmtracker/internal/tracker"
)

const (
	ExitCodeSuccess  = 0
	ExitCodeGeneric  = 1
	ExitCodeUsage    = 2
	ExitCodeNotFound = 3
	ExitCodeIO       = 4
)

// ExitError carries the process exit code for a failed command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: ExitCodeUsage, Err: fmt.Errorf(format, args...)}
}

// mapCommandError assigns an exit code to errors from the tracker
func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	code := ExitCodeGeneric
	switch {
	case errors.Is(err, database.ErrNotFound):
		code = ExitCodeNotFound
	case errors.Is(err, tracker.ErrInvalidRide),
		errors.Is(err, tracker.ErrAliasExists),
		errors.Is(err, config.ErrInvalidConfig):
		code = ExitCodeUsage
	case errors.Is(err, gpx.ErrInvalidGPX),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission):
		code = ExitCodeIO
	}
	return &ExitError{Code: code, Err: err}
}
