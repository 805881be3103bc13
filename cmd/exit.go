package cmd

import (
	"errors"
	"fmt"
	"io"

	"mergesync/internal/model"
)

const (
	exitOK        = 0
	exitRunErrors = 1
	exitFatal     = 2
)

var errConfigLoad = errors.New("failed to load settings")

// exitError carries the exit status a command wants. A nil err means the
// command already printed what it had to say.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	if ee, ok := errors.AsType[*exitError](err); ok {
		return ee.code
	}

	if errors.Is(err, model.ErrConfig) ||
		errors.Is(err, model.ErrSourceNotFound) ||
		errors.Is(err, errConfigLoad) {
		return exitFatal
	}

	return exitRunErrors
}

func report(w io.Writer, err error) int {
	code := exitCode(err)

	if ee, ok := errors.AsType[*exitError](err); ok && ee.err == nil {
		return code
	}

	_, _ = fmt.Fprintf(w, "mergesync: %v\n", err)
	return code
}
