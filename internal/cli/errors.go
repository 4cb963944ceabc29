// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/reasonchat/internal/ollama"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitNetworkError indicates the model server could not be reached
	ExitNetworkError = 5
	// ExitTimeoutError indicates the stream went idle for too long
	ExitTimeoutError = 8
	// ExitInterrupted indicates the user stopped the reply
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ExitError carries the process exit code for a failed command. Reported
// errors were already shown to the user and are not printed again.
type ExitError struct {
	Code     int
	Reported bool
	Err      error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// reportedTurnError wraps a turn failure that the console sink has already
// printed as a notice.
func reportedTurnError(command string, err error) error {
	return &ExitError{
		Code:     exitCodeFor(err),
		Reported: true,
		Err:      fmt.Errorf("%s failed: %w", command, err),
	}
}

// exitCodeFor maps a turn error onto an exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case ollama.IsTimeout(err):
		return ExitTimeoutError
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// reportError prints err unless it was already reported and returns the
// exit code to use.
func reportError(w io.Writer, err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		if !ee.Reported {
			fmt.Fprintln(w, "Error:", ee.Err)
		}
		return ee.Code
	}
	fmt.Fprintln(w, "Error:", err)
	return ExitGeneralError
}
