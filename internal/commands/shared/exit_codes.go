// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tombee/grcconnector/internal/operation"
	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

const (
	ExitSuccess         = 0
	ExitOperationFailed = 1
	ExitInvalidInput    = 2
	ExitConfigError     = 3
	ExitUpstreamError   = 4
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitOperationFailed, Message: msg, Cause: cause}
}

func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidInput, Message: msg, Cause: cause}
}

func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitConfigError, Message: msg, Cause: cause}
}

// NewOperationError wraps an operation failure with the exit code matching
// its classification.
func NewOperationError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitCodeFor(cause), Message: msg, Cause: cause}
}

// ExitCodeFor maps an error to an exit code. Bad inputs exit 2,
// configuration problems 3 and failures reported by the GRC API 4.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if pkgerrors.IsConfig(err) {
		return ExitConfigError
	}
	if pkgerrors.IsValidation(err) {
		return ExitInvalidInput
	}

	var opErr *operation.Error
	if errors.As(err, &opErr) {
		switch opErr.Type {
		case operation.ErrorTypeValidation, operation.ErrorTypePathInjection:
			return ExitInvalidInput
		case operation.ErrorTypeTransform:
			return ExitOperationFailed
		default:
			return ExitUpstreamError
		}
	}
	return ExitOperationFailed
}

// HandleExitError prints err with its suggestion and exits the process.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCodeFor(err))
}

// PrintError writes err and the first user-facing suggestion in its chain.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, RenderError(err.Error()))
	if suggestion := pkgerrors.SuggestionFor(err); suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}
