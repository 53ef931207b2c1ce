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

// Package errors defines the typed errors shared across the connector.
//
// Hosts use these types to pick an exit code or HTTP status and to show a
// suggestion next to the message. Wrap them with %w; the Is* helpers and
// SuggestionFor look through wrapping.
package errors

import (
	"fmt"
	"time"
)

// UserVisibleError is an error whose message is fit to show a user as is,
// optionally with a hint on how to fix it.
type UserVisibleError interface {
	error
	IsUserVisible() bool
	UserMessage() string

	// Suggestion is empty when there is nothing useful to say.
	Suggestion() string
}

// ValidationError rejects caller input: a missing required parameter, a
// value of the wrong type, an unknown operation name.
type ValidationError struct {
	Field       string
	Message     string
	SuggestText string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) IsUserVisible() bool { return true }
func (e *ValidationError) UserMessage() string { return e.Error() }
func (e *ValidationError) Suggestion() string  { return e.SuggestText }

// NotFoundError reports a failed local lookup, such as an operation or
// resource kind that does not exist. Missing API records are reported as
// operation errors instead.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError points at a configuration key that is missing or unusable.
type ConfigError struct {
	// Key is the dotted YAML path, e.g. "auth.token". Empty when the
	// problem is with the file as a whole.
	Key    string
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "config error: " + e.Reason
	}
	return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// TimeoutError reports work abandoned after Duration.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// Timeout matches the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }
