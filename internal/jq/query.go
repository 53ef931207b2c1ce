// Package jq applies jq expressions to operation output.
package jq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the largest input accepted, measured as JSON (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Query is a compiled jq expression.
type Query struct {
	expression   string
	code         *gojq.Code
	timeout      time.Duration
	maxInputSize int
}

// Compile parses and compiles expression.
func Compile(expression string) (*Query, error) {
	parsed, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expression, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return &Query{
		expression:   expression,
		code:         code,
		timeout:      DefaultTimeout,
		maxInputSize: DefaultMaxInputSize,
	}, nil
}

// WithLimits returns a copy of q with a different timeout and input size.
// Zero values keep the defaults.
func (q *Query) WithLimits(timeout time.Duration, maxInputSize int) *Query {
	c := *q
	if timeout > 0 {
		c.timeout = timeout
	}
	if maxInputSize > 0 {
		c.maxInputSize = maxInputSize
	}
	return &c
}

// String returns the source expression.
func (q *Query) String() string {
	return q.expression
}

// Run evaluates the query against data. A single output is returned as
// is, several outputs as a slice, and no output as nil.
func (q *Query) Run(ctx context.Context, data interface{}) (interface{}, error) {
	input, err := q.normalize(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var results []interface{}
	iter := q.code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if ctx.Err() != nil {
				return nil, &pkgerrors.TimeoutError{Operation: "jq", Duration: q.timeout, Cause: ctx.Err()}
			}
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// normalize converts data to the plain JSON value types gojq accepts,
// enforcing the input size limit on the way.
func (q *Query) normalize(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jq input: %w", err)
	}
	if len(raw) > q.maxInputSize {
		return nil, fmt.Errorf("jq input size (%d bytes) exceeds maximum (%d bytes)", len(raw), q.maxInputSize)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode jq input: %w", err)
	}
	return numbers(v), nil
}

// numbers replaces json.Number with int where integral, float64 otherwise.
func numbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = numbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = numbers(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

// Validate reports whether expression compiles.
func Validate(expression string) error {
	_, err := Compile(expression)
	return err
}
