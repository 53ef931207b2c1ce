package jq

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

func TestQuery_Run(t *testing.T) {
	records := []map[string]interface{}{
		{"id": 1, "name": "Laptop", "status": "active"},
		{"id": 2, "name": "Server", "status": "retired"},
	}

	tests := []struct {
		name       string
		expression string
		data       interface{}
		want       interface{}
	}{
		{
			name:       "identity",
			expression: ".",
			data:       map[string]interface{}{"foo": "bar"},
			want:       map[string]interface{}{"foo": "bar"},
		},
		{
			name:       "field extraction",
			expression: ".foo",
			data:       map[string]interface{}{"foo": "bar"},
			want:       "bar",
		},
		{
			name:       "typed records",
			expression: "map(.name)",
			data:       records,
			want:       []interface{}{"Laptop", "Server"},
		},
		{
			name:       "integers stay integral",
			expression: "map(.id) | add",
			data:       records,
			want:       3,
		},
		{
			name:       "multiple outputs become a slice",
			expression: ".[] | select(.status == \"active\") | .id, .name",
			data:       records,
			want:       []interface{}{1, "Laptop"},
		},
		{
			name:       "no output",
			expression: "empty",
			data:       records,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(tt.expression)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got, err := q.Run(context.Background(), tt.data)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Run() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	if _, err := Compile(".["); err == nil {
		t.Fatal("expected parse error")
	}
	if err := Validate("undefined_function(1)"); err == nil {
		t.Fatal("expected compile error for unknown function")
	}
	if err := Validate(".data | length"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuery_RuntimeError(t *testing.T) {
	q, _ := Compile(".foo + 1")
	_, err := q.Run(context.Background(), map[string]interface{}{"foo": "text"})
	if err == nil || !strings.HasPrefix(err.Error(), "jq:") {
		t.Fatalf("expected jq runtime error, got %v", err)
	}
}

func TestQuery_Limits(t *testing.T) {
	q, _ := Compile(".")
	small := q.WithLimits(0, 10)
	if _, err := small.Run(context.Background(), strings.Repeat("x", 100)); err == nil {
		t.Fatal("expected input size error")
	}

	loop, _ := Compile("last(range(1e12))")
	loop = loop.WithLimits(20*time.Millisecond, 0)
	_, err := loop.Run(context.Background(), nil)
	var timeout *pkgerrors.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout should wrap the context error, got %v", err)
	}
}
