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

// Package filter selects records from list output with boolean expressions.
//
// Expressions use the expr language. Each record's fields are top-level
// variables, and the whole record is available as "record":
//
//	status == "active" && criticality in ["high", "critical"]
//	name contains "prod"
//	record.owner_id == 42
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled record predicate.
type Filter struct {
	expression string
	program    *vm.Program
}

// Compile compiles a boolean expression. Unknown field names evaluate to
// nil rather than failing, since records of one kind may omit fields.
func Compile(expression string) (*Filter, error) {
	program, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Filter{expression: expression, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the expression against one record.
func (f *Filter) Match(record interface{}) (bool, error) {
	env := map[string]interface{}{}
	if fields, ok := record.(map[string]interface{}); ok {
		for k, v := range fields {
			env[k] = v
		}
	}
	env["record"] = record

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.expression, err)
	}
	matched, _ := out.(bool)
	return matched, nil
}

// Apply returns the records that match, in order. A nil filter keeps every
// record.
func (f *Filter) Apply(records []interface{}) ([]interface{}, error) {
	if f == nil {
		return records, nil
	}
	kept := make([]interface{}, 0, len(records))
	for i, record := range records {
		ok, err := f.Match(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if ok {
			kept = append(kept, record)
		}
	}
	return kept, nil
}
