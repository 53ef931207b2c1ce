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

// Package invoke runs connector operations on behalf of the hosts (CLI,
// HTTP gateway, MCP server), applying record filters and jq transforms to
// the output and logging each invocation.
package invoke

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tombee/grcconnector/internal/filter"
	"github.com/tombee/grcconnector/internal/jq"
	"github.com/tombee/grcconnector/internal/log"
	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/api"
)

// Sources identifying the host of an invocation.
const (
	SourceCLI  = "cli"
	SourceHTTP = "http"
	SourceMCP  = "mcp"
)

// MetadataRecords is the number of records returned after filtering.
const MetadataRecords = "records"

// Request describes one operation call.
type Request struct {
	Operation string
	Inputs    map[string]interface{}

	// Where is an optional record filter expression (list output only).
	Where string

	// JQ is an optional jq expression applied last.
	JQ string

	Source     string
	RequestID  string
	RemoteAddr string
}

// Response is the shaped output of an operation.
type Response struct {
	Data     interface{}            `json:"data"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Invoker executes operations against a provider.
type Invoker struct {
	provider api.Provider
	logs     *log.InvocationMiddleware
}

// New creates an invoker. A nil logger uses slog.Default.
func New(provider api.Provider, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		provider: provider,
		logs:     log.NewInvocationMiddleware(logger),
	}
}

// Provider returns the underlying provider.
func (i *Invoker) Provider() api.Provider {
	return i.provider
}

// Invoke executes req and shapes the result.
func (i *Invoker) Invoke(ctx context.Context, req *Request) (*Response, error) {
	shaper, err := newShaper(req.Where, req.JQ)
	if err != nil {
		return nil, err
	}

	var resp *Response
	_, err = i.logs.Handle(req.invocation(), func() (map[string]interface{}, error) {
		result, err := i.provider.Execute(ctx, req.Operation, inputsOf(req))
		if err != nil {
			return nil, err
		}
		resp, err = shaper.shape(ctx, result.Response, result.Metadata)
		if err != nil {
			return nil, err
		}
		return summary(result, resp.Metadata), nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream executes a list operation page by page, calling fn with each
// shaped page. It stops at the first error from the connector or fn.
func (i *Invoker) Stream(ctx context.Context, req *Request, fn func(*Response) error) error {
	shaper, err := newShaper(req.Where, req.JQ)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, err = i.logs.Handle(req.invocation(), func() (map[string]interface{}, error) {
		pages, err := i.provider.ExecutePaginated(ctx, req.Operation, inputsOf(req))
		if err != nil {
			return nil, err
		}

		count := 0
		for result := range pages {
			if err := result.PageErr(); err != nil {
				return map[string]interface{}{operation.MetadataPages: count}, fmt.Errorf("page %d: %w", count+1, err)
			}
			count++
			resp, err := shaper.shape(ctx, result.Response, result.Metadata)
			if err != nil {
				return nil, err
			}
			if err := fn(resp); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return map[string]interface{}{operation.MetadataPages: count}, nil
	})
	return err
}

func (r *Request) invocation() *log.Invocation {
	return &log.Invocation{
		Operation:  r.Operation,
		Source:     r.Source,
		RequestID:  r.RequestID,
		RemoteAddr: r.RemoteAddr,
	}
}

func inputsOf(req *Request) map[string]interface{} {
	if req.Inputs == nil {
		return map[string]interface{}{}
	}
	return req.Inputs
}

// summary picks the metadata worth putting on the invocation log line.
// The API's own request ID is renamed so it does not shadow ours.
func summary(result *operation.Result, md map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, k := range []string{operation.MetadataPages, operation.MetadataMore, MetadataRecords} {
		if v, ok := md[k]; ok {
			out[k] = v
		}
	}
	if id := result.RequestID(); id != "" {
		out["upstream_request_id"] = id
	}
	return out
}

type shaper struct {
	where *filter.Filter
	query *jq.Query
}

func newShaper(where, expression string) (*shaper, error) {
	s := &shaper{}
	if where != "" {
		f, err := filter.Compile(where)
		if err != nil {
			return nil, operation.NewValidationError(err.Error(), "Check the --where expression syntax")
		}
		s.where = f
	}
	if expression != "" {
		q, err := jq.Compile(expression)
		if err != nil {
			return nil, operation.NewValidationError(err.Error(), "Check the --jq expression syntax")
		}
		s.query = q
	}
	return s, nil
}

func (s *shaper) shape(ctx context.Context, data interface{}, metadata map[string]interface{}) (*Response, error) {
	md := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}

	if records, ok := data.([]interface{}); ok {
		if s.where != nil {
			kept, err := s.where.Apply(records)
			if err != nil {
				return nil, operation.NewValidationError(err.Error(), "")
			}
			records = kept
			data = kept
		}
		md[MetadataRecords] = len(records)
	} else if s.where != nil {
		return nil, operation.NewValidationError("a record filter requires a list operation", "Drop --where or use a list_* operation")
	}

	if s.query != nil {
		out, err := s.query.Run(ctx, data)
		if err != nil {
			return nil, operation.NewTransformError(err.Error(), err)
		}
		data = out
	}

	return &Response{Data: data, Metadata: md}, nil
}
