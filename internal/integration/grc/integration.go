// Package grc exposes the GRC (governance, risk, compliance) REST API as
// named operations over assets, controls, risks, vendors, findings, tasks,
// frameworks, requirements, labels, custom fields, users, user groups and
// business processes.
package grc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
	"github.com/tombee/grcconnector/pkg/httpclient"

	"github.com/tombee/grcconnector/internal/log"
	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/api"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

const (
	// Name is the connector identifier.
	Name = "grc"

	// DefaultLimit is the number of records a list returns without return_all.
	DefaultLimit = 50

	tracerName = "github.com/tombee/grcconnector/internal/integration/grc"
)

// Inputs that control list operations rather than map to API fields.
const (
	InputReturnAll = "return_all"
	InputLimit     = "limit"
	InputMaxPages  = "max_pages"
)

// GRCIntegration implements the operation connector for the GRC API.
type GRCIntegration struct {
	*api.BaseProvider
	pageSize int
	tracer   trace.Tracer
}

// NewGRCIntegration creates a new GRC integration.
func NewGRCIntegration(config *api.ProviderConfig) (*GRCIntegration, error) {
	if config == nil || config.Transport == nil {
		return nil, &pkgerrors.ConfigError{Key: "transport", Reason: "a transport is required"}
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, &pkgerrors.ConfigError{Key: "base_url", Reason: "must be set to the tenant's API URL"}
	}
	if config.PageSize < 0 || config.PageSize > MaxPageSize {
		return nil, &pkgerrors.ConfigError{
			Key:    "page_size",
			Reason: fmt.Sprintf("must be between 1 and %d", MaxPageSize),
		}
	}

	return &GRCIntegration{
		BaseProvider: api.NewBaseProvider(Name, config),
		pageSize:     normalizePageSize(config.PageSize),
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// PageSize returns the per_page value used when paging through lists.
func (g *GRCIntegration) PageSize() int {
	return g.pageSize
}

// Execute runs a named operation with the given inputs.
func (g *GRCIntegration) Execute(ctx context.Context, opName string, inputs map[string]interface{}) (*operation.Result, error) {
	ep, ok := LookupEndpoint(opName)
	if !ok {
		return nil, unknownOperation(opName)
	}
	if inputs == nil {
		inputs = map[string]interface{}{}
	}

	ctx, span := g.tracer.Start(ctx, "grc."+opName, trace.WithAttributes(
		attribute.String("grc.operation", opName),
		attribute.String("grc.resource", string(ep.Resource)),
		attribute.String("http.request.method", ep.Method),
	))
	defer span.End()

	start := time.Now()
	var (
		result *operation.Result
		err    error
	)
	if ep.Operation == OpList {
		result, err = g.list(ctx, ep, inputs)
	} else {
		result, err = g.single(ctx, ep, inputs)
	}
	g.Metrics().RecordOperation(ctx, opName, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if pages := result.Pages(); pages > 0 {
		span.SetAttributes(attribute.Int("grc.pages", pages))
	}
	return result, nil
}

func unknownOperation(name string) error {
	return &operation.Error{
		Type:        operation.ErrorTypeNotFound,
		Message:     fmt.Sprintf("unknown operation: %s", name),
		SuggestText: "Run 'grc operations' to see available operations",
	}
}

// single runs a create, get, update or delete operation.
func (g *GRCIntegration) single(ctx context.Context, ep Endpoint, inputs map[string]interface{}) (*operation.Result, error) {
	if err := g.ValidateRequired(inputs, ep.Required); err != nil {
		return nil, err
	}

	req, err := g.buildRequest(ep, inputs)
	if err != nil {
		return nil, err
	}

	resp, err := g.send(ctx, ep, req)
	if err != nil {
		return nil, err
	}

	data, err := UnwrapData(resp.Body)
	if err != nil {
		return nil, err
	}
	if ep.Operation == OpDelete && data == nil {
		data = map[string]interface{}{"deleted": true, "id": inputs["id"]}
	}

	return g.ToResult(resp, data), nil
}

// list runs a list operation: one page trimmed to limit, or every page
// when return_all is set.
func (g *GRCIntegration) list(ctx context.Context, ep Endpoint, inputs map[string]interface{}) (*operation.Result, error) {
	if err := g.ValidateRequired(inputs, ep.Required); err != nil {
		return nil, err
	}
	opts, err := parseListOptions(inputs)
	if err != nil {
		return nil, err
	}

	base, err := g.buildRequest(ep, inputs)
	if err != nil {
		return nil, err
	}

	if !opts.returnAll {
		req := base.Clone()
		FirstPage(opts.limit).Apply(req.Query)
		resp, err := g.send(ctx, ep, req)
		if err != nil {
			return nil, err
		}
		data, err := UnwrapData(resp.Body)
		if err != nil {
			return nil, err
		}
		records := items(data)
		if len(records) > opts.limit {
			records = records[:opts.limit]
		}
		g.Metrics().RecordPage(ctx, ep.Name)

		result := g.ToResult(resp, records)
		result.Metadata[operation.MetadataPages] = 1
		result.Metadata[operation.MetadataMore] = Advance(resp.Body, opts.limit).More
		return result, nil
	}

	pager := NewPager(g.pageFetcher(ep, base), g.pageSize, opts.maxPages)
	all := make([]interface{}, 0)
	var last *Page
	for {
		page, err := pager.Next(ctx)
		if errors.Is(err, ErrPagerDone) {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := UnwrapData(page.Response.Body)
		if err != nil {
			return nil, err
		}
		all = append(all, items(data)...)
		last = page
	}

	result := g.ToResult(last.Response, all)
	result.Metadata[operation.MetadataPages] = pager.Fetched()
	result.Metadata[operation.MetadataMore] = last.Truncated
	return result, nil
}

// pageFetcher returns the fetch step of the page loop for a list request.
func (g *GRCIntegration) pageFetcher(ep Endpoint, base RequestOptions) FetchFunc {
	logger := log.WithOperation(g.Logger(), ep.Name, string(ep.Resource))
	return func(ctx context.Context, pr PageRequest) (*transport.Response, error) {
		ctx, span := g.tracer.Start(ctx, "grc.page", trace.WithAttributes(
			attribute.String("grc.operation", ep.Name),
			attribute.Int("grc.page", pr.Page),
			attribute.Int("grc.per_page", pr.PerPage),
		))
		defer span.End()

		req := base.Clone()
		pr.Apply(req.Query)
		resp, err := g.send(ctx, ep, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		g.Metrics().RecordPage(ctx, ep.Name)
		logger.Debug("fetched page",
			slog.Int(log.PageKey, pr.Page),
			slog.Int("bytes", len(resp.Body)),
		)
		return resp, nil
	}
}

// ExecutePaginated streams a list operation one page per result. The
// channel is closed after the last page; a failure is reported in the
// final result's Metadata["error"].
func (g *GRCIntegration) ExecutePaginated(ctx context.Context, opName string, inputs map[string]interface{}) (<-chan *operation.Result, error) {
	ep, ok := LookupEndpoint(opName)
	if !ok {
		return nil, unknownOperation(opName)
	}
	if !ep.Paginated {
		return nil, operation.NewValidationError(
			fmt.Sprintf("operation %s does not support pagination", opName),
			"Use a list_* operation",
		)
	}
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	if err := g.ValidateRequired(inputs, ep.Required); err != nil {
		return nil, err
	}
	opts, err := parseListOptions(inputs)
	if err != nil {
		return nil, err
	}
	base, err := g.buildRequest(ep, inputs)
	if err != nil {
		return nil, err
	}

	results := make(chan *operation.Result)
	go func() {
		defer close(results)

		send := func(r *operation.Result) bool {
			select {
			case results <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		pager := NewPager(g.pageFetcher(ep, base), g.pageSize, opts.maxPages)
		for {
			page, err := pager.Next(ctx)
			if errors.Is(err, ErrPagerDone) {
				return
			}
			if err != nil {
				send(&operation.Result{
					Metadata: map[string]interface{}{operation.MetadataError: err},
				})
				return
			}

			data, err := UnwrapData(page.Response.Body)
			if err != nil {
				send(&operation.Result{
					Metadata: map[string]interface{}{operation.MetadataError: err},
				})
				return
			}

			result := g.ToResult(page.Response, items(data))
			result.Metadata[operation.MetadataPage] = page.Request.Page
			result.Metadata[operation.MetadataMore] = page.Continuation.More
			if !send(result) {
				return
			}
		}
	}()

	return results, nil
}

type listOptions struct {
	returnAll bool
	limit     int
	maxPages  int
}

func parseListOptions(inputs map[string]interface{}) (listOptions, error) {
	opts := listOptions{limit: DefaultLimit}

	if raw, ok := inputs[InputReturnAll]; ok && raw != nil {
		v, err := field(InputReturnAll, InputReturnAll, TypeBoolean, "").coerce(raw)
		if err != nil {
			return opts, err
		}
		opts.returnAll = v.(bool)
	}
	if raw, ok := inputs[InputLimit]; ok && raw != nil {
		v, err := field(InputLimit, InputLimit, TypeInteger, "").coerce(raw)
		if err != nil {
			return opts, err
		}
		opts.limit = v.(int)
		if opts.limit < 1 || opts.limit > MaxPageSize {
			return opts, operation.NewValidationError(
				fmt.Sprintf("limit must be between 1 and %d", MaxPageSize),
				"Use return_all to fetch every record",
			)
		}
	}
	if raw, ok := inputs[InputMaxPages]; ok && raw != nil {
		v, err := field(InputMaxPages, InputMaxPages, TypeInteger, "").coerce(raw)
		if err != nil {
			return opts, err
		}
		opts.maxPages = v.(int)
		if opts.maxPages < 0 {
			return opts, operation.NewValidationError("max_pages must not be negative", "Use 0 for no cap")
		}
	}
	return opts, nil
}

// buildRequest maps inputs onto the endpoint's path, query and body.
func (g *GRCIntegration) buildRequest(ep Endpoint, inputs map[string]interface{}) (RequestOptions, error) {
	url, err := g.BuildURL(ep.Path, inputs)
	if err != nil {
		return RequestOptions{}, err
	}

	req := RequestOptions{
		Method: ep.Method,
		URL:    url,
		Query:  make(map[string]interface{}),
	}

	for _, f := range ep.Query {
		raw, ok := inputs[f.Input]
		if !ok || raw == nil || raw == "" {
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			return RequestOptions{}, err
		}
		req.Query[f.API] = v
	}
	for _, p := range ep.ArrayParams {
		if raw, ok := inputs[p.Name]; ok {
			req.Query[p.Name+"[]"] = raw
		}
	}

	if ep.Operation == OpCreate || ep.Operation == OpUpdate {
		body, err := buildBody(ep, inputs)
		if err != nil {
			return RequestOptions{}, err
		}
		req.Body = body
	}
	return req, nil
}

func buildBody(ep Endpoint, inputs map[string]interface{}) ([]byte, error) {
	payload := make(map[string]interface{})
	for _, f := range ep.Body {
		raw, ok := inputs[f.Input]
		if !ok || raw == nil {
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			return nil, err
		}
		payload[f.API] = v
	}

	if ep.Operation == OpUpdate && len(payload) == 0 {
		return nil, operation.NewValidationError(
			fmt.Sprintf("%s needs at least one field to change", ep.Name),
			fmt.Sprintf("Run 'grc schema %s' to see updatable fields", ep.Name),
		)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, operation.NewValidationError(fmt.Sprintf("encoding request body: %v", err), "")
	}
	return body, nil
}

// send applies the pre-send hook and executes req through the transport.
func (g *GRCIntegration) send(ctx context.Context, ep Endpoint, req RequestOptions) (*transport.Response, error) {
	req = PrepareRequest(req, ep)

	target := req.FinalURL()
	resp, err := g.ExecuteRequest(ctx, req.Method, target, req.Headers, req.Body)
	if err != nil {
		if te, ok := transport.AsTransportError(err); ok && te.StatusCode > 0 {
			g.Metrics().RecordRequest(ctx, ep.Name, te.StatusCode)
		}
		return nil, fromTransportError(err)
	}
	g.Metrics().RecordRequest(ctx, ep.Name, resp.StatusCode)
	log.Trace(g.Logger(), "response body",
		slog.String(log.OperationKey, ep.Name),
		slog.String("url", httpclient.RedactRawURL(target)),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(resp.Body)),
	)

	if err := ParseError(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
