package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

// pathParamPattern matches {param} placeholders in path templates.
var pathParamPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// BaseProvider provides common functionality for API integrations.
type BaseProvider struct {
	name      string
	transport transport.Transport
	baseURL   string
	token     string
	metrics   *operation.Metrics
	logger    *slog.Logger
}

// NewBaseProvider creates a new base provider.
func NewBaseProvider(name string, config *ProviderConfig) *BaseProvider {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseProvider{
		name:      name,
		transport: config.Transport,
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		token:     config.Token,
		metrics:   config.Metrics,
		logger:    logger,
	}
}

// Name returns the integration identifier.
func (c *BaseProvider) Name() string {
	return c.name
}

// Logger returns the provider's logger.
func (c *BaseProvider) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the provider's metrics recorder (may be nil).
func (c *BaseProvider) Metrics() *operation.Metrics {
	return c.metrics
}

// PathParams returns the placeholder names of a path template in order.
func PathParams(pathTemplate string) []string {
	matches := pathParamPattern.FindAllStringSubmatch(pathTemplate, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// BuildURL constructs a full URL from a path template and inputs.
// Path templates use {param} syntax (e.g., "/frameworks/{framework_id}/requirements").
// Values are path-escaped; separators and traversal sequences are rejected.
func (c *BaseProvider) BuildURL(pathTemplate string, inputs map[string]interface{}) (string, error) {
	var buildErr error
	path := pathParamPattern.ReplaceAllStringFunc(pathTemplate, func(placeholder string) string {
		if buildErr != nil {
			return placeholder
		}
		name := placeholder[1 : len(placeholder)-1]
		value, ok := inputs[name]
		if !ok || value == nil || fmt.Sprint(value) == "" {
			buildErr = operation.NewValidationError(
				fmt.Sprintf("missing required parameter: %s", name),
				fmt.Sprintf("Provide %s", name),
			)
			return placeholder
		}
		str := fmt.Sprint(value)
		if isPathInjection(str) {
			buildErr = operation.NewPathInjectionError(name)
			return placeholder
		}
		return url.PathEscape(str)
	})
	if buildErr != nil {
		return "", buildErr
	}

	return c.baseURL + path, nil
}

func isPathInjection(value string) bool {
	lower := strings.ToLower(value)
	return strings.Contains(value, "/") ||
		strings.Contains(value, `\`) ||
		value == ".." ||
		strings.Contains(lower, "%2e%2e") ||
		strings.Contains(lower, "%2f")
}

// ExecuteRequest sends a request through the transport.
func (c *BaseProvider) ExecuteRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*transport.Response, error) {
	if c.token != "" {
		if headers == nil {
			headers = make(map[string]string)
		}
		headers["Authorization"] = "Bearer " + c.token
	}

	req := &transport.Request{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    body,
	}

	return c.transport.Execute(ctx, req)
}

// ParseJSONResponse parses a JSON response into a target value.
func (c *BaseProvider) ParseJSONResponse(resp *transport.Response, target interface{}) error {
	if len(resp.Body) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body, target)
}

// ToResult converts a transport response to an operation result.
func (c *BaseProvider) ToResult(resp *transport.Response, response interface{}) *operation.Result {
	metadata := make(map[string]interface{}, len(resp.Metadata))
	for k, v := range resp.Metadata {
		metadata[k] = v
	}
	return &operation.Result{
		Response:    response,
		RawResponse: resp.Body,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Headers,
		Metadata:    metadata,
	}
}

// ValidateRequired checks that all required parameters are present and non-empty.
func (c *BaseProvider) ValidateRequired(inputs map[string]interface{}, required []string) error {
	for _, param := range required {
		value, ok := inputs[param]
		if !ok || value == nil {
			return operation.NewValidationError(
				fmt.Sprintf("missing required parameter: %s", param),
				fmt.Sprintf("Provide %s", param),
			)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return operation.NewValidationError(
				fmt.Sprintf("parameter %s must not be empty", param),
				fmt.Sprintf("Provide a value for %s", param),
			)
		}
	}
	return nil
}
