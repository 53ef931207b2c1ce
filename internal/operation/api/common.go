// Package api provides common types and utilities for API integrations.
package api

import (
	"log/slog"

	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

// ProviderConfig holds configuration for API integrations.
type ProviderConfig struct {
	// Transport is the transport for making requests
	Transport transport.Transport

	// BaseURL is the API base URL
	BaseURL string

	// Token is a bearer token added by ExecuteRequest. Leave empty when the
	// transport already authenticates requests.
	Token string

	// PageSize is the per_page value used when paging through lists (1..100)
	PageSize int

	// Metrics records request and page counts (optional)
	Metrics *operation.Metrics

	// Logger is the structured logger (optional, defaults to slog.Default)
	Logger *slog.Logger
}

// OperationInfo provides metadata about an integration operation.
type OperationInfo struct {
	// Name is the operation identifier (e.g., "list_assets")
	Name string `json:"name"`

	// Description is a human-readable description
	Description string `json:"description"`

	// Category groups related operations (the resource kind, e.g. "risk")
	Category string `json:"category"`

	// Tags classify operations (e.g., "read", "write", "paginated", "destructive")
	Tags []string `json:"tags,omitempty"`
}

// OperationSchema describes an operation's inputs and outputs.
type OperationSchema struct {
	// Description is a human-readable description
	Description string `json:"description"`

	// Method and Path describe the underlying HTTP endpoint
	Method string `json:"method"`
	Path   string `json:"path"`

	// Parameters describes the operation inputs
	Parameters []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes an operation parameter.
type ParameterInfo struct {
	// Name is the parameter identifier
	Name string `json:"name"`

	// Type is the parameter type (string, integer, boolean, array, object)
	Type string `json:"type"`

	// Description is a human-readable description
	Description string `json:"description,omitempty"`

	// Required indicates if the parameter is required
	Required bool `json:"required"`

	// Default is the default value (nil if no default)
	Default interface{} `json:"default,omitempty"`
}

// TypedProvider exposes operation metadata for discovery by the hosts.
type TypedProvider interface {
	// Operations returns the list of available operations with metadata.
	Operations() []OperationInfo

	// OperationSchema returns the operation description and parameter information.
	// Returns nil if the operation doesn't exist.
	OperationSchema(operation string) *OperationSchema
}

// Provider is a paginating connector that also describes its operations.
type Provider interface {
	operation.PaginatedConnector
	TypedProvider
}
