// Package operation holds the connector contract and its shared plumbing.
//
// Connectors execute named operations and return a Result; those that can
// page through list endpoints also satisfy PaginatedConnector. The package
// classifies failures into Error values with user-facing suggestions, keeps
// a name-keyed Registry of connectors, and records request, page and
// latency instruments through OpenTelemetry.
//
// Auth, retries, rate limiting and circuit breaking sit below this package
// in transport. Helpers for building requests sit in api.
package operation
