package operation

import (
	"context"
	"errors"
)

// Connector runs named operations against one external API.
type Connector interface {
	Name() string
	Execute(ctx context.Context, operation string, inputs map[string]interface{}) (*Result, error)
}

// PaginatedConnector is a Connector whose list operations can be consumed
// one page at a time.
//
// The returned channel yields a Result per page and is closed after the
// last page. A failure after the first page is not returned as an error:
// it arrives as a final Result whose PageErr is non-nil.
type PaginatedConnector interface {
	Connector
	ExecutePaginated(ctx context.Context, operation string, inputs map[string]interface{}) (<-chan *Result, error)
}

// Result is the outcome of one operation call, or of one page of a
// paginated call.
type Result struct {
	// Response is the unwrapped payload: a record, a list of records or a
	// deletion receipt.
	Response interface{}

	// RawResponse is the undecoded body of the last HTTP response.
	RawResponse []byte

	StatusCode int
	Headers    map[string][]string

	// Metadata holds the Metadata* keys below plus anything the transport
	// recorded (retry count, request ID).
	Metadata map[string]interface{}
}

// Keys of Result.Metadata.
const (
	MetadataPages     = "pages"
	MetadataPage      = "page"
	MetadataMore      = "has_more"
	MetadataError     = "error"
	MetadataRequestID = "request_id"
)

// Pages reports how many pages produced r, or 0 when not recorded.
func (r *Result) Pages() int {
	n, _ := r.Metadata[MetadataPages].(int)
	return n
}

// PageErr returns the error carried by the terminal Result of a paginated
// stream, or nil.
func (r *Result) PageErr() error {
	switch v := r.Metadata[MetadataError].(type) {
	case error:
		return v
	case string:
		return errors.New(v)
	}
	return nil
}

// RequestID returns the server-assigned request ID, if the API sent one.
func (r *Result) RequestID() string {
	id, _ := r.Metadata[MetadataRequestID].(string)
	return id
}
