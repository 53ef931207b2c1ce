package grc

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the per_page value used when paging through a list.
	DefaultPageSize = 100

	// MaxPageSize is the largest per_page value the API accepts.
	MaxPageSize = 100

	// maxExactInt is the largest integer a JSON number holds exactly.
	maxExactInt = 1 << 53
)

// FlexInt is an integer that may be sent as a JSON number or a numeric
// string. Values that cannot be read as an integer leave Valid false.
type FlexInt struct {
	Value int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. It never fails, so a malformed
// field does not prevent the rest of the envelope from decoding.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{}

	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}

	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}

	if math.IsNaN(n) || n != math.Trunc(n) || math.Abs(n) > maxExactInt {
		return nil
	}
	*f = FlexInt{Value: int(n), Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Or returns the value, or def when the value is absent or invalid.
func (f FlexInt) Or(def int) int {
	if !f.Valid {
		return def
	}
	return f.Value
}

// PageMeta is the pagination block of a list response.
type PageMeta struct {
	Page       FlexInt `json:"page"`
	PerPage    FlexInt `json:"per_page"`
	TotalCount FlexInt `json:"total_count"`
}

// Complete reports whether all three fields were present, numeric and in
// range: page and per_page at least 1, total_count not negative.
func (m PageMeta) Complete() bool {
	return m.Page.Valid && m.Page.Value >= 1 &&
		m.PerPage.Valid && m.PerPage.Value >= 1 &&
		m.TotalCount.Valid && m.TotalCount.Value >= 0
}

// remaining reports whether page*per_page < total_count on a complete
// meta, without forming the product.
func (m PageMeta) remaining() bool {
	total := m.TotalCount.Value
	return total > 0 && m.Page.Value <= (total-1)/m.PerPage.Value
}

// Envelope is the {data, meta} wrapper returned by the API.
type Envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *PageMeta       `json:"meta,omitempty"`
}

// PageRequest holds the paging parameters for one list request.
type PageRequest struct {
	Page    int
	PerPage int
}

// FirstPage returns the parameters of the first list request.
func FirstPage(pageSize int) PageRequest {
	return PageRequest{Page: 1, PerPage: normalizePageSize(pageSize)}
}

// Apply writes the paging parameters into query. page is omitted on the
// first request.
func (p PageRequest) Apply(query map[string]interface{}) {
	query["per_page"] = p.PerPage
	if p.Page > 1 {
		query["page"] = p.Page
	} else {
		delete(query, "page")
	}
}

// Continuation is the outcome of evaluating one list response.
type Continuation struct {
	// More is true when further pages remain.
	More bool

	// Next holds the parameters for the following request. Only meaningful
	// when More is true.
	Next PageRequest

	// Records is the number of items in the page's data array.
	Records int

	// Meta is the decoded pagination block, nil when the response had none.
	Meta *PageMeta
}

// Advance decides from a list response body whether more pages remain.
//
// More is true only when data is a non-empty array, meta is Complete, and
// page*per_page < total_count. Any malformed, out of range or missing piece
// stops pagination instead of failing.
func Advance(body []byte, pageSize int) Continuation {
	var cont Continuation

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return cont
	}
	cont.Meta = env.Meta
	cont.Next = PageRequest{Page: 2, PerPage: normalizePageSize(pageSize)}
	if env.Meta != nil {
		cont.Next.Page = env.Meta.Page.Or(1) + 1
	}

	var items []json.RawMessage
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &items) != nil {
		return cont
	}
	cont.Records = len(items)
	if cont.Records == 0 || env.Meta == nil || !env.Meta.Complete() {
		return cont
	}

	cont.More = env.Meta.remaining()
	return cont
}

func normalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
