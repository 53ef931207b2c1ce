package grc

import (
	"context"
	"errors"

	"github.com/tombee/grcconnector/internal/operation/transport"
)

// ErrPagerDone is returned by Pager.Next once the last page has been fetched.
var ErrPagerDone = errors.New("grc: no more pages")

// PagerState is the position of a Pager in its page loop.
type PagerState int

const (
	// StateRequesting means a page request is about to be sent or is in flight.
	StateRequesting PagerState = iota
	// StateEvaluating means a response arrived and is being inspected.
	StateEvaluating
	// StateContinuing means another page will be requested.
	StateContinuing
	// StateDone is terminal.
	StateDone
)

func (s PagerState) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateEvaluating:
		return "evaluating"
	case StateContinuing:
		return "continuing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// FetchFunc sends one list request with the given paging parameters.
type FetchFunc func(ctx context.Context, req PageRequest) (*transport.Response, error)

// Page is one fetched page.
type Page struct {
	// Request holds the paging parameters that produced this page.
	Request PageRequest

	// Response is the raw transport response.
	Response *transport.Response

	// Continuation is the evaluated pagination decision for this page.
	Continuation Continuation

	// Truncated is set on the final page when the page cap stopped the
	// loop while the API still reported more rows.
	Truncated bool
}

// Pager walks a paginated list one page at a time. Pages are fetched
// strictly in sequence; a Pager must not be shared between goroutines.
type Pager struct {
	fetch    FetchFunc
	pageSize int
	maxPages int

	state   PagerState
	next    PageRequest
	fetched int
}

// NewPager creates a pager. maxPages of 0 means no cap.
func NewPager(fetch FetchFunc, pageSize, maxPages int) *Pager {
	return &Pager{
		fetch:    fetch,
		pageSize: normalizePageSize(pageSize),
		maxPages: maxPages,
		state:    StateRequesting,
		next:     FirstPage(pageSize),
	}
}

// State returns the current loop state.
func (p *Pager) State() PagerState {
	return p.state
}

// Fetched returns the number of pages fetched so far.
func (p *Pager) Fetched() int {
	return p.fetched
}

// Next fetches the next page. Fetch errors are returned unchanged and end
// the loop. Cancellation is checked before each request.
func (p *Pager) Next(ctx context.Context) (*Page, error) {
	if p.state == StateDone {
		return nil, ErrPagerDone
	}
	if err := ctx.Err(); err != nil {
		p.state = StateDone
		return nil, err
	}

	p.state = StateRequesting
	req := p.next
	resp, err := p.fetch(ctx, req)
	if err != nil {
		p.state = StateDone
		return nil, err
	}
	p.fetched++

	p.state = StateEvaluating
	page := &Page{
		Request:      req,
		Response:     resp,
		Continuation: Advance(resp.Body, p.pageSize),
	}

	switch {
	case !page.Continuation.More:
		p.state = StateDone
	case p.maxPages > 0 && p.fetched >= p.maxPages:
		page.Truncated = true
		p.state = StateDone
	default:
		p.next = page.Continuation.Next
		p.state = StateContinuing
	}
	return page, nil
}
