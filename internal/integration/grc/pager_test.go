package grc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tombee/grcconnector/internal/operation/transport"
)

// pagedBody returns a list response for page n of a collection.
func pagedBody(page, perPage, total int) []byte {
	count := perPage
	if remaining := total - (page-1)*perPage; remaining < perPage {
		count = remaining
	}
	data := "["
	for i := 0; i < count; i++ {
		if i > 0 {
			data += ","
		}
		data += fmt.Sprintf(`{"id":%d}`, (page-1)*perPage+i+1)
	}
	data += "]"
	return []byte(fmt.Sprintf(`{"data":%s,"meta":{"page":%d,"per_page":%d,"total_count":%d}}`, data, page, perPage, total))
}

type fakeFetcher struct {
	total    int
	requests []PageRequest
	failOn   int
}

func (f *fakeFetcher) fetch(ctx context.Context, req PageRequest) (*transport.Response, error) {
	f.requests = append(f.requests, req)
	if f.failOn > 0 && len(f.requests) == f.failOn {
		return nil, &transport.TransportError{Type: transport.ErrorTypeServer, StatusCode: 503, Message: "unavailable"}
	}
	return &transport.Response{StatusCode: 200, Body: pagedBody(req.Page, req.PerPage, f.total)}, nil
}

func TestPager_ThreePages(t *testing.T) {
	f := &fakeFetcher{total: 250}
	p := NewPager(f.fetch, 100, 0)

	if p.State() != StateRequesting {
		t.Fatalf("initial state = %s", p.State())
	}

	wantStates := []PagerState{StateContinuing, StateContinuing, StateDone}
	records := 0
	for i, want := range wantStates {
		page, err := p.Next(context.Background())
		if err != nil {
			t.Fatalf("page %d: %v", i+1, err)
		}
		records += page.Continuation.Records
		if p.State() != want {
			t.Errorf("after page %d state = %s, want %s", i+1, p.State(), want)
		}
	}

	if _, err := p.Next(context.Background()); !errors.Is(err, ErrPagerDone) {
		t.Fatalf("expected ErrPagerDone, got %v", err)
	}

	want := []PageRequest{{1, 100}, {2, 100}, {3, 100}}
	if len(f.requests) != len(want) {
		t.Fatalf("requests = %v, want %v", f.requests, want)
	}
	for i := range want {
		if f.requests[i] != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, f.requests[i], want[i])
		}
	}
	if records != 250 {
		t.Errorf("records = %d, want 250", records)
	}
	if p.Fetched() != 3 {
		t.Errorf("Fetched() = %d", p.Fetched())
	}
}

func TestPager_MaxPages(t *testing.T) {
	f := &fakeFetcher{total: 1000}
	p := NewPager(f.fetch, 100, 2)

	var last *Page
	for {
		page, err := p.Next(context.Background())
		if errors.Is(err, ErrPagerDone) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		last = page
	}

	if len(f.requests) != 2 {
		t.Errorf("requests = %d, want 2", len(f.requests))
	}
	if !last.Truncated {
		t.Error("final page should be marked truncated")
	}
}

func TestPager_FetchErrorEndsLoop(t *testing.T) {
	f := &fakeFetcher{total: 250, failOn: 2}
	p := NewPager(f.fetch, 100, 0)

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := p.Next(context.Background())
	var te *transport.TransportError
	if !errors.As(err, &te) || te.StatusCode != 503 {
		t.Fatalf("expected transport error unchanged, got %v", err)
	}
	if p.State() != StateDone {
		t.Errorf("state = %s, want done", p.State())
	}
}

func TestPager_CancelledBetweenPages(t *testing.T) {
	f := &fakeFetcher{total: 250}
	p := NewPager(f.fetch, 100, 0)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := p.Next(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	if _, err := p.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(f.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(f.requests))
	}
}

func TestPager_MalformedResponseStops(t *testing.T) {
	calls := 0
	p := NewPager(func(ctx context.Context, req PageRequest) (*transport.Response, error) {
		calls++
		return &transport.Response{StatusCode: 200, Body: []byte(`{"data":[{"id":1}]}`)}, nil
	}, 100, 0)

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrPagerDone) {
		t.Fatalf("expected ErrPagerDone, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPagerState_String(t *testing.T) {
	if StateEvaluating.String() != "evaluating" || PagerState(99).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
