// Package grctest provides a fake GRC API and a wired integration for
// tests of the hosts.
package grctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/tombee/grcconnector/internal/integration/grc"
	"github.com/tombee/grcconnector/internal/operation/api"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

// Token is the bearer token the fake API expects.
const Token = "grctest-token"

// Server is an in-memory GRC API mounted under /api.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	records  map[string][]map[string]interface{}
	requests []*http.Request
}

// NewServer starts a fake API seeded with three risks and two assets. It is
// closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{records: map[string][]map[string]interface{}{
		"risks": {
			{"id": 1, "name": "Vendor breach", "status": "open"},
			{"id": 2, "name": "Data loss", "status": "closed"},
			{"id": 3, "name": "Outage", "status": "open"},
		},
		"assets": {
			{"id": 10, "name": "prod-db", "status": "active"},
			{"id": 11, "name": "laptop", "status": "retired"},
		},
	}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API root.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// Requests returns the requests received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Invalid token"})
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/"), "/")
	s.mu.Lock()
	records, ok := s.records[parts[0]]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Not found"})
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.list(w, r, records)
	case len(parts) == 1 && r.Method == http.MethodPost:
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"message": "Invalid JSON"})
			return
		}
		body["id"] = 99
		writeJSON(w, http.StatusCreated, map[string]interface{}{"data": body})
	case len(parts) == 2:
		for _, rec := range records {
			if strconv.Itoa(rec["id"].(int)) == parts[1] {
				if r.Method == http.MethodDelete {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				writeJSON(w, http.StatusOK, map[string]interface{}{"data": rec})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Record not found"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"message": "Method not allowed"})
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, records []map[string]interface{}) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = 100
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": records[start:end],
		"meta": map[string]interface{}{"page": page, "per_page": perPage, "total_count": len(records)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewIntegration returns a GRC integration talking to s through a real
// HTTP transport without retries. pageSize sets the per_page used when
// paging (0 for the default).
func NewIntegration(t testing.TB, s *Server, pageSize int) *grc.GRCIntegration {
	t.Helper()
	tr, err := transport.NewHTTPTransport(&transport.HTTPTransportConfig{
		BaseURL:     s.BaseURL(),
		Auth:        &transport.AuthConfig{Type: transport.AuthTypeBearer, Token: Token},
		RetryConfig: &transport.RetryConfig{MaxAttempts: 1, BackoffFactor: 2},
		Client:      s.Client(),
	})
	if err != nil {
		t.Fatalf("creating transport: %v", err)
	}
	integration, err := grc.NewGRCIntegration(&api.ProviderConfig{
		Transport: tr,
		BaseURL:   s.BaseURL(),
		PageSize:  pageSize,
	})
	if err != nil {
		t.Fatalf("creating integration: %v", err)
	}
	return integration
}
