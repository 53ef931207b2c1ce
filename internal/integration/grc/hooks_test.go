package grc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tombee/grcconnector/internal/operation"
)

func TestPrepareRequest(t *testing.T) {
	ep, ok := LookupEndpoint("list_assets")
	if !ok {
		t.Fatal("list_assets not found")
	}

	req := RequestOptions{
		Method: "GET",
		URL:    "https://grc.example.com/api/assets",
		Query: map[string]interface{}{
			"status[]":    "active, retired",
			"label_ids[]": []interface{}{3, 4},
			"per_page":    100,
		},
	}

	out := PrepareRequest(req, ep)

	want := "https://grc.example.com/api/assets?status[]=active&status[]=retired&label_ids[]=3&label_ids[]=4"
	if out.URL != want {
		t.Errorf("URL = %q, want %q", out.URL, want)
	}
	if diff := cmp.Diff(map[string]interface{}{"per_page": 100}, out.Query); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if _, ok := req.Query["status[]"]; !ok {
		t.Error("PrepareRequest must not modify its input")
	}
}

func TestUnwrapData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want interface{}
	}{
		{"object", `{"data":{"id":1,"name":"Laptop"}}`, map[string]interface{}{"id": float64(1), "name": "Laptop"}},
		{"list", `{"data":[{"id":1}],"meta":{"page":1}}`, []interface{}{map[string]interface{}{"id": float64(1)}}},
		{"null data", `{"data":null}`, nil},
		{"no envelope", `{"id":1}`, map[string]interface{}{"id": float64(1)}},
		{"empty body", ``, nil},
		{"whitespace body", " \n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnwrapData([]byte(tt.body))
			if err != nil {
				t.Fatalf("UnwrapData() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnwrapData_InvalidJSON(t *testing.T) {
	_, err := UnwrapData([]byte(`{"data":`))
	var opErr *operation.Error
	if !errors.As(err, &opErr) || opErr.Type != operation.ErrorTypeTransform {
		t.Fatalf("expected transform error, got %v", err)
	}
}
