package operation

import (
	"errors"
	"testing"
)

func TestResultAccessors(t *testing.T) {
	pageErr := errors.New("page out of range")

	tests := []struct {
		name      string
		metadata  map[string]interface{}
		pages     int
		err       string
		requestID string
	}{
		{name: "empty"},
		{
			name:      "aggregate",
			metadata:  map[string]interface{}{MetadataPages: 3, MetadataRequestID: "req-9"},
			pages:     3,
			requestID: "req-9",
		},
		{name: "error value", metadata: map[string]interface{}{MetadataError: pageErr}, err: "page out of range"},
		{name: "error string", metadata: map[string]interface{}{MetadataError: "boom"}, err: "boom"},
		{name: "wrong types ignored", metadata: map[string]interface{}{MetadataPages: "3", MetadataRequestID: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Metadata: tt.metadata}
			if got := r.Pages(); got != tt.pages {
				t.Errorf("Pages() = %d, want %d", got, tt.pages)
			}
			if got := r.RequestID(); got != tt.requestID {
				t.Errorf("RequestID() = %q, want %q", got, tt.requestID)
			}
			err := r.PageErr()
			switch {
			case tt.err == "" && err != nil:
				t.Errorf("PageErr() = %v, want nil", err)
			case tt.err != "" && (err == nil || err.Error() != tt.err):
				t.Errorf("PageErr() = %v, want %q", err, tt.err)
			}
		})
	}

	r := &Result{Metadata: map[string]interface{}{MetadataError: pageErr}}
	if !errors.Is(r.PageErr(), pageErr) {
		t.Error("PageErr should return the stored error value")
	}
}
