package grc

import (
	"bytes"
	"encoding/json"

	"github.com/tombee/grcconnector/internal/operation"
)

// PrepareRequest is the pre-send step: it returns a copy of req with every
// multi-value filter declared by ep rewritten into repeated name[]=value
// pairs. req itself is not modified.
func PrepareRequest(req RequestOptions, ep Endpoint) RequestOptions {
	out := req.Clone()
	for _, p := range ep.ArrayParams {
		NormalizeArrayParam(&out, p.Name, p.Encode)
	}
	return out
}

// UnwrapData is the post-receive step: it returns the envelope's data
// member unchanged. An empty body yields nil. A body without a data member
// is returned whole.
func UnwrapData(body []byte) (interface{}, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, operation.NewTransformError("response is not valid JSON", err)
	}
	if obj, ok := decoded.(map[string]interface{}); ok {
		if data, ok := obj["data"]; ok {
			return data, nil
		}
	}
	return decoded, nil
}

// items returns the records of an unwrapped list response.
func items(data interface{}) []interface{} {
	if list, ok := data.([]interface{}); ok {
		return list
	}
	if data == nil {
		return []interface{}{}
	}
	return []interface{}{data}
}
