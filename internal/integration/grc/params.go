package grc

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/samber/lo"
)

// RequestOptions is a request prepared for the GRC API but not yet sent.
// Query holds parameters that have not been written to URL yet; values are
// either scalars or lists.
type RequestOptions struct {
	Method  string
	URL     string
	Query   map[string]interface{}
	Headers map[string]string
	Body    []byte
}

// Clone returns a copy of the request whose Query and Headers can be
// modified without affecting the original.
func (r RequestOptions) Clone() RequestOptions {
	out := r
	out.Query = make(map[string]interface{}, len(r.Query))
	for k, v := range r.Query {
		out.Query[k] = v
	}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// NormalizeArrayParam rewrites the multi-value parameter stored under
// name+"[]" into repeated name[]=value pairs appended to req.URL.
//
// The value may be a list (each element stringified), a comma-separated
// string (tokens trimmed, empty tokens dropped) or any other scalar (a
// single value). An absent or empty value leaves the request untouched.
// When encode is set each value is percent-encoded.
func NormalizeArrayParam(req *RequestOptions, name string, encode bool) {
	key := name + "[]"
	raw, ok := req.Query[key]
	if !ok || isEmptyValue(raw) {
		return
	}

	values := arrayValues(raw)
	delete(req.Query, key)
	if len(values) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString(req.URL)
	sep := "?"
	if strings.Contains(req.URL, "?") {
		sep = "&"
	}
	for _, v := range values {
		if encode {
			v = encodeComponent(v)
		}
		b.WriteString(sep)
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(v)
		sep = "&"
	}
	req.URL = b.String()
}

func isEmptyValue(raw interface{}) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// arrayValues flattens a filter value into its ordered string values.
func arrayValues(raw interface{}) []string {
	switch v := raw.(type) {
	case string:
		return splitCommaList(v)
	case []string:
		return v
	case []interface{}:
		return lo.FilterMap(v, func(item interface{}, _ int) (string, bool) {
			return fmt.Sprint(item), item != nil
		})
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, fmt.Sprint(rv.Index(i).Interface()))
		}
		return out
	}
	return []string{fmt.Sprint(raw)}
}

func splitCommaList(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(token string, _ int) (string, bool) {
		token = strings.TrimSpace(token)
		return token, token != ""
	})
}

// encodeComponent percent-encodes a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FinalURL returns URL with the remaining Query parameters appended.
// Keys are sorted; list values produce one pair per element.
func (r RequestOptions) FinalURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}

	values := url.Values{}
	for k, v := range r.Query {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if _, isString := v.(string); !isString && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
			for _, item := range arrayValues(v) {
				values.Add(k, item)
			}
			continue
		}
		values.Set(k, fmt.Sprint(v))
	}

	encoded := values.Encode()
	if encoded == "" {
		return r.URL
	}
	if strings.Contains(r.URL, "?") {
		return r.URL + "&" + encoded
	}
	return r.URL + "?" + encoded
}
