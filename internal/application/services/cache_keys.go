package services

import (
	"net/url"
	"sort"
	"strings"
)

// BuildCacheKey renders operation and params as "op:k1=v1&k2=v2". Keys and
// the values under each key are sorted and empty values dropped, so
// equivalent parameter sets share one key. Without params the key is the
// operation name alone.
func BuildCacheKey(operation string, params url.Values) string {
	names := make([]string, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				names = append(names, k)
				break
			}
		}
	}
	if len(names) == 0 {
		return operation
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(operation)
	b.WriteByte(':')
	first := true
	for _, k := range names {
		values := make([]string, 0, len(params[k]))
		for _, v := range params[k] {
			if v != "" {
				values = append(values, v)
			}
		}
		sort.Strings(values)
		for _, v := range values {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
