// Package filters models HubSpot search filter groups and normalizes
// user-supplied predicate values into the form the API expects.
//
// HubSpot's search endpoints take timestamps as epoch milliseconds, while
// callers naturally write calendar dates. Normalize rewrites every leaf value
// that parses as an ISO 8601 calendar date into epoch milliseconds for that
// date at midnight UTC and leaves everything else untouched.
package filters

import (
	"time"
)

// dateLayout is the ISO 8601 calendar date form accepted for rewriting.
const dateLayout = "2006-01-02"

// Filter is a single predicate: a mapping of field names to values, e.g.
//
//	{"propertyName": "createdate", "operator": "GTE", "value": "2023-01-01"}
//
// Values may be strings, numbers, booleans, or nested lists and mappings
// (HubSpot's IN/BETWEEN operators take list and pair values).
type Filter map[string]any

// Group is a set of filters combined with AND semantics.
// Groups themselves combine with OR, mirroring the HubSpot search body.
type Group struct {
	Filters []Filter `json:"filters" yaml:"filters"`
}

// Groups is a full filter tree as sent in a search request body.
type Groups []Group

// Normalize returns a deep copy of groups with every date-like leaf value
// rewritten to epoch milliseconds. The input is never mutated, so a caller
// may safely reuse it for retries or subsequent calls.
//
// Normalization is total: values that do not parse as a calendar date pass
// through unchanged, and re-normalizing an already-normalized tree is a
// no-op (an int64 is not a date string).
func Normalize(groups Groups) Groups {
	if groups == nil {
		return nil
	}

	out := make(Groups, len(groups))
	for i, group := range groups {
		norm := Group{Filters: make([]Filter, len(group.Filters))}
		for j, filter := range group.Filters {
			copied := make(Filter, len(filter))
			for field, value := range filter {
				copied[field] = normalizeValue(value)
			}
			norm.Filters[j] = copied
		}
		out[i] = norm
	}
	return out
}

// normalizeValue rewrites a single leaf value, recursing into lists and
// mappings. Non-date values are returned as-is; containers are copied.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case string:
		if millis, ok := dateToEpochMillis(v); ok {
			return millis
		}
		return v
	case []any:
		copied := make([]any, len(v))
		for i, elem := range v {
			copied[i] = normalizeValue(elem)
		}
		return copied
	case map[string]any:
		copied := make(map[string]any, len(v))
		for k, elem := range v {
			copied[k] = normalizeValue(elem)
		}
		return copied
	default:
		return v
	}
}

// dateToEpochMillis try-parses s as an ISO calendar date and returns the
// epoch milliseconds for midnight UTC of that date. The second return value
// reports whether s was a date. Parse failure is the routine case here, not
// an error condition.
func dateToEpochMillis(s string) (int64, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
