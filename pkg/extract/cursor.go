package extract

import (
	"strconv"
)

// CursorKind enumerates the pagination protocols HubSpot responses use.
type CursorKind int

const (
	// CursorNone means the response carries no continuation; the loop stops.
	CursorNone CursorKind = iota

	// CursorAfter is the v3 protocol: the response carries a paging.next.after
	// token to echo back in the next request.
	CursorAfter

	// CursorOffset is the legacy protocol: the response carries a top-level
	// offset value to append to the next request's query.
	CursorOffset
)

// String returns the kind name for logging.
func (k CursorKind) String() string {
	switch k {
	case CursorAfter:
		return "after"
	case CursorOffset:
		return "offset"
	default:
		return "none"
	}
}

// PageCursor is the continuation state derived from one response.
// It is a closed tagged variant: the page loop is a single exhaustive
// switch over Kind.
type PageCursor struct {
	Kind  CursorKind
	Value string
}

// DetectCursor classifies the pagination protocol of a decoded response body.
// Detection order matters: some responses transiently carry both shapes, and
// the after token wins because it belongs to the richer protocol.
//
//  1. paging.next.after present  -> CursorAfter
//  2. top-level offset present   -> CursorOffset
//  3. otherwise                  -> CursorNone
//
// A zero or empty cursor value means the server has no more data and is
// treated as CursorNone.
func DetectCursor(body map[string]any) PageCursor {
	if paging, ok := body["paging"].(map[string]any); ok {
		if next, ok := paging["next"].(map[string]any); ok {
			if after := cursorValue(next["after"]); after != "" {
				return PageCursor{Kind: CursorAfter, Value: after}
			}
		}
	}

	if offset, ok := body["offset"]; ok {
		if value := cursorValue(offset); value != "" {
			return PageCursor{Kind: CursorOffset, Value: value}
		}
	}

	return PageCursor{Kind: CursorNone}
}

// cursorValue renders a cursor token as a string. JSON numbers arrive as
// float64; integral values are rendered without a fraction. Zero and empty
// values map to "" (exhausted cursor).
func cursorValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		if value == 0 {
			return ""
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		if value == 0 {
			return ""
		}
		return strconv.Itoa(value)
	case int64:
		if value == 0 {
			return ""
		}
		return strconv.FormatInt(value, 10)
	default:
		return ""
	}
}
