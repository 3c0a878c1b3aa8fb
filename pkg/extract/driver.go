package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/hubspot-extract-client/pkg/filters"
	"github.com/Sternrassler/hubspot-extract-client/pkg/table"
	"github.com/Sternrassler/hubspot-extract-client/pkg/timewindow"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for extraction runs.
var (
	extractPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_extract_pages_total",
		Help: "Total pages fetched by endpoint",
	}, []string{"endpoint"})

	extractRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_extract_rows_total",
		Help: "Total rows extracted by endpoint",
	}, []string{"endpoint"})

	extractDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_extract_duration_seconds",
		Help:    "Extraction call duration in seconds by endpoint",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"endpoint"})
)

// ErrTooManyPages is returned when an extraction exceeds the page ceiling.
// A live cursor past the ceiling signals a misbehaving or changed API, so it
// is fatal rather than a silent truncation.
var ErrTooManyPages = errors.New("maximum page count exceeded")

// Transport issues one HTTP request and returns the decoded JSON body.
// Implementations must surface network failures and non-success statuses
// as errors and be safe for concurrent use.
type Transport interface {
	Fetch(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error)
}

// Record is one resource as returned by the API, fields unparsed.
type Record = map[string]any

// Request configures one extraction call.
type Request struct {
	// Endpoint is the CRM collection name (e.g. "contacts", "deals").
	Endpoint string

	// Properties to request, in order. May be empty.
	Properties []string

	// Filters select records server-side. When present the driver POSTs to
	// the search endpoint; the tree is normalized once per call.
	Filters filters.Groups

	// RowLimit caps the number of returned rows. nil means no limit: the
	// driver drains pages until the cursor is exhausted. A limit of 0 still
	// issues exactly one fetch (validating endpoint and credentials) and
	// returns zero rows.
	RowLimit *int
}

// Limit is a convenience for building a row limit in place.
func Limit(n int) *int {
	return &n
}

// Config holds page driver configuration.
type Config struct {
	// MaxPages is the page ceiling per extraction call.
	MaxPages int

	// PageSize is the number of records requested per page (HubSpot max: 100).
	PageSize int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages: 1000,
		PageSize: 100,
	}
}

// Extractor drives the page loop for one endpoint at a time. It holds no
// per-call mutable state, so a single Extractor may serve concurrent
// extraction calls as long as its Transport allows it.
type Extractor struct {
	transport Transport
	config    Config
	logger    zerolog.Logger
}

// New creates an Extractor on top of the given transport.
func New(transport Transport, cfg Config) (*Extractor, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return &Extractor{
		transport: transport,
		config:    cfg,
		logger:    log.With().Str("component", "extractor").Logger(),
	}, nil
}

// Extract fetches all pages for the request and returns the accumulated
// records in server concatenation order, truncated to the row limit.
// Any fetch failure aborts the whole call: no partial rows are returned.
func (e *Extractor) Extract(ctx context.Context, req Request) ([]Record, error) {
	if req.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	start := time.Now()
	logger := e.logger.With().
		Str("endpoint", req.Endpoint).
		Str("run_id", uuid.NewString()).
		Logger()
	defer func() {
		extractDuration.WithLabelValues(req.Endpoint).Observe(time.Since(start).Seconds())
	}()

	// Normalize once per call, not per page
	normalized := filters.Normalize(req.Filters)
	search := hasFilters(normalized)

	method := http.MethodGet
	path := objectPath(req.Endpoint)
	if search {
		method = http.MethodPost
		path = searchPath(req.Endpoint)
	}

	logger.Debug().
		Str("method", method).
		Int("properties", len(req.Properties)).
		Bool("filtered", search).
		Msg("Starting extraction")

	var records []Record
	cursor := PageCursor{Kind: CursorNone}

	for page := 0; ; page++ {
		if page >= e.config.MaxPages {
			logger.Error().
				Int("max_pages", e.config.MaxPages).
				Int("rows", len(records)).
				Msg("Page ceiling exceeded, cursor still live")
			return nil, fmt.Errorf("%w: %d pages on %s", ErrTooManyPages, page, req.Endpoint)
		}

		body, err := e.fetchPage(ctx, method, path, req, normalized, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}
		extractPagesTotal.WithLabelValues(req.Endpoint).Inc()

		rows := resultList(body)
		records = append(records, rows...)

		cursor = DetectCursor(body)

		if len(rows) == 0 && cursor.Kind != CursorNone {
			// Transient empty pages happen; the page ceiling bounds the loop
			logger.Warn().
				Int("page", page+1).
				Str("cursor", cursor.Kind.String()).
				Msg("Empty page with live cursor, continuing")
		}

		if cursor.Kind == CursorNone {
			break
		}
		if req.RowLimit != nil && len(records) >= *req.RowLimit {
			break
		}
	}

	if req.RowLimit != nil && len(records) > *req.RowLimit {
		records = records[:*req.RowLimit]
	}

	extractRowsTotal.WithLabelValues(req.Endpoint).Add(float64(len(records)))
	logger.Info().
		Int("rows", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Extraction complete")

	return records, nil
}

// ExtractTable runs Extract and materializes the records into a table.
func (e *Extractor) ExtractTable(ctx context.Context, req Request) (*table.Table, error) {
	records, err := e.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	return table.Materialize(records, req.RowLimit), nil
}

// ExtractWindow fetches a time-scoped collection in one request, bounded by
// the resolved window. This is the simpler ingestion path for endpoints that
// take start_date/end_date parameters instead of cursors.
func (e *Extractor) ExtractWindow(ctx context.Context, endpoint string, w timewindow.Window, limit int) ([]Record, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	query := w.Params()
	query.Set("_limit", strconv.Itoa(limit))

	body, err := e.transport.Fetch(ctx, http.MethodGet, objectPath(endpoint), query, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch window: %w", err)
	}

	rows := resultList(body)
	extractRowsTotal.WithLabelValues(endpoint).Add(float64(len(rows)))
	return rows, nil
}

// fetchPage issues one page request, folding the cursor into the query or
// body depending on the protocol and method.
func (e *Extractor) fetchPage(ctx context.Context, method, path string, req Request, normalized filters.Groups, cursor PageCursor) (map[string]any, error) {
	query := url.Values{}

	if method == http.MethodPost {
		payload := map[string]any{
			"filterGroups": normalized,
			"limit":        e.config.PageSize,
		}
		if len(req.Properties) > 0 {
			payload["properties"] = req.Properties
		}
		switch cursor.Kind {
		case CursorAfter:
			payload["after"] = cursor.Value
		case CursorOffset:
			query.Set("offset", cursor.Value)
		}
		return e.transport.Fetch(ctx, method, path, query, payload)
	}

	query.Set("limit", strconv.Itoa(e.config.PageSize))
	if len(req.Properties) > 0 {
		query.Set("properties", strings.Join(req.Properties, ","))
	}
	switch cursor.Kind {
	case CursorAfter:
		query.Set("after", cursor.Value)
	case CursorOffset:
		query.Set("offset", cursor.Value)
	}
	return e.transport.Fetch(ctx, method, path, query, nil)
}

// hasFilters reports whether the tree holds at least one predicate.
func hasFilters(groups filters.Groups) bool {
	for _, group := range groups {
		if len(group.Filters) > 0 {
			return true
		}
	}
	return false
}

// objectPath returns the collection path for a CRM endpoint name.
func objectPath(endpoint string) string {
	return "/crm/v3/objects/" + strings.Trim(endpoint, "/")
}

// searchPath returns the search path for a CRM endpoint name.
func searchPath(endpoint string) string {
	return objectPath(endpoint) + "/search"
}

// resultList pulls the record list out of a decoded response body.
// v3 bodies key it under "results"; legacy bodies key it by resource name,
// so the first array-valued field (by sorted key, for determinism) is taken.
func resultList(body map[string]any) []Record {
	if rows, ok := body["results"].([]any); ok {
		return toRecords(rows)
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if rows, ok := body[k].([]any); ok {
			return toRecords(rows)
		}
	}
	return nil
}

// toRecords filters a JSON array down to its object elements.
func toRecords(items []any) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records
}
