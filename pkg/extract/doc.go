// Package extract drives paginated extraction of CRM resource collections.
//
// HubSpot paginates two different ways depending on endpoint generation:
// v3 endpoints link pages with a paging.next.after token, while legacy
// endpoints return a top-level offset. The page driver detects the protocol
// from each response and advances accordingly until the row budget or the
// data is exhausted.
//
// Example usage:
//
//	extractor, err := extract.New(hubspotClient, extract.DefaultConfig())
//	records, err := extractor.Extract(ctx, extract.Request{
//		Endpoint:   "contacts",
//		Properties: []string{"email", "firstname"},
//		RowLimit:   extract.Limit(1000),
//	})
//
// The driver:
//   - Normalizes filter values once per call (dates to epoch milliseconds)
//   - POSTs to the search endpoint when filters are present, GETs otherwise
//   - Accumulates result rows in server order across pages
//   - Stops on cursor exhaustion or when the row budget is met
//   - Enforces a page ceiling against misbehaving cursors
//
// Extraction is all-or-nothing: any fetch failure returns an error and no
// partial rows. Fetches are strictly sequential because each cursor is
// derived from the immediately preceding response.
package extract
