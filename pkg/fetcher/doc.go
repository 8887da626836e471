// Package fetcher walks the paginated markets listing and merges the pages.
//
// FetchAll requests pages 1 through MaxPages strictly in order, one at a
// time. A page that fails for any reason (transport error, timeout,
// exhausted retries, unexpected status, a body that is not a JSON array, or
// an interrupt signal) is logged, recorded as a failed PageOutcome and
// skipped; the remaining pages are still fetched. Callers must therefore not
// assume the result holds exactly PerPage*MaxPages entries.
//
// Entries are passed through as json.RawMessage without interpretation.
package fetcher
