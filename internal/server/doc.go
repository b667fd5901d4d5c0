// Package server exposes the local HTTP facade a UI shell consumes: catalog
// search, fetch-through thumbnail delivery, and cache diagnostics. Handlers
// map the cache's error taxonomy onto status codes (FetchError -> 502,
// StorageError -> 500) so the shell can render placeholders instead of
// crashing. Every response carries an X-Request-ID for log correlation.
package server
