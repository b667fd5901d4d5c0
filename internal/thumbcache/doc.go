// Package thumbcache implements the bounded on-disk thumbnail cache. Each
// entry is a single file named by a key derived from its source URL, written
// atomically (temp file + rename) so readers never observe partial bytes.
// File mtimes double as the LRU clock: refreshed on every hit and stamped on
// every write, then consulted by the eviction sweep that keeps the directory
// under its byte budget. Presence on disk is the index; there is no manifest.
package thumbcache
