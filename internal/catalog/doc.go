// Package catalog implements the remote image catalog search client. It
// speaks a wallhaven-style JSON API and reduces each result to what the rest
// of the system needs: a stable id, a thumbnail URL for the cache, and a
// full-resolution URL for downloads.
package catalog
