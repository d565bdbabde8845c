// Package files provides source discovery and the file mechanics behind
// outcome routing: copies, moves with cross-device fallback, and archive
// destinations that never overwrite an earlier run.
package files
