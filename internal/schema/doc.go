// Package schema owns the canonical field vocabulary: the ordered target
// schema with its synonym lists, greedy header auto-mapping, learned
// synonym overlays, and the heuristic ranking of header candidates shown
// during interactive mapping.
package schema
