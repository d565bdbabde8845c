// Package connectors reads external sources into frames: SQL databases
// through a connections.yaml registry, and the video metadata REST API.
//
// The registry implements ingest.SQLSource so templates with
// source_type "sql" resolve their connection by name at read time.
// Passwords never need to live in connections.yaml; a missing password
// falls back to the <NAME>_PASSWORD environment variable.
package connectors
