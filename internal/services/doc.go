// Package services holds the engine service behind the HTTP transport.
// It wraps the ingest reader, schema mapping, and the pipeline runner
// for interactive use, with a single-slot busy flag so only one
// expensive preview or processing job runs at a time.
package services
