// Package pipeline orchestrates the processing of one source through the
// ingest, transform, validate, and load stages, and routes the outcome:
// archived on success, quarantined with an error log on failure. The batch
// runner applies the same flow to whole input directories, one company
// subdirectory at a time.
package pipeline
