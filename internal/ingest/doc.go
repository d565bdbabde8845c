// Package ingest turns template-described sources into frames. It
// dispatches on the template's source type: workbook sheets through the
// header normalizer, delimited text with configurable separator and
// encoding, and SQL sources through an injected connection registry.
package ingest
