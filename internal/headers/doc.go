// Package headers locates and normalizes worksheet header rows. It guesses
// the header row from an untyped preview, expands merged regions into
// per-column labels, and caches normalization results per file revision so
// repeated preview and process calls do not reopen workbooks.
package headers
