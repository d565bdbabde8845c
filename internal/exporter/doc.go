// Package exporter writes cleaned frames to disk: xlsx workbooks, CSV
// with a UTF-8 byte-order mark for spreadsheet compatibility, JSON lines,
// dataset exports with a run manifest, and combination of earlier outputs
// into master reports.
package exporter
