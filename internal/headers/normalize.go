package headers

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
)

// DefaultCacheSize bounds the header cache when no size is configured.
const DefaultCacheSize = 64

// Normalizer resolves worksheet header rows, expanding merged regions, and
// memoizes results per (file, mtime, sheet, header row, skiprows). A file
// edit changes the mtime and so bypasses stale entries.
type Normalizer struct {
	mu    sync.Mutex
	cache *lruCache
	log   *slog.Logger
}

// NewNormalizer returns a normalizer with a bounded result cache.
func NewNormalizer(cacheSize int, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{cache: newLRUCache(cacheSize), log: log}
}

// Headers returns the normalized header labels for a worksheet and whether
// any merged region intersected the header row. Files that cannot be opened
// as a workbook fall back to a single-line delimited read so mislabeled CSV
// sources still yield headers.
func (n *Normalizer) Headers(path, sheet string, headerRow int, skiprows []int) ([]string, bool, error) {
	key := n.key(path, sheet, headerRow, skiprows)

	n.mu.Lock()
	if entry, ok := n.cache.get(key); ok {
		n.mu.Unlock()
		return append([]string{}, entry.headers...), entry.merged, nil
	}
	n.mu.Unlock()

	hdrs, merged, err := normalizeWorkbookHeaders(path, sheet, headerRow, skiprows)
	if err != nil {
		n.log.Debug("workbook header read failed, trying delimited fallback",
			slog.String("path", path), slog.String("error", err.Error()))
		fallback, fallbackErr := readDelimitedHeaderLine(path, headerRow, skiprows)
		if fallbackErr != nil {
			return nil, false, fmt.Errorf("normalize headers %s: %w", path, err)
		}
		hdrs, merged = fallback, false
	}

	n.mu.Lock()
	n.cache.put(&cacheEntry{key: key, headers: append([]string{}, hdrs...), merged: merged})
	n.mu.Unlock()
	return hdrs, merged, nil
}

// Apply rebinds normalized labels onto a frame, keeping original names for
// any columns past the label list.
func Apply(f *frame.Frame, hdrs []string) {
	if len(hdrs) == 0 {
		return
	}
	f.SetColumnNames(hdrs)
}

// CacheLen reports the number of memoized entries, for diagnostics.
func (n *Normalizer) CacheLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cache.len()
}

func (n *Normalizer) key(path, sheet string, headerRow int, skiprows []int) cacheKey {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}
	var mtime int64
	if info, err := os.Stat(resolved); err == nil {
		mtime = info.ModTime().UnixNano()
	}
	parts := make([]string, len(skiprows))
	for i, s := range skiprows {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return cacheKey{
		path:      resolved,
		mtimeUnix: mtime,
		sheet:     sheet,
		headerRow: headerRow,
		skiprows:  strings.Join(parts, ","),
	}
}

// EffectiveHeaderRow translates a zero-based header row plus skipped rows
// into the 1-indexed worksheet row that actually holds the labels.
func EffectiveHeaderRow(headerRow int, skiprows []int) int {
	skippedBefore := 0
	for _, s := range skiprows {
		if s <= headerRow {
			skippedBefore++
		}
	}
	return headerRow + skippedBefore + 1
}

func normalizeWorkbookHeaders(path, sheet string, headerRow int, skiprows []int) ([]string, bool, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheetName := resolveSheet(wb, sheet)
	if sheetName == "" {
		return nil, false, fmt.Errorf("workbook has no sheets")
	}

	targetRow := EffectiveHeaderRow(headerRow, skiprows)
	rows, err := wb.GetRows(sheetName)
	if err != nil {
		return nil, false, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	if targetRow > len(rows) {
		return nil, false, nil
	}
	hdrs := append([]string{}, rows[targetRow-1]...)

	merged := false
	regions, err := wb.GetMergeCells(sheetName)
	if err != nil {
		return nil, false, fmt.Errorf("merge cells %s: %w", sheetName, err)
	}
	for _, region := range regions {
		minCol, minRow, err := excelize.CellNameToCoordinates(region.GetStartAxis())
		if err != nil {
			continue
		}
		maxCol, maxRow, err := excelize.CellNameToCoordinates(region.GetEndAxis())
		if err != nil {
			continue
		}
		if targetRow < minRow || targetRow > maxRow {
			continue
		}
		merged = true

		baseValue := region.GetCellValue()
		base := baseValue
		if base == "" {
			letter, _ := excelize.ColumnNumberToName(minCol)
			base = fmt.Sprintf("merged_%s%d", letter, minRow)
		}
		for col := minCol; col <= maxCol; col++ {
			label := base
			// Synthesized labels spanning several columns get a column
			// suffix so every header stays unique.
			if baseValue == "" && maxCol > minCol {
				letter, _ := excelize.ColumnNumberToName(col)
				label = fmt.Sprintf("%s_%s", base, letter)
			}
			for len(hdrs) < col {
				hdrs = append(hdrs, "")
			}
			hdrs[col-1] = label
		}
	}
	return hdrs, merged, nil
}

func resolveSheet(wb *excelize.File, sheet string) string {
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	if sheet != "" {
		for _, name := range sheets {
			if name == sheet {
				return name
			}
		}
	}
	return sheets[0]
}

// readDelimitedHeaderLine is the fallback for files that are not zip-backed
// workbooks. It reads just enough comma-separated lines to reach the header
// row, honoring skiprows.
func readDelimitedHeaderLine(path string, headerRow int, skiprows []int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	skip := make(map[int]bool, len(skiprows))
	for _, s := range skiprows {
		skip[s] = true
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	logical := 0
	for physical := 0; ; physical++ {
		record, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if skip[physical] {
			continue
		}
		if logical == headerRow {
			return record, nil
		}
		logical++
	}
}
