package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"tabcli/internal/frame"
	"tabcli/internal/template"
)

func (r *Reader) readCSV(path string, tpl *template.Template) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var src io.Reader = file
	enc, err := resolveEncoding(tpl.Encoding)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if enc != nil {
		src = transform.NewReader(file, enc.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	if tpl.Delimiter != "" {
		reader.Comma = []rune(tpl.Delimiter)[0]
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	hdr, data := splitRows(rows, tpl.HeaderRow, tpl.Skiprows)
	if hdr == nil {
		return frame.New(nil, nil), nil
	}
	f := frame.New(hdr, data)
	return FilterAndRename(f, tpl), nil
}

// resolveEncoding maps template encoding names onto decoders. UTF-8 needs
// none; a UTF-8 byte-order mark is tolerated by the csv reader upstream.
func resolveEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "cp850":
		return charmap.CodePage850, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
