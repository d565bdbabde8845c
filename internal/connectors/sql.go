package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tabcli/internal/frame"
	"tabcli/internal/template"
)

// Registry resolves template connection names against connections.yaml
// and runs their queries. It implements ingest.SQLSource.
type Registry struct {
	path string
	log  *slog.Logger
	open func(dsn string) (*sql.DB, error)
}

// NewRegistry builds a registry over the given connections file. An
// empty path means the default location.
func NewRegistry(path string, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		path: path,
		log:  log,
		open: func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) },
	}
}

// ReadTemplate runs the template's query, or a full-table select when
// only sql_table is set, and returns the result as a frame.
func (r *Registry) ReadTemplate(ctx context.Context, tpl *template.Template) (*frame.Frame, error) {
	query, err := templateQuery(tpl)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, tpl.ConnectionName, query)
}

// FetchPreview runs a capped query against the named connection for
// interactive inspection. Queries that already carry a limit or fetch
// clause run unchanged.
func (r *Registry) FetchPreview(ctx context.Context, name, table, query string, limit int) (*frame.Frame, error) {
	text, err := previewSQL(table, query, limit)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, name, text)
}

// TestConnection opens the named connection and runs SELECT 1.
func (r *Registry) TestConnection(ctx context.Context, name string) (string, error) {
	db, err := r.connect(name)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		return "", fmt.Errorf("connection %q: %w", name, err)
	}
	return fmt.Sprintf("Connection '%s' OK", name), nil
}

func (r *Registry) connect(name string) (*sql.DB, error) {
	conns, err := LoadConnections(r.path)
	if err != nil {
		return nil, err
	}
	conn, err := findConnection(conns, name)
	if err != nil {
		return nil, err
	}
	dsn, err := conn.dsn()
	if err != nil {
		return nil, err
	}
	return r.open(dsn)
}

func (r *Registry) query(ctx context.Context, name, text string) (*frame.Frame, error) {
	db, err := r.connect(name)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	r.log.Debug("running query", slog.String("connection", name))
	rows, err := db.QueryContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("query on %q: %w", name, err)
	}
	defer rows.Close()
	return rowsToFrame(rows)
}

func templateQuery(tpl *template.Template) (string, error) {
	switch {
	case tpl.SQLQuery != "":
		return tpl.SQLQuery, nil
	case tpl.SQLTable != "":
		return "SELECT * FROM " + tpl.SQLTable, nil
	default:
		return "", fmt.Errorf("template missing sql_table or sql_query")
	}
}

// previewSQL builds the preview statement, appending LIMIT only when the
// query does not already cap its result.
func previewSQL(table, query string, limit int) (string, error) {
	clause := ""
	if limit > 0 {
		clause = fmt.Sprintf(" LIMIT %d", limit)
	}
	switch {
	case query != "":
		low := strings.ToLower(query)
		if strings.Contains(low, "limit ") || strings.Contains(low, "fetch") {
			return query, nil
		}
		return query + "\n" + strings.TrimSpace(clause), nil
	case table != "":
		return "SELECT * FROM " + table + clause, nil
	default:
		return "", fmt.Errorf("provide either a table or a query for SQL preview")
	}
}

// rowsToFrame scans every row into typed cells.
func rowsToFrame(rows *sql.Rows) (*frame.Frame, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var data [][]frame.Value
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]frame.Value, len(cols))
		for i, v := range raw {
			row[i] = cellFromSQL(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return frame.FromValues(cols, data), nil
}

func cellFromSQL(v interface{}) frame.Value {
	switch t := v.(type) {
	case nil:
		return frame.Null()
	case int64:
		return frame.Num(float64(t))
	case float64:
		return frame.Num(t)
	case bool:
		return frame.Bool(t)
	case time.Time:
		return frame.Time(t)
	case []byte:
		return frame.Infer(string(t))
	case string:
		return frame.Infer(t)
	default:
		return frame.Str(fmt.Sprintf("%v", t))
	}
}
