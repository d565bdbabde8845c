package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// Source type tags accepted by templates.
const (
	SourceExcel = "excel"
	SourceCSV   = "csv"
	SourceSQL   = "sql"
)

// CurrentVersion is written into new templates and assumed when a file
// omits template_version.
const CurrentVersion = 3

// HeaderCell pins one positional header: the label to expect, where it
// sits, and optionally the canonical name it maps to.
type HeaderCell struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	Row    int    `json:"row,omitempty" yaml:"row,omitempty"`
	Alias  string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Target returns the canonical column name this cell renames to.
func (h HeaderCell) Target() string {
	if h.Alias != "" {
		return h.Alias
	}
	return h.Name
}

// Template describes how to read and clean one tabular source. The zero
// value is not usable; build instances through Load or New.
type Template struct {
	// Source location and type.
	SourceType     string `json:"source_type,omitempty" yaml:"source_type,omitempty" validate:"omitempty,oneof=excel csv sql"`
	SourceFile     string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	OutputDir      string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	ProviderName   string `json:"provider_name,omitempty" yaml:"provider_name,omitempty"`
	ConnectionName string `json:"connection_name,omitempty" yaml:"connection_name,omitempty"`
	SQLTable       string `json:"sql_table,omitempty" yaml:"sql_table,omitempty"`
	SQLQuery       string `json:"sql_query,omitempty" yaml:"sql_query,omitempty"`

	// Parsing options.
	Sheet         string   `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Sheets        []string `json:"sheets,omitempty" yaml:"sheets,omitempty"`
	CombineSheets bool     `json:"combine_sheets,omitempty" yaml:"combine_sheets,omitempty"`
	HeaderRow     int      `json:"header_row" yaml:"header_row" validate:"min=0"`
	Skiprows      []int    `json:"skiprows,omitempty" yaml:"skiprows,omitempty"`
	Delimiter     string   `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Encoding      string   `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// Column selection. Priority when deriving the expected header set:
	// Headers, then ColumnMappings, then Columns.
	Columns        []string          `json:"columns,omitempty" yaml:"columns,omitempty"`
	ColumnMappings map[string]string `json:"column_mappings,omitempty" yaml:"column_mappings,omitempty"`
	Headers        []HeaderCell      `json:"headers,omitempty" yaml:"headers,omitempty" validate:"dive"`

	// Reshaping.
	Unpivot   bool     `json:"unpivot,omitempty" yaml:"unpivot,omitempty"`
	IDColumns []string `json:"id_columns,omitempty" yaml:"id_columns,omitempty"`
	VarName   string   `json:"var_name,omitempty" yaml:"var_name,omitempty"`
	ValueName string   `json:"value_name,omitempty" yaml:"value_name,omitempty"`
	CombineOn []string `json:"combine_on,omitempty" yaml:"combine_on,omitempty"`
	DedupeOn  []string `json:"dedupe_on,omitempty" yaml:"dedupe_on,omitempty"`

	// Cleanup flags.
	TrimStrings              *bool    `json:"trim_strings,omitempty" yaml:"trim_strings,omitempty"`
	DropEmptyRows            bool     `json:"drop_empty_rows,omitempty" yaml:"drop_empty_rows,omitempty"`
	DropNullColumnsThreshold *float64 `json:"drop_null_columns_threshold,omitempty" yaml:"drop_null_columns_threshold,omitempty" validate:"omitempty,min=0,max=1"`
	StripThousands           bool     `json:"strip_thousands,omitempty" yaml:"strip_thousands,omitempty"`

	// Contract.
	RequiredFields []string          `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	FieldTypes     map[string]string `json:"field_types,omitempty" yaml:"field_types,omitempty"`

	TemplateVersion int `json:"template_version,omitempty" yaml:"template_version,omitempty" validate:"min=0"`
}

// New returns a template with the standard defaults applied.
func New() *Template {
	t := &Template{}
	t.applyDefaults()
	return t
}

func (t *Template) applyDefaults() {
	if t.SourceType == "" {
		t.SourceType = SourceExcel
	}
	if t.Delimiter == "" {
		t.Delimiter = ","
	}
	if t.Encoding == "" {
		t.Encoding = "utf-8"
	}
	if t.VarName == "" {
		t.VarName = "report_date"
	}
	if t.ValueName == "" {
		t.ValueName = "sales_amount"
	}
	if t.TemplateVersion == 0 {
		t.TemplateVersion = CurrentVersion
	}
}

// ShouldTrimStrings reports the trim_strings flag, which defaults to true
// when the template omits it.
func (t *Template) ShouldTrimStrings() bool {
	return t.TrimStrings == nil || *t.TrimStrings
}

// ExpectedHeaders derives the canonical header set the template expects,
// in priority order: positional headers (alias over name), then mapping
// targets, then the plain column list. Mapping targets are sorted because
// map iteration order is not stable; consumers treat the result as a set.
func (t *Template) ExpectedHeaders() []string {
	if len(t.Headers) > 0 {
		out := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			out[i] = h.Target()
		}
		return out
	}
	if len(t.ColumnMappings) > 0 {
		out := make([]string, 0, len(t.ColumnMappings))
		for _, v := range t.ColumnMappings {
			out = append(out, v)
		}
		sort.Strings(out)
		return out
	}
	if len(t.Columns) > 0 {
		return append([]string{}, t.Columns...)
	}
	return nil
}

// SheetList returns the sheets to read. When combine_sheets is set with an
// explicit list, all of them; otherwise the single configured sheet; an
// empty name means the reader should take the first sheet in the workbook.
func (t *Template) SheetList() []string {
	if t.CombineSheets && len(t.Sheets) > 0 {
		return append([]string{}, t.Sheets...)
	}
	return []string{t.Sheet}
}

var validate = validator.New()

// Validate checks structural constraints after defaults are applied.
func (t *Template) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("template validation: %w", err)
	}
	if t.SourceType == SourceSQL && t.SQLTable == "" && t.SQLQuery == "" {
		return fmt.Errorf("template validation: sql source needs sql_table or sql_query")
	}
	return nil
}

// Load reads a template from a JSON or YAML file, applies defaults, and
// validates it.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	t := &Template{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, t); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(data, t); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("template %s: unsupported extension %q", path, filepath.Ext(path))
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return t, nil
}

// Save writes the template next to its data file, picking the codec from
// the extension.
func (t *Template) Save(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(t, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(t)
	default:
		return fmt.Errorf("template %s: unsupported extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write template %s: %w", path, err)
	}
	return nil
}
