package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Field is one canonical output field with the header spellings that map
// to it. Field order matters: auto-mapping is greedy and walks fields in
// declaration order.
type Field struct {
	Name     string
	Synonyms []string
}

// Schema is the ordered set of target fields.
type Schema struct {
	fields []Field
}

// Default returns the built-in target schema used when no configuration
// provides one.
func Default() *Schema {
	return &Schema{fields: []Field{
		{Name: "provider_id", Synonyms: []string{"provider", "vendor", "supplier", "source", "partner"}},
		{Name: "article_sku", Synonyms: []string{"sku", "item", "material", "product"}},
		{Name: "report_date", Synonyms: []string{"date", "period", "month", "time", "year"}},
		{Name: "sales_qty", Synonyms: []string{"qty", "quantity", "units", "volume"}},
		{Name: "sales_amount", Synonyms: []string{"amount", "total", "revenue", "sales", "net", "gross"}},
		{Name: "order_id", Synonyms: []string{"order", "po number", "reference"}},
		{Name: "region", Synonyms: []string{"region", "area", "location"}},
		{Name: "unit_price", Synonyms: []string{"unit_price", "price", "unit cost", "rate"}},
	}}
}

// Fields returns the ordered fields.
func (s *Schema) Fields() []Field { return s.fields }

// FieldNames returns the canonical names in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Synonyms returns the synonym list for a field, or nil when unknown.
func (s *Schema) Synonyms(name string) []string {
	for _, f := range s.fields {
		if f.Name == name {
			return f.Synonyms
		}
	}
	return nil
}

// UserOverridePath places learned synonyms next to the base config as
// `<stem>.user.<ext>` so the base file is never rewritten.
func UserOverridePath(configPath string) string {
	ext := filepath.Ext(configPath)
	stem := strings.TrimSuffix(filepath.Base(configPath), ext)
	return filepath.Join(filepath.Dir(configPath), stem+".user"+ext)
}

// Load resolves the target schema. An explicit schema file wins, then the
// config file's synonyms (base merged with its user overlay), then the
// built-in defaults. Field order follows the source document.
func Load(schemaPath, configPath string) (*Schema, error) {
	if schemaPath != "" {
		if s, err := loadDocument(schemaPath); err == nil && len(s.fields) > 0 {
			return s, nil
		} else if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	if configPath != "" {
		merged, err := loadConfigSynonyms(configPath)
		if err != nil {
			return nil, err
		}
		if len(merged.fields) > 0 {
			return merged, nil
		}
	}
	return Default(), nil
}

// loadDocument parses a {field: [synonyms]} mapping, preserving key order.
// YAML being a JSON superset, the same path handles both schema.json and
// schema.yaml documents.
func loadDocument(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSynonymMap(data, path)
}

func parseSynonymMap(data []byte, source string) (*Schema, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", source, err)
	}
	s := &Schema{}
	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok {
			continue
		}
		values, ok := item.Value.([]interface{})
		if !ok {
			continue
		}
		syns := make([]string, 0, len(values))
		for _, v := range values {
			if v != nil {
				syns = append(syns, fmt.Sprintf("%v", v))
			}
		}
		s.fields = append(s.fields, Field{Name: name, Synonyms: syns})
	}
	return s, nil
}

// loadConfigSynonyms reads the `synonyms:` section of the config file and
// merges the user overlay on top, appending overlay spellings that the
// base does not already carry (case-insensitive).
func loadConfigSynonyms(configPath string) (*Schema, error) {
	base, err := readConfigSection(configPath)
	if err != nil {
		return nil, err
	}
	overlay, err := readConfigSection(UserOverridePath(configPath))
	if err != nil {
		return nil, err
	}
	return mergeSchemas(base, overlay), nil
}

func readConfigSection(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Schema{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var doc struct {
		Synonyms yaml.MapSlice `yaml:"synonyms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	raw, err := yaml.Marshal(doc.Synonyms)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return parseSynonymMap(raw, path)
}

func mergeSchemas(base, overlay *Schema) *Schema {
	merged := &Schema{fields: make([]Field, 0, len(base.fields))}
	for _, f := range base.fields {
		merged.fields = append(merged.fields, Field{Name: f.Name, Synonyms: append([]string{}, f.Synonyms...)})
	}
	for _, of := range overlay.fields {
		idx := -1
		for i, f := range merged.fields {
			if f.Name == of.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			merged.fields = append(merged.fields, Field{Name: of.Name, Synonyms: append([]string{}, of.Synonyms...)})
			continue
		}
		seen := make(map[string]bool, len(merged.fields[idx].Synonyms))
		for _, s := range merged.fields[idx].Synonyms {
			seen[strings.ToLower(s)] = true
		}
		for _, s := range of.Synonyms {
			if !seen[strings.ToLower(s)] {
				merged.fields[idx].Synonyms = append(merged.fields[idx].Synonyms, s)
				seen[strings.ToLower(s)] = true
			}
		}
	}
	return merged
}

// LearnSynonyms records header spellings from a confirmed mapping into the
// config's user overlay so future auto-mapping recognizes them. Spellings
// already known to the merged schema are skipped case-insensitively. It
// returns the number of synonyms added and the overlay path. The base
// config file is never modified.
func LearnSynonyms(mapping map[string]string, configPath string) (int, string, error) {
	userPath := UserOverridePath(configPath)
	if len(mapping) == 0 {
		return 0, userPath, nil
	}

	known, err := loadConfigSynonyms(configPath)
	if err != nil {
		return 0, userPath, err
	}
	knownLower := make(map[string]map[string]bool, len(known.fields))
	for _, f := range known.fields {
		set := make(map[string]bool, len(f.Synonyms))
		for _, s := range f.Synonyms {
			set[strings.ToLower(s)] = true
		}
		knownLower[f.Name] = set
	}

	headers := make([]string, 0, len(mapping))
	for h := range mapping {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	additions := &Schema{}
	added := 0
	for _, header := range headers {
		canonical := strings.TrimSpace(mapping[header])
		headerText := strings.TrimSpace(header)
		if canonical == "" || headerText == "" {
			continue
		}
		set := knownLower[canonical]
		if set == nil {
			set = make(map[string]bool)
			knownLower[canonical] = set
		}
		if set[strings.ToLower(headerText)] {
			continue
		}
		set[strings.ToLower(headerText)] = true
		appendSynonym(additions, canonical, headerText)
		added++
	}
	if added == 0 {
		return 0, userPath, nil
	}

	existing, err := readConfigSection(userPath)
	if err != nil {
		return 0, userPath, err
	}
	merged := mergeSchemas(existing, additions)

	if err := os.MkdirAll(filepath.Dir(userPath), 0o755); err != nil {
		return 0, userPath, fmt.Errorf("create overlay dir: %w", err)
	}
	out := yaml.MapSlice{}
	syn := yaml.MapSlice{}
	for _, f := range merged.fields {
		syn = append(syn, yaml.MapItem{Key: f.Name, Value: f.Synonyms})
	}
	out = append(out, yaml.MapItem{Key: "synonyms", Value: syn})
	data, err := yaml.Marshal(out)
	if err != nil {
		return 0, userPath, fmt.Errorf("encode overlay: %w", err)
	}
	if err := os.WriteFile(userPath, data, 0o644); err != nil {
		return 0, userPath, fmt.Errorf("write overlay %s: %w", userPath, err)
	}
	return added, userPath, nil
}

func appendSynonym(s *Schema, field, synonym string) {
	for i := range s.fields {
		if s.fields[i].Name == field {
			s.fields[i].Synonyms = append(s.fields[i].Synonyms, synonym)
			return
		}
	}
	s.fields = append(s.fields, Field{Name: field, Synonyms: []string{synonym}})
}
