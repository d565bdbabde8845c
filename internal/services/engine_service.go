package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"tabcli/internal/connectors"
	"tabcli/internal/headers"
	"tabcli/internal/ingest"
	"tabcli/internal/pipeline"
	"tabcli/internal/schema"
	"tabcli/internal/template"
)

// ErrBusy means another interactive job holds the engine.
var ErrBusy = errors.New("engine is busy with another job")

// previewScanRows caps how much of a source the header guesser sees.
const previewScanRows = 200

// EngineService exposes the pipeline interactively: source preview with
// schema candidates, single-source processing, and synonym learning.
// One job at a time; overlapping requests fail fast with ErrBusy.
type EngineService struct {
	reader       *ingest.Reader
	runner       *pipeline.Runner
	registry     *connectors.Registry
	busy         *semaphore.Weighted
	log          *slog.Logger
	schemaConfig string
	previewRows  int
}

// NewEngineService wires the engine. The registry may be nil when no SQL
// connections are configured; schemaConfig points at the synonym config
// file and may be empty.
func NewEngineService(reader *ingest.Reader, runner *pipeline.Runner,
	registry *connectors.Registry, schemaConfig string, previewRows int,
	log *slog.Logger) *EngineService {

	if log == nil {
		log = slog.Default()
	}
	if previewRows < 1 {
		previewRows = 20
	}
	return &EngineService{
		reader:       reader,
		runner:       runner,
		registry:     registry,
		busy:         semaphore.NewWeighted(1),
		log:          log,
		schemaConfig: schemaConfig,
		previewRows:  previewRows,
	}
}

// PreviewRequest selects what to inspect. HeaderRow -1 asks the engine
// to guess.
type PreviewRequest struct {
	Path      string `json:"path"`
	Sheet     string `json:"sheet,omitempty"`
	HeaderRow int    `json:"header_row"`
	Skiprows  []int  `json:"skiprows,omitempty"`
	DataType  string `json:"data_type,omitempty"`
}

// PreviewResult carries the normalized view of a source plus mapping
// suggestions.
type PreviewResult struct {
	Sheets           []string           `json:"sheets,omitempty"`
	GuessedHeaderRow int                `json:"guessed_header_row"`
	HeaderRow        int                `json:"header_row"`
	Headers          []string           `json:"headers"`
	Rows             [][]string         `json:"rows"`
	Mapping          map[string]string  `json:"mapping"`
	Candidates       []schema.Candidate `json:"candidates"`
}

// Preview reads the head of a source, guesses its header row when asked,
// auto-maps the headers against the target schema, and ranks layout
// candidates.
func (s *EngineService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	if !s.busy.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.busy.Release(1)

	raw, sheets, err := s.reader.ReadRaw(req.Path, req.Sheet, previewScanRows)
	if err != nil {
		return nil, err
	}
	guessed := headers.GuessHeaderRow(raw)

	headerRow := req.HeaderRow
	if headerRow < 0 {
		headerRow = guessed
	}

	tpl := template.New()
	tpl.Sheet = req.Sheet
	tpl.HeaderRow = headerRow
	tpl.Skiprows = req.Skiprows
	f, _, err := s.reader.Read(ctx, req.Path, tpl)
	if err != nil {
		return nil, err
	}

	sch, err := schema.Load("", s.schemaConfig)
	if err != nil {
		s.log.Warn("target schema load failed, using defaults", slog.String("error", err.Error()))
		sch = schema.Default()
	}

	hdrs := f.Columns()
	result := &PreviewResult{
		Sheets:           sheets,
		GuessedHeaderRow: guessed,
		HeaderRow:        headerRow,
		Headers:          hdrs,
		Mapping:          schema.AutoMap(hdrs, sch),
		Candidates:       schema.BuildCandidates(f, hdrs, req.DataType, sch.FieldNames()),
	}
	records := f.Records()
	if len(records) > s.previewRows {
		records = records[:s.previewRows]
	}
	result.Rows = records
	return result, nil
}

// ProcessRequest runs one source end to end.
type ProcessRequest struct {
	Source        string `json:"source"`
	OutputDir     string `json:"output_dir"`
	QuarantineDir string `json:"quarantine_dir,omitempty"`
	Options       pipeline.Options
}

// ProcessResult is the high-level outcome of one run.
type ProcessResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	OutputPath string `json:"output_path,omitempty"`
}

// Process locates the source's template and runs the pipeline on it.
func (s *EngineService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if !s.busy.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.busy.Release(1)

	tpl, err := template.LoadFor(req.Source)
	if err != nil {
		return nil, err
	}

	format := req.Options.OutputFormat
	if format == "" {
		format = "xlsx"
	}
	stem := strings.TrimSuffix(filepath.Base(req.Source), filepath.Ext(req.Source))
	outputPath := filepath.Join(req.OutputDir, fmt.Sprintf("%s_clean.%s", stem, strings.ToLower(format)))

	if s.runner.Run(ctx, req.Source, tpl, outputPath, req.QuarantineDir, req.Options) {
		return &ProcessResult{
			Success:    true,
			Message:    "processed " + filepath.Base(req.Source),
			OutputPath: outputPath,
		}, nil
	}
	return &ProcessResult{
		Success: false,
		Message: "processing failed, see quarantine for details",
	}, nil
}

// Learn persists confirmed header-to-field pairs into the user synonym
// overlay and returns how many were new.
func (s *EngineService) Learn(mapping map[string]string) (int, string, error) {
	return schema.LearnSynonyms(mapping, s.schemaConfig)
}

// TestConnection checks a named SQL connection.
func (s *EngineService) TestConnection(ctx context.Context, name string) (string, error) {
	if s.registry == nil {
		return "", errors.New("no SQL connections configured")
	}
	return s.registry.TestConnection(ctx, name)
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// Health reports liveness.
func (s *EngineService) Health(version string) HealthStatus {
	return HealthStatus{Status: "ok", Version: version, Time: time.Now().UTC()}
}
