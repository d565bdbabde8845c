package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcli/internal/headers"
	"tabcli/internal/ingest"
	"tabcli/internal/pipeline"
	"tabcli/internal/services"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := ingest.NewReader(headers.NewNormalizer(headers.DefaultCacheSize, log), nil, log)
	runner := pipeline.NewRunner(reader, log, nil)
	svc := services.NewEngineService(reader, runner, nil, "", 5, log)

	srv := httptest.NewServer(NewRouter(NewEngineHandler(svc, "1.2.3", log), nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health services.HealthStatus
	decodeBody(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
}

func TestPreviewEndpoint(t *testing.T) {
	srv := testServer(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(source, []byte(strings.Join([]string{
		"Product Name,Sales Amount",
		"Widget,10",
	}, "\n")), 0o644))

	resp := postJSON(t, srv.URL+"/api/v1/preview", services.PreviewRequest{
		Path: source, HeaderRow: -1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.PreviewResult
	decodeBody(t, resp, &result)
	assert.Equal(t, []string{"Product Name", "Sales Amount"}, result.Headers)
	assert.Equal(t, "article_sku", result.Mapping["Product Name"])
	assert.NotEmpty(t, result.Candidates)
}

func TestPreviewRequiresPath(t *testing.T) {
	srv := testServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/preview", services.PreviewRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr APIError
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "MISSING_PARAMETER", apiErr.ErrorCode)
}

func TestProcessEndpointMissingTemplate(t *testing.T) {
	srv := testServer(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "orphan.csv")
	require.NoError(t, os.WriteFile(source, []byte("A,B\n1,2\n"), 0o644))

	resp := postJSON(t, srv.URL+"/api/v1/process", services.ProcessRequest{
		Source: source, OutputDir: dir,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr APIError
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.ErrorCode)
}

func TestLearnEndpoint(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := ingest.NewReader(headers.NewNormalizer(headers.DefaultCacheSize, log), nil, log)
	runner := pipeline.NewRunner(reader, log, nil)
	cfg := filepath.Join(t.TempDir(), "schema.yaml")
	svc := services.NewEngineService(reader, runner, nil, cfg, 5, log)
	srv := httptest.NewServer(NewRouter(NewEngineHandler(svc, "test", log), nil))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/v1/synonyms", map[string]string{
		"Artikelnummer": "article_sku",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Added int    `json:"added"`
		Path  string `json:"path"`
	}
	decodeBody(t, resp, &result)
	assert.Equal(t, 1, result.Added)
	assert.FileExists(t, result.Path)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidJSONBody(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Post(srv.URL+"/api/v1/preview", "application/json",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
