package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/phrazzld/vademecum-api/internal/config"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
	"github.com/phrazzld/vademecum-api/internal/mocks"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:                  8080,
			LogLevel:              "debug",
			RequestTimeoutSeconds: 5,
		},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "vademecum.db"),
		},
		LLM: config.LLMConfig{
			GeminiAPIKey:          "test-key",
			ModelName:             "gemini-2.0-flash",
			RequestTimeoutSeconds: 5,
		},
	}
}

// newTestApplication assembles the application over a migrated SQLite file
// and the given generator.
func newTestApplication(t *testing.T, gen generation.Generator) (*application, *backend) {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig(t)
	log, _ := logger.NewTestLogger()

	b, err := openBackend(ctx, cfg.Database, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, migrateBackend(ctx, b, log))

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO codigo_penal (article_number, article_text) VALUES (?, ?)`,
		"121", "Matar alguém: Pena - reclusão, de seis a vinte anos.")
	require.NoError(t, err)

	app, err := assembleApplication(ctx, cfg, log, b, gen)
	require.NoError(t, err)
	return app, b
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	app, _ := newTestApplication(t, mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards()))
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestUnknownRoutesReturnJSONErrors(t *testing.T) {
	app, _ := newTestApplication(t, mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards()))
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "unknown path", method: http.MethodPost, path: "/api/gerar-resumo", status: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/api/generate", status: http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.status, resp.StatusCode)
			var decoded map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
			assert.NotEmpty(t, decoded["error"])
			assert.Equal(t, resp.Header.Get("X-Trace-ID"), decoded["trace_id"])
		})
	}
}

func TestEndToEndCacheOnSQLite(t *testing.T) {
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
	app, b := newTestApplication(t, gen)
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	body := `{"codigo":"cp","numeroArtigo":"121"}`

	status, resp := postJSON(t, srv.URL+"/api/gerar-flashcards", body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, resp["cached"])

	status, resp = postJSON(t, srv.URL+"/api/gerar-flashcards", body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, resp["cached"])
	assert.Len(t, resp["flashcards"], 2)

	assert.Equal(t, 1, gen.Calls())
	require.Len(t, gen.Requests(), 1)
	assert.Equal(t, "Matar alguém: Pena - reclusão, de seis a vinte anos.", gen.Requests()[0].SourceText)
	assert.Equal(t, "Código Penal", gen.Requests()[0].CollectionName)

	var stored string
	require.NoError(t, b.db.QueryRow(
		`SELECT flashcards FROM codigo_penal WHERE article_number = ?`, "121").Scan(&stored))
	assert.Contains(t, stored, "Qual a pena do homicídio simples?")
}

func TestEndToEndTraceHeader(t *testing.T) {
	app, _ := newTestApplication(t, mocks.NewMockGeneratorWithError(generation.ErrRateLimited))
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/generate", "application/json",
		bytes.NewBufferString(`{"tipo":"quiz","codigo":"cp","numeroArtigo":"121"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	traceID := resp.Header.Get("X-Trace-ID")
	require.NotEmpty(t, traceID)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, traceID, decoded["trace_id"])
}

func TestExplainRouteNeverCaches(t *testing.T) {
	gen := &mocks.MockGenerator{Payload: domain.Payload{Text: "O artigo tipifica o homicídio."}}
	app, b := newTestApplication(t, gen)
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	status, resp := postJSON(t, srv.URL+"/api/explain",
		`{"tipo":"explicacao","codigo":"cp","numeroArtigo":"121","content":"Matar alguém."}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "O artigo tipifica o homicídio.", resp["explicacao"])

	var flashcards, quiz, example *string
	require.NoError(t, b.db.QueryRow(
		`SELECT flashcards, quiz, example FROM codigo_penal WHERE article_number = ?`, "121").
		Scan(&flashcards, &quiz, &example))
	assert.Nil(t, flashcards)
	assert.Nil(t, quiz)
	assert.Nil(t, example)
}
