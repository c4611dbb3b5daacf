package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/forgelabs/gameforge/internal/automation"
	"github.com/forgelabs/gameforge/internal/game"
	"github.com/forgelabs/gameforge/internal/jobqueue"
	"github.com/forgelabs/gameforge/internal/store"
)

type fakeGenerator struct {
	script    string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) GenerateScript(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.script, f.err
}

type fakeBuilder struct {
	result    automation.BuildResult
	err       error
	gotScript string
}

func (f *fakeBuilder) Build(_ context.Context, script string) (automation.BuildResult, error) {
	f.gotScript = script
	return f.result, f.err
}

type fixture struct {
	router    http.Handler
	store     *store.Memory
	generator *fakeGenerator
	builder   *fakeBuilder
	queue     *jobqueue.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	gen := &fakeGenerator{script: "Title: Sky Runner\nCore loop: run and jump."}
	builder := &fakeBuilder{result: automation.BuildResult{
		WebGLURL: "https://host/preview/sky_runner",
		APKURL:   "https://cdn/sky_runner.apk",
	}}
	q, err := jobqueue.Open(t.TempDir())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	router := NewRouter(HandlerConfig{
		Store:     mem,
		Generator: gen,
		Builder:   builder,
		Queue:     q,
		Metrics:   NewMetrics(reg),
		Registry:  reg,
	})
	return &fixture{router: router, store: mem, generator: gen, builder: builder, queue: q}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateGamePipeline(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/game", map[string]string{
		"prompt": "an endless runner in the clouds",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Game built successfully!", resp["message"])
	require.Equal(t, "https://host/preview/sky_runner", resp["webgl_preview_url"])
	require.Equal(t, "https://cdn/sky_runner.apk", resp["apk_download_url"])
	require.NotEmpty(t, resp["game_id"])

	require.Equal(t, "an endless runner in the clouds", f.generator.gotPrompt)
	require.Equal(t, f.generator.script, f.builder.gotScript)

	g, err := f.store.Get(context.Background(), resp["game_id"])
	require.NoError(t, err)
	require.Equal(t, game.StatusBuilt, g.Status)
	require.Equal(t, "Sky Runner", g.Title)
}

func TestCreateGameWithPreparedScript(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errors.New("generator must not be called")

	rec := doJSON(t, f.router, http.MethodPost, "/game", map[string]string{
		"game_script": "Title: Prebuilt\nA ready script.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Title: Prebuilt\nA ready script.", f.builder.gotScript)
}

func TestCreateGameRequiresPrompt(t *testing.T) {
	f := newFixture(t)
	rec := doJSON(t, f.router, http.MethodPost, "/game", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateGameAutomationFailureIsPersisted(t *testing.T) {
	f := newFixture(t)
	f.builder.err = &automation.BuildError{StatusCode: 500, Details: "engine crashed"}

	rec := doJSON(t, f.router, http.MethodPost, "/game", map[string]string{"prompt": "x"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Unreal build failed", resp["error"])
	require.Equal(t, "engine crashed", resp["details"])

	g, err := f.store.Get(context.Background(), resp["game_id"])
	require.NoError(t, err)
	require.Equal(t, game.StatusFailed, g.Status)
	require.Contains(t, g.Error, "engine crashed")
}

func TestCreateGameGeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errors.New("quota exhausted")

	rec := doJSON(t, f.router, http.MethodPost, "/game", map[string]string{"prompt": "x"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGameResources(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/game", map[string]string{"prompt": "p"})
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["game_id"]

	rec = doJSON(t, f.router, http.MethodGet, "/games", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int         `json:"count"`
		Games []game.Game `json:"games"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)

	rec = doJSON(t, f.router, http.MethodGet, "/games/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, f.router, http.MethodDelete, "/games/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, f.router, http.MethodGet, "/games/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/builds", map[string]string{
		"repo_url": "https://example.com/game.git",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "queued", created["status"])
	require.NotEmpty(t, created["job_id"])

	rec = doJSON(t, f.router, http.MethodGet, "/builds/"+created["job_id"], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job game.BuildJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.Equal(t, game.JobQueued, job.Status)

	rec = doJSON(t, f.router, http.MethodGet, "/builds/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, f.router, http.MethodPost, "/builds", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTitleFromScriptTruncatesOnRuneBoundary(t *testing.T) {
	title := titleFromScript(strings.Repeat("é", 70))
	require.True(t, utf8.ValidString(title))
	require.Equal(t, strings.Repeat("é", 60), title)

	require.Equal(t, "Sky Runner", titleFromScript("Title: Sky Runner\nCore loop."))
	require.Equal(t, "untitled", titleFromScript("   \nsecond line"))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := doJSON(t, f.router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	doJSON(t, f.router, http.MethodPost, "/game", map[string]string{"prompt": "p"})

	rec := doJSON(t, f.router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gateway_http_requests_total")
	require.Contains(t, rec.Body.String(), "gateway_game_builds_total")
}
