package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/forgelabs/gameforge/internal/automation"
	"github.com/forgelabs/gameforge/internal/game"
	"github.com/forgelabs/gameforge/internal/jobqueue"
	"github.com/forgelabs/gameforge/internal/scriptgen"
	"github.com/forgelabs/gameforge/internal/store"
)

var errTooManyRequests = errors.New("too many requests")

// Handler bundles the gateway's HTTP endpoints.
type Handler struct {
	store     store.Store
	generator scriptgen.Generator
	builder   automation.Builder
	queue     *jobqueue.Queue
	metrics   *Metrics
}

// HandlerConfig wires handler dependencies.
type HandlerConfig struct {
	Store     store.Store
	Generator scriptgen.Generator
	Builder   automation.Builder
	Queue     *jobqueue.Queue
	Metrics   *Metrics
	// Registry serves /metrics; defaults to the default registry.
	Registry *prometheus.Registry
}

// NewRouter returns the gateway router with all middleware applied.
func NewRouter(cfg HandlerConfig) *mux.Router {
	h := &Handler{
		store:     cfg.Store,
		generator: cfg.Generator,
		builder:   cfg.Builder,
		queue:     cfg.Queue,
		metrics:   cfg.Metrics,
	}

	r := mux.NewRouter()
	r.Use(RequestLogging())
	r.Use(CORS())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}

	r.HandleFunc("/game", h.createGame).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games", h.listGames).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}", h.getGame).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}", h.deleteGame).Methods(http.MethodDelete)
	r.HandleFunc("/builds", h.createBuild).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/builds/{id}", h.getBuild).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	var metricsHandler http.Handler = promhttp.Handler()
	if cfg.Registry != nil {
		metricsHandler = promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
	}
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	return r
}

// createGame runs the full pipeline: prompt -> script -> automation build ->
// persisted record -> artifact URLs. A request may also carry a prepared
// game_script, skipping generation.
func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
		Title  string `json:"title"`
		Script string `json:"game_script"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	prompt := strings.TrimSpace(payload.Prompt)
	script := strings.TrimSpace(payload.Script)
	if prompt == "" && script == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("prompt or game_script is required"))
		return
	}

	ctx := r.Context()

	if script == "" {
		var err error
		script, err = h.generator.GenerateScript(ctx, prompt)
		if err != nil {
			h.recordOutcome("generation_failed")
			writeError(w, http.StatusBadGateway, fmt.Errorf("script generation failed: %w", err))
			return
		}
	}

	title := payload.Title
	if title == "" {
		title = titleFromScript(script)
	}

	g := game.New(title, prompt)
	g.Script = script
	g, err := h.store.Create(ctx, g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	result, err := h.builder.Build(ctx, script)
	if err != nil {
		g.Status = game.StatusFailed
		g.Error = err.Error()
		if _, uerr := h.store.UpdateResult(ctx, g); uerr != nil {
			log.Error().Str("game_id", g.ID).Err(uerr).Msg("record failed build")
		}
		h.recordOutcome("build_failed")

		var berr *automation.BuildError
		details := err.Error()
		if errors.As(err, &berr) {
			details = berr.Details
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "Unreal build failed",
			"details": details,
			"game_id": g.ID,
		})
		return
	}

	g.Status = game.StatusBuilt
	g.WebGLURL = result.WebGLURL
	g.APKURL = result.APKURL
	if g, err = h.store.UpdateResult(ctx, g); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.recordOutcome("built")

	writeJSON(w, http.StatusOK, map[string]string{
		"message":           "Game built successfully!",
		"game_id":           g.ID,
		"webgl_preview_url": g.WebGLURL,
		"apk_download_url":  g.APKURL,
	})
}

func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) deleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createBuild enqueues a local engine build job for the worker process.
func (h *Handler) createBuild(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("build queue is not configured"))
		return
	}

	var payload struct {
		RepoURL string `json:"repo_url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.RepoURL) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("repo_url is required"))
		return
	}

	job := game.NewBuildJob(payload.RepoURL)
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

func (h *Handler) getBuild(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("build queue is not configured"))
		return
	}

	job, err := h.queue.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobqueue.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) recordOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordBuild(outcome)
	}
}

// titleFromScript derives a short title from the first line of a script.
func titleFromScript(script string) string {
	line := script
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "Title:"))
	if runes := []rune(line); len(runes) > 60 {
		line = string(runes[:60])
	}
	if line == "" {
		return "untitled"
	}
	return line
}

func decodeJSON(body io.Reader, target interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
