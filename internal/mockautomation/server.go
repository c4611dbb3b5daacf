// Package mockautomation is a stand-in for the remote Unreal automation
// endpoint, used in local development and integration tests. It accepts build
// requests and serves keyword-driven HTML previews instead of real builds.
package mockautomation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const previewTemplate = `<!DOCTYPE html>
<html>
<head>
<title>%s</title>
<style>
body {
  margin: 0;
  height: 100vh;
  display: flex;
  align-items: center;
  justify-content: center;
  background: linear-gradient(135deg, #1a1a1a, #444);
  color: white;
  font-family: Arial;
}
.shape {
  width: 100px;
  height: 100px;
  background: %s;
  border-radius: %s;
  animation: spin %s linear infinite;
}
@keyframes spin {
  0%% { transform: rotate(0deg); }
  100%% { transform: rotate(360deg); }
}
</style>
</head>
<body>
<div>
  <h2>Game Preview</h2>
  <div class="shape"></div>
  <p>%s</p>
</div>
</body>
</html>
`

var nameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// Server holds generated previews in memory.
type Server struct {
	mu    sync.RWMutex
	games map[string]string
}

// New creates an empty mock server.
func New() *Server {
	return &Server{games: make(map[string]string)}
}

// Router returns the mock's HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/build", s.build).Methods(http.MethodPost)
	r.HandleFunc("/preview/{name}", s.preview).Methods(http.MethodGet)
	r.HandleFunc("/download/{name}", s.download).Methods(http.MethodGet)
	return r
}

// GameName derives a stable preview key from a script.
func GameName(script string) string {
	name := strings.ToLower(strings.TrimSpace(script))
	name = strings.ReplaceAll(name, " ", "_")
	name = nameSanitizer.ReplaceAllString(name, "")
	if len(name) > 25 {
		name = name[:25]
	}
	if name == "" {
		name = "game"
	}
	return name
}

// RenderPreview produces the preview HTML for a script. Script keywords
// drive the visual: blue/red colour, circle shape, fast spin.
func RenderPreview(script string) string {
	low := strings.ToLower(script)

	color := "red"
	if strings.Contains(low, "blue") {
		color = "blue"
	}
	radius := "0"
	if strings.Contains(low, "circle") {
		radius = "50%"
	}
	speed := "3s"
	if strings.Contains(low, "fast") {
		speed = "1s"
	}

	return fmt.Sprintf(previewTemplate, script, color, radius, speed, script)
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Script string `json:"script"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Script) == "" {
		http.Error(w, `{"error":"script is required"}`, http.StatusBadRequest)
		return
	}

	name := GameName(payload.Script)
	html := RenderPreview(payload.Script)

	s.mu.Lock()
	s.games[name] = html
	s.mu.Unlock()

	log.Info().Str("game", name).Msg("mock build stored")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"webgl_url": "/preview/" + name,
		"apk_url":   "/download/" + name + ".apk",
	})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.RLock()
	html, ok := s.games[name]
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<h2>Game not found!</h2>")
		return
	}
	fmt.Fprint(w, html)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message":       fmt.Sprintf("APK for %s generated (placeholder).", name),
		"download_hint": "Real APK build integration pending.",
	})
}
