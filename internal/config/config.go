// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Gateway holds configuration for the HTTP gateway process.
type Gateway struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8000"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-1.5-flash"`

	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_KEY"`

	AutomationURL     string        `env:"UNREAL_AUTOMATION_URL"`
	AutomationTimeout time.Duration `env:"UNREAL_AUTOMATION_TIMEOUT,default=120s"`

	JobsDir string `env:"JOBS_DIR,default=/app/jobs"`

	RateLimitPerSecond int `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST,default=40"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Worker holds configuration for the build worker process.
type Worker struct {
	JobsDir      string        `env:"JOBS_DIR,default=/app/jobs"`
	BuildDir     string        `env:"BUILD_DIR,default=/app/builds"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=4s"`

	// StaleAfter is how long a job may sit in "building" before the
	// maintenance sweep requeues it.
	StaleAfter time.Duration `env:"STALE_AFTER,default=30m"`

	Engine Engine

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Engine holds engine binary configuration shared by the worker and the
// provisioning command.
type Engine struct {
	Bin      string `env:"GODOT_BIN,default=/usr/local/bin/godot"`
	Versions string `env:"GODOT_VERSIONS,default=4.3-stable,4.2.2-stable,4.1.3-stable"`
	BaseURL  string `env:"GODOT_BASE_URL,default=https://github.com/godotengine/godot/releases/download"`
}

// Mock holds configuration for the automation mock server.
type Mock struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// LoadGateway reads gateway configuration, honouring a local .env file when
// present.
func LoadGateway() (*Gateway, error) {
	loadDotenv()
	var cfg Gateway
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode gateway config: %w", err)
	}
	return &cfg, nil
}

// LoadWorker reads worker configuration.
func LoadWorker() (*Worker, error) {
	loadDotenv()
	var cfg Worker
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode worker config: %w", err)
	}
	if err := envdecode.Decode(&cfg.Engine); err != nil {
		return nil, fmt.Errorf("decode engine config: %w", err)
	}
	return &cfg, nil
}

// LoadMock reads automation mock configuration.
func LoadMock() (*Mock, error) {
	loadDotenv()
	var cfg Mock
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode mock config: %w", err)
	}
	return &cfg, nil
}

// LoadEngine reads engine configuration for the provisioning command.
func LoadEngine() (*Engine, error) {
	loadDotenv()
	var cfg Engine
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode engine config: %w", err)
	}
	return &cfg, nil
}

// VersionList splits the configured version string into candidates, first to
// last in fallback order.
func (e Engine) VersionList() []string {
	var out []string
	for _, v := range strings.Split(e.Versions, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Addr returns the listen address for the gateway.
func (g *Gateway) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// Addr returns the listen address for the mock server.
func (m *Mock) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

func loadDotenv() {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()
}
