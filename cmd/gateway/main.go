// The gateway accepts game prompts, generates scripts, forwards them to the
// build automation endpoint and persists the results.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/forgelabs/gameforge/internal/api"
	"github.com/forgelabs/gameforge/internal/automation"
	"github.com/forgelabs/gameforge/internal/config"
	"github.com/forgelabs/gameforge/internal/jobqueue"
	"github.com/forgelabs/gameforge/internal/logging"
	"github.com/forgelabs/gameforge/internal/scriptgen"
	"github.com/forgelabs/gameforge/internal/store"
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup("gateway", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	generator, err := scriptgen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("init script generator")
	}
	defer generator.Close()

	builder, err := automation.NewClient(cfg.AutomationURL, cfg.AutomationTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("init automation client")
	}

	var gameStore store.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		supa, err := store.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to supabase")
		}
		gameStore = supa
		log.Info().Msg("using supabase game store")
	} else {
		gameStore = store.NewMemory()
		log.Warn().Msg("SUPABASE_URL/SUPABASE_KEY unset, using in-memory game store")
	}

	queue, err := jobqueue.Open(cfg.JobsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open job queue")
	}

	router := api.NewRouter(api.HandlerConfig{
		Store:     gameStore,
		Generator: generator,
		Builder:   builder,
		Queue:     queue,
		Metrics:   api.NewMetrics(nil),
	})
	limiter := api.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	limiter.StartCleanup(ctx, 10*time.Minute, 30*time.Minute)
	router.Use(limiter.Middleware())

	srv := api.NewServer(cfg.Addr(), router)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway exited")
	}
	log.Info().Msg("gateway stopped")
}
