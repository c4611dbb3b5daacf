// The worker builds queued jobs: clone, headless web export, publish.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/forgelabs/gameforge/internal/config"
	"github.com/forgelabs/gameforge/internal/engine"
	"github.com/forgelabs/gameforge/internal/jobqueue"
	"github.com/forgelabs/gameforge/internal/logging"
	"github.com/forgelabs/gameforge/internal/worker"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup("worker", cfg.LogLevel)

	if err := engine.Probe(cfg.Engine.Bin); err != nil {
		log.Fatal().Err(err).Str("bin", cfg.Engine.Bin).Msg("engine binary unusable")
	}

	queue, err := jobqueue.Open(cfg.JobsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open job queue")
	}

	w, err := worker.New(worker.Config{
		Queue:        queue,
		BuildDir:     cfg.BuildDir,
		PollInterval: cfg.PollInterval,
		StaleAfter:   cfg.StaleAfter,
		Exporter:     engine.Headless{Bin: cfg.Engine.Bin},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker exited")
	}
	log.Info().Msg("worker stopped")
}
