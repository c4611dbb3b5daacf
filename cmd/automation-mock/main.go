// The automation mock stands in for the remote Unreal automation endpoint in
// local development.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/forgelabs/gameforge/internal/api"
	"github.com/forgelabs/gameforge/internal/config"
	"github.com/forgelabs/gameforge/internal/logging"
	"github.com/forgelabs/gameforge/internal/mockautomation"
)

func main() {
	cfg, err := config.LoadMock()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup("automation-mock", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := api.NewServer(cfg.Addr(), mockautomation.New().Router())
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("automation mock exited")
	}
	log.Info().Msg("automation mock stopped")
}
