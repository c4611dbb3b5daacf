// provision-engine installs the headless engine binary at image build time,
// falling back across release versions until one downloads and verifies.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/forgelabs/gameforge/internal/config"
	"github.com/forgelabs/gameforge/internal/engine"
	"github.com/forgelabs/gameforge/internal/logging"
)

func main() {
	manifestPath := flag.String("manifest", "", "optional engine.yaml overriding the version list")
	flag.Parse()

	cfg, err := config.LoadEngine()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup("provision-engine", "info")

	if *manifestPath != "" {
		m, err := config.LoadEngineManifest(*manifestPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load engine manifest")
		}
		cfg.ApplyManifest(m)
	}

	p := &engine.Provisioner{
		BaseURL:  cfg.BaseURL,
		Versions: cfg.VersionList(),
		BinPath:  cfg.Bin,
	}

	version, err := p.Install(context.Background())
	if err != nil {
		log.Error().Err(err).Strs("versions", cfg.VersionList()).Msg("engine provisioning failed")
		os.Exit(1)
	}
	log.Info().Str("version", version).Str("bin", cfg.Bin).Msg("engine ready")
}
