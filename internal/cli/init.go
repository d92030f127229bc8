package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/app"
	"github.com/fpang/veo3-storyboard/internal/config"
)

// InitApp loads configuration and wires the pipeline backends.
// Exits fatally on failure.
func InitApp(ctx context.Context) *app.App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		HandleValidationError(err)
	}

	log.Info().
		Bool("generation", a.Orchestrator.HasGenerator()).
		Str("editor", cfg.Editor).
		Msg("Backends initialized - ready for operations")
	return a
}
