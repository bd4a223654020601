package cmd

import (
	"context"
	"os"
	"wisecal/internal/exporter"
	"wisecal/internal/importer"

	"github.com/rs/zerolog/log"
)

// noopCmd runs one pass against no-op endpoints with throwaway state.
func noopCmd(ctx context.Context) func() {
	dir, err := os.MkdirTemp("", "wisecal-noop-*")
	if err != nil {
		log.Fatal().Err(err).Msg("error creating noop state dir")
	}
	defer os.RemoveAll(dir)

	useCase := newUseCase(ctx, noopWiring(dir))
	if err := useCase.SyncOnce(ctx); err != nil {
		log.Error().Err(err).Msg("noop pass failed")
	}
	return nil
}

func noopWiring(stateDir string) wiring {
	return wiring{
		source:   &importer.Noop{},
		calendar: &exporter.Noop{},
		stateDir: stateDir,
		dry:      true,
	}
}
