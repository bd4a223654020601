package cmd

import (
	"context"
	"wisecal/internal/exporter"

	"github.com/rs/zerolog/log"
)

func onceCmd(ctx context.Context) func() {
	src, pageURL := source()
	useCase := newUseCase(ctx, wiring{
		source:    src,
		pageURL:   pageURL,
		calendar:  exporter.NewCalDAV(),
		notifying: true,
	})
	if err := useCase.SyncOnce(ctx); err != nil {
		log.Error().Err(err).Msg("sync pass failed")
	}
	st := useCase.Status.View()
	log.Info().Time("last_check", st.LastCheck).Time("last_update", st.LastUpdate).Msg("sync pass finished")
	return nil
}
