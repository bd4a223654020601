package cmd

import (
	"context"
	"time"
	"wisecal/internal/config"
	"wisecal/internal/exporter"
	"wisecal/internal/metrics"
	"wisecal/internal/web"

	"github.com/rs/zerolog/log"
)

func syncCmd(ctx context.Context) func() {
	provider, err := metrics.SetupPrometheusExporter()
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up metrics")
	}
	src, pageURL := source()
	useCase := newUseCase(ctx, wiring{
		source:    src,
		pageURL:   pageURL,
		calendar:  exporter.NewCalDAV(),
		notifying: true,
	})
	srv := web.New(config.Gist().String(config.HTTP_LISTEN), useCase.Status, useCase)
	srv.Start()
	useCase.TaskSync(config.Gist().String(config.SYNC_CRON))
	useCase.Trigger()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping status server")
		}
		if err := metrics.Shutdown(shutdownCtx, provider); err != nil {
			log.Error().Err(err).Msg("error stopping metrics")
		}
		useCase.Stop()
	}
}
