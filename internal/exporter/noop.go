package exporter

import (
	"context"
	"wisecal/internal/render"

	"github.com/rs/zerolog/log"
)

var _ Calendar = (*Noop)(nil)

type Noop struct{}

func (e *Noop) CreateContainer(_ context.Context, owner, _ string) (string, error) {
	log.Info().Str("owner", owner).Msg("noop exporter create calendar call")
	return "noop-" + owner, nil
}

func (e *Noop) UpsertEvents(_ context.Context, _ string, events []render.Event) []ItemResult {
	log.Info().Int("events", len(events)).Msg("noop exporter insert events call")
	out := make([]ItemResult, 0, len(events))
	for _, ev := range events {
		out = append(out, OK(ev.ID))
	}
	return out
}

func (e *Noop) DeleteEvents(_ context.Context, _ string, ids []string) []ItemResult {
	log.Info().Int("events", len(ids)).Msg("noop exporter delete events call")
	out := make([]ItemResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, OK(id))
	}
	return out
}

func (e *Noop) ContainerExists(_ context.Context, _ string) (bool, error) {
	return true, nil
}
