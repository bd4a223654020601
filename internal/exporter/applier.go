package exporter

import (
	"context"
	"wisecal/internal/metrics"
	"wisecal/internal/reconcile"
	"wisecal/internal/render"
	"wisecal/internal/state"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultBatchSize = 50

// Outcome summarizes one Apply call. State is the set that was saved.
type Outcome struct {
	Inserted      int
	Deleted       int
	Failed        int
	ContainerGone bool
	State         reconcile.IDSet
}

func (o Outcome) Changed() bool {
	return o.Inserted > 0 || o.Deleted > 0
}

// Applier executes reconcile plans against a remote calendar and persists only
// confirmed outcomes.
type Applier struct {
	cal     Calendar
	store   state.Store
	batch   int
	metrics *metrics.Sync
}

func NewApplier(cal Calendar, store state.Store, batch int, m *metrics.Sync) *Applier {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Applier{cal: cal, store: store, batch: batch, metrics: m}
}

// Apply runs plan for owner. An empty plan makes no remote calls and saves
// nothing.
func (a *Applier) Apply(ctx context.Context, owner, container string, plan reconcile.Plan, persisted reconcile.IDSet) (Outcome, error) {
	if plan.Empty() {
		return Outcome{State: persisted.Clone()}, nil
	}
	logger := log.With().Str("owner", owner).Logger()

	confirmedInserted := reconcile.NewIDSet()
	confirmedDeleted := reconcile.NewIDSet()
	failed := 0

	for _, chunk := range chunks(plan.Insert, a.batch) {
		ok, bad := 0, 0
		for _, res := range correlate(eventIDs(chunk), a.cal.UpsertEvents(ctx, container, chunk)) {
			if res.Status == StatusOK {
				confirmedInserted.Add(res.ID)
				ok++
				continue
			}
			bad++
			logger.Warn().Err(res.Err).Str("eventID", res.ID).Str("status", res.Status.String()).Msg("error inserting event")
		}
		failed += bad
		a.metrics.Applied(ctx, "insert", ok, bad)
	}

	for _, chunk := range chunks(plan.Delete, a.batch) {
		ok, bad := 0, 0
		for _, res := range correlate(chunk, a.cal.DeleteEvents(ctx, container, chunk)) {
			switch res.Status {
			case StatusOK:
				confirmedDeleted.Add(res.ID)
				ok++
			case StatusNotFound:
				logger.Debug().Str("eventID", res.ID).Msg("event already absent")
				confirmedDeleted.Add(res.ID)
				ok++
			default:
				bad++
				logger.Warn().Err(res.Err).Str("eventID", res.ID).Msg("error deleting event")
			}
		}
		failed += bad
		a.metrics.Applied(ctx, "delete", ok, bad)
	}

	next := persisted.Clone()
	for id := range confirmedInserted {
		next.Add(id)
	}
	for id := range confirmedDeleted {
		delete(next, id)
	}
	out := Outcome{
		Inserted: len(confirmedInserted),
		Deleted:  len(confirmedDeleted),
		Failed:   failed,
		State:    next,
	}
	if err := a.store.Save(ctx, owner, next); err != nil {
		return out, errors.Wrap(err, "error saving sync state")
	}

	if failed > 0 {
		exists, err := a.cal.ContainerExists(ctx, container)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("error probing calendar after failures")
		case !exists:
			logger.Error().Str("calendar", container).Msg("calendar is gone")
			out.ContainerGone = true
		}
	}
	logger.Info().
		Int("inserted", out.Inserted).
		Int("deleted", out.Deleted).
		Int("failed", out.Failed).
		Msg("plan applied")
	return out, nil
}

// correlate returns one result per requested id. Ids the calendar did not
// report on count as failed.
func correlate(ids []string, results []ItemResult) []ItemResult {
	byID := make(map[string]ItemResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	out := make([]ItemResult, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			r = ItemResult{ID: id, Status: StatusFailed, Err: errors.New("no result reported")}
		}
		out = append(out, r)
	}
	return out
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func eventIDs(events []render.Event) []string {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
}
