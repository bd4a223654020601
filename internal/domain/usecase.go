package domain

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"wisecal/internal/exporter"
	"wisecal/internal/importer"
	"wisecal/internal/metrics"
	"wisecal/internal/reconcile"
	"wisecal/internal/render"
	"wisecal/internal/session"
	"wisecal/internal/settings"
	"wisecal/internal/state"

	"github.com/adhocore/gronx/pkg/tasker"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrBusy is returned when a pass is requested while another one runs.
var ErrBusy = errors.New("sync pass already running")

type Owners interface {
	LoadAll() ([]*settings.Owner, error)
	ClearForce(id string) error
	Disable(id string) error
}

type Snapshots interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, data []byte) error
}

// Notifier is told about exports that differ from the stored snapshot.
type Notifier interface {
	Changed(ctx context.Context, tt importer.Timetable, name string, before, after []byte)
}

type Deps struct {
	Source    importer.Source
	Calendar  exporter.Calendar
	Store     state.Store
	Calendars state.Calendars
	Owners    Owners
	Snapshots Snapshots
	Notifier  Notifier
	Metrics   *metrics.Sync
	Status    *Status
	Location  *time.Location
	BatchSize int
	Workers   int
}

type UseCase struct {
	Deps
	applier *exporter.Applier
	tracer  trace.Tracer
	passMu  *sync.Mutex
	pool    *pool.ContextPool
	now     func() time.Time
}

func New(ctx context.Context, deps Deps) *UseCase {
	if deps.Status == nil {
		deps.Status = NewStatus()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	return &UseCase{
		Deps:    deps,
		applier: exporter.NewApplier(deps.Calendar, deps.Store, deps.BatchSize, deps.Metrics),
		tracer:  otel.Tracer("wisecal/domain"),
		passMu:  &sync.Mutex{},
		pool:    pool.New().WithContext(ctx).WithMaxGoroutines(10),
		now:     time.Now,
	}
}

// SyncOnce runs one pass over every enabled owner. Failures are isolated per
// timetable and per owner; only a failure to list owners fails the pass.
func (uc *UseCase) SyncOnce(ctx context.Context) error {
	if !uc.passMu.TryLock() {
		return ErrBusy
	}
	defer uc.passMu.Unlock()
	return uc.pass(ctx)
}

// pass runs one sync pass. The caller holds passMu.
func (uc *UseCase) pass(ctx context.Context) error {
	logger := log.With().Str("pass", uuid.NewString()).Logger()
	uc.Status.begin(uc.now())
	updated := false
	defer func() { uc.Status.finish(uc.now(), updated) }()
	uc.Metrics.Pass(ctx)

	owners, err := uc.Owners.LoadAll()
	if err != nil {
		return errors.Wrap(err, "error loading owners")
	}
	groups := map[string][]*settings.Owner{}
	for _, o := range owners {
		if !o.Calendar.Enabled {
			continue
		}
		key := o.Calendar.Timetable.Key()
		groups[key] = append(groups[key], o)
	}
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if uc.syncGroup(ctx, logger.With().Str("timetable", key).Logger(), groups[key]) {
			updated = true
		}
	}
	logger.Info().Int("timetables", len(keys)).Bool("updated", updated).Msg("sync pass done")
	return nil
}

// syncGroup processes the owners sharing one export and reports whether any
// remote calendar changed.
func (uc *UseCase) syncGroup(ctx context.Context, logger zerolog.Logger, owners []*settings.Owner) bool {
	tt := owners[0].Calendar.Timetable
	body, err := uc.Source.Fetch(ctx, tt)
	if err != nil {
		logger.Error().Err(err).Msg("error fetching timetable")
		return false
	}
	prev, hadPrev, err := uc.Snapshots.Load(tt.Key())
	if err != nil {
		logger.Warn().Err(err).Msg("error loading previous export")
		hadPrev = false
	}
	changed := !hadPrev || !bytes.Equal(prev, body)

	selected := owners
	if !changed {
		selected = nil
		for _, o := range owners {
			if o.Calendar.ForceSync {
				selected = append(selected, o)
			}
		}
		if len(selected) == 0 {
			logger.Debug().Msg("timetable unchanged")
			return false
		}
	}

	records, err := importer.Read(body, uc.Location)
	if err != nil {
		logger.Error().Err(err).Msg("error reading timetable")
		return false
	}
	sessions := session.ParseAll(records)
	degraded := 0
	for _, s := range sessions {
		if s.Degraded() {
			degraded++
		}
	}
	if degraded > 0 {
		logger.Warn().Int("sessions", degraded).Msg("timetable has unparsed sessions, they are not synced")
	}
	logger.Debug().Int("records", len(records)).Int("sessions", len(sessions)).Msg("timetable parsed")

	var updated atomic.Bool
	p := uc.ownerPool(ctx)
	for _, o := range selected {
		p.Go(func(ctx context.Context) error {
			ownerChanged, err := uc.syncOwner(ctx, logger.With().Str("owner", o.ID).Logger(), o, sessions)
			if ownerChanged {
				updated.Store(true)
			}
			return errors.Wrap(err, o.ID)
		})
	}
	if err := p.Wait(); err != nil {
		logger.Warn().Err(err).Msg("keeping previous export until every owner is in sync")
		return updated.Load()
	}

	if changed {
		if err := uc.Snapshots.Save(tt.Key(), body); err != nil {
			logger.Error().Err(err).Msg("error saving export")
		}
		if hadPrev && uc.Notifier != nil {
			uc.Notifier.Changed(ctx, tt, owners[0].Calendar.Title, prev, body)
		}
	}
	return updated.Load()
}

func (uc *UseCase) ownerPool(ctx context.Context) *pool.ContextPool {
	return pool.New().WithContext(ctx).WithMaxGoroutines(uc.Workers)
}

// syncOwner renders, reconciles and applies the plan of one owner. It reports
// whether the remote calendar changed. Items that failed to apply make it
// return an error so the export is processed again on the next pass.
func (uc *UseCase) syncOwner(ctx context.Context, logger zerolog.Logger, o *settings.Owner, sessions []session.Session) (changed bool, err error) {
	ctx, span := uc.tracer.Start(ctx, "sync owner", trace.WithAttributes(
		attribute.String("owner", o.ID),
		attribute.String("timetable", o.Calendar.Timetable.Key()),
	))
	started := uc.now()
	outcome := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if outcome == "ok" {
				outcome = "error"
			}
		}
		uc.Metrics.OwnerDone(ctx, uc.now().Sub(started).Seconds(), outcome)
		span.End()
	}()

	container, err := uc.container(ctx, logger, o)
	if err != nil {
		return false, err
	}
	persisted, err := uc.Store.Load(ctx, o.ID)
	if err != nil {
		return false, errors.Wrap(err, "error loading sync state")
	}
	events := render.RenderAll(sessions, o.Rules())
	plan := reconcile.Diff(events, persisted)
	logger.Debug().
		Int("target", len(events)).
		Int("insert", len(plan.Insert)).
		Int("delete", len(plan.Delete)).
		Int("unchanged", len(plan.Unchanged)).
		Msg("plan computed")

	out, err := uc.applier.Apply(ctx, o.ID, container, plan, persisted)
	if err != nil {
		return false, err
	}
	if out.ContainerGone {
		outcome = "gone"
		uc.disable(ctx, logger, o)
		return out.Changed(), nil
	}
	if out.Failed > 0 {
		outcome = "partial"
		return out.Changed(), errors.Errorf("%d items failed", out.Failed)
	}
	if o.Calendar.ForceSync {
		if err := uc.Owners.ClearForce(o.ID); err != nil {
			logger.Warn().Err(err).Msg("error clearing force flag")
		}
	}
	return out.Changed(), nil
}

// container returns the owner's calendar, creating it on first sync. A new
// calendar starts with an empty sync state.
func (uc *UseCase) container(ctx context.Context, logger zerolog.Logger, o *settings.Owner) (string, error) {
	id, ok, err := uc.Calendars.Get(ctx, o.ID)
	if err != nil {
		return "", errors.Wrap(err, "error loading calendar id")
	}
	if ok {
		return id, nil
	}
	id, err = uc.Calendar.CreateContainer(ctx, o.Calendar.Owner, o.Calendar.Title)
	if err != nil {
		return "", errors.Wrap(err, "error creating calendar")
	}
	if err := uc.Calendars.Set(ctx, o.ID, id); err != nil {
		return "", errors.Wrap(err, "error saving calendar id")
	}
	if err := uc.Store.Save(ctx, o.ID, reconcile.NewIDSet()); err != nil {
		return "", errors.Wrap(err, "error resetting sync state")
	}
	logger.Info().Str("calendar", id).Msg("calendar enrolled")
	return id, nil
}

func (uc *UseCase) disable(ctx context.Context, logger zerolog.Logger, o *settings.Owner) {
	logger.Error().Msg("calendar no longer exists, disabling sync")
	if err := uc.Owners.Disable(o.ID); err != nil {
		logger.Error().Err(err).Msg("error disabling owner")
	}
	if err := uc.Calendars.Clear(ctx, o.ID); err != nil {
		logger.Error().Err(err).Msg("error clearing calendar id")
	}
	if err := uc.Store.Save(ctx, o.ID, reconcile.NewIDSet()); err != nil {
		logger.Error().Err(err).Msg("error clearing sync state")
	}
}

func (uc *UseCase) TaskSync(cronExpr string) {
	taskr := tasker.New(tasker.Option{})
	taskr.Task(cronExpr, func(ctx context.Context) (int, error) {
		if err := uc.SyncOnce(ctx); err != nil {
			log.Error().Err(err).Msg("sync pass failed")
			return 1, err
		}
		return 0, nil
	})
	uc.pool.Go(func(ctx context.Context) error {
		taskr.Run()
		return nil
	})
}

// Trigger starts a pass in the background unless one is running. The pass
// is reserved before Trigger returns.
func (uc *UseCase) Trigger() bool {
	if !uc.passMu.TryLock() {
		return false
	}
	uc.pool.Go(func(ctx context.Context) error {
		defer uc.passMu.Unlock()
		if err := uc.pass(ctx); err != nil {
			log.Error().Err(err).Msg("triggered sync pass failed")
		}
		return nil
	})
	return true
}

func (uc *UseCase) Stop() {
	uc.pool.Wait()
}
