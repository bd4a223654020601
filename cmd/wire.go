package cmd

import (
	"context"
	"os"
	"path/filepath"
	"wisecal/internal/config"
	"wisecal/internal/domain"
	"wisecal/internal/exporter"
	"wisecal/internal/importer"
	"wisecal/internal/metrics"
	"wisecal/internal/notify"
	"wisecal/internal/settings"
	"wisecal/internal/state"

	"github.com/rs/zerolog/log"
)

const (
	settingsDir  = "settings"
	snapshotsDir = "calendars"
	diffsDir     = "diffs"
)

// source picks the export source: local files when source.dir is set,
// otherwise the timetable site.
func source() (importer.Source, func(importer.Timetable) string) {
	wise := importer.NewWiseTT(config.Gist().String(config.WISETT_URL), config.Gist().Duration(config.WISETT_TIMEOUT))
	if dir := config.Gist().String(config.SOURCE_DIR); dir != "" {
		return &importer.File{Dir: dir}, wise.PageURL
	}
	return wise, wise.PageURL
}

func stores(backend, dataDir string) (state.Store, state.Calendars) {
	switch backend {
	case config.BackendPostgres:
		db, err := state.OpenPostgres(config.Gist().String(config.STORE_DSN))
		if err != nil {
			log.Fatal().Err(err).Msg("error opening postgres store")
		}
		return db, db
	case config.BackendFile:
		fs, err := state.NewFileStore(dataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("error opening file store")
		}
		return fs, fs
	default:
		log.Fatal().Str("backend", backend).Msg("unknown store backend")
		return nil, nil
	}
}

func notifier(dataDir string, pageURL func(importer.Timetable) string) domain.Notifier {
	var (
		summarizer notify.Summarizer
		poster     notify.Poster
	)
	if hook := config.Gist().String(config.NOTIFY_WEBHOOK); hook != "" {
		if os.Getenv("OPENAI_API_KEY") == "" {
			log.Warn().Msg("OPENAI_API_KEY is not set, timetable changes are only stored")
		} else {
			summarizer = notify.NewOpenAI(config.Gist().String(config.NOTIFY_MODEL))
			poster = notify.NewDiscord(hook, config.Gist().Duration(config.SYNC_TIMEOUT))
		}
	}
	n, err := notify.New(filepath.Join(dataDir, diffsDir), summarizer, poster, pageURL)
	if err != nil {
		log.Error().Err(err).Msg("error creating notifier")
		return nil
	}
	return n
}

type wiring struct {
	source    importer.Source
	pageURL   func(importer.Timetable) string
	calendar  exporter.Calendar
	stateDir  string
	notifying bool
	// dry keeps sync state in stateDir whatever the configured backend and
	// never writes owner settings.
	dry bool
}

func (w wiring) backend(configured string) string {
	if w.dry {
		return config.BackendFile
	}
	return configured
}

func (w wiring) owners(dir *settings.Dir) domain.Owners {
	if w.dry {
		return readOnlyOwners{dir: dir}
	}
	return dir
}

// readOnlyOwners loads owner settings and drops every update.
type readOnlyOwners struct {
	dir *settings.Dir
}

func (r readOnlyOwners) LoadAll() ([]*settings.Owner, error) {
	return r.dir.LoadAll()
}

func (r readOnlyOwners) ClearForce(id string) error {
	log.Debug().Str("owner", id).Msg("dry run, force_sync left as is")
	return nil
}

func (r readOnlyOwners) Disable(id string) error {
	log.Debug().Str("owner", id).Msg("dry run, owner left enabled")
	return nil
}

func newUseCase(ctx context.Context, w wiring) *domain.UseCase {
	dataDir := config.Gist().String(config.DATA_DIR)
	if w.stateDir == "" {
		w.stateDir = dataDir
	}
	dir, err := settings.NewDir(filepath.Join(dataDir, settingsDir))
	if err != nil {
		log.Fatal().Err(err).Msg("error opening settings")
	}
	snapshots, err := state.NewSnapshots(filepath.Join(w.stateDir, snapshotsDir))
	if err != nil {
		log.Fatal().Err(err).Msg("error opening snapshots")
	}
	syncMetrics, err := metrics.NewSync()
	if err != nil {
		log.Fatal().Err(err).Msg("error creating sync metrics")
	}
	store, calendars := stores(w.backend(config.Gist().String(config.STORE_BACKEND)), w.stateDir)

	deps := domain.Deps{
		Source:    w.source,
		Calendar:  w.calendar,
		Store:     store,
		Calendars: calendars,
		Owners:    w.owners(dir),
		Snapshots: snapshots,
		Metrics:   syncMetrics,
		Location:  config.Location(),
		BatchSize: config.Gist().Int(config.SYNC_BATCH),
		Workers:   config.Gist().Int(config.SYNC_WORKERS),
	}
	if w.notifying {
		deps.Notifier = notifier(w.stateDir, w.pageURL)
	}
	return domain.New(ctx, deps)
}
