package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"wisecal/internal/importer"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Poster interface {
	Post(ctx context.Context, name, pageURL string, changes []Change) error
}

// Notifier reports upstream export changes. Summarizer and Poster are
// optional; the diff is always stored.
type Notifier struct {
	dir        string
	summarizer Summarizer
	poster     Poster
	pageURL    func(importer.Timetable) string
	now        func() time.Time
}

func New(dir string, s Summarizer, p Poster, pageURL func(importer.Timetable) string) (*Notifier, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "error creating diffs dir")
	}
	return &Notifier{dir: dir, summarizer: s, poster: p, pageURL: pageURL, now: time.Now}, nil
}

// Changed handles one changed export. It never fails the caller; problems are
// logged.
func (n *Notifier) Changed(ctx context.Context, tt importer.Timetable, name string, before, after []byte) {
	logger := log.With().Str("timetable", tt.Key()).Logger()
	diff := Unified(tt.Key()+".ics", tt.Key()+".new.ics", before, after, DiffContext)
	if diff == "" {
		return
	}
	file := filepath.Join(n.dir, fmt.Sprintf("%s_%d.diff", tt.Key(), n.now().Unix()))
	if err := os.WriteFile(file, []byte(diff), 0o600); err != nil {
		logger.Error().Err(err).Msg("error saving diff")
	}
	if n.summarizer == nil || n.poster == nil {
		return
	}
	changes, err := n.summarizer.Summarize(ctx, diff)
	if err != nil {
		logger.Error().Err(err).Msg("error summarizing changes")
		return
	}
	page := ""
	if n.pageURL != nil {
		page = n.pageURL(tt)
	}
	if err := n.poster.Post(ctx, name, page, changes); err != nil {
		logger.Error().Err(err).Msg("error posting changes")
		return
	}
	logger.Info().Int("changes", len(changes)).Msg("timetable changes announced")
}
