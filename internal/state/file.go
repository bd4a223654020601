package state

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"wisecal/internal/reconcile"

	"github.com/pkg/errors"
)

var (
	_ Store     = (*FileStore)(nil)
	_ Calendars = (*FileStore)(nil)
)

const (
	syncedDir   = "synced_events"
	calendarDir = "cal_ids"
)

// FileStore keeps one text file per owner: synced_events/<owner>.txt with
// one id per line and cal_ids/<owner>.txt with the calendar id.
type FileStore struct {
	dir  string
	lock *sync.RWMutex
}

func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{syncedDir, calendarDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, errors.Wrapf(err, "error creating %s", sub)
		}
	}
	return &FileStore{dir: dir, lock: &sync.RWMutex{}}, nil
}

func (s *FileStore) Load(_ context.Context, owner string) (reconcile.IDSet, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	data, err := os.ReadFile(s.path(syncedDir, owner))
	if errors.Is(err, fs.ErrNotExist) {
		return reconcile.NewIDSet(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "error reading synced events")
	}
	ids := reconcile.NewIDSet()
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids.Add(id)
		}
	}
	return ids, errors.Wrap(sc.Err(), "error scanning synced events")
}

func (s *FileStore) Save(_ context.Context, owner string, ids reconcile.IDSet) error {
	sb := strings.Builder{}
	for _, id := range ids.Sorted() {
		sb.WriteString(id)
		sb.WriteByte('\n')
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return writeAtomic(s.path(syncedDir, owner), []byte(sb.String()))
}

func (s *FileStore) Get(_ context.Context, owner string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	data, err := os.ReadFile(s.path(calendarDir, owner))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "error reading calendar id")
	}
	id := strings.TrimSpace(string(data))
	return id, id != "", nil
}

func (s *FileStore) Set(_ context.Context, owner, calendarID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return writeAtomic(s.path(calendarDir, owner), []byte(calendarID))
}

func (s *FileStore) Clear(_ context.Context, owner string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	err := os.Remove(s.path(calendarDir, owner))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "error clearing calendar id")
	}
	return nil
}

func (s *FileStore) path(sub, owner string) string {
	return filepath.Join(s.dir, sub, filepath.Base(owner)+".txt")
}

// writeAtomic replaces path through a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wisecal-*.tmp")
	if err != nil {
		return errors.Wrap(err, "error creating temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error writing temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "error replacing file")
}
