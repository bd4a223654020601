package state

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Snapshots keeps the last processed raw export per timetable key as
// calendars/<key>.ics.
type Snapshots struct {
	dir string
}

func NewSnapshots(dir string) (*Snapshots, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "error creating snapshot dir")
	}
	return &Snapshots{dir: dir}, nil
}

func (s *Snapshots) Load(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "error reading snapshot")
	}
	return data, true, nil
}

func (s *Snapshots) Save(key string, data []byte) error {
	return writeAtomic(s.path(key), data)
}

func (s *Snapshots) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".ics")
}
