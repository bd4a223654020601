package settings

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const ext = ".yaml"

// Dir keeps one <owner>.yaml per owner in a directory.
type Dir struct {
	path string
	lock *sync.Mutex
}

func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, errors.Wrap(err, "error creating settings dir")
	}
	return &Dir{path: path, lock: &sync.Mutex{}}, nil
}

// List returns owner ids sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.Wrap(err, "error listing settings")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(out)
	return out, nil
}

// Load reads and validates one owner. Validation failures wrap ErrInvalid.
func (d *Dir) Load(id string) (*Owner, error) {
	data, err := os.ReadFile(d.file(id))
	if err != nil {
		return nil, errors.Wrapf(err, "error reading settings of %s", id)
	}
	var o Owner
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, errors.Wrapf(ErrInvalid, "%s: %s", id, err)
	}
	o.ID = id
	if err := o.Validate(); err != nil {
		return nil, errors.Wrap(err, id)
	}
	return &o, nil
}

// LoadAll loads every owner, skipping and logging the ones that fail.
func (d *Dir) LoadAll() ([]*Owner, error) {
	ids, err := d.List()
	if err != nil {
		return nil, err
	}
	out := make([]*Owner, 0, len(ids))
	for _, id := range ids {
		o, err := d.Load(id)
		if err != nil {
			log.Error().Err(err).Str("owner", id).Msg("error loading owner settings")
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (d *Dir) Save(o *Owner) error {
	if o.ID == "" {
		return errors.Wrap(ErrInvalid, "owner id is required")
	}
	data, err := yaml.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "error encoding settings")
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return writeAtomic(d.file(o.ID), data)
}

// ClearForce resets the one-shot force flag after a pass honored it.
func (d *Dir) ClearForce(id string) error {
	return d.update(id, func(o *Owner) bool {
		if !o.Calendar.ForceSync {
			return false
		}
		o.Calendar.ForceSync = false
		return true
	})
}

// Disable turns sync off for the owner and asks for a full re-render once it
// is enabled again.
func (d *Dir) Disable(id string) error {
	return d.update(id, func(o *Owner) bool {
		o.Calendar.Enabled = false
		o.Calendar.ForceSync = true
		return true
	})
}

func (d *Dir) update(id string, fn func(*Owner) bool) error {
	o, err := d.Load(id)
	if err != nil {
		return err
	}
	if !fn(o) {
		return nil
	}
	return d.Save(o)
}

func (d *Dir) file(id string) string {
	return filepath.Join(d.path, filepath.Base(id)+ext)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wisecal-settings-*.tmp")
	if err != nil {
		return errors.Wrap(err, "error creating temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error setting permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error writing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp file")
	}
	return errors.Wrap(os.Rename(tmpName, path), "error replacing settings")
}
