package importer

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNoExport is returned when a timetable has no entries to export.
var ErrNoExport = errors.New("timetable has no exportable entries")

type Source interface {
	Fetch(ctx context.Context, tt Timetable) ([]byte, error)
}

type Timetable struct {
	SchoolCode string `yaml:"schoolcode" json:"schoolcode"`
	FilterID   string `yaml:"filterId" json:"filterId"`
}

// Key identifies the export on disk and groups owners sharing it.
func (t Timetable) Key() string {
	return t.SchoolCode + "_" + t.FilterID
}

func (t Timetable) Valid() bool {
	return t.SchoolCode != "" && t.FilterID != ""
}

// Record is one exported component reduced to the fields the parser reads.
type Record struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}
