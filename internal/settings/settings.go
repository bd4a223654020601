package settings

import (
	"wisecal/internal/importer"
	"wisecal/internal/render"
	"wisecal/internal/rules"

	"github.com/pkg/errors"
	"github.com/samber/mo"
)

// ErrInvalid marks an owner configuration that cannot be synced.
var ErrInvalid = errors.New("invalid owner settings")

type Calendar struct {
	Enabled   bool               `yaml:"enabled"`
	Owner     string             `yaml:"owner"`
	Title     string             `yaml:"title"`
	ForceSync bool               `yaml:"force_sync"`
	Timetable importer.Timetable `yaml:"timetable"`
}

// Format is the YAML form of one rule. Pointers distinguish unset fields
// from zero values.
type Format struct {
	Title         *string  `yaml:"title,omitempty"`
	Location      *string  `yaml:"location,omitempty"`
	Description   *string  `yaml:"description,omitempty"`
	Color         *int     `yaml:"color,omitempty"`
	StartOffset   *int     `yaml:"start_offset,omitempty"`
	EndOffset     *int     `yaml:"end_offset,omitempty"`
	ExcludeGroups []string `yaml:"exclude_groups,omitempty"`
}

// Owner is the configuration of one calendar owner.
type Owner struct {
	ID       string                       `yaml:"-"`
	Calendar Calendar                     `yaml:"calendar"`
	Format   map[string]map[string]Format `yaml:"format,omitempty"`
}

func (o *Owner) Validate() error {
	switch {
	case o.Calendar.Owner == "":
		return errors.Wrap(ErrInvalid, "calendar.owner is required")
	case o.Calendar.Title == "":
		return errors.Wrap(ErrInvalid, "calendar.title is required")
	case !o.Calendar.Timetable.Valid():
		return errors.Wrap(ErrInvalid, "calendar.timetable needs schoolcode and filterId")
	}
	for scope, classes := range o.Format {
		if scope == "" {
			return errors.Wrap(ErrInvalid, "empty format scope")
		}
		for class, f := range classes {
			if _, err := rules.ParseClass(class); err != nil {
				return errors.Wrapf(ErrInvalid, "format.%s: %s", scope, err)
			}
			if f.Color != nil && (*f.Color < 1 || *f.Color > render.PaletteSize) {
				return errors.Wrapf(ErrInvalid, "format.%s.%s.color out of range: %d", scope, class, *f.Color)
			}
		}
	}
	return nil
}

// Rules converts the format section. Call Validate first.
func (o *Owner) Rules() rules.RuleSet {
	rs := rules.RuleSet{}
	for scope, classes := range o.Format {
		for class, f := range classes {
			c, err := rules.ParseClass(class)
			if err != nil {
				continue
			}
			rs.Set(rules.Scope(scope), c, f.rule())
		}
	}
	return rs
}

func (f Format) rule() rules.Rule {
	return rules.Rule{
		Title:          mo.PointerToOption(f.Title),
		Location:       mo.PointerToOption(f.Location),
		Description:    mo.PointerToOption(f.Description),
		Color:          mo.PointerToOption(f.Color),
		StartOffset:    mo.PointerToOption(f.StartOffset),
		EndOffset:      mo.PointerToOption(f.EndOffset),
		ExcludedGroups: append([]string(nil), f.ExcludeGroups...),
	}
}
