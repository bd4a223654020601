package rules

import (
	"wisecal/internal/session"

	"github.com/pkg/errors"
	"github.com/samber/mo"
)

// Scope is either DefaultScope or a course abbreviation.
type Scope string

// Class selects which rule of a scope applies to a session.
type Class string

const (
	DefaultScope Scope = "DEFAULT"

	ClassLecture Class = "PR"
	ClassOther   Class = "VAJE"
)

const (
	DefaultTitle       = "{course} {ctype_abbr}"
	DefaultLocation    = "{location}"
	DefaultDescription = "{course} {ctype} by {lecturer} for groups: {groups}"
)

var ErrUnknownClass = errors.New("unknown rule class")

// Rule holds the fields configured for one scope and class. Absent fields
// fall through to the DEFAULT scope and then to the built-in value.
type Rule struct {
	Title          mo.Option[string]
	Location       mo.Option[string]
	Description    mo.Option[string]
	Color          mo.Option[int]
	StartOffset    mo.Option[int]
	EndOffset      mo.Option[int]
	ExcludedGroups []string
}

type RuleSet map[Scope]map[Class]Rule

// Effective is the fully resolved rendering configuration for one session.
type Effective struct {
	Class          Class
	Title          string
	Location       string
	Description    string
	Color          mo.Option[int]
	StartOffset    int
	EndOffset      int
	ExcludedGroups map[string]struct{}
}

func ClassOf(s session.Session) Class {
	if s.IsLecture() {
		return ClassLecture
	}
	return ClassOther
}

func ParseClass(v string) (Class, error) {
	switch c := Class(v); c {
	case ClassLecture, ClassOther:
		return c, nil
	}
	return "", errors.Wrapf(ErrUnknownClass, "%q", v)
}

func (rs RuleSet) lookup(scope Scope, class Class) Rule {
	return rs[scope][class]
}

// Set stores rule under scope and class, creating the scope when needed.
func (rs RuleSet) Set(scope Scope, class Class, rule Rule) {
	if rs[scope] == nil {
		rs[scope] = make(map[Class]Rule)
	}
	rs[scope][class] = rule
}

// Resolve picks every field from the course rule, then the DEFAULT rule,
// then the built-in fallback. Excluded groups are the union of both rules.
func Resolve(s session.Session, rs RuleSet) Effective {
	class := ClassOf(s)
	def := rs.lookup(DefaultScope, class)
	course := Rule{}
	if Scope(s.CourseAbbr) != DefaultScope {
		course = rs.lookup(Scope(s.CourseAbbr), class)
	}

	eff := Effective{
		Class:          class,
		Title:          pick(course.Title, def.Title, DefaultTitle),
		Location:       pick(course.Location, def.Location, DefaultLocation),
		Description:    pick(course.Description, def.Description, DefaultDescription),
		StartOffset:    pick(course.StartOffset, def.StartOffset, 0),
		EndOffset:      pick(course.EndOffset, def.EndOffset, 0),
		ExcludedGroups: make(map[string]struct{}, len(def.ExcludedGroups)+len(course.ExcludedGroups)),
	}
	if c, ok := course.Color.Get(); ok {
		eff.Color = mo.Some(c)
	} else {
		eff.Color = def.Color
	}
	for _, g := range def.ExcludedGroups {
		eff.ExcludedGroups[g] = struct{}{}
	}
	for _, g := range course.ExcludedGroups {
		eff.ExcludedGroups[g] = struct{}{}
	}
	return eff
}

func pick[T any](course, def mo.Option[T], fallback T) T {
	if v, ok := course.Get(); ok {
		return v
	}
	return def.OrElse(fallback)
}

// Excluded reports whether group was excluded by any applicable rule.
func (e Effective) Excluded(group string) bool {
	_, ok := e.ExcludedGroups[group]
	return ok
}
