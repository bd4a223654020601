package render

import (
	"crypto/md5"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
	"wisecal/internal/rules"
	"wisecal/internal/session"
)

const (
	// PaletteSize is the number of event colors the destination calendar offers.
	PaletteSize = 11

	// HashTimeFormat is the timestamp layout fed into the identity hash.
	HashTimeFormat = "2006-01-02T15:04:05-07:00"
	// TemplateTimeFormat is how {start_time} and {end_time} are rendered.
	TemplateTimeFormat = "2006-01-02 15:04:05-07:00"
)

var idEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// Event is a session rendered for one owner, identified by its content.
type Event struct {
	ID          string
	Title       string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	Color       int
}

// Render returns nil when every group of the session is excluded.
func Render(s session.Session, rs rules.RuleSet) *Event {
	eff := rules.Resolve(s, rs)

	kept := 0
	for _, g := range s.Groups {
		if !eff.Excluded(g) {
			kept++
		}
	}
	if kept == 0 {
		return nil
	}

	fill := replacer(s)
	ev := &Event{
		Title:       fill.Replace(eff.Title),
		Location:    fill.Replace(eff.Location),
		Description: fill.Replace(eff.Description),
		Start:       s.Start.Add(time.Duration(eff.StartOffset) * time.Minute),
		End:         s.End.Add(time.Duration(eff.EndOffset) * time.Minute),
		Color:       eff.Color.OrElse(FallbackColor(s.CourseAbbr)),
	}
	ev.ID = ID(ev.Title, ev.Location, ev.Description, ev.Start, ev.End, ev.Color)
	return ev
}

// RenderAll renders sessions and drops the ones rendering to nil. Sessions
// rendering to an id already seen are collapsed into one event.
func RenderAll(sessions []session.Session, rs rules.RuleSet) []Event {
	out := make([]Event, 0, len(sessions))
	seen := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		ev := Render(s, rs)
		if ev == nil {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, *ev)
	}
	return out
}

func replacer(s session.Session) *strings.Replacer {
	return strings.NewReplacer(
		"{course}", s.Course,
		"{course_abbr}", s.CourseAbbr,
		"{ctype}", s.SessionType,
		"{ctype_abbr}", s.SessionTypeAbbr,
		"{groups}", strings.Join(s.Groups, ", "),
		"{location}", s.Location,
		"{lecturer}", s.Lecturer(),
		"{start_time}", s.Start.Format(TemplateTimeFormat),
		"{end_time}", s.End.Format(TemplateTimeFormat),
	)
}

// ID hashes the rendered content into a lowercase base32hex identifier that
// is valid as a calendar event id.
func ID(title, location, description string, start, end time.Time, color int) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		title, location, description,
		start.Format(HashTimeFormat), end.Format(HashTimeFormat),
		color)
	sum := md5.Sum([]byte(input))
	return strings.ToLower(idEncoding.EncodeToString(sum[:]))
}

// FallbackColor derives a stable palette id (1..PaletteSize) from a course
// abbreviation.
func FallbackColor(courseAbbr string) int {
	sum := md5.Sum([]byte(courseAbbr))
	return int(sum[0])%PaletteSize + 1
}
