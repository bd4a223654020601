package session

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"wisecal/internal/importer"

	"github.com/rs/zerolog/log"
)

const (
	LectureAbbr  = "PR"
	UnknownAbbr  = "UN"
	UnknownType  = "Unknown"
	fallbackMark = " (Fallback)"
	descSep      = ", "
)

var (
	typeNames = map[string]string{
		"PR": "Predavanje",
		"SV": "Seminarske vaje",
		"LV": "Laboratorijske vaje",
		"SE": "Seminar",
		"RV": "Računalniške vaje",
	}
	abbrStopwords      = map[string]struct{}{"in": {}}
	lecturerIndicators = map[string]struct{}{"dr": {}, "prof": {}, "doc": {}, "asist": {}, "demonstrator": {}}
	groupIndicators    = map[string]struct{}{"sk": {}, "erasmus": {}, "rv": {}, "vs": {}, "un": {}, "mag": {}, "izb": {}}
)

// Session is one scheduled occurrence parsed from an export record.
type Session struct {
	Course          string
	CourseAbbr      string
	SessionType     string
	SessionTypeAbbr string
	Lecturers       []string
	Groups          []string
	Location        string
	Start           time.Time
	End             time.Time
}

func (s Session) IsLecture() bool {
	return s.SessionTypeAbbr == LectureAbbr
}

func (s Session) Lecturer() string {
	return strings.Join(s.Lecturers, ", ")
}

// Degraded reports whether the record could not be parsed.
func (s Session) Degraded() bool {
	return s.SessionTypeAbbr == UnknownAbbr && strings.HasSuffix(s.Course, fallbackMark)
}

func ParseAll(records []importer.Record) []Session {
	out := make([]Session, 0, len(records))
	for _, rec := range records {
		out = append(out, Parse(rec))
	}
	return out
}

// Parse never fails: records whose description does not follow the
// "course, type, lecturers..., groups..." layout become fallback sessions.
func Parse(rec importer.Record) Session {
	course := Capitalize(rec.Summary)
	parts := strings.Split(rec.Description, descSep)
	if len(parts) < 4 {
		log.Warn().Str("description", rec.Description).Msg("description does not have enough parts")
		return fallback(rec)
	}
	if course != Capitalize(parts[0]) {
		log.Warn().
			Str("summary", course).
			Str("descriptionCourse", Capitalize(parts[0])).
			Msg("summary and description course names do not match")
		return fallback(rec)
	}

	s := Session{
		Course:          course,
		CourseAbbr:      Abbreviate(course),
		SessionTypeAbbr: parts[1],
		SessionType:     TypeName(parts[1]),
		Location:        rec.Location,
		Start:           rec.Start,
		End:             rec.End,
	}
	s.Lecturers, s.Groups = classify(parts[2:])
	return s
}

func fallback(rec importer.Record) Session {
	return Session{
		Course:          Capitalize(rec.Summary) + fallbackMark,
		SessionType:     UnknownType,
		SessionTypeAbbr: UnknownAbbr,
		Lecturers:       []string{},
		Groups:          []string{},
		Location:        rec.Location,
		Start:           rec.Start,
		End:             rec.End,
	}
}

// classify splits the trailing description tokens into lecturers and groups.
// Position and digit rules win over indicator words, and once a token has
// been taken as a group every following token is a group too.
func classify(tokens []string) (lecturers, groups []string) {
	lecturers = make([]string, 0, 1)
	groups = make([]string, 0, len(tokens))
	started := false
	for i, tok := range tokens {
		if i == 0 {
			lecturers = append(lecturers, Title(tok))
			continue
		}
		if i == len(tokens)-1 || started {
			groups = append(groups, strings.TrimSpace(tok))
			continue
		}
		if strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
			started = true
			groups = append(groups, strings.TrimSpace(tok))
			continue
		}
		units := strings.Split(strings.ToLower(strings.ReplaceAll(tok, ".", "")), " ")
		switch {
		case anyIn(units, lecturerIndicators):
			lecturers = append(lecturers, Title(tok))
		case anyIn(units, groupIndicators) || len(units) == 1:
			started = true
			groups = append(groups, strings.TrimSpace(tok))
		default:
			lecturers = append(lecturers, Title(tok))
		}
	}
	return lecturers, groups
}

func anyIn(units []string, set map[string]struct{}) bool {
	for _, u := range units {
		if _, ok := set[u]; ok {
			return true
		}
	}
	return false
}

// TypeName maps a session type code to its name; unknown codes pass through.
func TypeName(abbr string) string {
	if name, ok := typeNames[abbr]; ok {
		return name
	}
	return abbr
}

// Abbreviate builds the course abbreviation from the initials of its words.
func Abbreviate(course string) string {
	sb := strings.Builder{}
	for _, word := range strings.Split(course, " ") {
		if word == "" {
			continue
		}
		if _, skip := abbrStopwords[strings.ToLower(word)]; skip {
			continue
		}
		for _, r := range word {
			sb.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(sb.String())
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if i == 0 {
			runes[i] = unicode.ToUpper(r)
			continue
		}
		runes[i] = unicode.ToLower(r)
	}
	return string(runes)
}

// Title upper-cases the first letter of every run of letters and
// lower-cases the rest, so "DOC. NOVAK" becomes "Doc. Novak".
func Title(s string) string {
	runes := []rune(s)
	prevLetter := false
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if prevLetter {
				runes[i] = unicode.ToLower(r)
			} else {
				runes[i] = unicode.ToUpper(r)
			}
			prevLetter = true
			continue
		}
		prevLetter = false
	}
	return string(runes)
}

// Filter is one (course, session type, group) combination found in an export.
type Filter struct {
	Course      string
	SessionType string
	Group       string
}

func Filters(sessions []Session) []Filter {
	seen := make(map[Filter]struct{})
	for _, s := range sessions {
		for _, g := range s.Groups {
			seen[Filter{Course: s.Course, SessionType: s.SessionType, Group: g}] = struct{}{}
		}
	}
	out := make([]Filter, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Course != out[j].Course {
			return out[i].Course < out[j].Course
		}
		if out[i].SessionType != out[j].SessionType {
			return out[i].SessionType < out[j].SessionType
		}
		return out[i].Group < out[j].Group
	})
	return out
}
