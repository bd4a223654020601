package importer

import (
	"bytes"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"
)

const (
	CalendarTimeFormat    = "20060102T150405"
	CalendarUTCTimeFormat = "20060102T150405Z"
	CalendarDateFormat    = "20060102"

	// MaxOccurrences bounds the expansion of a single recurring component.
	MaxOccurrences = 500
)

// Read parses an export and returns one Record per scheduled occurrence,
// with timestamps normalized to location. Components without a usable time
// span are skipped.
func Read(body []byte, location *time.Location) ([]Record, error) {
	if len(body) == 0 {
		return nil, errors.New("empty export")
	}
	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "error parsing export")
	}
	records := make([]Record, 0, len(cal.Events()))
	for _, event := range cal.Events() {
		rec := Record{
			Summary:     Text(event.GetProperty(ics.ComponentPropertySummary)),
			Description: Text(event.GetProperty(ics.ComponentPropertyDescription)),
			Location:    Text(event.GetProperty(ics.ComponentPropertyLocation)),
		}
		stAt, stOk := PropertyTime(event.GetProperty(ics.ComponentPropertyDtStart), location)
		endAt, endOk := PropertyTime(event.GetProperty(ics.ComponentPropertyDtEnd), location)
		if !stOk || !endOk {
			log.Warn().Str("summary", rec.Summary).Msg("export component has no start or end, skipping")
			continue
		}
		if !endAt.After(stAt) {
			log.Warn().
				Str("summary", rec.Summary).
				Time("start", stAt).
				Time("end", endAt).
				Msg("export component ends before it starts, skipping")
			continue
		}
		rec.Start, rec.End = stAt, endAt

		rrProp := event.GetProperty(ics.ComponentPropertyRrule)
		if rrProp == nil || rrProp.Value == "" {
			records = append(records, rec)
			continue
		}
		occurrences, err := expand(rrProp.Value, stAt, event.GetProperties(ics.ComponentPropertyExdate), location)
		if err != nil {
			log.Error().Err(err).
				Str("summary", rec.Summary).
				Str("rrule", rrProp.Value).
				Msg("event has invalid rrule, keeping first occurrence")
			records = append(records, rec)
			continue
		}
		duration := endAt.Sub(stAt)
		for _, occ := range occurrences {
			r := rec
			r.Start = occ
			r.End = occ.Add(duration)
			records = append(records, r)
		}
	}
	return records, nil
}

func expand(rule string, dtStart time.Time, exdates []*ics.IANAProperty, location *time.Location) ([]time.Time, error) {
	opt, err := rrule.StrToROptionInLocation(rule, location)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtStart
	if opt.Count == 0 && opt.Until.IsZero() {
		opt.Count = MaxOccurrences
	}
	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}
	set := rrule.Set{}
	set.RRule(rr)
	for _, prop := range exdates {
		for _, part := range strings.Split(prop.Value, ",") {
			if t, ok := parseTime(strings.TrimSpace(part), tzOf(prop, location), location); ok {
				set.ExDate(t)
			}
		}
	}
	out := make([]time.Time, 0)
	next := set.Iterator()
	for len(out) < MaxOccurrences {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, t.In(location))
	}
	return out, nil
}

// PropertyTime reads a DTSTART/DTEND style property, honoring UTC, TZID and
// floating forms, and returns it in location.
func PropertyTime(prop *ics.IANAProperty, location *time.Location) (time.Time, bool) {
	if prop == nil {
		return time.Time{}, false
	}
	return parseTime(strings.TrimSpace(prop.Value), tzOf(prop, location), location)
}

func parseTime(value string, propLoc, location *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	var (
		out time.Time
		err error
	)
	switch {
	case strings.HasSuffix(value, "Z"):
		out, err = time.Parse(CalendarUTCTimeFormat, value)
	case strings.Contains(value, "T"):
		out, err = time.ParseInLocation(CalendarTimeFormat, value, propLoc)
	default:
		out, err = time.ParseInLocation(CalendarDateFormat, value, propLoc)
	}
	if err != nil {
		return time.Time{}, false
	}
	return out.In(location), true
}

func tzOf(prop *ics.IANAProperty, fallback *time.Location) *time.Location {
	tzids, ok := prop.ICalParameters["TZID"]
	if !ok || len(tzids) == 0 {
		return fallback
	}
	loc, err := time.LoadLocation(tzids[0])
	if err != nil {
		log.Warn().Err(err).Str("tzid", tzids[0]).Msg("unknown tzid, using default timezone")
		return fallback
	}
	return loc
}

// Text returns the value of a text property. The parser has already
// unescaped it.
func Text(prop *ics.IANAProperty) string {
	if prop == nil {
		return ""
	}
	return prop.Value
}
