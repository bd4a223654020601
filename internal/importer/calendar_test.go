package importer

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportFixture = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//wisecal//test//EN
BEGIN:VEVENT
UID:1
DTSTAMP:20251001T000000Z
SUMMARY:BAZE PODATKOV
DESCRIPTION:Baze podatkov\, RV\, Dr. Kovač\, RIT 1\, RV sk 2
LOCATION:G2-P01
DTSTART;TZID=Europe/Ljubljana:20251008T130000
DTEND;TZID=Europe/Ljubljana:20251008T150000
END:VEVENT
BEGIN:VEVENT
UID:2
DTSTAMP:20251001T000000Z
SUMMARY:UTC
DTSTART:20251008T110000Z
DTEND:20251008T120000Z
END:VEVENT
BEGIN:VEVENT
UID:3
DTSTAMP:20251001T000000Z
SUMMARY:WEEKLY
DTSTART:20251006T080000
DTEND:20251006T100000
RRULE:FREQ=WEEKLY;COUNT=3
EXDATE:20251013T080000
END:VEVENT
BEGIN:VEVENT
UID:4
DTSTAMP:20251001T000000Z
SUMMARY:BROKEN
DTSTART:20251006T100000
DTEND:20251006T080000
END:VEVENT
BEGIN:VEVENT
UID:5
DTSTAMP:20251001T000000Z
SUMMARY:NO END
DTSTART:20251006T100000
END:VEVENT
END:VCALENDAR
`

func fixture() []byte {
	return []byte(strings.ReplaceAll(exportFixture, "\n", "\r\n"))
}

func ljubljana(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	require.NoError(t, err)
	return loc
}

func TestRead(t *testing.T) {
	loc := ljubljana(t)
	records, err := Read(fixture(), loc)
	require.NoError(t, err)
	require.Len(t, records, 4)

	first := records[0]
	assert.Equal(t, "BAZE PODATKOV", first.Summary)
	assert.Equal(t, "Baze podatkov, RV, Dr. Kovač, RIT 1, RV sk 2", first.Description)
	assert.Equal(t, "G2-P01", first.Location)
	assert.True(t, first.Start.Equal(time.Date(2025, 10, 8, 13, 0, 0, 0, loc)))
	assert.True(t, first.End.Equal(time.Date(2025, 10, 8, 15, 0, 0, 0, loc)))
	assert.Equal(t, loc, first.Start.Location())

	utc := records[1]
	assert.Equal(t, "2025-10-08T13:00:00+02:00", utc.Start.Format(time.RFC3339))

	weekly := records[2:]
	require.Len(t, weekly, 2)
	assert.True(t, weekly[0].Start.Equal(time.Date(2025, 10, 6, 8, 0, 0, 0, loc)))
	assert.True(t, weekly[1].Start.Equal(time.Date(2025, 10, 20, 8, 0, 0, 0, loc)))
	assert.Equal(t, 2*time.Hour, weekly[1].End.Sub(weekly[1].Start))
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(nil, time.UTC)
	assert.Error(t, err)
}

func TestPropertyTime(t *testing.T) {
	loc := ljubljana(t)

	_, ok := PropertyTime(nil, loc)
	assert.False(t, ok)

	prop := &ics.IANAProperty{BaseProperty: ics.BaseProperty{Value: "20250101"}}
	got, ok := PropertyTime(prop, loc)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc)))

	prop = &ics.IANAProperty{BaseProperty: ics.BaseProperty{
		Value:          "20250101T090000",
		ICalParameters: map[string][]string{"TZID": {"America/New_York"}},
	}}
	got, ok = PropertyTime(prop, loc)
	require.True(t, ok)
	assert.Equal(t, "2025-01-01T15:00:00+01:00", got.Format(time.RFC3339))

	prop = &ics.IANAProperty{BaseProperty: ics.BaseProperty{Value: "garbage"}}
	_, ok = PropertyTime(prop, loc)
	assert.False(t, ok)
}

func TestTimetableKey(t *testing.T) {
	tt := Timetable{SchoolCode: "um_feri", FilterID: "0;1"}
	assert.Equal(t, "um_feri_0;1", tt.Key())
	assert.True(t, tt.Valid())
	assert.False(t, Timetable{SchoolCode: "um_feri"}.Valid())
}

func TestReadKeepsEscapedBackslash(t *testing.T) {
	body := strings.ReplaceAll(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//wisecal//test//EN
BEGIN:VEVENT
UID:1
DTSTAMP:20251001T000000Z
SUMMARY:A\;B
DESCRIPTION:a\\, b
LOCATION:C:\\new
DTSTART:20251008T110000Z
DTEND:20251008T120000Z
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")

	records, err := Read([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A;B", records[0].Summary)
	assert.Equal(t, `a\, b`, records[0].Description)
	assert.Equal(t, `C:\new`, records[0].Location)
}
