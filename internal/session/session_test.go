package session

import (
	"testing"
	"time"
	"wisecal/internal/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(summary, description string) importer.Record {
	start := time.Date(2025, 10, 8, 13, 0, 0, 0, time.UTC)
	return importer.Record{
		Summary:     summary,
		Description: description,
		Location:    "G2-P01",
		Start:       start,
		End:         start.Add(2 * time.Hour),
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		summary     string
		description string
		course      string
		abbr        string
		typeAbbr    string
		typeName    string
		lecturers   []string
		groups      []string
	}{
		{
			name:        "single lecturer single group",
			summary:     "ALGORITMI IN PODATKOVNE STRUKTURE",
			description: "Algoritmi in podatkovne strukture, PR, Doc. Novak, RIT 1",
			course:      "Algoritmi in podatkovne strukture",
			abbr:        "APS",
			typeAbbr:    "PR",
			typeName:    "Predavanje",
			lecturers:   []string{"Doc. Novak"},
			groups:      []string{"RIT 1"},
		},
		{
			name:        "digit starts sticky group mode",
			summary:     "BAZE PODATKOV",
			description: "Baze podatkov, RV, Dr. Kovač, RIT 1, RV sk 2",
			course:      "Baze podatkov",
			abbr:        "BP",
			typeAbbr:    "RV",
			typeName:    "Računalniške vaje",
			lecturers:   []string{"Dr. Kovač"},
			groups:      []string{"RIT 1", "RV sk 2"},
		},
		{
			name:        "lecturer indicator keeps lecturer",
			summary:     "Spletne tehnologije",
			description: "Spletne tehnologije, SV, ANA NOVAK, asist. JANEZ KRANJC, MAG RIT, RIT 2",
			course:      "Spletne tehnologije",
			abbr:        "ST",
			typeAbbr:    "SV",
			typeName:    "Seminarske vaje",
			lecturers:   []string{"Ana Novak", "Asist. Janez Kranjc"},
			groups:      []string{"MAG RIT", "RIT 2"},
		},
		{
			name:        "single word token is a group",
			summary:     "Spletne tehnologije",
			description: "Spletne tehnologije, LV, Ana Novak, ERASMUS, Janez Kranjc",
			course:      "Spletne tehnologije",
			abbr:        "ST",
			typeAbbr:    "LV",
			typeName:    "Laboratorijske vaje",
			lecturers:   []string{"Ana Novak"},
			groups:      []string{"ERASMUS", "Janez Kranjc"},
		},
		{
			name:        "multi word without indicator stays lecturer",
			summary:     "Spletne tehnologije",
			description: "Spletne tehnologije, XX, Ana Novak, Janez Kranjc, RIT",
			course:      "Spletne tehnologije",
			abbr:        "ST",
			typeAbbr:    "XX",
			typeName:    "XX",
			lecturers:   []string{"Ana Novak", "Janez Kranjc"},
			groups:      []string{"RIT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Parse(record(tt.summary, tt.description))
			assert.Equal(t, tt.course, s.Course)
			assert.Equal(t, tt.abbr, s.CourseAbbr)
			assert.Equal(t, tt.typeAbbr, s.SessionTypeAbbr)
			assert.Equal(t, tt.typeName, s.SessionType)
			assert.Equal(t, tt.lecturers, s.Lecturers)
			assert.Equal(t, tt.groups, s.Groups)
			assert.Equal(t, "G2-P01", s.Location)
			assert.False(t, s.Degraded())
		})
	}
}

func TestParseFallback(t *testing.T) {
	t.Run("too few parts", func(t *testing.T) {
		s := Parse(record("BAZE PODATKOV", "Baze podatkov, RV"))
		assert.Equal(t, UnknownAbbr, s.SessionTypeAbbr)
		assert.Equal(t, UnknownType, s.SessionType)
		assert.Equal(t, "Baze podatkov (Fallback)", s.Course)
		assert.Empty(t, s.Groups)
		assert.NotNil(t, s.Groups)
		assert.Empty(t, s.Lecturers)
		assert.True(t, s.Degraded())
	})
	t.Run("course mismatch", func(t *testing.T) {
		s := Parse(record("OPERACIJSKI SISTEMI", "Baze podatkov, RV, Dr. Kovač, RIT 1"))
		assert.Equal(t, UnknownAbbr, s.SessionTypeAbbr)
		assert.True(t, s.Degraded())
	})
}

func TestParseAllKeepsOrder(t *testing.T) {
	sessions := ParseAll([]importer.Record{
		record("BAZE PODATKOV", "Baze podatkov, RV, Dr. Kovač, RIT 1"),
		record("x", "broken"),
	})
	require.Len(t, sessions, 2)
	assert.Equal(t, "BP", sessions[0].CourseAbbr)
	assert.True(t, sessions[1].Degraded())
}

func TestSessionsDoNotShareSlices(t *testing.T) {
	a := Parse(record("x", "broken"))
	b := Parse(record("y", "broken"))
	a.Groups = append(a.Groups, "RIT 1")
	assert.Empty(t, b.Groups)
}

func TestTitleAndCapitalize(t *testing.T) {
	assert.Equal(t, "Doc. Novak", Title("DOC. NOVAK"))
	assert.Equal(t, "Dr. Kovač", Title("dr. kovač"))
	assert.Equal(t, "Baze podatkov", Capitalize("BAZE PODATKOV"))
	assert.Equal(t, "", Capitalize(""))
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "APS", Abbreviate("Algoritmi in podatkovne strukture"))
	assert.Equal(t, "ŠR", Abbreviate("šport  rekreacija"))
}

func TestFilters(t *testing.T) {
	sessions := []Session{
		{Course: "B", SessionType: "Predavanje", Groups: []string{"RIT 2", "RIT 1"}},
		{Course: "A", SessionType: "Seminar", Groups: []string{"RIT 1"}},
		{Course: "B", SessionType: "Predavanje", Groups: []string{"RIT 1"}},
	}
	assert.Equal(t, []Filter{
		{Course: "A", SessionType: "Seminar", Group: "RIT 1"},
		{Course: "B", SessionType: "Predavanje", Group: "RIT 1"},
		{Course: "B", SessionType: "Predavanje", Group: "RIT 2"},
	}, Filters(sessions))
}
