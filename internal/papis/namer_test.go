package papis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

func record(family string, year int, title string) *entities.Record {
	rec := &entities.Record{
		Title: title,
		Year:  year,
	}
	if family != "" {
		rec.Creators = []entities.Creator{{Role: "author", FamilyName: family}}
	}
	rec.Minimal = title == "" && family == ""
	return rec
}

func TestAssign_SlugShape(t *testing.T) {
	tests := []struct {
		name     string
		record   *entities.Record
		expected string
	}{
		{
			name:     "author year and title",
			record:   record("Doe", 2020, "Example Paper"),
			expected: "doe-2020-example-paper",
		},
		{
			name:     "title longer than three words is cut",
			record:   record("Doe", 2020, "A Very Long Title About Things"),
			expected: "doe-2020-a-very-long",
		},
		{
			name:     "missing year omits the segment",
			record:   record("Doe", 0, "Example Paper"),
			expected: "doe-example-paper",
		},
		{
			name:     "missing author becomes unknown",
			record:   record("", 2020, "Example Paper"),
			expected: "unknown-2020-example-paper",
		},
		{
			name:     "punctuation collapses to separators",
			record:   record("O'Brien", 1999, "What? A (strange) title!"),
			expected: "o-brien-1999-what-a-strange",
		},
		{
			name:     "unicode letters survive",
			record:   record("Müller", 2015, "Über Strömung"),
			expected: "müller-2015-über-strömung",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewNamer().Assign(tt.record))
		})
	}
}

func TestAssign_MinimalRecordUsesItemKey(t *testing.T) {
	rec := &entities.Record{Key: "ABCD1234", Minimal: true}
	assert.Equal(t, "abcd1234", NewNamer().Assign(rec))
}

func TestAssign_BoundedLength(t *testing.T) {
	rec := record(strings.Repeat("x", 200), 2020, "title")
	slug := NewNamer().Assign(rec)

	assert.LessOrEqual(t, len([]rune(slug)), maxSlugLen)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestAssign_CollisionsGetIncreasingSuffixes(t *testing.T) {
	namer := NewNamer()

	first := namer.Assign(record("Doe", 0, "Title"))
	second := namer.Assign(record("Doe", 0, "Title"))
	third := namer.Assign(record("Doe", 0, "Title"))

	assert.Equal(t, "doe-title", first)
	assert.Equal(t, "doe-title-2", second)
	assert.Equal(t, "doe-title-3", third)
}

func TestAssign_SuffixedNameAlreadyTaken(t *testing.T) {
	namer := NewNamer()

	// A record whose natural slug looks like a collision suffix.
	natural := namer.Assign(record("Doe", 0, "Title 2"))
	assert.Equal(t, "doe-title-2", natural)

	first := namer.Assign(record("Doe", 0, "Title"))
	colliding := namer.Assign(record("Doe", 0, "Title"))

	assert.Equal(t, "doe-title", first)
	// -2 is taken by the natural slug, so the collision moves on to -3.
	assert.Equal(t, "doe-title-3", colliding)
}

func TestAssign_DeterministicForSameOrder(t *testing.T) {
	build := func() []string {
		namer := NewNamer()
		return []string{
			namer.Assign(record("Doe", 2020, "Example Paper")),
			namer.Assign(record("Doe", 2020, "Example Paper")),
			namer.Assign(record("Roe", 0, "Other")),
		}
	}

	assert.Equal(t, build(), build())
}
