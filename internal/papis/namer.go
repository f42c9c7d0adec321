package papis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

const (
	// maxTitleWords is how many leading title words go into a directory name.
	maxTitleWords = 3
	// maxSlugLen bounds the total directory name length.
	maxSlugLen = 80
)

// Runs of anything that is not a letter or digit collapse into one separator.
var nonSlugChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Namer assigns each record a filesystem-safe, human-readable directory name
// and guarantees uniqueness across one run. The first record to produce a
// given slug keeps it unsuffixed; later collisions get -2, -3, ... in order
// of appearance. A single Namer must see every record of the run.
type Namer struct {
	taken map[string]bool
}

func NewNamer() *Namer {
	return &Namer{taken: make(map[string]bool)}
}

// Assign returns the unique directory name for the record and reserves it.
func (n *Namer) Assign(record *entities.Record) string {
	base := baseSlug(record)

	slug := base
	for i := 2; n.taken[slug]; i++ {
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	n.taken[slug] = true
	return slug
}

// baseSlug builds "{first-author-family}-{year}-{first-title-words}". Records
// without title and creators fall back to their Zotero item key.
func baseSlug(record *entities.Record) string {
	if record.Minimal {
		if slug := slugify(record.Key); slug != "" {
			return slug
		}
		return "unknown"
	}

	author := "unknown"
	if creator, ok := record.FirstAuthor(); ok {
		if slug := slugify(creator.FamilyName); slug != "" {
			author = slug
		}
	}

	parts := []string{author}
	if record.Year > 0 {
		parts = append(parts, strconv.Itoa(record.Year))
	}

	titleWords := strings.Split(slugify(record.Title), "-")
	if len(titleWords) > maxTitleWords {
		titleWords = titleWords[:maxTitleWords]
	}
	if titleWords[0] != "" {
		parts = append(parts, titleWords...)
	}

	slug := strings.Join(parts, "-")
	if runes := []rune(slug); len(runes) > maxSlugLen {
		slug = strings.Trim(string(runes[:maxSlugLen]), "-")
	}
	return slug
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
