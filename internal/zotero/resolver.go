package zotero

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

var typeTranslations = map[string]string{
	"journalArticle": "article",
}

var (
	// Zotero keeps user-assigned citation keys in the free-form "extra" field.
	citationKeyPattern = regexp.MustCompile(`Citation Key: (\w+)`)
	// Zotero date values start with an ISO-ish date, e.g. "2020-06-01 June 1, 2020".
	yearPattern = regexp.MustCompile(`^(\d{4})`)
)

// ItemResolver joins the raw relational rows of one item into a denormalized
// Record.
type ItemResolver struct {
	reader *Reader
}

func NewItemResolver(reader *Reader) *ItemResolver {
	return &ItemResolver{reader: reader}
}

// Resolve builds the Record for one item row. It fails with ErrMalformedRecord
// when the row is structurally unusable; callers skip the item and continue.
func (ir *ItemResolver) Resolve(row ItemRow) (*entities.Record, error) {
	if row.ItemID <= 0 || row.Key == "" {
		return nil, fmt.Errorf("%w: item %d has no key", ErrMalformedRecord, row.ItemID)
	}

	fields, err := ir.reader.FieldsFor(row.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedRecord, row.ItemID, err)
	}
	creators, err := ir.reader.CreatorsFor(row.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedRecord, row.ItemID, err)
	}
	tags, err := ir.reader.TagsFor(row.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedRecord, row.ItemID, err)
	}
	collectionPaths, err := ir.reader.CollectionPathsFor(row.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedRecord, row.ItemID, err)
	}
	attachments, err := ir.reader.AttachmentsFor(row.ItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedRecord, row.ItemID, err)
	}

	itemType := row.TypeName
	if translated, ok := typeTranslations[itemType]; ok {
		itemType = translated
	}

	ref := row.Key
	if matches := citationKeyPattern.FindStringSubmatch(fields["extra"]); matches != nil {
		ref = matches[1]
	}

	// An item in several collections keeps the first path; the remaining
	// collections are recorded as extra tags so they stay discoverable.
	var collectionPath []string
	if len(collectionPaths) > 0 {
		collectionPath = collectionPaths[0]
		tags = appendCollectionTags(tags, collectionPaths[1:])
	}

	title := fields["title"]

	return &entities.Record{
		ItemID:         row.ItemID,
		Key:            row.Key,
		Ref:            ref,
		Type:           itemType,
		Title:          title,
		Year:           parseYear(fields["date"]),
		Creators:       creators,
		Tags:           tags,
		CollectionPath: collectionPath,
		Attachments:    attachments,
		Created:        row.DateAdded,
		Modified:       row.DateModified,
		Minimal:        title == "" && len(creators) == 0,
	}, nil
}

func appendCollectionTags(tags []string, paths [][]string) []string {
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		seen[tag] = true
	}
	for _, path := range paths {
		leaf := path[len(path)-1]
		if leaf == "" || seen[leaf] {
			continue
		}
		seen[leaf] = true
		tags = append(tags, leaf)
	}
	return tags
}

func parseYear(date string) int {
	matches := yearPattern.FindStringSubmatch(date)
	if matches == nil {
		return 0
	}
	year, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return year
}
