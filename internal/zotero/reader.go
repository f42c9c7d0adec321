package zotero

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

// DatabaseFileName is the name of the SQLite file inside a Zotero data
// directory.
const DatabaseFileName = "zotero.sqlite"

// Zotero stores some field names and item types differently from papis.
var fieldTranslations = map[string]string{
	"DOI": "doi",
}

// ItemRow is one raw row from the items table, before any joins.
type ItemRow struct {
	ItemID             int64
	TypeName           string
	Key                string
	DateAdded          string
	DateModified       string
	ClientDateModified string
}

// Reader provides read-only access to a Zotero library database. It never
// issues writes; the underlying connection is opened in read-only mode.
type Reader struct {
	db        *sql.DB
	zoteroDir string

	// collection tree cache, loaded lazily on first path lookup
	collections map[int64]collectionNode
}

type collectionNode struct {
	name     string
	parentID int64 // 0 means root
}

// Open opens the database inside the given Zotero data directory. It fails
// with ErrSourceUnavailable when the file does not exist or does not carry
// the expected schema.
func Open(zoteroDir string) (*Reader, error) {
	dbPath := filepath.Join(zoteroDir, DatabaseFileName)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, dbPath)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	// Probe the schema; this also surfaces files that are not SQLite at all.
	var tables int
	err = db.QueryRow(`
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type = 'table' AND name IN ('items', 'itemTypes', 'itemAttachments')
	`).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, dbPath, err)
	}
	if tables < 3 {
		db.Close()
		return nil, fmt.Errorf("%w: %s is not a Zotero database", ErrSourceUnavailable, dbPath)
	}

	return &Reader{db: db, zoteroDir: zoteroDir}, nil
}

func (r *Reader) Close() error {
	return r.db.Close()
}

// StorageDir returns the root of Zotero's managed attachment storage.
func (r *Reader) StorageDir() string {
	return filepath.Join(r.zoteroDir, "storage")
}

// ListItems returns all bibliographic items, excluding notes and attachments,
// ordered by item ID. The fixed ordering keeps directory-name collision
// suffixes stable across runs.
func (r *Reader) ListItems() ([]ItemRow, error) {
	rows, err := r.db.Query(`
		SELECT
			items.itemID,
			itemTypes.typeName,
			items.key,
			items.dateAdded,
			items.dateModified,
			items.clientDateModified
		FROM items
		JOIN itemTypes ON itemTypes.itemTypeID = items.itemTypeID
		WHERE itemTypes.typeName NOT IN ('note', 'attachment')
		ORDER BY items.itemID
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []ItemRow
	for rows.Next() {
		var item ItemRow
		var key, dateAdded, dateModified, clientDateModified sql.NullString

		if err := rows.Scan(
			&item.ItemID,
			&item.TypeName,
			&key,
			&dateAdded,
			&dateModified,
			&clientDateModified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}

		item.Key = key.String
		item.DateAdded = dateAdded.String
		item.DateModified = dateModified.String
		item.ClientDateModified = clientDateModified.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// FieldsFor returns the item's metadata fields (title, date, extra, ...) as a
// name/value map. Field names are translated to their papis equivalents.
func (r *Reader) FieldsFor(itemID int64) (map[string]string, error) {
	rows, err := r.db.Query(`
		SELECT fields.fieldName, itemDataValues.value
		FROM itemData
		JOIN fields ON fields.fieldID = itemData.fieldID
		JOIN itemDataValues ON itemDataValues.valueID = itemData.valueID
		WHERE itemData.itemID = ?
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan field row: %w", err)
		}
		if translated, ok := fieldTranslations[name]; ok {
			name = translated
		}
		fields[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fields: %w", err)
	}

	return fields, nil
}

// CreatorsFor returns the item's creators ordered by creator type and then by
// the ordering Zotero stores for them.
func (r *Reader) CreatorsFor(itemID int64) ([]entities.Creator, error) {
	rows, err := r.db.Query(`
		SELECT creatorTypes.creatorType, creators.firstName, creators.lastName
		FROM itemCreators
		JOIN creatorTypes ON creatorTypes.creatorTypeID = itemCreators.creatorTypeID
		JOIN creators ON creators.creatorID = itemCreators.creatorID
		WHERE itemCreators.itemID = ?
		ORDER BY creatorTypes.creatorType, itemCreators.orderIndex
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query creators: %w", err)
	}
	defer rows.Close()

	var creators []entities.Creator
	for rows.Next() {
		var creator entities.Creator
		var given, family sql.NullString

		if err := rows.Scan(&creator.Role, &given, &family); err != nil {
			return nil, fmt.Errorf("failed to scan creator row: %w", err)
		}

		creator.GivenName = given.String
		creator.FamilyName = family.String
		creators = append(creators, creator)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating creators: %w", err)
	}

	return creators, nil
}

// TagsFor returns the item's tags, deduplicated and sorted by name.
func (r *Reader) TagsFor(itemID int64) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT tags.name
		FROM itemTags
		JOIN tags ON tags.tagID = itemTags.tagID
		WHERE itemTags.itemID = ?
		ORDER BY tags.name
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	seen := make(map[string]bool)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// CollectionPathsFor returns, for every collection the item belongs to, the
// root-to-leaf sequence of collection names. Membership is ordered by
// collection ID so repeated runs see the same first path.
func (r *Reader) CollectionPathsFor(itemID int64) ([][]string, error) {
	if err := r.loadCollections(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT collectionID
		FROM collectionItems
		WHERE itemID = ?
		ORDER BY collectionID
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection membership: %w", err)
	}
	defer rows.Close()

	var paths [][]string
	for rows.Next() {
		var collectionID int64
		if err := rows.Scan(&collectionID); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		if path := r.collectionPath(collectionID); len(path) > 0 {
			paths = append(paths, path)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	return paths, nil
}

func (r *Reader) loadCollections() error {
	if r.collections != nil {
		return nil
	}

	rows, err := r.db.Query(`
		SELECT collectionID, collectionName, parentCollectionID
		FROM collections
	`)
	if err != nil {
		return fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	collections := make(map[int64]collectionNode)
	for rows.Next() {
		var id int64
		var name string
		var parentID sql.NullInt64

		if err := rows.Scan(&id, &name, &parentID); err != nil {
			return fmt.Errorf("failed to scan collection row: %w", err)
		}
		collections[id] = collectionNode{name: name, parentID: parentID.Int64}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating collections: %w", err)
	}

	r.collections = collections
	return nil
}

func (r *Reader) collectionPath(collectionID int64) []string {
	var reversed []string
	id := collectionID
	// Depth guard in case of a corrupted parent cycle.
	for depth := 0; depth < 64; depth++ {
		node, ok := r.collections[id]
		if !ok {
			break
		}
		reversed = append(reversed, node.name)
		if node.parentID == 0 {
			break
		}
		id = node.parentID
	}

	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// AttachmentsFor returns the attachment rows whose parent is the given item.
// Rows without a path (e.g. web links) are skipped.
func (r *Reader) AttachmentsFor(itemID int64) ([]entities.AttachmentRef, error) {
	rows, err := r.db.Query(`
		SELECT items.key, itemAttachments.path, itemAttachments.contentType
		FROM itemAttachments
		JOIN items ON items.itemID = itemAttachments.itemID
		WHERE itemAttachments.parentItemID = ?
		ORDER BY itemAttachments.itemID
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []entities.AttachmentRef
	for rows.Next() {
		var key string
		var path, contentType sql.NullString

		if err := rows.Scan(&key, &path, &contentType); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		if path.String == "" {
			continue
		}

		attachments = append(attachments, entities.AttachmentRef{
			Key:         key,
			RawPath:     path.String,
			ContentType: contentType.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}
