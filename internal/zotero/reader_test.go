package zotero

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Item type and creator type IDs used by the fixture library.
const (
	typeJournalArticle = 1
	typeNote           = 2
	typeAttachment     = 3
	typeBook           = 4

	creatorAuthor = 1
	creatorEditor = 2
)

// Field IDs used by the fixture library.
const (
	fieldTitle = 1
	fieldDate  = 2
	fieldExtra = 3
	fieldDOI   = 4
)

// testLibrary builds a throwaway Zotero data directory with the relational
// schema the reader expects.
type testLibrary struct {
	dir         string
	db          *sql.DB
	nextValueID int64
}

func createTestLibrary(t *testing.T) *testLibrary {
	t.Helper()

	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, DatabaseFileName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE itemTypes (itemTypeID INTEGER PRIMARY KEY, typeName TEXT)`,
		`CREATE TABLE items (
			itemID INTEGER PRIMARY KEY,
			itemTypeID INT,
			dateAdded TEXT,
			dateModified TEXT,
			clientDateModified TEXT,
			key TEXT
		)`,
		`CREATE TABLE fields (fieldID INTEGER PRIMARY KEY, fieldName TEXT)`,
		`CREATE TABLE itemData (itemID INT, fieldID INT, valueID INT)`,
		`CREATE TABLE itemDataValues (valueID INTEGER PRIMARY KEY, value TEXT)`,
		`CREATE TABLE creators (creatorID INTEGER PRIMARY KEY, firstName TEXT, lastName TEXT)`,
		`CREATE TABLE creatorTypes (creatorTypeID INTEGER PRIMARY KEY, creatorType TEXT)`,
		`CREATE TABLE itemCreators (itemID INT, creatorID INT, creatorTypeID INT, orderIndex INT)`,
		`CREATE TABLE tags (tagID INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE itemTags (itemID INT, tagID INT)`,
		`CREATE TABLE collections (collectionID INTEGER PRIMARY KEY, collectionName TEXT, parentCollectionID INT)`,
		`CREATE TABLE collectionItems (collectionID INT, itemID INT)`,
		`CREATE TABLE itemAttachments (itemID INTEGER PRIMARY KEY, parentItemID INT, contentType TEXT, path TEXT)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	seed := []string{
		`INSERT INTO itemTypes VALUES (1, 'journalArticle'), (2, 'note'), (3, 'attachment'), (4, 'book')`,
		`INSERT INTO creatorTypes VALUES (1, 'author'), (2, 'editor')`,
		`INSERT INTO fields VALUES (1, 'title'), (2, 'date'), (3, 'extra'), (4, 'DOI')`,
	}
	for _, stmt := range seed {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return &testLibrary{dir: dir, db: db}
}

func (lib *testLibrary) addItem(t *testing.T, itemID int64, itemTypeID int, key string) {
	t.Helper()
	_, err := lib.db.Exec(
		`INSERT INTO items VALUES (?, ?, '2020-01-01 10:00:00', '2020-01-02 10:00:00', '2020-01-02 10:00:00', ?)`,
		itemID, itemTypeID, key,
	)
	require.NoError(t, err)
}

func (lib *testLibrary) setField(t *testing.T, itemID int64, fieldID int, value string) {
	t.Helper()
	lib.nextValueID++
	_, err := lib.db.Exec(`INSERT INTO itemDataValues VALUES (?, ?)`, lib.nextValueID, value)
	require.NoError(t, err)
	_, err = lib.db.Exec(`INSERT INTO itemData VALUES (?, ?, ?)`, itemID, fieldID, lib.nextValueID)
	require.NoError(t, err)
}

func (lib *testLibrary) addCreator(t *testing.T, itemID, creatorID int64, given, family string, creatorTypeID, orderIndex int) {
	t.Helper()
	_, err := lib.db.Exec(`INSERT INTO creators VALUES (?, ?, ?)`, creatorID, given, family)
	require.NoError(t, err)
	_, err = lib.db.Exec(`INSERT INTO itemCreators VALUES (?, ?, ?, ?)`, itemID, creatorID, creatorTypeID, orderIndex)
	require.NoError(t, err)
}

func (lib *testLibrary) addTag(t *testing.T, itemID, tagID int64, name string) {
	t.Helper()
	_, err := lib.db.Exec(`INSERT INTO tags VALUES (?, ?)`, tagID, name)
	require.NoError(t, err)
	_, err = lib.db.Exec(`INSERT INTO itemTags VALUES (?, ?)`, itemID, tagID)
	require.NoError(t, err)
}

func (lib *testLibrary) addCollection(t *testing.T, collectionID int64, name string, parentID int64) {
	t.Helper()
	var parent interface{}
	if parentID != 0 {
		parent = parentID
	}
	_, err := lib.db.Exec(`INSERT INTO collections VALUES (?, ?, ?)`, collectionID, name, parent)
	require.NoError(t, err)
}

func (lib *testLibrary) addToCollection(t *testing.T, collectionID, itemID int64) {
	t.Helper()
	_, err := lib.db.Exec(`INSERT INTO collectionItems VALUES (?, ?)`, collectionID, itemID)
	require.NoError(t, err)
}

func (lib *testLibrary) addAttachment(t *testing.T, attachmentItemID, parentItemID int64, key, path, contentType string) {
	t.Helper()
	lib.addItem(t, attachmentItemID, typeAttachment, key)
	var pathValue interface{}
	if path != "" {
		pathValue = path
	}
	_, err := lib.db.Exec(`INSERT INTO itemAttachments VALUES (?, ?, ?, ?)`, attachmentItemID, parentItemID, contentType, pathValue)
	require.NoError(t, err)
}

// writeStorageFile places a file inside the managed storage tree.
func (lib *testLibrary) writeStorageFile(t *testing.T, key, name, content string) string {
	t.Helper()
	dir := filepath.Join(lib.dir, "storage", key)
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (lib *testLibrary) open(t *testing.T) *Reader {
	t.Helper()
	reader, err := Open(lib.dir)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })
	return reader
}

func TestOpen_MissingDatabase(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestOpen_NotADatabase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DatabaseFileName), []byte("not sqlite"), 0644))

	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestOpen_WrongSchema(t *testing.T) {
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, DatabaseFileName))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE something_else (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(dir)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestListItems_ExcludesNotesAndAttachments(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")
	lib.addItem(t, 2, typeNote, "BBBB2222")
	lib.addItem(t, 3, typeBook, "CCCC3333")
	lib.addItem(t, 4, typeAttachment, "DDDD4444")

	reader := lib.open(t)
	items, err := reader.ListItems()
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ItemID)
	assert.Equal(t, "journalArticle", items[0].TypeName)
	assert.Equal(t, "AAAA1111", items[0].Key)
	assert.Equal(t, int64(3), items[1].ItemID)
	assert.Equal(t, "book", items[1].TypeName)
}

func TestListItems_OrderedByItemID(t *testing.T) {
	lib := createTestLibrary(t)
	// Insert out of order; iteration order must still be by item ID.
	lib.addItem(t, 9, typeBook, "ZZZZ9999")
	lib.addItem(t, 2, typeJournalArticle, "AAAA2222")
	lib.addItem(t, 5, typeBook, "MMMM5555")

	reader := lib.open(t)
	items, err := reader.ListItems()
	require.NoError(t, err)

	var ids []int64
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}
	assert.Equal(t, []int64{2, 5, 9}, ids)
}

func TestFieldsFor_TranslatesFieldNames(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")
	lib.setField(t, 1, fieldTitle, "Example Paper")
	lib.setField(t, 1, fieldDOI, "10.1000/xyz123")

	reader := lib.open(t)
	fields, err := reader.FieldsFor(1)
	require.NoError(t, err)

	assert.Equal(t, "Example Paper", fields["title"])
	assert.Equal(t, "10.1000/xyz123", fields["doi"])
	assert.NotContains(t, fields, "DOI")
}

func TestCreatorsFor_Ordering(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")
	lib.addCreator(t, 1, 10, "Ada", "Lovelace", creatorEditor, 0)
	lib.addCreator(t, 1, 11, "John", "Doe", creatorAuthor, 1)
	lib.addCreator(t, 1, 12, "Jane", "Roe", creatorAuthor, 0)

	reader := lib.open(t)
	creators, err := reader.CreatorsFor(1)
	require.NoError(t, err)

	// Authors first (by creator type), then by the stored order index.
	require.Len(t, creators, 3)
	assert.Equal(t, "Roe", creators[0].FamilyName)
	assert.Equal(t, "author", creators[0].Role)
	assert.Equal(t, "Doe", creators[1].FamilyName)
	assert.Equal(t, "Lovelace", creators[2].FamilyName)
	assert.Equal(t, "editor", creators[2].Role)
}

func TestTagsFor_DeduplicatesAndSorts(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")
	lib.addTag(t, 1, 1, "physics")
	lib.addTag(t, 1, 2, "algebra")
	lib.addTag(t, 1, 3, "physics") // same name, different tag ID

	reader := lib.open(t)
	tags, err := reader.TagsFor(1)
	require.NoError(t, err)

	assert.Equal(t, []string{"algebra", "physics"}, tags)
}

func TestCollectionPathsFor_NestedPath(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")
	lib.addCollection(t, 1, "Research", 0)
	lib.addCollection(t, 2, "Quantum", 1)
	lib.addCollection(t, 3, "Reading List", 0)
	lib.addToCollection(t, 2, 1)
	lib.addToCollection(t, 3, 1)

	reader := lib.open(t)
	paths, err := reader.CollectionPathsFor(1)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, []string{"Research", "Quantum"}, paths[0])
	assert.Equal(t, []string{"Reading List"}, paths[1])
}

func TestAttachmentsFor_SkipsRowsWithoutPath(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")
	lib.addAttachment(t, 100, 1, "KEYA0001", "storage:paper.pdf", "application/pdf")
	lib.addAttachment(t, 101, 1, "KEYB0002", "", "text/html") // web link, no file

	reader := lib.open(t)
	attachments, err := reader.AttachmentsFor(1)
	require.NoError(t, err)

	require.Len(t, attachments, 1)
	assert.Equal(t, "KEYA0001", attachments[0].Key)
	assert.Equal(t, "storage:paper.pdf", attachments[0].RawPath)
	assert.Equal(t, "application/pdf", attachments[0].ContentType)
}

func TestReaderNeverWrites(t *testing.T) {
	lib := createTestLibrary(t)
	lib.addItem(t, 1, typeJournalArticle, "AAAA1111")

	reader := lib.open(t)

	// The connection is read-only; any write must fail.
	_, err := reader.db.Exec(`INSERT INTO tags VALUES (1, 'nope')`)
	assert.Error(t, err)
}
