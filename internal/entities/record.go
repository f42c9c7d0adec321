package entities

// Creator is one author/editor/translator of a bibliographic entry.
type Creator struct {
	Role       string // creatorType from Zotero: "author", "editor", ...
	GivenName  string
	FamilyName string
}

// Record is the denormalized, in-memory representation of one bibliographic
// entry after joining all relational tables. It is constructed once by the
// item resolver and never mutated afterwards.
type Record struct {
	ItemID         int64
	Key            string // Zotero item key, e.g. "ABCD1234"
	Ref            string // citation key; falls back to the item key
	Type           string // translated item type, e.g. "article"
	Title          string
	Year           int // 0 if unknown
	Creators       []Creator
	Tags           []string
	CollectionPath []string // root-to-leaf collection names, may be empty
	Attachments    []AttachmentRef
	Created        string // dateAdded as stored in the source DB
	Modified       string // dateModified as stored in the source DB

	// Minimal marks records with neither title nor creators; the directory
	// namer falls back to the item key for these.
	Minimal bool
}

// FirstAuthor returns the first creator with the "author" role, or the first
// creator of any role when no author exists.
func (r *Record) FirstAuthor() (Creator, bool) {
	for _, c := range r.Creators {
		if c.Role == "author" {
			return c, true
		}
	}
	if len(r.Creators) > 0 {
		return r.Creators[0], true
	}
	return Creator{}, false
}
