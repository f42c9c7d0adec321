package entities

import (
	"path/filepath"
	"strings"
)

type StorageKind string

const (
	// StorageKindManaged means the file lives inside Zotero's own storage
	// tree, addressed by the attachment's item key.
	StorageKindManaged StorageKind = "managed"
	// StorageKindLinked means the file lives at a user-chosen path stored
	// literally in the database.
	StorageKindLinked StorageKind = "linked"
)

const (
	managedPathPrefix = "storage:"
	linkedPathPrefix  = "attachments:"
)

// AttachmentRef points at one file associated with a Record, as declared in
// the source database. Resolution to an on-disk path happens later.
type AttachmentRef struct {
	Key         string // Zotero key of the attachment item itself
	RawPath     string // itemAttachments.path verbatim
	ContentType string
}

// Kind classifies the attachment by its raw path. Zotero prefixes managed
// files with "storage:"; anything else is a user-linked path.
func (a AttachmentRef) Kind() StorageKind {
	if strings.HasPrefix(a.RawPath, managedPathPrefix) {
		return StorageKindManaged
	}
	return StorageKindLinked
}

// Filename returns the declared file name, without any storage prefix or
// directory components.
func (a AttachmentRef) Filename() string {
	path := strings.TrimPrefix(a.RawPath, managedPathPrefix)
	path = strings.TrimPrefix(path, linkedPathPrefix)
	return filepath.Base(filepath.FromSlash(path))
}

// LinkedPath returns the user-chosen path of a linked attachment, with the
// base-directory prefix stripped when present.
func (a AttachmentRef) LinkedPath() string {
	return strings.TrimPrefix(a.RawPath, linkedPathPrefix)
}

// ResolvedAttachment is the outcome of resolving one AttachmentRef against
// the filesystem.
type ResolvedAttachment struct {
	Ref        AttachmentRef
	SourcePath string // path where the file was found, or the expected location when missing
	Exists     bool
	Size       int64 // byte size when Exists
}
