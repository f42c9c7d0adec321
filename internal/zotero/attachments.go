package zotero

import (
	"os"
	"path/filepath"

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

// AttachmentResolver locates the bytes of each attachment on disk. Managed
// attachments live under the Zotero storage tree keyed by the attachment's
// item key; linked attachments live wherever the user pointed Zotero at.
type AttachmentResolver struct {
	storageDir    string
	linkedBaseDir string
}

func NewAttachmentResolver(storageDir, linkedBaseDir string) *AttachmentResolver {
	return &AttachmentResolver{
		storageDir:    storageDir,
		linkedBaseDir: linkedBaseDir,
	}
}

// Resolve maps one attachment reference to an existing absolute path. It
// never guesses: when no candidate path exists the attachment is returned
// unresolved and the enclosing record proceeds without it.
func (ar *AttachmentResolver) Resolve(ref entities.AttachmentRef) entities.ResolvedAttachment {
	resolved := entities.ResolvedAttachment{Ref: ref}

	for _, candidate := range ar.candidates(ref) {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			if resolved.SourcePath == "" {
				resolved.SourcePath = candidate
			}
			continue
		}
		resolved.SourcePath = candidate
		resolved.Exists = true
		resolved.Size = info.Size()
		break
	}

	return resolved
}

func (ar *AttachmentResolver) candidates(ref entities.AttachmentRef) []string {
	if ref.Kind() == entities.StorageKindManaged {
		return []string{filepath.Join(ar.storageDir, ref.Key, ref.Filename())}
	}

	linked := filepath.FromSlash(ref.LinkedPath())
	candidates := []string{linked}
	if !filepath.IsAbs(linked) && ar.linkedBaseDir != "" {
		candidates = append(candidates, filepath.Join(ar.linkedBaseDir, linked))
	}
	return candidates
}
