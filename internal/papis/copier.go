package papis

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/nicolasshu/zotero2papis/internal/entities"
)

// ErrDestinationConflict means the destination file already exists with
// different content. The existing file is never overwritten.
var ErrDestinationConflict = errors.New("destination exists with different content")

type CopyStatus int

const (
	CopyStatusCopied CopyStatus = iota
	// CopyStatusUpToDate means the destination already holds identical bytes.
	CopyStatusUpToDate
	// CopyStatusSameRoot means the output root is the managed storage tree
	// itself, so managed attachments are left in place.
	CopyStatusSameRoot
)

// Copier places resolved attachment bytes into a record's output directory.
// Copies are idempotent: a re-run over unchanged data does no byte writes.
type Copier struct {
	sameRoot bool
}

// NewCopier detects whether the output root coincides with the Zotero
// storage root, in which case managed attachments degrade to a metadata-only
// pass.
func NewCopier(storageDir, outputDir string) *Copier {
	return &Copier{sameRoot: filepath.Clean(storageDir) == filepath.Clean(outputDir)}
}

// Copy writes the attachment into destDir under its declared filename.
func (c *Copier) Copy(attachment entities.ResolvedAttachment, destDir string) (CopyStatus, error) {
	if c.sameRoot && attachment.Ref.Kind() == entities.StorageKindManaged {
		return CopyStatusSameRoot, nil
	}

	dest := filepath.Join(destDir, attachment.Ref.Filename())
	if info, err := os.Stat(dest); err == nil {
		if info.Size() == attachment.Size {
			same, err := sameContent(attachment.SourcePath, dest)
			if err != nil {
				return 0, fmt.Errorf("failed to compare %s: %w", dest, err)
			}
			if same {
				return CopyStatusUpToDate, nil
			}
		}
		return 0, fmt.Errorf("%w: %s", ErrDestinationConflict, dest)
	}

	src, err := os.Open(attachment.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", attachment.SourcePath, err)
	}
	defer src.Close()

	if err := atomic.WriteFile(dest, src); err != nil {
		return 0, fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	return CopyStatusCopied, nil
}

func sameContent(a, b string) (bool, error) {
	sumA, err := fileChecksum(a)
	if err != nil {
		return false, err
	}
	sumB, err := fileChecksum(b)
	if err != nil {
		return false, err
	}
	return sumA == sumB, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
