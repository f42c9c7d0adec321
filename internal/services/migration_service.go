package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nicolasshu/zotero2papis/internal/entities"
	"github.com/nicolasshu/zotero2papis/internal/papis"
	"github.com/nicolasshu/zotero2papis/internal/zotero"
)

// MigrationService drives one migration run: every item is fully resolved,
// named, copied and written before the next one starts. Per-record failures
// are collected into the run report; only a missing or unreadable source
// database aborts the run.
type MigrationService struct {
	reader      *zotero.Reader
	items       *zotero.ItemResolver
	attachments *zotero.AttachmentResolver
	namer       *papis.Namer
	copier      *papis.Copier
	writer      *papis.InfoWriter

	outputDir string
	dryRun    bool
	verbose   bool
}

type MigrationOptions struct {
	OutputDir     string
	LinkedBaseDir string
	DryRun        bool
	Verbose       bool
}

func NewMigrationService(reader *zotero.Reader, opts MigrationOptions) *MigrationService {
	return &MigrationService{
		reader:      reader,
		items:       zotero.NewItemResolver(reader),
		attachments: zotero.NewAttachmentResolver(reader.StorageDir(), opts.LinkedBaseDir),
		namer:       papis.NewNamer(),
		copier:      papis.NewCopier(reader.StorageDir(), opts.OutputDir),
		writer:      papis.NewInfoWriter(),
		outputDir:   opts.OutputDir,
		dryRun:      opts.DryRun,
		verbose:     opts.Verbose,
	}
}

// Run processes every item in the library. Cancelling the context stops the
// run after the record currently in flight; records already written stay
// consistent.
func (s *MigrationService) Run(ctx context.Context) (*entities.RunReport, error) {
	items, err := s.reader.ListItems()
	if err != nil {
		if errors.Is(err, zotero.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", zotero.ErrSourceUnavailable, err)
	}

	report := &entities.RunReport{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.processItem(item, report)
	}

	return report, nil
}

func (s *MigrationService) processItem(item zotero.ItemRow, report *entities.RunReport) {
	record, err := s.items.Resolve(item)
	if err != nil {
		report.RecordsSkipped++
		report.Warnf("skipped item %d: %v", item.ItemID, err)
		log.Printf("skipped item %d: %v", item.ItemID, err)
		return
	}

	slug := s.namer.Assign(record)
	destDir := filepath.Join(s.outputDir, slug)

	if s.verbose {
		fmt.Printf("  📄 %s → %s/\n", record.Ref, slug)
	}

	if s.dryRun {
		report.RecordsProcessed++
		return
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		report.RecordsFailed++
		report.Warnf("%s: failed to create %s: %v", record.Ref, destDir, err)
		return
	}

	files := s.placeAttachments(record, destDir, report)

	if err := s.writer.Write(record, files, destDir); err != nil {
		report.RecordsFailed++
		report.Warnf("%s: %v", record.Ref, err)
		return
	}

	report.RecordsProcessed++
}

// placeAttachments resolves and copies each attachment, returning the
// filenames that ended up inside destDir. Missing and conflicting
// attachments are reported and left out of the returned list.
func (s *MigrationService) placeAttachments(record *entities.Record, destDir string, report *entities.RunReport) []string {
	var files []string
	for _, ref := range record.Attachments {
		resolved := s.attachments.Resolve(ref)
		if !resolved.Exists {
			report.AttachmentsMissing++
			report.Warnf("%s: attachment %s not found at %s", record.Ref, ref.Filename(), resolved.SourcePath)
			continue
		}

		status, err := s.copier.Copy(resolved, destDir)
		if err != nil {
			if errors.Is(err, papis.ErrDestinationConflict) {
				report.AttachmentsConflicted++
				report.Warnf("%s: %v", record.Ref, err)
				continue
			}
			report.Warnf("%s: failed to copy %s: %v", record.Ref, ref.Filename(), err)
			continue
		}

		switch status {
		case papis.CopyStatusCopied:
			report.AttachmentsCopied++
		case papis.CopyStatusUpToDate:
			report.AttachmentsUpToDate++
		}
		files = append(files, ref.Filename())
	}
	return files
}
