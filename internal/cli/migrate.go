package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/nicolasshu/zotero2papis/internal/config"
	"github.com/nicolasshu/zotero2papis/internal/services"
	"github.com/nicolasshu/zotero2papis/internal/zotero"
)

// MigrateCommand handles migrating a Zotero library into a papis tree
type MigrateCommand struct {
	ZoteroDir     string
	OutputDir     string
	LinkedBaseDir string
	Verbose       bool
	DryRun        bool
}

// NewMigrateCommand creates a new MigrateCommand
func NewMigrateCommand() *MigrateCommand {
	return &MigrateCommand{}
}

// ParseFlags parses command line flags
func (cmd *MigrateCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()

	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)

	fs.StringVar(&cmd.ZoteroDir, "zotero-dir", cfg.Zotero.Dir, "Parent directory of zotero.sqlite and the storage/ tree")
	fs.StringVar(&cmd.OutputDir, "output-dir", cfg.Output.Dir, "Root directory of the papis library to write")
	fs.StringVar(&cmd.LinkedBaseDir, "linked-base", cfg.Zotero.LinkedBaseDir, "Base directory for resolving relative linked-attachment paths")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Resolve and name records without copying or writing anything")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s migrate [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Migrate a Zotero library into a papis-style directory tree: one folder per\n")
		fmt.Fprintf(os.Stderr, "reference, holding the attachment files and an info.yaml document.\n\n")
		fmt.Fprintf(os.Stderr, "The source database is opened read-only and never modified. Re-running is\n")
		fmt.Fprintf(os.Stderr, "safe: existing identical files are skipped and metadata is rewritten\n")
		fmt.Fprintf(os.Stderr, "deterministically.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Migrate the default library (~/Zotero) into ~/papers:\n")
		fmt.Fprintf(os.Stderr, "  %s migrate --output-dir ~/papers\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview the directory names without writing anything:\n")
		fmt.Fprintf(os.Stderr, "  %s migrate --output-dir ~/papers --dry-run --verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ZoteroDir == "" {
		return fmt.Errorf("zotero directory is required (--zotero-dir or ZOTERO_DIR)")
	}
	if cmd.OutputDir == "" {
		return fmt.Errorf("output directory is required (--output-dir or OUTPUT_DIR)")
	}

	return nil
}

// Run executes the migration
func (cmd *MigrateCommand) Run() error {
	fmt.Println("📚 Zotero → papis migration")
	fmt.Println("===========================")

	if cmd.DryRun {
		fmt.Println("🔍 DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	reader, err := zotero.Open(cmd.ZoteroDir)
	if err != nil {
		return err
	}
	defer reader.Close()

	fmt.Printf("📁 Source library: %s\n", filepath.Join(cmd.ZoteroDir, zotero.DatabaseFileName))
	fmt.Printf("📂 Output root:    %s\n", cmd.OutputDir)

	if !cmd.DryRun {
		if err := os.MkdirAll(cmd.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Ctrl-C finishes the record in flight and then stops.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	service := services.NewMigrationService(reader, services.MigrationOptions{
		OutputDir:     cmd.OutputDir,
		LinkedBaseDir: cmd.LinkedBaseDir,
		DryRun:        cmd.DryRun,
		Verbose:       cmd.Verbose,
	})

	fmt.Println("\n📖 Migrating records...")
	report, runErr := service.Run(ctx)
	if report == nil {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Println("\n⚠️  Interrupted - stopped after the current record")
	}

	fmt.Println("\n=== Migration report ===")
	fmt.Printf("  📄 Records written:        %d\n", report.RecordsProcessed)
	fmt.Printf("  ⏭️  Records skipped:        %d\n", report.RecordsSkipped)
	fmt.Printf("  ❌ Records failed:         %d\n", report.RecordsFailed)
	fmt.Printf("  📎 Attachments copied:     %d\n", report.AttachmentsCopied)
	fmt.Printf("  ♻️  Attachments up to date: %d\n", report.AttachmentsUpToDate)
	fmt.Printf("  🕳️  Attachments missing:    %d\n", report.AttachmentsMissing)
	fmt.Printf("  ⚔️  Attachment conflicts:   %d\n", report.AttachmentsConflicted)

	if len(report.Warnings) > 0 {
		fmt.Printf("\n⚠️  %d warnings:\n", len(report.Warnings))
		for _, warning := range report.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Println("\n✅ Migration complete!")
	return nil
}
