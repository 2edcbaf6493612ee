// =============================================================================
// Receipt Reconciler - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single receipt, from markup
// acquisition to the finished workbook.
//
// CONVERSION PIPELINE:
//   1. Fetch the receipt HTML from its source
//   2. Scan and reconcile the receipt table
//   3. Build the workbook (item table, headers, derived formulas)
//   4. Save the workbook to the output directory
//   5. Archive the processed receipt page
//
// CONCURRENCY:
//   A Converter handles one receipt and shares nothing mutable, so the process
//   command runs several of them in parallel.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/receipt-reconciler/internal/acquire"
	"github.com/ginjaninja78/receipt-reconciler/internal/config"
	"github.com/ginjaninja78/receipt-reconciler/internal/reconciler"
	"github.com/ginjaninja78/receipt-reconciler/internal/sheetwriter"
	"github.com/ginjaninja78/receipt-reconciler/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single receipt.
type Result struct {
	// Source names the receipt that was processed (file path or URL).
	Source string

	// OutputFile is the path to the generated workbook.
	// This is empty if processing failed or on a dry run.
	OutputFile string

	// ArchivePath is where the receipt page was moved, if it was archived.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RawRows is the number of markup rows before reconciliation.
	RawRows int

	// ItemRows is the number of rows in the reconciled item table.
	ItemRows int

	// WeightedRows and DiscountRows count the reconciled special rows.
	WeightedRows int
	DiscountRows int

	// TrailerRows is the number of summary rows cut from the item table.
	TrailerRows int

	// IgnoredTags counts markup outside the table/row/cell set.
	IgnoredTags int

	// ProcessingTime is the time taken to process the receipt.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single receipt to a workbook.
type Converter struct {
	source acquire.Source
	cfg    *config.Config
	files  *utils.FileManager
	logger Logger

	// DryRun parses and builds the workbook without saving or archiving.
	DryRun bool
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - source: Where the receipt HTML comes from.
//   - cfg: The application configuration.
//   - files: Output naming and archival; nil disables archival.
func New(source acquire.Source, cfg *config.Config, files *utils.FileManager) *Converter {
	return &Converter{
		source: source,
		cfg:    cfg,
		files:  files,
		logger: discardLogger{},
	}
}

// SetLogger replaces the converter's logger.
func (c *Converter) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the receipt. Any failure aborts the receipt:
// no partial workbook is written.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{Source: c.source.Name()}

	// =========================================================================
	// STEP 1: FETCH RECEIPT HTML
	// =========================================================================

	c.logger.Info("Processing receipt: %s", result.Source)

	doc, err := c.source.Fetch(ctx)
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch receipt: %w", err)
		return result
	}

	c.logger.Debug("Fetched %d bytes of markup", len(doc))

	// =========================================================================
	// STEP 2: SCAN AND RECONCILE
	// =========================================================================

	receipt, scanStats, err := reconciler.ParseString(doc, c.cfg.ReconcilerOptions())
	result.Stats.RawRows = scanStats.RawRows
	result.Stats.IgnoredTags = scanStats.IgnoredTags
	if err != nil {
		result.Error = fmt.Errorf("failed to reconcile receipt table: %w", err)
		return result
	}

	result.Stats.ItemRows = len(receipt.Items)
	result.Stats.WeightedRows = receipt.Items.Count(reconciler.RowWeighted)
	result.Stats.DiscountRows = receipt.Items.Count(reconciler.RowDiscount)
	result.Stats.TrailerRows = len(receipt.Trailer)

	c.logger.Debug("Reconciled %d raw rows into %d item rows (%d weighted, %d discount, %d trailer, %d tags ignored)",
		result.Stats.RawRows, result.Stats.ItemRows, result.Stats.WeightedRows,
		result.Stats.DiscountRows, result.Stats.TrailerRows, result.Stats.IgnoredTags)

	// =========================================================================
	// STEP 3: BUILD WORKBOOK
	// =========================================================================

	w, err := sheetwriter.New(c.cfg.Layout(), c.cfg.WriterOptions())
	if err != nil {
		result.Error = fmt.Errorf("failed to create workbook: %w", err)
		return result
	}
	defer w.Close()

	if err := w.Write(receipt, c.cfg.Participants); err != nil {
		result.Error = fmt.Errorf("failed to write workbook: %w", err)
		return result
	}

	// =========================================================================
	// STEP 4: SAVE WORKBOOK
	// =========================================================================

	if c.DryRun {
		c.logger.Info("Dry run: %s not saved", result.Source)
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	outputPath := filepath.Join(c.cfg.OutputDir, utils.GenerateOutputFileName(
		c.cfg.OutputNameFormat,
		map[string]string{"original": c.originalName()},
	))

	if err := w.Save(outputPath); err != nil {
		result.Error = err
		return result
	}

	result.OutputFile = outputPath
	c.logger.Info("Wrote workbook to: %s", outputPath)

	// =========================================================================
	// STEP 5: ARCHIVE RECEIPT PAGE
	// =========================================================================

	if src, ok := c.source.(acquire.FileSource); ok && c.files != nil {
		archived, err := c.files.ArchiveInputFile(src.Path)
		if err != nil {
			// The workbook exists; archival failure is not fatal.
			c.logger.Warn("Failed to archive %s: %v", src.Path, err)
		} else if archived != src.Path {
			result.ArchivePath = archived
		}
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)

	return result
}

// originalName is the source's base name without extension, used for the
// {original} placeholder.
func (c *Converter) originalName() string {
	if src, ok := c.source.(acquire.FileSource); ok {
		base := filepath.Base(src.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "receipt"
}
