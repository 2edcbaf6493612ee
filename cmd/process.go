// =============================================================================
// Receipt Reconciler - Process Command
// =============================================================================
//
// COMMAND USAGE:
//   receipt process [flags]
//
// FLAGS:
//   --file      : Process a single saved receipt page
//   --url       : Fetch and process a single receipt page over HTTP
//   --dry-run   : Reconcile and build workbooks without writing or archiving
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Collect receipt sources (input directory, --file or --url)
//   3. For each source (concurrently, bounded by max_concurrency):
//      a. Fetch the receipt HTML
//      b. Scan and reconcile the item table
//      c. Build the workbook and save it
//      d. Archive the receipt page
//   4. Print and write the run summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/receipt-reconciler/internal/acquire"
	"github.com/ginjaninja78/receipt-reconciler/internal/config"
	"github.com/ginjaninja78/receipt-reconciler/internal/converter"
	"github.com/ginjaninja78/receipt-reconciler/pkg/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun     bool
	sourceFile string
	sourceURL  string
)

// errReceiptsFailed is returned when a run ends with failed receipts.
var errReceiptsFailed = errors.New("one or more receipts failed")

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Reconcile receipt pages into shared-expense workbooks",
	Long: `The process command reads every receipt page (*.html, *.htm) in the input
directory, or the single page named by --file or --url, and writes one workbook
per receipt to the output directory.

Receipts are processed concurrently. A receipt that fails leaves no workbook
behind and its page stays in the input directory. With continue_on_error
disabled the first failure cancels receipts that have not started yet.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if sourceFile != "" && sourceURL != "" {
			return fmt.Errorf("--file and --url cannot be used together")
		}
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build workbooks without writing output files or archiving")
	processCmd.Flags().StringVar(&sourceFile, "file", "", "Path to a single receipt page to process")
	processCmd.Flags().StringVar(&sourceURL, "url", "", "URL of a single receipt page to fetch and process")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	summary := utils.ProcessingSummary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== Receipt Reconciler ===")
	fmt.Println("Loading configuration...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := converter.NewLogger(os.Stderr, cfg.LogLevel)
	logger.Debug("Run %s: %d participant(s), concurrency %d", summary.RunID, len(cfg.Participants), cfg.MaxConcurrency)

	fm := cfg.FileManager()
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: COLLECT RECEIPT SOURCES
	// =========================================================================

	sources, err := collectSources(cfg, fm)
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		fmt.Println("No receipt pages found in the input directory.")
		return nil
	}

	fmt.Printf("Found %d receipt(s) to process\n", len(sources))
	if dryRun {
		fmt.Println("Dry run: no workbooks will be written")
	}

	// =========================================================================
	// STEP 3: PROCESS RECEIPTS CONCURRENTLY
	// =========================================================================

	fmt.Println("Processing receipts...")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(sources))
	sem := make(chan struct{}, cfg.MaxConcurrency)

	for _, src := range sources {
		// Slots are taken in source order, so with max_concurrency 1 receipts
		// run one after another in discovery order.
		acquired := false
		select {
		case sem <- struct{}{}:
			acquired = true
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			if acquired {
				<-sem
			}
			results <- converter.Result{Source: src.Name(), Error: fmt.Errorf("not started: %w", runCtx.Err())}
			continue
		}

		wg.Add(1)

		go func(src acquire.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			conv := converter.New(src, cfg, fm)
			conv.SetLogger(logger)
			conv.DryRun = dryRun

			result := conv.Run(runCtx)
			if !result.Success && !*cfg.ContinueOnError {
				cancel()
			}
			results <- result
		}(src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND SUMMARY
	// =========================================================================

	summary.TotalReceipts = len(sources)

	for result := range results {
		name := displayName(result.Source)

		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalItemRows += result.Stats.ItemRows
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				Source:       result.Source,
				OutputFile:   result.OutputFile,
				ArchivePath:  result.ArchivePath,
				ItemRows:     result.Stats.ItemRows,
				WeightedRows: result.Stats.WeightedRows,
				DiscountRows: result.Stats.DiscountRows,
				ProcessTime:  result.Stats.ProcessingTime,
			})

			target := result.OutputFile
			if target == "" {
				target = "(dry run)"
			}
			fmt.Printf("  ✓ %s -> %s (%d items)\n", name, target, result.Stats.ItemRows)
			continue
		}

		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			Source:       result.Source,
			ErrorMessage: result.Error.Error(),
		})
		fmt.Printf("  ✗ %s: %v\n", name, result.Error)
	}

	summary.EndTime = time.Now()

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total receipts:  %d\n", summary.TotalReceipts)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Item rows:       %d\n", summary.TotalItemRows)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if !dryRun {
		path, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			logger.Warn("Failed to write run summary: %v", err)
		} else {
			fmt.Printf("Summary written to: %s\n", path)
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%w: %d of %d", errReceiptsFailed, summary.FailedFiles, summary.TotalReceipts)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// collectSources returns the receipts selected by --url, --file, or
// otherwise every receipt page in the input directory.
func collectSources(cfg *config.Config, fm *utils.FileManager) ([]acquire.Source, error) {
	switch {
	case sourceURL != "":
		return []acquire.Source{acquire.HTTPSource{
			URL:          sourceURL,
			Timeout:      cfg.Fetch.Timeout,
			PollInterval: cfg.Fetch.PollInterval,
		}}, nil

	case sourceFile != "":
		if _, err := os.Stat(sourceFile); err != nil {
			return nil, fmt.Errorf("failed to open receipt page: %w", err)
		}
		return []acquire.Source{acquire.FileSource{Path: sourceFile}}, nil
	}

	files, err := fm.DiscoverInputFiles()
	if err != nil {
		return nil, err
	}

	sources := make([]acquire.Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, acquire.FileSource{Path: f})
	}
	return sources, nil
}

// displayName shortens file paths to their base name; URLs are shown whole.
func displayName(source string) string {
	if strings.Contains(source, "://") {
		return source
	}
	return filepath.Base(source)
}
