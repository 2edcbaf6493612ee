// =============================================================================
// Receipt Reconciler - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   receipt validate
//
// Loads the configuration with all overrides applied and prints what the
// process command would use. Nothing is read from the input directory.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/receipt-reconciler/internal/formula"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	layout := cfg.Layout()

	// A one-row table is enough to prove every formula can be generated.
	gen, err := formula.NewGenerator(layout, cfg.Participants, layout.HeaderRows+1)
	if err != nil {
		return fmt.Errorf("invalid workbook layout: %w", err)
	}

	fmt.Println("Configuration is valid.")
	fmt.Println()
	fmt.Printf("Input directory:    %s\n", cfg.InputDir)
	fmt.Printf("Output directory:   %s\n", cfg.OutputDir)
	fmt.Printf("Archive directory:  %s\n", cfg.InputArchiveDir)
	fmt.Printf("Log level:          %s\n", cfg.LogLevel)
	fmt.Printf("Max concurrency:    %d\n", cfg.MaxConcurrency)
	fmt.Println()
	fmt.Printf("Participants:       %s\n", strings.Join(cfg.Participants, ", "))
	fmt.Printf("Trailer marker:     %s\n", cfg.Markers.Trailer)
	fmt.Printf("Footer row:         %s\n", strings.Join(cfg.Markers.FooterRow, " | "))
	fmt.Println()
	fmt.Printf("Raw sheet:          %s (header rows: %d)\n", layout.RawSheet, layout.HeaderRows)
	fmt.Printf("Summary sheet:      %s\n", layout.SummarySheet)

	for i, f := range gen.ParticipantSums() {
		fmt.Printf("  %-16s  %s!%s\n", cfg.Participants[i], f.Sheet, f.Cell)
	}

	total := gen.GrandTotal()
	fmt.Printf("  %-16s  %s!%s\n", "total", total.Sheet, total.Cell)

	return nil
}
