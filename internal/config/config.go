// =============================================================================
// Receipt Reconciler - Configuration Module
// =============================================================================
//
// This module loads the application configuration (config.yaml) and converts
// it into the immutable option structs consumed by the core packages:
//   - reconciler.Options  : marker strings matched while parsing
//   - formula.Layout      : workbook addresses for data and formulas
//   - sheetwriter.Options : workbook presentation
//   - utils.FileManager   : input discovery and archival
//
// Every field has a default reproducing the original receipt workflow, so an
// empty file (or no file at all) yields a working configuration.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ginjaninja78/receipt-reconciler/internal/formula"
	"github.com/ginjaninja78/receipt-reconciler/internal/reconciler"
	"github.com/ginjaninja78/receipt-reconciler/internal/sheetwriter"
	"github.com/ginjaninja78/receipt-reconciler/pkg/utils"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for saved receipt pages (*.html, *.htm).
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated workbooks and summary logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives receipt pages after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveOnSuccess moves processed pages out of InputDir.
	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`

	// ArchiveByDate files archived pages under year/month/day subdirectories.
	// Default: false
	ArchiveByDate bool `yaml:"archive_by_date"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat names the generated workbook.
	// Placeholders: {uuid}, {timestamp}, {date}, {original}
	// Default: "Receipt {date} {uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds how many receipts are processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing other receipts after one fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// Participants are the people sharing the receipt, in column order.
	Participants []string `yaml:"participants"`

	// Markers are the strings that identify receipt row shapes.
	Markers Markers `yaml:"markers"`

	// Sheet describes the output workbook.
	Sheet Sheet `yaml:"sheet"`

	// Fetch controls URL acquisition.
	Fetch Fetch `yaml:"fetch"`
}

// Markers configures row classification.
type Markers struct {
	// Trailer is the substring that starts the receipt summary section.
	Trailer string `yaml:"trailer"`

	// FooterRow is the repeated header row dropped from the end of the table.
	FooterRow []string `yaml:"footer_row"`

	// DiscountAttrs is the exact, ordered attribute list of discount rows.
	DiscountAttrs []Attr `yaml:"discount_attrs"`

	// CurrencyGlyph is stripped from every cell.
	CurrencyGlyph string `yaml:"currency_glyph"`
}

// Attr is one HTML attribute.
type Attr struct {
	Key string `yaml:"key"`
	Val string `yaml:"val"`
}

// Sheet configures the workbook layout.
type Sheet struct {
	RawName         string `yaml:"raw_name"`
	SummaryName     string `yaml:"summary_name"`
	DividedHeader   string `yaml:"divided_header"`
	HeaderRows      *int   `yaml:"header_rows"`
	TotalColumn     string `yaml:"total_column"`
	DividedColumn   string `yaml:"divided_column"`
	FirstMarkColumn string `yaml:"first_mark_column"`
	LastMarkColumn  string `yaml:"last_mark_column"`
	MarkValue       string `yaml:"mark_value"`
	SummaryColumn   string `yaml:"summary_column"`
	SummaryNameRow  int    `yaml:"summary_name_row"`
	SummarySumRow   int    `yaml:"summary_sum_row"`
	SummaryTotalRow int    `yaml:"summary_total_row"`
	RightToLeft     *bool  `yaml:"right_to_left"`
	WriteTrailer    *bool  `yaml:"write_trailer"`
}

// Fetch configures the HTTP source.
type Fetch struct {
	// Timeout bounds how long a receipt URL is polled for its table.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is the delay between requests.
	// Default: 500ms
	PollInterval time.Duration `yaml:"poll_interval"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration from a YAML file. A missing file yields the
// defaults.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied.
//   - An error if the file cannot be read, parsed, or validated.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults sets default values for any unset configuration options.
func (c *Config) ApplyDefaults() {
	if c.InputDir == "" {
		c.InputDir = "./input"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./output"
	}
	if c.InputArchiveDir == "" {
		c.InputArchiveDir = "./input_archive"
	}
	if c.ArchiveOnSuccess == nil {
		c.ArchiveOnSuccess = boolPtr(true)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OutputNameFormat == "" {
		c.OutputNameFormat = "Receipt {date} {uuid}"
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.ContinueOnError == nil {
		c.ContinueOnError = boolPtr(true)
	}
	if len(c.Participants) == 0 {
		c.Participants = []string{"שקדו", "יובל", "רום", "גהרו"}
	}

	// Marker defaults.
	defaults := reconciler.DefaultOptions()
	if c.Markers.Trailer == "" {
		c.Markers.Trailer = defaults.TrailerMarker
	}
	if len(c.Markers.FooterRow) == 0 {
		c.Markers.FooterRow = defaults.FooterRow
	}
	if len(c.Markers.DiscountAttrs) == 0 {
		for _, a := range defaults.DiscountAttrs {
			c.Markers.DiscountAttrs = append(c.Markers.DiscountAttrs, Attr{Key: a.Key, Val: a.Val})
		}
	}
	if c.Markers.CurrencyGlyph == "" {
		c.Markers.CurrencyGlyph = defaults.CurrencyGlyph
	}

	// Sheet defaults.
	layout := formula.DefaultLayout()
	setString(&c.Sheet.RawName, layout.RawSheet)
	setString(&c.Sheet.SummaryName, layout.SummarySheet)
	setString(&c.Sheet.DividedHeader, layout.DividedHeader)
	setString(&c.Sheet.TotalColumn, layout.TotalColumn)
	setString(&c.Sheet.DividedColumn, layout.DividedColumn)
	setString(&c.Sheet.FirstMarkColumn, layout.FirstMarkColumn)
	setString(&c.Sheet.LastMarkColumn, layout.LastMarkColumn)
	setString(&c.Sheet.MarkValue, layout.MarkValue)
	setString(&c.Sheet.SummaryColumn, layout.SummaryColumn)
	if c.Sheet.HeaderRows == nil {
		c.Sheet.HeaderRows = &layout.HeaderRows
	}
	if c.Sheet.SummaryNameRow == 0 {
		c.Sheet.SummaryNameRow = layout.SummaryNameRow
	}
	if c.Sheet.SummarySumRow == 0 {
		c.Sheet.SummarySumRow = layout.SummarySumRow
	}
	if c.Sheet.SummaryTotalRow == 0 {
		c.Sheet.SummaryTotalRow = layout.SummaryTotalRow
	}
	if c.Sheet.RightToLeft == nil {
		c.Sheet.RightToLeft = boolPtr(true)
	}
	if c.Sheet.WriteTrailer == nil {
		c.Sheet.WriteTrailer = boolPtr(true)
	}

	// Fetch defaults.
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.PollInterval <= 0 {
		c.Fetch.PollInterval = 500 * time.Millisecond
	}
}

// Validate checks participants and the workbook layout.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Participants))
	for i, name := range c.Participants {
		if name == "" {
			errs = append(errs, fmt.Errorf("participant %d has an empty name", i+1))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("participant %q is listed twice", name))
		}
		seen[name] = true
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	if len(c.Markers.FooterRow) != 3 {
		errs = append(errs, fmt.Errorf("footer_row must have 3 cells, got %d", len(c.Markers.FooterRow)))
	}

	if err := c.Layout().Validate(len(c.Participants)); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ReconcilerOptions returns the marker configuration for the reconciler.
func (c *Config) ReconcilerOptions() reconciler.Options {
	attrs := make([]html.Attribute, len(c.Markers.DiscountAttrs))
	for i, a := range c.Markers.DiscountAttrs {
		attrs[i] = html.Attribute{Key: a.Key, Val: a.Val}
	}

	return reconciler.Options{
		TrailerMarker: c.Markers.Trailer,
		FooterRow:     append([]string(nil), c.Markers.FooterRow...),
		DiscountAttrs: attrs,
		CurrencyGlyph: c.Markers.CurrencyGlyph,
	}
}

// Layout returns the workbook layout.
func (c *Config) Layout() formula.Layout {
	headerRows := 0
	if c.Sheet.HeaderRows != nil {
		headerRows = *c.Sheet.HeaderRows
	}

	return formula.Layout{
		RawSheet:        c.Sheet.RawName,
		SummarySheet:    c.Sheet.SummaryName,
		HeaderRows:      headerRows,
		TotalColumn:     c.Sheet.TotalColumn,
		DividedColumn:   c.Sheet.DividedColumn,
		DividedHeader:   c.Sheet.DividedHeader,
		FirstMarkColumn: c.Sheet.FirstMarkColumn,
		LastMarkColumn:  c.Sheet.LastMarkColumn,
		MarkValue:       c.Sheet.MarkValue,
		SummaryColumn:   c.Sheet.SummaryColumn,
		SummaryNameRow:  c.Sheet.SummaryNameRow,
		SummarySumRow:   c.Sheet.SummarySumRow,
		SummaryTotalRow: c.Sheet.SummaryTotalRow,
	}
}

// FileManager returns the file manager for the configured directories.
func (c *Config) FileManager() *utils.FileManager {
	fm := utils.NewFileManager(c.InputDir, c.OutputDir, c.InputArchiveDir)
	fm.ArchiveOnSuccess = c.ArchiveOnSuccess == nil || *c.ArchiveOnSuccess
	fm.ArchiveByDate = c.ArchiveByDate
	return fm
}

// WriterOptions returns the workbook presentation options.
func (c *Config) WriterOptions() sheetwriter.Options {
	opts := sheetwriter.DefaultOptions()
	if c.Sheet.RightToLeft != nil {
		opts.RightToLeft = *c.Sheet.RightToLeft
	}
	if c.Sheet.WriteTrailer != nil {
		opts.WriteTrailer = *c.Sheet.WriteTrailer
	}
	return opts
}

// =============================================================================
// HELPERS
// =============================================================================

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func boolPtr(b bool) *bool {
	return &b
}
