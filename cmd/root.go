// =============================================================================
// Receipt Reconciler - Root Command
// =============================================================================
//
// COBRA CLI STRUCTURE:
//   rootCmd (receipt)
//   ├── processCmd (receipt process)
//   ├── validateCmd (receipt validate)
//   └── versionCmd (receipt version)
//
// CONFIGURATION:
//   Settings come from the YAML file named by --config. Directory and log
//   level settings can be overridden, in increasing priority, by RECEIPT_*
//   environment variables and by command-line flags. Viper resolves the
//   overrides; the YAML file itself is parsed by the config package.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/receipt-reconciler/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// overrideKeys are the settings that flags and the environment may override.
var overrideKeys = []string{"input_dir", "output_dir", "input_archive_dir", "log_level"}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Receipt Reconciler - Turn digital receipts into shared-expense workbooks",
	Long: `Receipt Reconciler reads the item table of a digital supermarket receipt,
repairs its irregular rows (weighted items split over two lines, discount lines
with missing columns, trailing summary rows) and writes a workbook in which
each participant marks the items they share.

Example Usage:
  receipt process                          # Every receipt page in the input directory
  receipt process --file ./receipt.html    # A single saved page
  receipt process --url https://...        # A receipt page served over HTTP
  receipt validate                         # Check the configuration`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "config.yaml", "Path to the main configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")

	flags.String("input-dir", "", "Directory holding receipt pages (overrides input_dir)")
	flags.String("output-dir", "", "Directory for generated workbooks (overrides output_dir)")
	flags.String("archive-dir", "", "Directory for processed receipt pages (overrides input_archive_dir)")
	flags.String("log-level", "", "debug, info, warn or error (overrides log_level)")

	viper.BindPFlag("input_dir", flags.Lookup("input-dir"))
	viper.BindPFlag("output_dir", flags.Lookup("output-dir"))
	viper.BindPFlag("input_archive_dir", flags.Lookup("archive-dir"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

// initConfig wires the environment into viper. RECEIPT_INPUT_DIR overrides
// input_dir, and so on.
func initConfig() {
	viper.SetEnvPrefix("RECEIPT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the configuration file and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overridden := false
	for _, key := range overrideKeys {
		value := viper.GetString(key)
		if value == "" {
			continue
		}
		overridden = true

		switch key {
		case "input_dir":
			cfg.InputDir = value
		case "output_dir":
			cfg.OutputDir = value
		case "input_archive_dir":
			cfg.InputArchiveDir = value
		case "log_level":
			cfg.LogLevel = strings.ToLower(value)
		}
	}

	if verbose {
		cfg.LogLevel = "debug"
		overridden = true
	}

	if overridden {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration override: %w", err)
		}
	}

	return cfg, nil
}
