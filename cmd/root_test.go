package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// useConfig points the commands at a fresh config file and restores the
// package-level flag state afterwards.
func useConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	saved := struct {
		cfgFile, sourceFile, sourceURL string
		verbose, dryRun                bool
	}{cfgFile, sourceFile, sourceURL, verbose, dryRun}

	cfgFile, sourceFile, sourceURL = path, "", ""
	verbose, dryRun = false, false
	initConfig()

	t.Cleanup(func() {
		cfgFile, sourceFile, sourceURL = saved.cfgFile, saved.sourceFile, saved.sourceURL
		verbose, dryRun = saved.verbose, saved.dryRun
		for _, name := range []string{"input-dir", "output-dir", "archive-dir", "log-level"} {
			f := rootCmd.PersistentFlags().Lookup(name)
			f.Value.Set("")
			f.Changed = false
		}
	})
	return path
}

func setFlag(t *testing.T, name, value string) {
	t.Helper()
	if err := rootCmd.PersistentFlags().Set(name, value); err != nil {
		t.Fatalf("Set(%s) error = %v", name, err)
	}
}

func TestLoadConfig_OverrideOrder(t *testing.T) {
	body := fmt.Sprintf("output_dir: %q\nlog_level: warn\n", "./from-file")

	tests := []struct {
		name string
		env  string
		flag string
		want string
	}{
		{"file only", "", "", "./from-file"},
		{"environment beats file", "./from-env", "", "./from-env"},
		{"flag beats environment", "./from-env", "./from-flag", "./from-flag"},
		{"flag without environment", "", "./from-flag", "./from-flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, body)
			t.Setenv("RECEIPT_OUTPUT_DIR", tt.env)
			if tt.flag != "" {
				setFlag(t, "output-dir", tt.flag)
			}

			cfg, err := loadConfig()
			if err != nil {
				t.Fatalf("loadConfig() error = %v", err)
			}
			if cfg.OutputDir != tt.want {
				t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, tt.want)
			}
			if cfg.LogLevel != "warn" {
				t.Errorf("LogLevel = %q, want warn from file", cfg.LogLevel)
			}
		})
	}
}

func TestLoadConfig_Verbose(t *testing.T) {
	useConfig(t, "log_level: error\n")
	t.Setenv("RECEIPT_LOG_LEVEL", "WARN")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn from environment", cfg.LogLevel)
	}

	verbose = true
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug with --verbose", cfg.LogLevel)
	}
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	useConfig(t, "")
	t.Setenv("RECEIPT_LOG_LEVEL", "chatty")

	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() accepted an unknown log level from the environment")
	}
}
