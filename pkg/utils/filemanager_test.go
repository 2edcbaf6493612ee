package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("<table></table>"), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.html"))
	touch(t, filepath.Join(dir, "a.htm"))
	touch(t, filepath.Join(dir, "notes.txt"))
	if err := os.Mkdir(filepath.Join(dir, "sub.html"), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	fm := NewFileManager(dir, t.TempDir(), "")
	files, err := fm.DiscoverInputFiles()
	if err != nil {
		t.Fatalf("DiscoverInputFiles() error = %v", err)
	}

	want := []string{filepath.Join(dir, "a.htm"), filepath.Join(dir, "b.html")}
	if len(files) != len(want) {
		t.Fatalf("DiscoverInputFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestArchiveInputFile(t *testing.T) {
	in, archive := t.TempDir(), filepath.Join(t.TempDir(), "archive")
	src := filepath.Join(in, "receipt.html")
	touch(t, src)

	fm := NewFileManager(in, t.TempDir(), archive)
	got, err := fm.ArchiveInputFile(src)
	if err != nil {
		t.Fatalf("ArchiveInputFile() error = %v", err)
	}

	if got != filepath.Join(archive, "receipt.html") {
		t.Errorf("ArchiveInputFile() = %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after archival: %v", err)
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestArchiveInputFile_Disabled(t *testing.T) {
	in := t.TempDir()
	src := filepath.Join(in, "receipt.html")
	touch(t, src)

	fm := NewFileManager(in, t.TempDir(), t.TempDir())
	fm.ArchiveOnSuccess = false

	got, err := fm.ArchiveInputFile(src)
	if err != nil || got != src {
		t.Errorf("ArchiveInputFile() = %q, %v; want source path unchanged", got, err)
	}
}

func TestArchiveInputFile_OutsideInputDir(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	downloads := filepath.Join(root, "Downloads")
	for _, dir := range []string{in, downloads} {
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatalf("Mkdir() error = %v", err)
		}
	}
	src := filepath.Join(downloads, "mine.html")
	touch(t, src)

	// A sibling directory sharing the input directory's name as a prefix.
	lookalike := filepath.Join(root, "input2", "receipt.html")
	if err := os.Mkdir(filepath.Dir(lookalike), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	touch(t, lookalike)

	fm := NewFileManager(in, t.TempDir(), filepath.Join(root, "archive"))

	for _, path := range []string{src, lookalike} {
		got, err := fm.ArchiveInputFile(path)
		if err != nil || got != path {
			t.Errorf("ArchiveInputFile(%s) = %q, %v; want path unchanged", path, got, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("page outside the input directory was moved: %v", err)
		}
	}
}

func TestArchiveInputFile_ByDate(t *testing.T) {
	in, archive := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "receipt.html")
	touch(t, src)

	fm := NewFileManager(in, t.TempDir(), archive)
	fm.ArchiveByDate = true

	before := time.Now()
	got, err := fm.ArchiveInputFile(src)
	if err != nil {
		t.Fatalf("ArchiveInputFile() error = %v", err)
	}

	rel, err := filepath.Rel(archive, got)
	if err != nil {
		t.Fatalf("Rel() error = %v", err)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 4 || parts[3] != "receipt.html" {
		t.Fatalf("archive path = %q, want year/month/day/receipt.html", rel)
	}
	if parts[0] != before.Format("2006") && parts[0] != time.Now().Format("2006") {
		t.Errorf("year directory = %q", parts[0])
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		name   string
		format string
		params map[string]string
		check  func(string) bool
	}{
		{"adds extension", "receipt", nil, func(s string) bool { return s == "receipt.xlsx" }},
		{"keeps extension", "receipt.XLSX", nil, func(s string) bool { return s == "receipt.XLSX" }},
		{"uuid", "{uuid}", nil, func(s string) bool { return len(s) == 36+len(".xlsx") }},
		{"original", "{original}_out", map[string]string{"original": "shop"}, func(s string) bool { return s == "shop_out.xlsx" }},
		{"no separators", "{original}", map[string]string{"original": "a/b"}, func(s string) bool { return !strings.Contains(s, "/") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateOutputFileName(tt.format, tt.params); !tt.check(got) {
				t.Errorf("GenerateOutputFileName(%q) = %q", tt.format, got)
			}
		})
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	path, err := WriteSummaryLog(ProcessingSummary{
		RunID:           "run-1",
		StartTime:       now.Add(-time.Second),
		EndTime:         now,
		TotalReceipts:   2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		ProcessedFiles:  []ProcessedFileInfo{{Source: "a.html", OutputFile: "a.xlsx", ItemRows: 5}},
		FailedFilesList: []FailedFileInfo{{Source: "b.html", ErrorMessage: "malformed receipt table"}},
	}, dir)
	if err != nil {
		t.Fatalf("WriteSummaryLog() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"run-1", "a.xlsx", "b.html", "malformed receipt table"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
