package sheetwriter

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/receipt-reconciler/internal/formula"
	"github.com/ginjaninja78/receipt-reconciler/internal/reconciler"
	"github.com/xuri/excelize/v2"
)

func sampleReceipt() reconciler.Receipt {
	return reconciler.Receipt{
		Items: reconciler.Table{
			{Kind: reconciler.RowSimple, Cells: []string{"שם", "מחיר", "כמות", "סהכ"}},
			{Kind: reconciler.RowSimple, Cells: []string{"חלב", "6.90", "1", "6.90"}},
			{Kind: reconciler.RowWeighted, Cells: []string{"עגבניה", "7.90", "1.235", "9.76"}},
			{Kind: reconciler.RowDiscount, Cells: []string{"הנחה", "", "", "-2.00"}},
		},
		Trailer: reconciler.Table{
			{Kind: reconciler.RowSimple, Cells: []string{"סהכ הנחות:", "2.00"}},
		},
	}
}

func writeSample(t *testing.T, opts Options, participants []string) *excelize.File {
	t.Helper()

	layout := formula.DefaultLayout()
	w, err := New(layout, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Write(sampleReceipt(), participants); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "receipt.xlsx")
	if err := w.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellValue(%s, %s) error = %v", sheet, cell, err)
	}
	return v
}

func cellFormula(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellFormula(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellFormula(%s, %s) error = %v", sheet, cell, err)
	}
	return strings.TrimPrefix(v, "=")
}

func TestWrite_Sheets(t *testing.T) {
	f := writeSample(t, DefaultOptions(), []string{"שקדו", "יובל"})

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "תשלום גולמי" || sheets[1] != "סיכום" {
		t.Errorf("GetSheetList() = %v, want raw and summary sheets", sheets)
	}
}

func TestWrite_RawSheet(t *testing.T) {
	f := writeSample(t, DefaultOptions(), []string{"שקדו", "יובל"})
	raw := "תשלום גולמי"

	tests := []struct {
		cell string
		want string
	}{
		{"A2", "חלב"},
		{"A3", "עגבניה"},
		{"C3", "1.235"},
		{"A4", "הנחה"},
		{"B4", ""},
		{"D4", "-2.00"},
		{"A5", "סהכ הנחות:"},
		{"E1", "סהכ מחולק"},
		{"F1", "שקדו"},
		{"G1", "יובל"},
	}
	for _, tt := range tests {
		if got := cellValue(t, f, raw, tt.cell); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}

	for _, cell := range []string{"E2", "E3", "E4"} {
		if got := cellFormula(t, f, raw, cell); !strings.Contains(got, "COUNTA(F") {
			t.Errorf("%s formula = %q, want divided price", cell, got)
		}
	}
	if got := cellFormula(t, f, raw, "E5"); got != "" {
		t.Errorf("E5 formula = %q, want none on trailer row", got)
	}
}

func TestWrite_SummarySheet(t *testing.T) {
	f := writeSample(t, DefaultOptions(), []string{"שקדו", "יובל"})
	summary := "סיכום"

	if got := cellValue(t, f, summary, "D7"); got != "שקדו" {
		t.Errorf("D7 = %q, want first participant", got)
	}
	if got := cellValue(t, f, summary, "E7"); got != "יובל" {
		t.Errorf("E7 = %q, want second participant", got)
	}

	sum := cellFormula(t, f, summary, "E8")
	if !strings.Contains(sum, "'תשלום גולמי'!G2:G4") {
		t.Errorf("E8 formula = %q, want SUMIF over G2:G4", sum)
	}

	if got := cellFormula(t, f, summary, "D10"); got != "SUM(D8:E8)" {
		t.Errorf("D10 formula = %q, want SUM(D8:E8)", got)
	}

	merged, err := f.GetMergeCells(summary)
	if err != nil {
		t.Fatalf("GetMergeCells() error = %v", err)
	}
	if len(merged) != 1 || merged[0].GetStartAxis() != "D10" || merged[0].GetEndAxis() != "E10" {
		t.Errorf("merged cells = %v, want D10:E10", merged)
	}
}

func TestWrite_SingleParticipantNoMerge(t *testing.T) {
	f := writeSample(t, DefaultOptions(), []string{"שקדו"})

	merged, err := f.GetMergeCells("סיכום")
	if err != nil {
		t.Fatalf("GetMergeCells() error = %v", err)
	}
	if len(merged) != 0 {
		t.Errorf("merged cells = %v, want none", merged)
	}
}

func TestWrite_WithoutTrailer(t *testing.T) {
	opts := DefaultOptions()
	opts.WriteTrailer = false
	f := writeSample(t, opts, []string{"שקדו"})

	if got := cellValue(t, f, "תשלום גולמי", "A5"); got != "" {
		t.Errorf("A5 = %q, want empty without trailer", got)
	}
}

func TestWrite_InvalidParticipants(t *testing.T) {
	w, err := New(formula.DefaultLayout(), DefaultOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Write(sampleReceipt(), nil); err == nil {
		t.Error("Write() expected error without participants")
	}
}
