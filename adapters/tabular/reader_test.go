package tabular

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"claimlab/internal/errors"
	"claimlab/internal/logging"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTable_CommaCSV(t *testing.T) {
	path := writeFile(t, "policies.csv", ""+
		"PolicyID,Province,TotalPremium,TotalClaims\n"+
		"P1,Gauteng,100.5,0\n"+
		"P2,Western Cape,,250\n"+
		"P3,Gauteng,80,0\n")

	r := NewReader(logging.Nop{})
	tbl, err := r.ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	if tbl.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.NumRows())
	}
	if !tbl.IsNumeric("TotalPremium") || !tbl.IsNumeric("TotalClaims") {
		t.Error("premium and claims should infer numeric")
	}
	if tbl.IsNumeric("Province") {
		t.Error("Province should infer categorical")
	}

	premium, _ := tbl.Numeric("TotalPremium")
	if premium[0] != 100.5 {
		t.Errorf("premium[0] = %v", premium[0])
	}
	if !math.IsNaN(premium[1]) {
		t.Errorf("empty numeric cell should be NaN, got %v", premium[1])
	}

	province, _ := tbl.Categorical("Province")
	if province[1] != "Western Cape" {
		t.Errorf("province[1] = %q", province[1])
	}
}

func TestReadTable_PipeDelimited(t *testing.T) {
	path := writeFile(t, "export.txt", ""+
		"PolicyID|Gender|TotalPremium\n"+
		"P1|Male|21.9\n"+
		"P2|Female|0\n")

	r := NewReader(logging.Nop{})
	tbl, err := r.ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	if len(tbl.Columns()) != 3 {
		t.Fatalf("columns = %v, want 3 from pipe sniffing", tbl.Columns())
	}
	premium, ok := tbl.Numeric("TotalPremium")
	if !ok || premium[0] != 21.9 {
		t.Errorf("pipe-delimited numeric parse failed: %v", premium)
	}
}

func TestReadTable_DecimalComma(t *testing.T) {
	path := writeFile(t, "export.txt", ""+
		"PolicyID|TotalPremium\n"+
		"P1|21,9\n"+
		"P2|512,848\n")

	r := NewReader(logging.Nop{})
	tbl, err := r.ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	premium, _ := tbl.Numeric("TotalPremium")
	if premium[0] != 21.9 || premium[1] != 512.848 {
		t.Errorf("decimal-comma values not normalized: %v", premium)
	}
}

func TestReadTable_PolicyIDStaysCategoricalWhenMixed(t *testing.T) {
	path := writeFile(t, "mixed.csv", ""+
		"ID,Value\n"+
		"12,1\n"+
		"P9,2\n")

	r := NewReader(logging.Nop{})
	tbl, err := r.ReadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.IsNumeric("ID") {
		t.Error("mixed column should fall back to categorical")
	}
}

func TestReadTable_MissingFile(t *testing.T) {
	r := NewReader(logging.Nop{})
	_, err := r.ReadTable(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.HasCode(err, errors.CodeDataFormat) {
		t.Errorf("expected DATA_FORMAT, got %v", err)
	}
}

func TestReadTable_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "data.parquet", "not parquet")
	r := NewReader(logging.Nop{})
	_, err := r.ReadTable(path)
	if !errors.HasCode(err, errors.CodeDataFormat) {
		t.Errorf("expected DATA_FORMAT, got %v", err)
	}
}

func TestTryNumeric_AllEmptyStaysCategorical(t *testing.T) {
	if _, ok := tryNumeric([]string{"", "", ""}); ok {
		t.Error("all-empty column should not infer numeric")
	}
}
