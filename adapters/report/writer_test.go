package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"claimlab/domain/abtest"
	"claimlab/internal/logging"
)

func sampleResults() []abtest.TestResult {
	return []abtest.TestResult{
		{
			Name: "risk_province", Feature: "Province",
			GroupA: "Gauteng", GroupB: "Western Cape",
			KPI: "claim_frequency", Test: "chi2",
			Statistic: 4.82716, PValue: 0.02801,
			Decision: abtest.DecisionReject,
		},
		{
			Name: "margin_gender", Feature: "Gender",
			GroupA: "Male", GroupB: "Female",
			KPI: "margin", Test: "ttest",
			Statistic: -0.31849, PValue: 0.75012,
			Decision: abtest.DecisionFailToReject,
		},
	}
}

func TestMarkdown_TableShape(t *testing.T) {
	md := Markdown(sampleResults(), 0.05)

	if !strings.HasPrefix(md, "# Hypothesis Testing Summary") {
		t.Errorf("missing title:\n%s", md)
	}
	if !strings.Contains(md, "| name | feature | group_A | group_B | kpi | test | statistic | p_value | decision |") {
		t.Errorf("missing header row:\n%s", md)
	}
	// Statistics are rendered at four decimals.
	if !strings.Contains(md, "| 4.8272 | 0.0280 |") {
		t.Errorf("statistic formatting wrong:\n%s", md)
	}
	if !strings.Contains(md, "| -0.3185 | 0.7501 |") {
		t.Errorf("negative statistic formatting wrong:\n%s", md)
	}
	if !strings.Contains(md, "Reject H0 if p < 0.05") {
		t.Errorf("missing decision rule footer:\n%s", md)
	}

	// Ordering follows the input list.
	first := strings.Index(md, "risk_province")
	second := strings.Index(md, "margin_gender")
	if first < 0 || second < 0 || first > second {
		t.Errorf("rows out of order:\n%s", md)
	}
}

func TestMarkdown_EmptyResults(t *testing.T) {
	md := Markdown(nil, 0.05)
	if !strings.Contains(md, "_No valid tests were run (all specs skipped)._") {
		t.Errorf("missing empty-run notice:\n%s", md)
	}
	if strings.Contains(md, "| name |") {
		t.Errorf("empty run should not render a table:\n%s", md)
	}
}

func TestMarkdown_BalanceFlagsAnnotateDecision(t *testing.T) {
	results := sampleResults()
	results[0].BalanceFlags = []string{"Gender", "VehicleType"}

	md := Markdown(results, 0.05)
	if !strings.Contains(md, "Reject H0 (imbalanced: Gender, VehicleType)") {
		t.Errorf("balance flags not rendered:\n%s", md)
	}
}

func TestWriteSummary_CreatesDirAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nested", "summary.md")

	w := NewWriter(logging.Nop{})
	if err := w.WriteSummary(path, sampleResults(), 0.05); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if string(raw) != Markdown(sampleResults(), 0.05) {
		t.Error("file content should match rendered markdown")
	}
}

func TestWriteHTML_RendersTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.html")

	w := NewWriter(logging.Nop{})
	if err := w.WriteHTML(path, sampleResults(), 0.05); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(raw)
	if !strings.Contains(html, "<table>") {
		t.Errorf("markdown table not converted to HTML:\n%s", html)
	}
	if !strings.Contains(html, "risk_province") {
		t.Errorf("result rows missing from HTML:\n%s", html)
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")

	w := NewWriter(logging.Nop{})
	if err := w.WriteXLSX(path, sampleResults()); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("spreadsheet not written: %v", err)
	}
}

func TestRound4_HandlesInfinity(t *testing.T) {
	if !math.IsInf(round4(math.Inf(1)), 1) {
		t.Error("round4 should pass +Inf through")
	}
	if round4(1.23456) != 1.2346 {
		t.Errorf("round4(1.23456) = %v", round4(1.23456))
	}
	if round4(-0.00004) != 0 {
		t.Errorf("round4(-0.00004) = %v", round4(-0.00004))
	}
}
