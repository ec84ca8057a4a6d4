// Package report renders an ordered test-result list into markdown, HTML,
// and spreadsheet summaries.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"claimlab/domain/abtest"
	"claimlab/internal/errors"
	"claimlab/internal/logging"
	"claimlab/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/xuri/excelize/v2"
)

var columns = []string{"name", "feature", "group_A", "group_B", "kpi", "test", "statistic", "p_value", "decision"}

// Writer renders hypothesis-test summaries.
type Writer struct {
	log logging.Logger
}

var _ ports.ReportWriter = (*Writer)(nil)

// NewWriter creates a report writer.
func NewWriter(log logging.Logger) *Writer {
	return &Writer{log: log}
}

// WriteSummary writes the markdown summary table: one row per completed
// test, statistic and p-value at four decimal places, decision rule in
// the footer. An empty result list produces an explicit notice instead of
// an empty table.
func (w *Writer) WriteSummary(path string, results []abtest.TestResult, alpha float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}
	if err := os.WriteFile(path, []byte(Markdown(results, alpha)), 0o644); err != nil {
		return errors.Wrap(err, "failed to write summary report")
	}
	w.log.Info("report: hypothesis summary written to %s", path)
	return nil
}

// Markdown renders the summary document as a string.
func Markdown(results []abtest.TestResult, alpha float64) string {
	var b strings.Builder
	b.WriteString("# Hypothesis Testing Summary\n\n")

	if len(results) == 0 {
		b.WriteString("_No valid tests were run (all specs skipped)._\n")
		return b.String()
	}

	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	sep := make([]string, len(columns))
	for i, c := range columns {
		sep[i] = ":" + strings.Repeat("-", len(c)+1)
	}
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")

	for _, r := range results {
		decision := r.Decision
		if len(r.BalanceFlags) > 0 {
			decision += fmt.Sprintf(" (imbalanced: %s)", strings.Join(r.BalanceFlags, ", "))
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %.4f | %.4f | %s |\n",
			r.Name, r.Feature, r.GroupA, r.GroupB, r.KPI, r.Test,
			r.Statistic, r.PValue, decision)
	}

	fmt.Fprintf(&b, "\n**Decision rule:** Reject H0 if p < %g.\n", alpha)
	return b.String()
}

// WriteHTML renders the markdown summary to a standalone HTML file.
func (w *Writer) WriteHTML(path string, results []abtest.TestResult, alpha float64) error {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(Markdown(results, alpha)))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	rendered := markdown.Render(doc, renderer)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return errors.Wrap(err, "failed to write HTML report")
	}
	w.log.Info("report: HTML summary written to %s", path)
	return nil
}

// WriteXLSX exports the result list as a spreadsheet for downstream
// analysis.
func (w *Writer) WriteXLSX(path string, results []abtest.TestResult) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return errors.Wrap(err, "failed to write header cell")
		}
	}

	for i, r := range results {
		values := []interface{}{
			r.Name, r.Feature, r.GroupA, r.GroupB, r.KPI, r.Test,
			round4(r.Statistic), round4(r.PValue), r.Decision,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return errors.Wrap(err, "failed to write result cell")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "failed to save spreadsheet")
	}
	w.log.Info("report: spreadsheet written to %s", path)
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
