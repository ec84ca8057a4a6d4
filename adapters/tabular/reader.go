// Package tabular loads delimited and spreadsheet files into dataset
// tables and provides the upstream cleaning collaborator.
package tabular

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"claimlab/domain/dataset"
	"claimlab/internal/errors"
	"claimlab/internal/logging"
	"claimlab/ports"

	"github.com/xuri/excelize/v2"
)

// Reader handles reading Excel and CSV files into a Table.
type Reader struct {
	log logging.Logger
}

var _ ports.DatasetReader = (*Reader)(nil)

// NewReader creates a data reader.
func NewReader(log logging.Logger) *Reader {
	return &Reader{log: log}
}

// ReadTable reads a .xlsx or .csv file into a columnar table. Column types
// are inferred: a column parses as numeric when every non-empty cell is a
// valid float, otherwise it is categorical. Empty numeric cells become NaN,
// empty categorical cells stay "".
func (r *Reader) ReadTable(path string) (*dataset.Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.DataFormat("input file not found: " + path)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		rows, err = readCSVRows(path)
	case ".xlsx":
		rows, err = readExcelRows(path)
	default:
		return nil, errors.DataFormat("unsupported file type: " + filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	table, err := tableFromRows(rows)
	if err != nil {
		return nil, err
	}
	r.log.Info("tabular: loaded %s: %d rows, %d columns", path, table.NumRows(), len(table.Columns()))
	return table, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Pipe-delimited exports are common for this dataset; sniff the header.
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse CSV file")
	}
	if len(rows) > 0 && len(rows[0]) == 1 && strings.Contains(rows[0][0], "|") {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, errors.Wrap(err, "failed to rewind CSV file")
		}
		reader = csv.NewReader(f)
		reader.Comma = '|'
		reader.FieldsPerRecord = -1
		rows, err = reader.ReadAll()
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse pipe-delimited file")
		}
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.DataFormat("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sheet rows")
	}
	return rows, nil
}

func tableFromRows(rows [][]string) (*dataset.Table, error) {
	if len(rows) < 1 {
		return nil, errors.DataFormat("input has no header row")
	}
	header := rows[0]
	data := rows[1:]

	table := dataset.New(len(data))
	for col, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		cells := make([]string, len(data))
		for i, row := range data {
			if col < len(row) {
				cells[i] = strings.TrimSpace(row[col])
			}
		}

		if numeric, ok := tryNumeric(cells); ok {
			if err := table.SetNumeric(name, numeric); err != nil {
				return nil, errors.Wrap(err, "failed to add numeric column")
			}
			continue
		}
		if err := table.SetCategorical(name, cells); err != nil {
			return nil, errors.Wrap(err, "failed to add categorical column")
		}
	}
	return table, nil
}

// tryNumeric parses a column as float64, returning ok=false on the first
// non-empty cell that fails to parse. An all-empty column stays
// categorical.
func tryNumeric(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	seen := false
	for i, cell := range cells {
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
		seen = true
	}
	return out, seen
}
