// Package ports defines the collaborator interfaces the pipeline depends
// on. The engine consumes these; adapters implement them.
package ports

import (
	"context"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
)

// DatasetReader materializes a raw record set from a delimited or
// spreadsheet file.
type DatasetReader interface {
	ReadTable(path string) (*dataset.Table, error)
}

// Cleaner imputes missing values and drops rows unusable downstream.
type Cleaner interface {
	Clean(t *dataset.Table) *dataset.Table
}

// ResultStore persists completed runs and their ordered result lists.
type ResultStore interface {
	SaveRun(ctx context.Context, run abtest.Run, results []abtest.TestResult) error
	ListRuns(ctx context.Context) ([]abtest.Run, error)
	ResultsByRun(ctx context.Context, runID string) ([]abtest.TestResult, error)
}

// ReportWriter renders an ordered result list into a human-readable
// summary.
type ReportWriter interface {
	WriteSummary(path string, results []abtest.TestResult, alpha float64) error
}
